package extensions

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

// ProtocolVersion is the wire protocol revision spoken by this host. Extensions report the
// revision they were built against in [ExtensionMetadata.Protocol]; a mismatch is only logged.
const ProtocolVersion = 1

// MaxFrameSize bounds a single frame payload.
const MaxFrameSize = 16 << 20

// Hook names a catalog operation an extension can intercept.
type Hook string

const (
	// HookAddToQueue receives the tracks about to be queued and returns the tracks to queue instead.
	HookAddToQueue Hook = "add_to_queue"
)

// ParseHook validates a hook name.
func ParseHook(s string) (Hook, error) {
	switch Hook(s) {
	case HookAddToQueue:
		return HookAddToQueue, nil
	default:
		return "", fmt.Errorf("%w: unknown hook %q", shared.ErrInvalidArgument, s)
	}
}

// ExtensionMetadata is what an extension reports in its handshake.
type ExtensionMetadata struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Hooks    []Hook `json:"hooks"`
	Protocol int    `json:"protocol,omitempty"`
}

// Declares reports whether the extension asked for hook.
func (m ExtensionMetadata) Declares(hook Hook) bool { return slices.Contains(m.Hooks, hook) }

// CommandType tags a [Command].
type CommandType string

const (
	CommandLoad CommandType = "load"
	CommandHook CommandType = "hook"
)

// Command is sent from the host to an extension.
type Command struct {
	Seq    uint64         `json:"seq"`
	Type   CommandType    `json:"type"`
	Hook   Hook           `json:"hook,omitempty"`
	Tracks []models.Track `json:"tracks,omitempty"`
}

// ResponseType tags a [Response].
type ResponseType string

const (
	ResponseLoad  ResponseType = "load"
	ResponseHook  ResponseType = "hook"
	ResponseError ResponseType = "error"
)

// Response answers the [Command] with the same Seq.
type Response struct {
	Seq      uint64             `json:"seq"`
	Type     ResponseType       `json:"type"`
	Metadata *ExtensionMetadata `json:"metadata,omitempty"`
	Tracks   []models.Track     `json:"tracks"`
	Error    string             `json:"error,omitempty"`
}

// WriteFrame writes v as a 4-byte big-endian length followed by its JSON encoding.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds %d", shared.ErrInvalidArgument, len(payload), MaxFrameSize)
	}

	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame into v. A clean end of stream before the header returns [io.EOF].
// Oversized, truncated or undecodable frames wrap [shared.ErrExtensionResponse].
func ReadFrame(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%w: reading frame header: %v", shared.ErrExtensionResponse, err)
	}

	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return fmt.Errorf("%w: frame of %d bytes exceeds %d", shared.ErrExtensionResponse, size, MaxFrameSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("%w: reading frame body: %v", shared.ErrExtensionResponse, err)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: decoding frame: %v", shared.ErrExtensionResponse, err)
	}
	return nil
}
