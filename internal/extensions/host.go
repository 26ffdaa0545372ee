package extensions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/models"
	"github.com/desertthunder/medley/internal/shared"
)

const (
	// DefaultTimeout bounds every handshake and hook call.
	DefaultTimeout = 2 * time.Second
	// DefaultFailureThreshold is the number of consecutive failures that disables an extension.
	DefaultFailureThreshold = 3
)

// Spec describes an extension process to launch.
type Spec struct {
	Name    string
	Command string
	Args    []string
	Env     []string // appended to the host environment
}

// HostedExtension is the runtime record of a registered extension.
type HostedExtension struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	Hooks     []Hook `json:"hooks"`
	Enabled   bool   `json:"enabled"`
	Failures  int    `json:"failures"`
	LastError string `json:"last_error,omitempty"`
}

// CallError is a failed handshake or hook invocation.
type CallError struct {
	Extension string
	Hook      Hook // empty for the handshake
	Err       error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	if e.Hook == "" {
		return fmt.Sprintf("extension %s: load: %v", e.Extension, e.Err)
	}
	return fmt.Sprintf("extension %s: %s: %v", e.Extension, e.Hook, e.Err)
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error { return e.Err }

// Is matches [shared.ErrExtension] in addition to the wrapped error.
func (e *CallError) Is(target error) bool { return target == shared.ErrExtension }

// Options configures a [Host].
type Options struct {
	Timeout          time.Duration
	FailureThreshold int
	Logger           *log.Logger
}

type hosted struct {
	meta     ExtensionMetadata
	conn     *conn
	cmd      *exec.Cmd // nil for attached transports
	enabled  bool
	failures int
	lastErr  string
}

func (h *hosted) record() HostedExtension {
	return HostedExtension{
		ID:        h.meta.ID,
		Name:      h.meta.Name,
		Version:   h.meta.Version,
		Hooks:     slices.Clone(h.meta.Hooks),
		Enabled:   h.enabled,
		Failures:  h.failures,
		LastError: h.lastErr,
	}
}

// Host runs extensions and dispatches hooks through them.
type Host struct {
	timeout   time.Duration
	threshold int
	logger    *log.Logger

	mu   sync.RWMutex
	exts []*hosted
}

// NewHost creates a host with no extensions.
func NewHost(opts Options) *Host {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	return &Host{
		timeout:   opts.Timeout,
		threshold: opts.FailureThreshold,
		logger:    shared.WithLogger(opts.Logger, "component", "extensions"),
	}
}

// Launch starts the extension process and performs the handshake over its stdin and stdout.
// On failure the process is stopped and the extension is not registered.
func (h *Host) Launch(ctx context.Context, spec Spec) (HostedExtension, error) {
	if spec.Command == "" {
		return HostedExtension{}, fmt.Errorf("%w: extension %s has no command", shared.ErrInvalidConfig, spec.Name)
	}

	logger := h.logger.With("extension", spec.Name)

	cmd := exec.Command(spec.Command, spec.Args...)
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	cmd.Stderr = logger.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel}).Writer()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return HostedExtension{}, fmt.Errorf("%w: %s: %v", shared.ErrExtension, spec.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return HostedExtension{}, fmt.Errorf("%w: %s: %v", shared.ErrExtension, spec.Name, err)
	}

	if err := cmd.Start(); err != nil {
		logger.Warn("extension failed to start", "command", spec.Command, "error", err)
		return HostedExtension{}, &CallError{Extension: spec.Name, Err: fmt.Errorf("%w: %v", shared.ErrExtensionExited, err)}
	}

	rw := &pipeRW{Reader: stdout, WriteCloser: stdin}
	ext, err := h.attach(ctx, spec.Name, rw, cmd)
	if err != nil {
		stopProcess(cmd, h.timeout)
		return HostedExtension{}, err
	}

	logger.Debug("extension process started", "pid", cmd.Process.Pid)
	return ext, nil
}

// Attach performs the handshake over an already connected transport.
func (h *Host) Attach(ctx context.Context, name string, rw io.ReadWriteCloser) (HostedExtension, error) {
	return h.attach(ctx, name, rw, nil)
}

func (h *Host) attach(ctx context.Context, name string, rw io.ReadWriteCloser, cmd *exec.Cmd) (HostedExtension, error) {
	logger := h.logger.With("extension", name)
	c := newConn(rw, logger)

	meta, err := h.handshake(ctx, c)
	if err != nil {
		_ = c.close()
		logger.Warn("extension handshake failed, not registered", "error", err)
		return HostedExtension{}, &CallError{Extension: name, Err: err}
	}

	if meta.Protocol != 0 && meta.Protocol != ProtocolVersion {
		logger.Warn("extension built for a different protocol revision", "extension_protocol", meta.Protocol, "host_protocol", ProtocolVersion)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, existing := range h.exts {
		if existing.meta.ID == meta.ID {
			_ = c.close()
			return HostedExtension{}, &CallError{Extension: name, Err: fmt.Errorf("%w: duplicate extension id %s", shared.ErrExtensionResponse, meta.ID)}
		}
	}

	ext := &hosted{meta: meta, conn: c, cmd: cmd, enabled: true}
	h.exts = append(h.exts, ext)

	logger.Info("extension loaded", "id", meta.ID, "version", meta.Version, "hooks", meta.Hooks)
	return ext.record(), nil
}

func (h *Host) handshake(ctx context.Context, c *conn) (ExtensionMetadata, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp, err := c.call(callCtx, Command{Type: CommandLoad})
	if err != nil {
		return ExtensionMetadata{}, err
	}

	switch {
	case resp.Type == ResponseError:
		return ExtensionMetadata{}, fmt.Errorf("%w: %s", shared.ErrExtension, resp.Error)
	case resp.Type != ResponseLoad || resp.Metadata == nil:
		return ExtensionMetadata{}, fmt.Errorf("%w: expected load metadata, got %q", shared.ErrExtensionResponse, resp.Type)
	case resp.Metadata.ID == "":
		return ExtensionMetadata{}, fmt.Errorf("%w: metadata without id", shared.ErrExtensionResponse)
	}

	meta := *resp.Metadata
	if meta.Name == "" {
		meta.Name = meta.ID
	}
	return meta, nil
}

// Dispatch pipes tracks through every enabled extension that declared hook, in registration
// order. A failing stage is skipped and the pipeline continues with the tracks as they were
// before it. Dispatch always returns a track list.
func (h *Host) Dispatch(ctx context.Context, hook Hook, tracks []models.Track) []models.Track {
	current := tracks
	for _, ext := range h.subscribers(hook) {
		if ctx.Err() != nil {
			break
		}

		out, err := h.invoke(ctx, ext, hook, current)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			h.recordFailure(ext, err)
			continue
		}
		h.recordSuccess(ext)
		current = out
	}
	return current
}

func (h *Host) subscribers(hook Hook) []*hosted {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*hosted
	for _, ext := range h.exts {
		if ext.enabled && ext.meta.Declares(hook) {
			out = append(out, ext)
		}
	}
	return out
}

func (h *Host) invoke(ctx context.Context, ext *hosted, hook Hook, tracks []models.Track) ([]models.Track, error) {
	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	wrap := func(err error) error { return &CallError{Extension: ext.meta.ID, Hook: hook, Err: err} }

	resp, err := ext.conn.call(callCtx, Command{Type: CommandHook, Hook: hook, Tracks: tracks})
	if err != nil {
		return nil, wrap(err)
	}

	switch resp.Type {
	case ResponseHook:
		if resp.Tracks == nil {
			return []models.Track{}, nil
		}
		return resp.Tracks, nil
	case ResponseError:
		return nil, wrap(errors.New(resp.Error))
	default:
		return nil, wrap(fmt.Errorf("%w: expected hook response, got %q", shared.ErrExtensionResponse, resp.Type))
	}
}

func (h *Host) recordFailure(ext *hosted, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ext.failures++
	ext.lastErr = err.Error()
	logger := h.logger.With("extension", ext.meta.ID)
	logger.Warn("extension call failed, skipping", "failures", ext.failures, "error", err)

	if ext.enabled && ext.failures >= h.threshold {
		ext.enabled = false
		logger.Error("extension disabled after consecutive failures", "threshold", h.threshold)
	}
}

func (h *Host) recordSuccess(ext *hosted) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ext.failures = 0
}

// Extensions lists every registered extension, disabled ones included, in registration order.
func (h *Host) Extensions() []HostedExtension {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]HostedExtension, 0, len(h.exts))
	for _, ext := range h.exts {
		out = append(out, ext.record())
	}
	return out
}

// Extension returns one registered extension.
func (h *Host) Extension(id string) (HostedExtension, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ext := range h.exts {
		if ext.meta.ID == id {
			return ext.record(), true
		}
	}
	return HostedExtension{}, false
}

// Reset re-enables a disabled extension and clears its failure count.
func (h *Host) Reset(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ext := range h.exts {
		if ext.meta.ID == id {
			ext.enabled = true
			ext.failures = 0
			ext.lastErr = ""
			h.logger.Info("extension reset", "extension", id)
			return nil
		}
	}
	return fmt.Errorf("%w: extension %s", shared.ErrNotFound, id)
}

// Close disconnects every extension and stops launched processes.
func (h *Host) Close() error {
	h.mu.Lock()
	exts := h.exts
	h.exts = nil
	h.mu.Unlock()

	var errs []error
	for _, ext := range exts {
		if err := ext.conn.close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", ext.meta.ID, err))
		}
		if ext.cmd != nil {
			stopProcess(ext.cmd, h.timeout)
		}
	}
	return errors.Join(errs...)
}

// stopProcess waits for a process whose stdin was closed and kills it after grace.
func stopProcess(cmd *exec.Cmd, grace time.Duration) {
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		_ = cmd.Process.Kill()
		<-done
	}
}

// pipeRW joins a child's stdout and stdin. Close closes both.
type pipeRW struct {
	io.Reader
	io.WriteCloser
}

func (p *pipeRW) Close() error {
	err := p.WriteCloser.Close()
	if rc, ok := p.Reader.(io.Closer); ok {
		err = errors.Join(err, rc.Close())
	}
	return err
}
