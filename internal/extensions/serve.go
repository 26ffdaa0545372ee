package extensions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/desertthunder/medley/internal/models"
)

// Extension is implemented by extension programs and served with [Serve].
type Extension interface {
	Metadata() ExtensionMetadata
	Handle(ctx context.Context, hook Hook, tracks []models.Track) ([]models.Track, error)
}

// Serve answers host commands read from r until the stream ends or ctx is done.
// Each hook command is handled in its own goroutine; responses are written as they complete.
// A clean end of stream returns nil.
func Serve(ctx context.Context, ext Extension, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	reply := func(resp Response) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return WriteFrame(w, resp)
	}

	meta := ext.Metadata()
	if meta.Protocol == 0 {
		meta.Protocol = ProtocolVersion
	}

	for {
		var cmd Command
		if err := ReadFrame(r, &cmd); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch cmd.Type {
		case CommandLoad:
			if err := reply(Response{Seq: cmd.Seq, Type: ResponseLoad, Metadata: &meta}); err != nil {
				return err
			}
		case CommandHook:
			wg.Add(1)
			go func(cmd Command) {
				defer wg.Done()
				tracks, err := ext.Handle(ctx, cmd.Hook, cmd.Tracks)
				resp := Response{Seq: cmd.Seq, Type: ResponseHook, Tracks: tracks}
				if err != nil {
					resp = Response{Seq: cmd.Seq, Type: ResponseError, Error: err.Error()}
				} else if resp.Tracks == nil {
					resp.Tracks = []models.Track{}
				}
				if err := reply(resp); err != nil {
					cancel()
				}
			}(cmd)
		default:
			resp := Response{Seq: cmd.Seq, Type: ResponseError, Error: fmt.Sprintf("unknown command %q", cmd.Type)}
			if err := reply(resp); err != nil {
				return err
			}
		}
	}
}

// ServeStdio serves ext over the process's standard streams.
func ServeStdio(ext Extension) error {
	return Serve(context.Background(), ext, os.Stdin, os.Stdout)
}
