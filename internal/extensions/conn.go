package extensions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/medley/internal/shared"
)

// conn multiplexes calls over one extension transport. A single reader goroutine routes every
// response to the pending call with the same Seq; responses nobody waits for are dropped.
type conn struct {
	r      io.Reader
	w      io.Writer
	closer io.Closer
	logger *log.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]chan Response
	done    chan struct{}
	err     error
	closed  bool
}

func newConn(rw io.ReadWriteCloser, logger *log.Logger) *conn {
	c := &conn{
		r:       rw,
		w:       rw,
		closer:  rw,
		logger:  logger,
		pending: make(map[uint64]chan Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *conn) readLoop() {
	for {
		var resp Response
		if err := ReadFrame(c.r, &resp); err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: stream closed", shared.ErrExtensionExited)
			} else if !errors.Is(err, shared.ErrExtensionResponse) {
				err = fmt.Errorf("%w: %v", shared.ErrExtensionExited, err)
			}
			c.fail(err)
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.Seq]
		delete(c.pending, resp.Seq)
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("discarding late response", "seq", resp.Seq, "type", resp.Type)
			continue
		}
		ch <- resp
	}
}

// fail marks the connection dead. Pending and future calls return err.
func (c *conn) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	c.err = err
	c.pending = make(map[uint64]chan Response)
	close(c.done)
	c.logger.Debug("extension connection ended", "error", err)
}

// call sends cmd and waits for its response, ctx or the end of the connection.
func (c *conn) call(ctx context.Context, cmd Command) (Response, error) {
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return Response{}, err
	}
	c.seq++
	cmd.Seq = c.seq
	ch := make(chan Response, 1)
	c.pending[cmd.Seq] = ch
	c.mu.Unlock()

	written := make(chan error, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		written <- WriteFrame(c.w, cmd)
	}()

	select {
	case err := <-written:
		if err != nil {
			c.forget(cmd.Seq)
			return Response{}, fmt.Errorf("%w: %v", shared.ErrExtensionExited, err)
		}
	case <-ctx.Done():
		c.forget(cmd.Seq)
		return Response{}, ctxError(ctx)
	case <-c.done:
		return Response{}, c.terminal()
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.forget(cmd.Seq)
		return Response{}, ctxError(ctx)
	case <-c.done:
		return Response{}, c.terminal()
	}
}

func (c *conn) forget(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, seq)
}

func (c *conn) terminal() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *conn) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.closer.Close()
}

func ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", shared.ErrExtensionTimeout, ctx.Err())
	}
	return ctx.Err()
}
