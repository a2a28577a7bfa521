package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"

	"github.com/teslashibe/go-puppet/pkg/protocol"
)

// maxMessageSize is the largest inbound message accepted.
const maxMessageSize = 512 * 1024

// Stdio talks to a host that launched us as a child process: one JSON
// message per line on stdout, inbound messages one per line on stdin.
// EOF on stdin ends the session.
//
// Lines are written by a single writer goroutine. If the host stops reading
// stdout, Send returns when its context is done; the stuck write itself
// only ends when out is closed or fails.
type Stdio struct {
	*session

	in     io.Reader
	out    io.Writer
	writes chan writeRequest
}

type writeRequest struct {
	line []byte
	errc chan error
}

// NewStdio creates a stdio session and starts its writer. Call Start to
// begin reading in.
func NewStdio(in io.Reader, out io.Writer, logger *slog.Logger) *Stdio {
	s := &Stdio{
		in:     in,
		out:    out,
		writes: make(chan writeRequest),
	}
	s.session = newSession("stdio", logger, s.writeMessage)
	go s.writeLoop()
	return s
}

// Start reads inbound messages in a goroutine until in is exhausted.
func (s *Stdio) Start(ctx context.Context) {
	go s.readLoop(ctx)
}

func (s *Stdio) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Scanner reuses its buffer.
		data := append([]byte(nil), line...)
		s.dispatch(ctx, data)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Warn("stdin read failed", "error", err)
	}
	s.stop("stdin closed")
}

// writeLoop owns out until the session stops.
func (s *Stdio) writeLoop() {
	for {
		select {
		case req := <-s.writes:
			_, err := s.out.Write(req.line)
			req.errc <- err
		case <-s.done:
			return
		}
	}
}

func (s *Stdio) writeMessage(ctx context.Context, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	req := writeRequest{
		line: append(data, '\n'),
		errc: make(chan error, 1),
	}

	select {
	case s.writes <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}

	select {
	case err := <-req.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the session. The underlying reader is left open; the host
// owns stdin.
func (s *Stdio) Close() error {
	s.stop("closed")
	return nil
}
