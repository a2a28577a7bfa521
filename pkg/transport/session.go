// Package transport delivers pose updates to the puppetry host.
//
// Every transport exposes the same Session: a liveness flag owned by the
// host, fire-and-forget pose delivery, get requests, and a registry of
// handlers for host commands. Implementations differ only in how protocol
// messages are framed on the wire.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-puppet/pkg/pose"
	"github.com/teslashibe/go-puppet/pkg/protocol"
)

// ErrClosed is returned when using a session that has stopped.
var ErrClosed = errors.New("transport: session closed")

// CommandHandler handles a named host command.
type CommandHandler func(args map[string]interface{})

// Session is a live connection to the host.
type Session interface {
	// IsRunning reports whether the host still wants updates.
	IsRunning() bool

	// Send delivers one pose update.
	Send(ctx context.Context, update pose.Update) error

	// Get asks the host for named values and waits for the reply.
	Get(ctx context.Context, keys ...string) (map[string]interface{}, error)

	// Handle registers h for command, replacing any previous handler.
	Handle(command string, h CommandHandler)

	// Done is closed once the session stops.
	Done() <-chan struct{}

	// Close stops the session and releases the connection.
	Close() error
}

// writeFunc puts one message on the wire.
type writeFunc func(ctx context.Context, msg *protocol.Message) error

// session holds the transport-independent parts of a Session.
type session struct {
	name   string
	logger *slog.Logger
	write  writeFunc

	running  atomic.Bool
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	handlers map[string]CommandHandler
	pending  map[string]chan map[string]interface{}
}

func newSession(name string, logger *slog.Logger, write writeFunc) *session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &session{
		name:     name,
		logger:   logger.With("transport", name),
		write:    write,
		done:     make(chan struct{}),
		handlers: make(map[string]CommandHandler),
		pending:  make(map[string]chan map[string]interface{}),
	}
	s.running.Store(true)
	return s
}

// IsRunning reports whether the session is live.
func (s *session) IsRunning() bool {
	return s.running.Load()
}

// Done is closed when the session stops.
func (s *session) Done() <-chan struct{} {
	return s.done
}

// stop flips the liveness flag. Safe to call more than once.
func (s *session) stop(reason string) {
	s.stopOnce.Do(func() {
		s.running.Store(false)
		close(s.done)
		s.logger.Info("session stopped", "reason", reason)
	})
}

// Handle registers a command handler.
func (s *session) Handle(command string, h CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		delete(s.handlers, command)
		return
	}
	s.handlers[command] = h
}

// Send wraps update in a set message and writes it.
func (s *session) Send(ctx context.Context, update pose.Update) error {
	if !s.IsRunning() {
		return ErrClosed
	}
	msg, err := protocol.NewSetMessage(update)
	if err != nil {
		return err
	}
	return s.write(ctx, msg)
}

// Get sends a get request and blocks until the matching reply arrives.
func (s *session) Get(ctx context.Context, keys ...string) (map[string]interface{}, error) {
	if !s.IsRunning() {
		return nil, ErrClosed
	}
	msg, err := protocol.NewGetMessage(keys...)
	if err != nil {
		return nil, err
	}

	reply := make(chan map[string]interface{}, 1)
	s.mu.Lock()
	s.pending[msg.ID] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.write(ctx, msg); err != nil {
		return nil, fmt.Errorf("get %v: %w", keys, err)
	}

	select {
	case values := <-reply:
		return values, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// dispatch routes one inbound message.
func (s *session) dispatch(ctx context.Context, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Warn("dropping inbound message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.TypeCommand:
		cmd, err := msg.GetCommandData()
		if err != nil {
			s.logger.Warn("bad command payload", "error", err)
			return
		}
		s.runCommand(cmd)

	case protocol.TypeReply:
		values, err := msg.GetReplyValues()
		if err != nil {
			s.logger.Warn("bad reply payload", "error", err)
			return
		}
		s.mu.Lock()
		ch, ok := s.pending[msg.ReplyTo]
		s.mu.Unlock()
		if !ok {
			s.logger.Debug("reply for unknown request", "reply_to", msg.ReplyTo)
			return
		}
		select {
		case ch <- values:
		default:
		}

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			s.logger.Warn("bad ping payload", "error", err)
			return
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return
		}
		if err := s.write(ctx, pong); err != nil {
			s.logger.Warn("pong failed", "error", err)
		}

	default:
		s.logger.Debug("ignoring inbound message", "type", msg.Type)
	}
}

func (s *session) runCommand(cmd *protocol.CommandData) {
	if cmd.Command == protocol.CommandStop {
		s.stop("host sent stop")
		return
	}

	s.mu.Lock()
	h, ok := s.handlers[cmd.Command]
	s.mu.Unlock()
	if !ok {
		s.logger.Info("unknown command", "command", cmd.Command, "known", s.knownCommands())
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command handler panicked", "command", cmd.Command, "panic", r)
		}
	}()
	h(cmd.Args)
}

func (s *session) knownCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
