// Package player drives an animation at a fixed frame period and hands each
// frame's pose update to the host session.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-puppet/internal/log"
	"github.com/teslashibe/go-puppet/pkg/animation"
	"github.com/teslashibe/go-puppet/pkg/pose"
)

const (
	// heartbeatFrames is how often the loop logs progress at debug level.
	heartbeatFrames = 100

	// errorLogInterval limits how often send failures are logged.
	errorLogInterval = 5 * time.Second
)

var (
	// ErrInvalidPeriod is returned by NewRunner for a non-positive frame period.
	ErrInvalidPeriod = errors.New("player: frame period must be positive")
	// ErrMissingDependency is returned by NewRunner for a nil animation or session.
	ErrMissingDependency = errors.New("player: animation and session are required")
)

// Liveness reports whether the host still wants frames.
type Liveness interface {
	IsRunning() bool
}

// Sender delivers one pose update to the host.
type Sender interface {
	Send(ctx context.Context, update pose.Update) error
}

// Session is what the runner needs from a host connection.
type Session interface {
	Liveness
	Sender
}

// doner is implemented by sessions that can signal shutdown, letting the
// runner wake from its inter-frame sleep early.
type doner interface {
	Done() <-chan struct{}
}

// Observer is notified after every frame, e.g. to feed a dashboard.
// OnFrame runs on the loop goroutine and must not block.
type Observer interface {
	OnFrame(frame animation.Frame, stats Stats)
}

// Stats summarizes the loop so far.
type Stats struct {
	Animation string          `json:"animation"`
	Running   bool            `json:"running"`
	Frames    uint64          `json:"frames"`
	Errors    uint64          `json:"errors"`
	LastDT    float64         `json:"last_dt"`
	LastFrame animation.Frame `json:"last_frame"`
	StartedAt time.Time       `json:"started_at"`
}

// Runner paces an Animation against a Session.
type Runner struct {
	anim    animation.Animation
	session Session
	period  time.Duration
	logger  *slog.Logger

	// Injected for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	// Limits send-failure warnings
	warnLimit rate.Sometimes

	mu        sync.RWMutex
	observers []Observer
	stats     Stats
}

// NewRunner creates a runner emitting one frame per period.
func NewRunner(anim animation.Animation, session Session, period time.Duration) (*Runner, error) {
	if isNil(anim) || isNil(session) {
		return nil, ErrMissingDependency
	}
	if period <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, period)
	}

	r := &Runner{
		anim:    anim,
		session: session,
		period:  period,
		logger:  log.L(),
		now:     time.Now,
		stats:   Stats{Animation: anim.Name()},

		warnLimit: rate.Sometimes{First: 1, Interval: errorLogInterval},
	}
	r.sleep = r.wait
	return r, nil
}

// isNil reports whether v is nil or an interface holding a nil pointer.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// AddObserver registers o for per-frame notifications.
func (r *Runner) AddObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Period returns the frame period.
func (r *Runner) Period() time.Duration {
	return r.period
}

// Stats returns a snapshot of loop counters.
func (r *Runner) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

// Run drives the animation until the session stops (returns nil) or ctx is
// cancelled (returns ctx.Err()). Send failures are counted and logged but
// never end the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	logger := r.logger.With("animation", r.anim.Name())
	r.stats.Running = true
	r.stats.StartedAt = r.now()
	last := r.stats.StartedAt
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.stats.Running = false
		r.mu.Unlock()
	}()

	logger.Info("frame loop started", "period", r.period)

	for {
		if err := ctx.Err(); err != nil {
			logger.Info("frame loop cancelled", "frames", r.Stats().Frames)
			return err
		}
		if !r.session.IsRunning() {
			logger.Info("session ended, frame loop stopped", "frames", r.Stats().Frames)
			return nil
		}

		start := r.now()
		dt := start.Sub(last).Seconds()
		last = start

		frame := r.anim.ComputeFrame(dt)
		err := r.session.Send(ctx, frame.Update)
		r.record(logger, frame, dt, err)

		compute := r.now().Sub(start)
		if wait := r.period - compute; wait > 0 {
			if err := r.sleep(ctx, wait); err != nil {
				logger.Info("frame loop cancelled", "frames", r.Stats().Frames)
				return err
			}
		}
	}
}

// record updates stats, logs, and notifies observers for one frame.
func (r *Runner) record(logger *slog.Logger, frame animation.Frame, dt float64, sendErr error) {
	r.mu.Lock()
	r.stats.Frames++
	r.stats.LastDT = dt
	r.stats.LastFrame = frame
	if sendErr != nil {
		r.stats.Errors++
	}
	stats := r.stats
	observers := r.observers
	r.mu.Unlock()

	if sendErr != nil {
		r.warnLimit.Do(func() {
			logger.Warn("pose send failed", "error", sendErr, "errors", stats.Errors)
		})
	}

	if stats.Frames%heartbeatFrames == 0 {
		logger.Debug("frame loop heartbeat",
			"frames", stats.Frames,
			"errors", stats.Errors,
			"mode", frame.Mode,
			"nod", frame.Angles.Nod,
			"turn", frame.Angles.Turn)
	}

	for _, o := range observers {
		o.OnFrame(frame, stats)
	}
}

// wait sleeps for d, waking early if ctx is cancelled or the session ends.
func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var done <-chan struct{}
	if dn, ok := r.session.(doner); ok {
		done = dn.Done()
	}

	select {
	case <-timer.C:
		return nil
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
