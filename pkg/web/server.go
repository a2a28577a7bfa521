// Package web serves a small monitoring dashboard for the frame loop: a
// status endpoint and a websocket stream of every computed pose.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-puppet/internal/log"
	"github.com/teslashibe/go-puppet/pkg/animation"
	"github.com/teslashibe/go-puppet/pkg/hub"
	"github.com/teslashibe/go-puppet/pkg/player"
	"github.com/teslashibe/go-puppet/pkg/pose"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// StatusSource reports frame loop counters.
type StatusSource interface {
	Stats() player.Stats
}

// PoseEvent is one frame as streamed to dashboard clients.
type PoseEvent struct {
	Frame   uint64         `json:"frame"`
	DT      float64        `json:"dt"`
	Mode    animation.Mode `json:"mode"`
	Angles  pose.Euler     `json:"angles"`
	Decoded pose.Euler     `json:"decoded"` // recovered from the packed rotation
	Update  pose.Update    `json:"update"`
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	port   string
	joint  string
	logger *slog.Logger

	status  StatusSource
	poseHub *hub.Hub

	mu   sync.RWMutex
	last *PoseEvent
}

// NewServer creates a dashboard for the frame loop driving joint.
func NewServer(port, joint string, status StatusSource) *Server {
	s := &Server{
		port:    port,
		joint:   joint,
		logger:  log.With("component", "web"),
		status:  status,
		poseHub: hub.New("pose"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-puppet",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/pose", s.handlePose)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/pose", websocket.New(s.handlePoseWS))

	s.app = app
	return s
}

// OnFrame records the frame and broadcasts it to connected clients.
func (s *Server) OnFrame(frame animation.Frame, stats player.Stats) {
	ev := &PoseEvent{
		Frame:  stats.Frames,
		DT:     stats.LastDT,
		Mode:   frame.Mode,
		Angles: frame.Angles,
		Update: frame.Update,
	}
	if rot, ok := frame.Update.Get(s.joint, pose.LocalRotation); ok {
		ev.Decoded = rot.Euler()
	}

	s.mu.Lock()
	s.last = ev
	s.mu.Unlock()

	if s.poseHub.IsRunning() {
		if err := s.poseHub.BroadcastJSON(ev); err != nil {
			s.logger.Debug("pose broadcast failed", "error", err)
		}
	}
}

// lastPose returns the most recent frame, if any.
func (s *Server) lastPose() (*PoseEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.poseHub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)
		errc <- s.app.Listen(":" + s.port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}
