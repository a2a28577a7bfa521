package web

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-puppet/pkg/hub"
	"github.com/teslashibe/go-puppet/pkg/player"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	player.Stats
	Joint   string `json:"joint"`
	Clients int    `json:"clients"`
}

// handleStatus returns frame loop counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		Joint:   s.joint,
		Clients: s.poseHub.ClientCount(),
	}
	if s.status != nil {
		resp.Stats = s.status.Stats()
	}
	return c.JSON(resp)
}

// handlePose returns the most recent frame
func (s *Server) handlePose(c *fiber.Ctx) error {
	ev, ok := s.lastPose()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no frame computed yet",
		})
	}
	return c.JSON(ev)
}

// handlePoseWS streams poses, starting with the latest one
func (s *Server) handlePoseWS(c *websocket.Conn) {
	var initial []hub.Message
	if ev, ok := s.lastPose(); ok {
		if data, err := json.Marshal(ev); err == nil {
			initial = append(initial, hub.NewJSONMessage(data))
		}
	}

	client := hub.NewClient(s.poseHub, c, initial...)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}
