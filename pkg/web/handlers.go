package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-ohbot/pkg/gesture"
	"github.com/teslashibe/go-ohbot/pkg/hub"
)

// SpeakingRequest is the body of POST /api/speaking.
type SpeakingRequest struct {
	Text     string `json:"text"`
	Speaking bool   `json:"speaking"`
}

func unavailable(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": what + " not configured",
	})
}

// handleStatus returns the current speaking state and channel positions.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.opts.Status == nil {
		return unavailable(c, "status")
	}
	return c.JSON(s.opts.Status())
}

// handleDisplay returns the last display text.
func (s *Server) handleDisplay(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.display)
}

// handleSpeaking pushes a speaking-state change to the local agent.
func (s *Server) handleSpeaking(c *fiber.Ctx) error {
	if s.opts.Speaker == nil {
		return unavailable(c, "speaker")
	}

	var req SpeakingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if req.Text != "" {
		s.opts.Speaker.Respond(req.Text)
	}
	if err := s.opts.Speaker.SetSpeaking(req.Speaking); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "speaking": req.Speaking})
}

// handleListGestures returns the gesture names in priority order.
func (s *Server) handleListGestures(c *fiber.Ctx) error {
	if s.opts.Gestures == nil {
		return unavailable(c, "gestures")
	}
	return c.JSON(s.opts.Gestures.Registry().List())
}

// handlePlayGesture plays one gesture and returns once it has finished.
func (s *Server) handlePlayGesture(c *fiber.Ctx) error {
	if s.opts.Gestures == nil {
		return unavailable(c, "gestures")
	}

	name := c.Params("name")
	err := s.opts.Gestures.Play(c.UserContext(), name)
	switch {
	case errors.Is(err, gesture.ErrUnknownGesture):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		s.logger.Warn("gesture failed", "gesture", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "gesture": name})
}

// handleDisplayWS streams display events to one dashboard client.
func (s *Server) handleDisplayWS(c *websocket.Conn) {
	client := hub.NewClient(s.hub, c)
	if client == nil {
		return
	}
	client.Run()
}
