package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-drowsy/pkg/hub"
	"github.com/teslashibe/go-drowsy/pkg/loop"
)

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

var errNotConfigured = errors.New("not configured")

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleState returns the displayed state
func (s *Server) handleState(c *fiber.Ctx) error {
	return c.JSON(s.store.State())
}

// handleStats returns loop outcome counters
func (s *Server) handleStats(c *fiber.Ctx) error {
	if s.OnStats == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errNotConfigured)
	}
	return c.JSON(s.OnStats())
}

// handleGetCamera returns the camera configuration
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errors.New("no camera"))
	}
	return c.JSON(s.Camera.GetConfig())
}

// handleUpdateCamera applies a partial camera config or a preset
func (s *Server) handleUpdateCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errors.New("no camera"))
	}
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := s.Camera.UpdateConfig(params); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, err)
	}
	return c.JSON(s.Camera.GetConfig())
}

// handleFlipCamera toggles between front and back camera
func (s *Server) handleFlipCamera(c *fiber.Ctx) error {
	if s.Camera == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errors.New("no camera"))
	}
	cfg, err := s.Camera.Flip()
	if err != nil {
		return errorJSON(c, fiber.StatusConflict, err)
	}
	s.logger.Info("camera flipped", "facing", string(cfg.Facing))
	return c.JSON(cfg)
}

// handleLoopStart mounts the inference loop
func (s *Server) handleLoopStart(c *fiber.Ctx) error {
	if s.OnLoopStart == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errNotConfigured)
	}
	if err := s.OnLoopStart(); err != nil {
		if errors.Is(err, loop.ErrAlreadyRunning) {
			return errorJSON(c, fiber.StatusConflict, err)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"running": true})
}

// handleLoopStop unmounts the inference loop
func (s *Server) handleLoopStop(c *fiber.Ctx) error {
	if s.OnLoopStop == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, errNotConfigured)
	}
	if err := s.OnLoopStop(); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"running": false})
}

// handleStateWS streams state changes, starting with the current state
func (s *Server) handleStateWS(conn *websocket.Conn) {
	client := hub.NewClient(s.stateHub, conn, s.stateMessage())
	client.Run()
}
