// Package web provides the drowsiness dashboard: state API, live websocket
// updates and the control surface (camera flip, loop start/stop).
package web

import (
	"context"
	"log/slog"
	"net"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-drowsy/internal/log"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/display"
	"github.com/teslashibe/go-drowsy/pkg/hub"
	"github.com/teslashibe/go-drowsy/pkg/loop"
)

// Server is the web dashboard server
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	store    *display.Store
	stateHub *hub.Hub
	cancel   context.CancelFunc
	unsub    func()

	// Control callbacks; a nil callback answers 503
	OnLoopStart func() error
	OnLoopStop  func() error
	OnStats     func() loop.Stats

	// Camera is nil when no capture device is attached
	Camera *camera.Manager
}

// NewServer creates a dashboard serving store on port. Static files are
// served from staticDir when it exists.
func NewServer(port string, store *display.Store, staticDir string) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		port:     port,
		logger:   log.Component("web"),
		store:    store,
		stateHub: hub.New("state"),
		cancel:   cancel,
	}
	go s.stateHub.Run(ctx)

	s.unsub = store.Subscribe(func(st display.State) {
		if err := s.stateHub.BroadcastJSON(st); err != nil {
			s.logger.Warn("encode state", "error", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "Drowsiness Dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if staticDir != "" {
		if fi, err := os.Stat(staticDir); err == nil && fi.IsDir() {
			app.Static("/", staticDir)
		}
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/state", s.handleState)
	api.Get("/stats", s.handleStats)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleUpdateCamera)
	api.Post("/camera/flip", s.handleFlipCamera)
	api.Post("/loop/start", s.handleLoopStart)
	api.Post("/loop/stop", s.handleLoopStop)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start serves on the configured port and blocks.
func (s *Server) Start() error {
	s.logger.Info("web dashboard", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// Serve serves on an existing listener and blocks.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// StartAsync starts the web server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server error", "error", err)
		}
	}()
}

// ClientCount returns the number of live websocket clients.
func (s *Server) ClientCount() int {
	return s.stateHub.ClientCount()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	s.unsub()
	s.cancel()
	<-s.stateHub.Done()
	return s.app.Shutdown()
}

func (s *Server) stateMessage() hub.Message {
	msg, _ := hub.Encode(s.store.State())
	return msg
}
