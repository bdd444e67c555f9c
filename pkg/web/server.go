// Package web provides the live dashboard: status and display text over
// HTTP and websocket, a push endpoint for speaking state, and metrics.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-ohbot/internal/log"
	"github.com/teslashibe/go-ohbot/pkg/display"
	"github.com/teslashibe/go-ohbot/pkg/gesture"
	"github.com/teslashibe/go-ohbot/pkg/hub"
	"github.com/teslashibe/go-ohbot/pkg/metrics"
)

// Speaker accepts speaking-state pushes. *agent.Local implements it.
type Speaker interface {
	Respond(text string)
	SetSpeaking(speaking bool) error
}

// Gestures plays named gestures. *gesture.Dispatcher implements it.
type Gestures interface {
	Play(ctx context.Context, name string) error
	Registry() *gesture.Registry
}

// Options configures a Server. Every collaborator is optional; routes
// whose collaborator is missing answer 503.
type Options struct {
	Addr     string
	Status   func() display.Status
	Speaker  Speaker
	Gestures Gestures
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// DisplayEvent is the websocket payload for display text.
type DisplayEvent struct {
	Type string    `json:"type"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	opts   Options
	logger *slog.Logger
	hub    *hub.Hub

	mu      sync.RWMutex
	display DisplayEvent
}

// NewServer creates a dashboard server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Component("web")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	s := &Server{
		opts:    opts,
		logger:  opts.Logger,
		hub:     hub.New("display", opts.Logger),
		display: DisplayEvent{Type: "display"},
	}

	app := fiber.New(fiber.Config{
		AppName:               "Ohbot Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/display", s.handleDisplay)
	api.Post("/speaking", s.handleSpeaking)
	api.Get("/gestures", s.handleListGestures)
	api.Post("/gestures/:name", s.handlePlayGesture)

	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/display", websocket.New(s.handleDisplayWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Hub returns the display hub.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Show implements display.Sink by broadcasting text to websocket clients.
func (s *Server) Show(text string) error {
	ev := DisplayEvent{Type: "display", Text: text, Time: time.Now()}
	s.mu.Lock()
	s.display = ev
	s.mu.Unlock()
	return s.hub.BroadcastJSON(ev)
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.hub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() { errc <- s.app.Listen(s.opts.Addr) }()
	s.logger.Info("dashboard listening", "addr", s.opts.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
