// Package web serves the browser dashboard: a REST control surface
// and websocket streams for status, logs, and camera frames.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/camera"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/hub"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/notes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
	"github.com/teslashibe/go-raspbot/pkg/tracking"
)

// CommandSink is where dashboard commands go. The command normalizer
// satisfies it.
type CommandSink interface {
	HandleRemoteCommand(action, modeName, colorName string, src command.Source) error
}

// EngineView is the read side of the mode engine.
type EngineView interface {
	Mode() modes.Mode
	Transitions() uint64
}

// Config holds the dashboard server settings.
type Config struct {
	// Port is the TCP port the server listens on.
	Port string

	// StaticDir serves the dashboard files when non-empty.
	StaticDir string

	// StatusEvery is how often the status stream pushes a snapshot.
	StatusEvery time.Duration
}

// DefaultConfig returns the standard dashboard settings.
func DefaultConfig() Config {
	return Config{
		Port:        "8080",
		StaticDir:   "./web",
		StatusEvery: 2 * time.Second,
	}
}

// Validate checks the config values.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("web: port is required")
	}
	if c.StatusEvery <= 0 {
		return errors.New("web: status interval must be positive")
	}
	return nil
}

// Deps are the subsystems the dashboard exposes. Commands is
// required; handlers answer 503 for anything left nil.
type Deps struct {
	Commands CommandSink
	Engine   EngineView
	Queue    *command.Queue
	Arbiter  *resource.Arbiter
	Emotions *emotion.Broadcaster
	Tracking *tracking.Follower
	Camera   *camera.Manager
	Notes    *notes.Service

	// Ring buffers the dashboard log stream. Wire the same ring
	// into log.InitTee so global logs land in it; when nil the
	// server makes a private ring that only the dashboard sees.
	Ring *LogRing

	// Start is when the process came up, for the uptime readout.
	Start time.Time
}

// Server is the dashboard server.
type Server struct {
	cfg    Config
	deps   Deps
	app    *fiber.App
	logger *slog.Logger
	ring   *LogRing

	statusHub *hub.Hub
	logHub    *hub.Hub
	cameraHub *hub.Hub
}

// NewServer builds the fiber app and wires the routes.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Commands == nil {
		return nil, errors.New("web: command sink is required")
	}
	if deps.Start.IsZero() {
		deps.Start = time.Now()
	}

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		logger:    log.L().With("component", "web"),
		ring:      deps.Ring,
		statusHub: hub.New("status"),
		logHub:    hub.New("logs"),
		cameraHub: hub.New("camera"),
	}
	if s.ring == nil {
		s.ring = NewLogRing(DefaultLogLines)
	}
	s.ring.OnEntry = func(e LogEntry) {
		s.logHub.BroadcastJSON(e)
	}

	app := fiber.New(fiber.Config{
		AppName:               "raspbot dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if cfg.StaticDir != "" {
		app.Static("/", cfg.StaticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/modes", s.handleModes)
	api.Post("/mode", s.handleSelectMode)
	api.Post("/stop", s.handleStop)
	api.Post("/exit", s.handleExit)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleSetCamera)
	api.Get("/tracking", s.handleGetTracking)
	api.Post("/tracking", s.handleSetTracking)
	api.Get("/notes", s.handleNotes)
	api.Get("/notes/status", s.handleNotesStatus)
	api.Get("/notes/callback", s.handleOAuthCallback)
	api.Get("/logs", s.handleLogs)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app
	return s, nil
}

// App exposes the fiber app for tests and embedding.
func (s *Server) App() *fiber.App { return s.app }

// Ring returns the log ring the dashboard serves.
func (s *Server) Ring() *LogRing { return s.ring }

// Run starts the hubs, the status push loop, and the listener. It
// blocks until ctx ends or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)
	go s.cameraHub.Run(ctx)
	go s.pushStatus(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(":" + s.cfg.Port)
	}()

	s.logger.Info("dashboard up", "port", s.cfg.Port)

	select {
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(3 * time.Second); err != nil {
			s.logger.Warn("dashboard shutdown", "error", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

// SendFrame forwards a JPEG frame to dashboard viewers. Its shape
// matches the vision pipeline's frame sink.
func (s *Server) SendFrame(jpeg []byte) {
	s.cameraHub.BroadcastBinary(jpeg)
}

// pushStatus broadcasts a state snapshot on a fixed tick while anyone
// is watching.
func (s *Server) pushStatus(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatusEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() == 0 {
				continue
			}
			s.statusHub.BroadcastJSON(s.status())
		}
	}
}
