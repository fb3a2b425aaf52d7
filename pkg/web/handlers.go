package web

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-raspbot/pkg/camera"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/hub"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/tracking"
)

// StatusView is the dashboard state snapshot, served on /api/status
// and pushed on /ws/status.
type StatusView struct {
	Mode        string            `json:"mode"`
	Transitions uint64            `json:"transitions"`
	Emotion     EmotionView       `json:"emotion"`
	Queue       QueueView         `json:"queue"`
	Leases      map[string]string `json:"leases"`
	UptimeS     int64             `json:"uptime_s"`
}

// EmotionView is the emotion part of the snapshot.
type EmotionView struct {
	Emotion    string  `json:"emotion"`
	Intensity  float64 `json:"intensity"`
	SourceMode string  `json:"source_mode,omitempty"`
}

// QueueView mirrors the queue counters with JSON names.
type QueueView struct {
	Pushed        uint64 `json:"pushed"`
	Dropped       uint64 `json:"dropped"`
	Coalesced     uint64 `json:"coalesced"`
	Superseded    uint64 `json:"superseded"`
	PriorityDepth int    `json:"priority_depth"`
	NormalDepth   int    `json:"normal_depth"`
}

func (s *Server) status() StatusView {
	view := StatusView{
		Leases:  map[string]string{},
		UptimeS: int64(time.Since(s.deps.Start).Seconds()),
	}
	if s.deps.Engine != nil {
		view.Mode = s.deps.Engine.Mode().String()
		view.Transitions = s.deps.Engine.Transitions()
	}
	if s.deps.Emotions != nil {
		st := s.deps.Emotions.Current()
		view.Emotion = EmotionView{
			Emotion:    st.Emotion.String(),
			Intensity:  st.Intensity,
			SourceMode: st.SourceMode,
		}
	}
	if s.deps.Queue != nil {
		qs := s.deps.Queue.Stats()
		view.Queue = QueueView{
			Pushed:        qs.Pushed,
			Dropped:       qs.Dropped,
			Coalesced:     qs.Coalesced,
			Superseded:    qs.Superseded,
			PriorityDepth: qs.PriorityDepth,
			NormalDepth:   qs.NormalDepth,
		}
	}
	if s.deps.Arbiter != nil {
		view.Leases = s.deps.Arbiter.Leases()
	}
	return view
}

// handleStatus returns the current state snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleModes lists what the mode menu can select.
func (s *Server) handleModes(c *fiber.Ctx) error {
	kinds := modes.SelectableKinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return c.JSON(fiber.Map{
		"modes":  names,
		"colors": []string{"red", "green", "blue", "yellow"},
	})
}

type modeRequest struct {
	Mode  string `json:"mode"`
	Color string `json:"color"`
}

// handleSelectMode queues a mode selection.
func (s *Server) handleSelectMode(c *fiber.Ctx) error {
	var req modeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Mode == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "mode is required"})
	}
	if err := s.deps.Commands.HandleRemoteCommand("select_mode", req.Mode, req.Color, command.SourceRemote); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "queued", "mode": req.Mode})
}

// handleStop queues a stop-all.
func (s *Server) handleStop(c *fiber.Ctx) error {
	if err := s.deps.Commands.HandleRemoteCommand("stop_all", "", "", command.SourceRemote); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "queued"})
}

// handleExit queues a shutdown.
func (s *Server) handleExit(c *fiber.Ctx) error {
	if err := s.deps.Commands.HandleRemoteCommand("exit", "", "", command.SourceRemote); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "queued"})
}

// handleGetCamera returns the camera config and sensor limits.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	if s.deps.Camera == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "camera manager not available"})
	}
	return c.JSON(fiber.Map{
		"config":       s.deps.Camera.GetConfig(),
		"capabilities": camera.Capabilities(),
	})
}

// handleSetCamera applies a partial camera config update.
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.deps.Camera == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "camera manager not available"})
	}
	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if err := s.deps.Camera.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(s.deps.Camera.GetConfig())
}

// handleGetTracking returns the steering tuning parameters.
func (s *Server) handleGetTracking(c *fiber.Ctx) error {
	if s.deps.Tracking == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "tracking not available"})
	}
	return c.JSON(s.deps.Tracking.GetTuningParams())
}

// handleSetTracking merges tuning changes into the steering config.
func (s *Server) handleSetTracking(c *fiber.Ctx) error {
	if s.deps.Tracking == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "tracking not available"})
	}
	var params tracking.TuningParams
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if problems := s.deps.Tracking.SetTuningParams(params); len(problems) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"problems": problems})
	}
	return c.JSON(s.deps.Tracking.GetTuningParams())
}

// handleNotes lists the stored notes.
func (s *Server) handleNotes(c *fiber.Ctx) error {
	if s.deps.Notes == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "notes not available"})
	}
	list, err := s.deps.Notes.List()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"notes": list, "count": s.deps.Notes.Count()})
}

// handleNotesStatus reports the Google Docs connection.
func (s *Server) handleNotesStatus(c *fiber.Ctx) error {
	if s.deps.Notes == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "notes not available"})
	}
	docs := s.deps.Notes.Docs()
	if docs == nil {
		return c.JSON(fiber.Map{"connected": false})
	}
	return c.JSON(docs.GetStatus())
}

// handleOAuthCallback finishes the Google Docs consent flow. Google
// redirects the browser to /api/notes/callback with a one-time code;
// the notes client's default redirect URL points here.
func (s *Server) handleOAuthCallback(c *fiber.Ctx) error {
	if s.deps.Notes == nil || s.deps.Notes.Docs() == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("google docs not configured")
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing code")
	}
	if err := s.deps.Notes.Docs().HandleCallback(code); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("auth failed: " + err.Error())
	}
	return c.SendString("Google Docs connected. You can close this tab.")
}

// handleLogs returns the buffered log entries.
func (s *Server) handleLogs(c *fiber.Ctx) error {
	return c.JSON(s.ring.Entries())
}

// handleStatusWS streams state snapshots. The current state goes out
// immediately so the page renders without waiting for a tick.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	if err := c.WriteJSON(s.status()); err != nil {
		c.Close()
		return
	}
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}

// handleLogsWS streams log lines, replaying the buffered backlog
// before going live.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	for _, e := range s.ring.Entries() {
		if err := c.WriteJSON(e); err != nil {
			c.Close()
			return
		}
	}
	client := hub.NewClient(s.logHub, c)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}

// handleCameraWS streams JPEG frames as binary messages.
func (s *Server) handleCameraWS(c *websocket.Conn) {
	client := hub.NewClient(s.cameraHub, c)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}
