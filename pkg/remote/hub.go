package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/protocol"
)

// ErrNotConnected is returned when a command targets a robot the hub
// does not currently hold a socket for.
var ErrNotConnected = errors.New("remote: robot not connected")

const (
	// helloGrace bounds how long a fresh socket may stay silent before
	// introducing itself.
	helloGrace = 10 * time.Second
	// quietLimit bounds robot silence after the hello. Bridges push
	// status every couple of seconds, so this much quiet means the
	// link is gone.
	quietLimit = 90 * time.Second

	hubWriteTimeout = 10 * time.Second
)

// RobotConnection tracks one robot socket on the relay.
type RobotConnection struct {
	ID        string
	Name      string
	Version   string
	Modes     []string
	Connected time.Time

	conn *websocket.Conn
	wsMu sync.Mutex // serializes writes

	mu       sync.Mutex // guards the cached state below
	lastSeen time.Time
	status   *protocol.StatusData
	emotion  *protocol.EmotionData
}

// Send marshals and writes a message to the robot. Safe for concurrent
// use.
func (r *RobotConnection) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	r.wsMu.Lock()
	defer r.wsMu.Unlock()
	r.conn.SetWriteDeadline(time.Now().Add(hubWriteTimeout))
	return r.conn.WriteMessage(websocket.TextMessage, data)
}

func (r *RobotConnection) touch() {
	r.mu.Lock()
	r.lastSeen = time.Now()
	r.mu.Unlock()
}

func (r *RobotConnection) setStatus(st *protocol.StatusData) {
	r.mu.Lock()
	r.status = st
	r.mu.Unlock()
}

func (r *RobotConnection) setEmotion(em *protocol.EmotionData) {
	r.mu.Lock()
	r.emotion = em
	r.mu.Unlock()
}

// Info snapshots the connection for the REST API.
func (r *RobotConnection) Info() RobotInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := RobotInfo{
		ID:          r.ID,
		Name:        r.Name,
		Version:     r.Version,
		Modes:       r.Modes,
		ConnectedAt: r.Connected,
		LastSeen:    r.lastSeen,
	}
	if r.status != nil {
		info.Mode = r.status.Mode
		info.Status = r.status.Status
		info.QueueDepth = r.status.QueueDepth
		info.UptimeS = r.status.Uptime
	}
	if r.emotion != nil {
		info.Emotion = r.emotion.Emotion
	}
	return info
}

// RobotInfo is the REST view of a connected robot, folded together from
// the hello and the latest status and emotion reports.
type RobotInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Version     string    `json:"version,omitempty"`
	Modes       []string  `json:"modes,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
	Mode        string    `json:"mode,omitempty"`
	Status      string    `json:"status,omitempty"`
	QueueDepth  int       `json:"queue_depth"`
	UptimeS     int64     `json:"uptime_s"`
	Emotion     string    `json:"emotion,omitempty"`
}

// Stats counts hub traffic.
type Stats struct {
	Robots            int    `json:"robots"`
	MessagesReceived  uint64 `json:"messages_received"`
	MessagesSent      uint64 `json:"messages_sent"`
	CommandsForwarded uint64 `json:"commands_forwarded"`
}

// Hub accepts robot websockets on the relay. Robots register by
// sending a hello as their first message; after that the hub caches
// their status and emotion reports and forwards operator commands.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	robots map[string]*RobotConnection

	received  atomic.Uint64
	sentCount atomic.Uint64
	forwarded atomic.Uint64
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		logger: log.L().With("component", "hub"),
		robots: make(map[string]*RobotConnection),
	}
}

// RegisterRoutes mounts the robot websocket endpoint on app.
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/robot", websocket.New(h.handleRobot))
}

// RegisterAPIRoutes mounts the dashboard REST API under router,
// typically an /api group.
func (h *Hub) RegisterAPIRoutes(router fiber.Router) {
	robots := router.Group("/robots")
	robots.Get("/", h.apiListRobots)
	robots.Get("/stats", h.apiStats)
	robots.Get("/:id", h.apiRobot)
	robots.Post("/:id/command", h.apiCommand)
}

// handleRobot owns one robot socket from upgrade to disconnect. The
// first message must be a hello; a socket that never introduces itself
// is dropped.
func (h *Hub) handleRobot(c *websocket.Conn) {
	c.SetReadDeadline(time.Now().Add(helloGrace))
	_, data, err := c.ReadMessage()
	if err != nil {
		c.Close()
		return
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil || msg.Type != protocol.TypeHello {
		h.logger.Warn("robot socket did not say hello, dropping")
		c.Close()
		return
	}
	hello, err := msg.ParseHello()
	if err != nil {
		c.Close()
		return
	}
	h.received.Add(1)

	id := hello.RobotID
	if id == "" {
		id = uuid.NewString()
	}
	robot := &RobotConnection{
		ID:        id,
		Name:      hello.Name,
		Version:   hello.Version,
		Modes:     hello.Modes,
		Connected: time.Now(),
		conn:      c,
		lastSeen:  time.Now(),
	}
	h.register(robot)
	defer h.unregister(robot)

	for {
		c.SetReadDeadline(time.Now().Add(quietLimit))
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.received.Add(1)
		robot.touch()
		h.handleMessage(robot, data)
	}
}

func (h *Hub) handleMessage(robot *RobotConnection, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		h.logger.Warn("bad robot message", "robot", robot.ID, "err", err)
		return
	}
	switch msg.Type {
	case protocol.TypeStatus:
		if st, err := msg.ParseStatus(); err == nil {
			robot.setStatus(st)
		}
	case protocol.TypeEmotion:
		if em, err := msg.ParseEmotion(); err == nil {
			robot.setEmotion(em)
		}
	case protocol.TypePing:
		ping, err := msg.ParsePing()
		if err != nil {
			return
		}
		if pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli()); err == nil {
			h.send(robot, pong)
		}
	default:
		h.logger.Debug("ignoring message", "robot", robot.ID, "type", string(msg.Type))
	}
}

func (h *Hub) register(r *RobotConnection) {
	h.mu.Lock()
	if old, ok := h.robots[r.ID]; ok {
		// A reconnecting robot replaces its stale session. Closing the
		// old socket unblocks its read loop; the pointer check in
		// unregister keeps that loop from deleting the new entry.
		old.conn.Close()
	}
	h.robots[r.ID] = r
	total := len(h.robots)
	h.mu.Unlock()
	h.logger.Info("robot connected", "robot", r.ID, "name", r.Name, "total", total)
}

func (h *Hub) unregister(r *RobotConnection) {
	h.mu.Lock()
	if h.robots[r.ID] == r {
		delete(h.robots, r.ID)
	}
	total := len(h.robots)
	h.mu.Unlock()
	r.conn.Close()
	h.logger.Info("robot disconnected", "robot", r.ID, "total", total)
}

func (h *Hub) send(robot *RobotConnection, msg *protocol.Message) error {
	if err := robot.Send(msg); err != nil {
		return err
	}
	h.sentCount.Add(1)
	return nil
}

// RobotCount returns the number of connected robots.
func (h *Hub) RobotCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.robots)
}

// Robot returns the connection for id, or nil.
func (h *Hub) Robot(id string) *RobotConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.robots[id]
}

// Robots lists connected robots sorted by ID.
func (h *Hub) Robots() []RobotInfo {
	h.mu.RLock()
	conns := make([]*RobotConnection, 0, len(h.robots))
	for _, r := range h.robots {
		conns = append(conns, r)
	}
	h.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool { return conns[i].ID < conns[j].ID })
	infos := make([]RobotInfo, 0, len(conns))
	for _, r := range conns {
		infos = append(infos, r.Info())
	}
	return infos
}

// Stats returns hub traffic counters.
func (h *Hub) Stats() Stats {
	return Stats{
		Robots:            h.RobotCount(),
		MessagesReceived:  h.received.Load(),
		MessagesSent:      h.sentCount.Load(),
		CommandsForwarded: h.forwarded.Load(),
	}
}

// SendCommand forwards an operator command to one robot. Action is one
// of "select_mode", "stop_all", "exit"; mode and color apply to
// selection only. The robot validates the rest.
func (h *Hub) SendCommand(robotID, action, mode, color string) error {
	robot := h.Robot(robotID)
	if robot == nil {
		return fmt.Errorf("%w: %s", ErrNotConnected, robotID)
	}
	msg, err := protocol.NewCommandMessage(action, mode, color)
	if err != nil {
		return err
	}
	if err := h.send(robot, msg); err != nil {
		return fmt.Errorf("send to %s: %w", robotID, err)
	}
	h.forwarded.Add(1)
	return nil
}

// Broadcast sends a message to every connected robot and reports how
// many took it.
func (h *Hub) Broadcast(msg *protocol.Message) int {
	h.mu.RLock()
	robots := make([]*RobotConnection, 0, len(h.robots))
	for _, r := range h.robots {
		robots = append(robots, r)
	}
	h.mu.RUnlock()

	n := 0
	for _, r := range robots {
		if h.send(r, msg) == nil {
			n++
		}
	}
	return n
}

func (h *Hub) apiListRobots(c *fiber.Ctx) error {
	infos := h.Robots()
	return c.JSON(fiber.Map{
		"robots": infos,
		"count":  len(infos),
	})
}

func (h *Hub) apiStats(c *fiber.Ctx) error {
	return c.JSON(h.Stats())
}

func (h *Hub) apiRobot(c *fiber.Ctx) error {
	robot := h.Robot(c.Params("id"))
	if robot == nil {
		return fiber.NewError(fiber.StatusNotFound, "robot not connected")
	}
	return c.JSON(robot.Info())
}

// apiCommand forwards {"action": ..., "mode": ..., "color": ...} to the
// robot named in the path.
func (h *Hub) apiCommand(c *fiber.Ctx) error {
	var req struct {
		Action string `json:"action"`
		Mode   string `json:"mode"`
		Color  string `json:"color"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if req.Action == "" {
		return fiber.NewError(fiber.StatusBadRequest, "action required")
	}
	if err := h.SendCommand(c.Params("id"), req.Action, req.Mode, req.Color); err != nil {
		if errors.Is(err, ErrNotConnected) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{
		"status": "sent",
		"robot":  c.Params("id"),
		"action": req.Action,
	})
}
