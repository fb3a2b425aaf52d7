// Package remote links the robot to an operator relay over WebSocket.
//
// The robot side is Bridge: it dials the relay, introduces itself with
// a hello message, pushes status and emotion updates, and feeds
// incoming command messages to the command layer. The relay side is
// Hub: it accepts robot sockets, keeps a registry with the last
// reported state per robot, and fronts them with a small REST API for
// dashboards.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/protocol"
)

// CommandSink receives operator commands lifted off the wire.
// *command.Normalizer satisfies it.
type CommandSink interface {
	HandleRemoteCommand(action, modeName, colorName string, src command.Source) error
}

// Report is a point-in-time view of the robot for status pushes.
type Report struct {
	Mode       string
	Detail     string
	QueueDepth int
	Uptime     time.Duration
}

// BridgeConfig tunes the relay link.
type BridgeConfig struct {
	// URL is the relay websocket endpoint, e.g. ws://relay:8090/ws/robot.
	URL string
	// RobotID is the identity announced in the hello. A fresh uuid is
	// generated when empty, so a robot without persistent config still
	// gets a unique registry key.
	RobotID string
	Name    string
	Version string

	StatusEvery  time.Duration // status push period
	EmotionEvery time.Duration // emotion change poll period
	PingEvery    time.Duration // keepalive ping period

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout bounds silence from the relay. The relay answers our
	// pings, so a healthy link never goes quiet for this long.
	ReadTimeout time.Duration

	ReconnectBase time.Duration // first retry delay
	ReconnectMax  time.Duration // retry delay cap
}

// DefaultBridgeConfig returns the stock tuning for the given relay URL.
func DefaultBridgeConfig(url string) BridgeConfig {
	return BridgeConfig{
		URL:              url,
		StatusEvery:      2 * time.Second,
		EmotionEvery:     150 * time.Millisecond,
		PingEvery:        30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      90 * time.Second,
		ReconnectBase:    time.Second,
		ReconnectMax:     30 * time.Second,
	}
}

// Validate checks the config for unusable values.
func (c BridgeConfig) Validate() error {
	if c.URL == "" {
		return errors.New("remote: relay URL required")
	}
	if c.StatusEvery <= 0 || c.EmotionEvery <= 0 || c.PingEvery <= 0 {
		return errors.New("remote: push periods must be positive")
	}
	if c.HandshakeTimeout <= 0 || c.WriteTimeout <= 0 || c.ReadTimeout <= 0 {
		return errors.New("remote: timeouts must be positive")
	}
	if c.ReconnectBase <= 0 || c.ReconnectMax < c.ReconnectBase {
		return errors.New("remote: reconnect delays must be positive and ordered")
	}
	return nil
}

// BridgeDeps are the robot-side collaborators.
type BridgeDeps struct {
	// Commands receives decoded operator commands. Required.
	Commands CommandSink
	// Report supplies the current status line. Optional; without it
	// the bridge announces itself and mirrors emotions only.
	Report func() Report
	// Emotions is polled for changes to mirror to the relay. Optional.
	Emotions *emotion.Broadcaster
}

// BridgeStats is a snapshot of the link counters.
type BridgeStats struct {
	Connected  bool
	Sent       uint64
	Received   uint64
	Reconnects uint64
	// RTTMs is the last measured ping round trip in milliseconds, -1
	// before the first pong.
	RTTMs int64
}

// Bridge maintains the robot's connection to the relay. Create with
// NewBridge and drive with Run; it survives relay restarts by redialing
// with capped exponential backoff.
type Bridge struct {
	cfg    BridgeConfig
	deps   BridgeDeps
	logger *slog.Logger

	wsMu sync.Mutex // serializes writes to the active connection

	connected  atomic.Bool
	sent       atomic.Uint64
	received   atomic.Uint64
	reconnects atomic.Uint64
	rttMs      atomic.Int64
	pingSeq    atomic.Uint64
}

// NewBridge validates the config and prepares a bridge. It does not
// dial; the link comes up when Run starts.
func NewBridge(cfg BridgeConfig, deps BridgeDeps) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Commands == nil {
		return nil, errors.New("remote: command sink required")
	}
	if cfg.RobotID == "" {
		cfg.RobotID = uuid.NewString()
	}
	b := &Bridge{
		cfg:    cfg,
		deps:   deps,
		logger: log.L().With("component", "bridge", "robot", cfg.RobotID),
	}
	b.rttMs.Store(-1)
	return b, nil
}

// RobotID returns the identity used on the wire.
func (b *Bridge) RobotID() string { return b.cfg.RobotID }

// Stats returns the link counters.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Connected:  b.connected.Load(),
		Sent:       b.sent.Load(),
		Received:   b.received.Load(),
		Reconnects: b.reconnects.Load(),
		RTTMs:      b.rttMs.Load(),
	}
}

// Run keeps the relay link alive until ctx is cancelled. Failed dials
// and dropped connections are retried with exponential backoff; a
// session that made it through the handshake resets the delay.
func (b *Bridge) Run(ctx context.Context) error {
	delay := b.cfg.ReconnectBase
	for {
		connected, err := b.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			delay = b.cfg.ReconnectBase
		}
		b.logger.Warn("relay link down", "err", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		b.reconnects.Add(1)
		delay *= 2
		if delay > b.cfg.ReconnectMax {
			delay = b.cfg.ReconnectMax
		}
	}
}

// session runs one dial-to-disconnect cycle. connected reports whether
// the handshake succeeded, which is what resets the backoff.
func (b *Bridge) session(ctx context.Context) (connected bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: b.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return false, fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()

	if err := b.sendHello(conn); err != nil {
		return true, fmt.Errorf("send hello: %w", err)
	}
	b.connected.Store(true)
	defer b.connected.Store(false)
	b.logger.Info("connected to relay", "url", b.cfg.URL)

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go b.push(sctx, conn)
	// Unblock the read loop when the session ends from our side.
	go func() {
		<-sctx.Done()
		b.closeConn(conn)
	}()

	return true, b.readLoop(conn)
}

func (b *Bridge) sendHello(conn *websocket.Conn) error {
	kinds := modes.SelectableKinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	msg, err := protocol.NewHelloMessage(b.cfg.RobotID, b.cfg.Name, b.cfg.Version, names)
	if err != nil {
		return err
	}
	return b.write(conn, msg)
}

func (b *Bridge) readLoop(conn *websocket.Conn) error {
	for {
		conn.SetReadDeadline(time.Now().Add(b.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read relay: %w", err)
		}
		b.received.Add(1)
		b.handleMessage(conn, data)
	}
}

func (b *Bridge) handleMessage(conn *websocket.Conn, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		b.logger.Warn("bad relay message", "err", err)
		return
	}
	switch msg.Type {
	case protocol.TypeCommand:
		cmd, err := msg.ParseCommand()
		if err != nil {
			b.logger.Warn("bad command payload", "err", err)
			return
		}
		if err := b.deps.Commands.HandleRemoteCommand(cmd.Action, cmd.Mode, cmd.Color, command.SourceRemote); err != nil {
			b.logger.Warn("relay command rejected", "action", cmd.Action, "mode", cmd.Mode, "err", err)
			return
		}
		b.logger.Info("relay command accepted", "action", cmd.Action, "mode", cmd.Mode)
	case protocol.TypePing:
		ping, err := msg.ParsePing()
		if err != nil {
			return
		}
		if pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli()); err == nil {
			b.write(conn, pong)
		}
	case protocol.TypePong:
		pong, err := msg.ParsePong()
		if err != nil {
			return
		}
		b.rttMs.Store(time.Now().UnixMilli() - pong.PingTS)
	default:
		// Unknown types are skipped so old robots tolerate new relays.
	}
}

// push feeds the relay on timers: status on its ticker, emotion when
// the broadcast sequence moves, pings for keepalive. It exits when the
// session context ends.
func (b *Bridge) push(ctx context.Context, conn *websocket.Conn) {
	statusTick := time.NewTicker(b.cfg.StatusEvery)
	defer statusTick.Stop()
	emotionTick := time.NewTicker(b.cfg.EmotionEvery)
	defer emotionTick.Stop()
	pingTick := time.NewTicker(b.cfg.PingEvery)
	defer pingTick.Stop()

	// Prime the relay cache right away instead of waiting a tick.
	b.pushStatus(conn)
	lastSeq := b.pushEmotion(conn, 0)

	for {
		select {
		case <-ctx.Done():
			return
		case <-statusTick.C:
			b.pushStatus(conn)
		case <-emotionTick.C:
			lastSeq = b.pushEmotion(conn, lastSeq)
		case <-pingTick.C:
			b.pushPing(conn)
		}
	}
}

func (b *Bridge) pushStatus(conn *websocket.Conn) {
	if b.deps.Report == nil {
		return
	}
	r := b.deps.Report()
	msg, err := protocol.NewStatusMessage(b.cfg.RobotID, r.Mode, r.Detail, r.QueueDepth, r.Uptime)
	if err != nil {
		return
	}
	b.write(conn, msg)
}

// pushEmotion mirrors the current emotion when its sequence number has
// moved past since, and returns the sequence it is now caught up to.
func (b *Bridge) pushEmotion(conn *websocket.Conn, since uint64) uint64 {
	if b.deps.Emotions == nil {
		return since
	}
	st, seq := b.deps.Emotions.Snapshot()
	if seq == since {
		return since
	}
	msg, err := protocol.NewEmotionMessage(st.Emotion.String(), st.Intensity, st.SourceMode)
	if err == nil {
		b.write(conn, msg)
	}
	return seq
}

func (b *Bridge) pushPing(conn *websocket.Conn) {
	id := strconv.FormatUint(b.pingSeq.Add(1), 10)
	msg, err := protocol.NewPingMessage(id)
	if err != nil {
		return
	}
	b.write(conn, msg)
}

func (b *Bridge) write(conn *websocket.Conn, msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	b.wsMu.Lock()
	defer b.wsMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	b.sent.Add(1)
	return nil
}

// closeConn says goodbye politely before hanging up. Errors are
// ignored; the peer may already be gone.
func (b *Bridge) closeConn(conn *websocket.Conn) {
	b.wsMu.Lock()
	defer b.wsMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
	conn.Close()
}
