package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/protocol"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeRelay is a bare websocket endpoint standing in for the relay. It
// records everything the bridge sends and answers pings so round trip
// measurement works.
type fakeRelay struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	messages []*protocol.Message
	sessions int
	garbage  int
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	r := &fakeRelay{}
	r.srv = httptest.NewServer(http.HandlerFunc(r.handle))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *fakeRelay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/ws/robot"
}

func (r *fakeRelay) handle(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	r.mu.Lock()
	r.conns = append(r.conns, conn)
	r.sessions++
	r.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			r.mu.Lock()
			r.garbage++
			r.mu.Unlock()
			continue
		}
		r.mu.Lock()
		r.messages = append(r.messages, msg)
		r.mu.Unlock()
		if msg.Type == protocol.TypePing {
			if ping, err := msg.ParsePing(); err == nil {
				if pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli()); err == nil {
					data, _ := pong.Bytes()
					conn.WriteMessage(websocket.TextMessage, data)
				}
			}
		}
	}
}

func (r *fakeRelay) of(mt protocol.MessageType) []*protocol.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*protocol.Message
	for _, m := range r.messages {
		if m.Type == mt {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeRelay) sessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

func (r *fakeRelay) latestConn() *websocket.Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conns) == 0 {
		return nil
	}
	return r.conns[len(r.conns)-1]
}

func (r *fakeRelay) sendToRobot(t *testing.T, msg *protocol.Message) {
	t.Helper()
	conn := r.latestConn()
	if conn == nil {
		t.Fatal("no robot connection")
	}
	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write to robot: %v", err)
	}
}

func (r *fakeRelay) dropRobot(t *testing.T) {
	t.Helper()
	conn := r.latestConn()
	if conn == nil {
		t.Fatal("no robot connection to drop")
	}
	conn.Close()
}

type commandRecorder struct {
	mu      sync.Mutex
	calls   int
	actions []string
	modes   []string
	colors  []string
	srcs    []command.Source
	reject  error
}

func (c *commandRecorder) HandleRemoteCommand(action, modeName, colorName string, src command.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.reject != nil {
		return c.reject
	}
	c.actions = append(c.actions, action)
	c.modes = append(c.modes, modeName)
	c.colors = append(c.colors, colorName)
	c.srcs = append(c.srcs, src)
	return nil
}

func (c *commandRecorder) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *commandRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.actions)
}

func (c *commandRecorder) last() (action, mode, color string, src command.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.actions)
	if n == 0 {
		return "", "", "", 0
	}
	return c.actions[n-1], c.modes[n-1], c.colors[n-1], c.srcs[n-1]
}

type bridgeRig struct {
	bridge  *Bridge
	relay   *fakeRelay
	rec     *commandRecorder
	emo     *emotion.Broadcaster
	cancel  context.CancelFunc
	done    chan error
	stopped bool
}

func testBridgeConfig(url string) BridgeConfig {
	cfg := DefaultBridgeConfig(url)
	cfg.RobotID = "rb-test"
	cfg.Name = "Marich"
	cfg.Version = "1.0.0"
	cfg.StatusEvery = 20 * time.Millisecond
	cfg.EmotionEvery = 5 * time.Millisecond
	cfg.PingEvery = 25 * time.Millisecond
	cfg.ReconnectBase = 10 * time.Millisecond
	cfg.ReconnectMax = 40 * time.Millisecond
	return cfg
}

func startBridge(t *testing.T, mutate func(*BridgeConfig)) *bridgeRig {
	t.Helper()
	relay := newFakeRelay(t)
	cfg := testBridgeConfig(relay.url())
	if mutate != nil {
		mutate(&cfg)
	}
	rec := &commandRecorder{}
	emo := emotion.NewBroadcaster()
	bridge, err := NewBridge(cfg, BridgeDeps{
		Commands: rec,
		Emotions: emo,
		Report: func() Report {
			return Report{Mode: "idle", Detail: "resting", QueueDepth: 2, Uptime: 42 * time.Second}
		},
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rig := &bridgeRig{
		bridge: bridge,
		relay:  relay,
		rec:    rec,
		emo:    emo,
		cancel: cancel,
		done:   make(chan error, 1),
	}
	go func() { rig.done <- bridge.Run(ctx) }()
	t.Cleanup(func() { rig.stop(t) })
	return rig
}

func (r *bridgeRig) stop(t *testing.T) {
	t.Helper()
	if r.stopped {
		return
	}
	r.stopped = true
	r.cancel()
	select {
	case err := <-r.done:
		if err != nil {
			t.Errorf("bridge run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("bridge did not stop")
	}
}

func TestBridgeConfigValidate(t *testing.T) {
	if err := DefaultBridgeConfig("ws://relay/ws/robot").Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	bad := []struct {
		name   string
		mutate func(*BridgeConfig)
	}{
		{"no url", func(c *BridgeConfig) { c.URL = "" }},
		{"zero status period", func(c *BridgeConfig) { c.StatusEvery = 0 }},
		{"zero write timeout", func(c *BridgeConfig) { c.WriteTimeout = 0 }},
		{"reconnect max below base", func(c *BridgeConfig) { c.ReconnectMax = c.ReconnectBase / 2 }},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultBridgeConfig("ws://relay/ws/robot")
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewBridgeRequiresCommands(t *testing.T) {
	_, err := NewBridge(DefaultBridgeConfig("ws://relay/ws/robot"), BridgeDeps{})
	if err == nil {
		t.Fatal("expected error without command sink")
	}
}

func TestNewBridgeGeneratesID(t *testing.T) {
	cfg := DefaultBridgeConfig("ws://relay/ws/robot")
	a, err := NewBridge(cfg, BridgeDeps{Commands: &commandRecorder{}})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	b, err := NewBridge(cfg, BridgeDeps{Commands: &commandRecorder{}})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	if a.RobotID() == "" {
		t.Fatal("generated robot id is empty")
	}
	if a.RobotID() == b.RobotID() {
		t.Error("two bridges share a generated id")
	}
}

func TestBridgeSendsHelloThenStatus(t *testing.T) {
	rig := startBridge(t, nil)

	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })
	hello, err := rig.relay.of(protocol.TypeHello)[0].ParseHello()
	if err != nil {
		t.Fatalf("parse hello: %v", err)
	}
	if hello.RobotID != "rb-test" || hello.Name != "Marich" || hello.Version != "1.0.0" {
		t.Errorf("hello = %+v", hello)
	}
	found := false
	for _, m := range hello.Modes {
		if m == "rps-game" {
			found = true
		}
	}
	if !found {
		t.Errorf("hello modes %v missing rps-game", hello.Modes)
	}

	waitFor(t, "two status pushes", func() bool { return len(rig.relay.of(protocol.TypeStatus)) >= 2 })
	st, err := rig.relay.of(protocol.TypeStatus)[0].ParseStatus()
	if err != nil {
		t.Fatalf("parse status: %v", err)
	}
	if st.RobotID != "rb-test" || st.Mode != "idle" || st.Status != "resting" {
		t.Errorf("status = %+v", st)
	}
	if st.QueueDepth != 2 || st.Uptime != 42 {
		t.Errorf("status numbers = %+v", st)
	}

	if !rig.bridge.Stats().Connected {
		t.Error("stats should report connected")
	}
}

func TestBridgeForwardsCommands(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })

	msg, err := protocol.NewCommandMessage("select_mode", "color-track", "red")
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	rig.relay.sendToRobot(t, msg)

	waitFor(t, "command delivery", func() bool { return rig.rec.count() == 1 })
	action, mode, color, src := rig.rec.last()
	if action != "select_mode" || mode != "color-track" || color != "red" {
		t.Errorf("got %s/%s/%s", action, mode, color)
	}
	if src != command.SourceRemote {
		t.Errorf("source = %v, want remote", src)
	}
}

func TestBridgeSurvivesRejectedCommand(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })

	rig.rec.mu.Lock()
	rig.rec.reject = context.DeadlineExceeded
	rig.rec.mu.Unlock()
	msg, _ := protocol.NewCommandMessage("select_mode", "warp-drive", "")
	rig.relay.sendToRobot(t, msg)
	waitFor(t, "rejected command to land", func() bool { return rig.rec.callCount() == 1 })
	if rig.rec.count() != 0 {
		t.Fatal("rejected command was recorded")
	}

	rig.rec.mu.Lock()
	rig.rec.reject = nil
	rig.rec.mu.Unlock()
	msg, _ = protocol.NewCommandMessage("stop_all", "", "")
	rig.relay.sendToRobot(t, msg)

	waitFor(t, "command after rejection", func() bool { return rig.rec.count() == 1 })
	action, _, _, _ := rig.rec.last()
	if action != "stop_all" {
		t.Errorf("action = %s, want stop_all", action)
	}
}

func TestBridgePushesEmotionOnChange(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })

	rig.emo.Set(emotion.Happy, 0.9, "rps-game")
	waitFor(t, "emotion push", func() bool { return len(rig.relay.of(protocol.TypeEmotion)) >= 1 })
	em, err := rig.relay.of(protocol.TypeEmotion)[0].ParseEmotion()
	if err != nil {
		t.Fatalf("parse emotion: %v", err)
	}
	if em.Emotion != "happy" || em.SourceMode != "rps-game" {
		t.Errorf("emotion = %+v", em)
	}

	rig.emo.Set(emotion.Scared, 0.4, "")
	waitFor(t, "second emotion push", func() bool { return len(rig.relay.of(protocol.TypeEmotion)) >= 2 })
	em, err = rig.relay.of(protocol.TypeEmotion)[1].ParseEmotion()
	if err != nil {
		t.Fatalf("parse emotion: %v", err)
	}
	if em.Emotion != "scared" {
		t.Errorf("emotion = %+v, want scared", em)
	}
}

func TestBridgeMeasuresRoundTrip(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "pong round trip", func() bool { return rig.bridge.Stats().RTTMs >= 0 })
}

func TestBridgeAnswersRelayPing(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })

	ping, err := protocol.NewPingMessage("relay-7")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	rig.relay.sendToRobot(t, ping)

	waitFor(t, "pong reply", func() bool { return len(rig.relay.of(protocol.TypePong)) > 0 })
	pong, err := rig.relay.of(protocol.TypePong)[0].ParsePong()
	if err != nil {
		t.Fatalf("parse pong: %v", err)
	}
	if pong.ID != "relay-7" {
		t.Errorf("pong id = %s, want relay-7", pong.ID)
	}
}

func TestBridgeReconnects(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "first session", func() bool { return rig.relay.sessionCount() == 1 })
	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })

	rig.relay.dropRobot(t)

	waitFor(t, "second session", func() bool { return rig.relay.sessionCount() >= 2 })
	waitFor(t, "hello on reconnect", func() bool { return len(rig.relay.of(protocol.TypeHello)) >= 2 })
	if rig.bridge.Stats().Reconnects == 0 {
		t.Error("reconnect counter stayed at zero")
	}
}

func TestBridgeStopsOnContext(t *testing.T) {
	rig := startBridge(t, nil)
	waitFor(t, "hello", func() bool { return len(rig.relay.of(protocol.TypeHello)) > 0 })

	rig.stop(t)
	if rig.bridge.Stats().Connected {
		t.Error("stats still report connected after stop")
	}
}

func TestBridgeRetriesUnreachableRelay(t *testing.T) {
	relay := newFakeRelay(t)
	url := relay.url()
	relay.srv.Close()

	cfg := testBridgeConfig(url)
	bridge, err := NewBridge(cfg, BridgeDeps{Commands: &commandRecorder{}})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	waitFor(t, "dial retries", func() bool { return bridge.Stats().Reconnects >= 2 })
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("bridge did not stop")
	}
}
