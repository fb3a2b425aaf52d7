package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
)

var testPort atomic.Int32

func init() { testPort.Store(19230) }

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

func runHub(t *testing.T, name string) *Hub {
	t.Helper()
	h := New(name)
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(finished)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Error("hub did not stop")
		}
	})
	return h
}

func addTestClient(t *testing.T, h *Hub, buf int) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan Message, buf)}
	if !h.add(c) {
		t.Fatal("hub rejected client")
	}
	return c
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived")
	}
	return Message{}
}

func TestBroadcastFanOut(t *testing.T) {
	h := runHub(t, "status")
	a := addTestClient(t, h, 8)
	b := addTestClient(t, h, 8)
	waitFor(t, "registrations", func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]string{"mode": "idle"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	for _, c := range []*Client{a, b} {
		msg := recv(t, c)
		if msg.Kind != JSON {
			t.Errorf("kind = %v, want JSON", msg.Kind)
		}
		var got map[string]string
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["mode"] != "idle" {
			t.Errorf("payload = %v", got)
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := runHub(t, "camera")
	fast := addTestClient(t, h, 8)
	addTestClient(t, h, 1) // slow: nobody drains it
	waitFor(t, "registrations", func() bool { return h.ClientCount() == 2 })

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	waitFor(t, "slow client drop", func() bool {
		return h.ClientCount() == 1 && h.Dropped() == 1
	})
	if msg := recv(t, fast); msg.Kind != Binary {
		t.Errorf("kind = %v, want Binary", msg.Kind)
	}
	recv(t, fast)
}

func TestBroadcastShedsWhenQueueFull(t *testing.T) {
	// No Run loop, so nothing drains the queue.
	h := New("logs")
	for i := 0; i < 300; i++ {
		h.Broadcast(NewJSON([]byte("{}")))
	}
	if h.Shed() == 0 {
		t.Error("expected shed broadcasts once the queue filled")
	}
}

func TestBroadcastJSONRejectsUnencodable(t *testing.T) {
	h := New("status")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}

func TestShutdownHangsUpClients(t *testing.T) {
	h := New("status")
	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(finished)
	}()

	c := addTestClient(t, h, 4)
	waitFor(t, "registration", func() bool { return h.ClientCount() == 1 })

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	if h.ClientCount() != 0 {
		t.Errorf("count = %d, want 0", h.ClientCount())
	}
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Error("send channel left open")
	}
	if NewClient(h, nil) != nil {
		t.Error("NewClient should refuse after shutdown")
	}
	// remove after shutdown must not block.
	h.remove(c)
}

func TestWebsocketDelivery(t *testing.T) {
	h := runHub(t, "status")

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/feed", fiberws.New(func(conn *fiberws.Conn) {
		if client := NewClient(h, conn); client != nil {
			client.Run()
		} else {
			conn.Close()
		}
	}))

	port := testPort.Add(1)
	go app.Listen(fmt.Sprintf(":%d", port))
	t.Cleanup(func() { app.Shutdown() })
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://localhost:%d/ws/feed", port), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	waitFor(t, "registration", func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]int{"n": 7}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}
	h.BroadcastBinary([]byte{0xff, 0xd8})

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	frameType, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if frameType != websocket.TextMessage {
		t.Errorf("first frame type = %d, want text", frameType)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil || got["n"] != 7 {
		t.Errorf("payload = %s (err %v)", data, err)
	}

	frameType, data, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if frameType != websocket.BinaryMessage {
		t.Errorf("second frame type = %d, want binary", frameType)
	}
	if len(data) != 2 || data[0] != 0xff {
		t.Errorf("binary payload = %v", data)
	}

	ws.Close()
	waitFor(t, "deregistration", func() bool { return h.ClientCount() == 0 })
}
