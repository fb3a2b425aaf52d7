package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"github.com/teslashibe/go-raspbot/internal/log"
)

// Hub broadcasts messages to a set of websocket clients. The client
// map belongs to the Run loop alone; registration, removal, and
// broadcast all go through channels, and the counters below are the
// only state visible from outside.
type Hub struct {
	name   string
	logger *slog.Logger

	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	count   atomic.Int32
	dropped atomic.Uint64 // clients hung up on for falling behind
	shed    atomic.Uint64 // broadcasts discarded because the queue was full
}

// New creates a hub for one named stream. Drive it with Run.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		logger:     log.L().With("component", "hub", "stream", name),
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx ends, then hangs up on everyone.
// Call it in a goroutine before accepting connections.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.count.Store(0)
			return

		case client := <-h.register:
			h.clients[client] = true
			h.count.Store(int32(len(h.clients)))
			h.logger.Info("client connected", "total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.count.Store(int32(len(h.clients)))
			h.logger.Info("client disconnected", "total", len(h.clients))

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Too far behind. Dropping the client beats holding
					// the stream for everyone else.
					delete(h.clients, client)
					close(client.send)
					h.dropped.Add(1)
					h.logger.Warn("dropped slow client", "total", len(h.clients))
				}
			}
			h.count.Store(int32(len(h.clients)))
		}
	}
}

// add registers a client unless the hub has already shut down.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove unregisters a client. Safe to call after shutdown.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues msg for every connected client. When the queue is
// full the message is shed; the streams are lossy by contract.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.shed.Add(1)
	}
}

// BroadcastJSON encodes v and broadcasts it as a JSON frame.
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSON(data))
	return nil
}

// BroadcastBinary broadcasts raw bytes, typically a JPEG frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinary(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Dropped reports how many clients were hung up on for falling behind.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Shed reports how many broadcasts were discarded at the queue.
func (h *Hub) Shed() uint64 {
	return h.shed.Load()
}
