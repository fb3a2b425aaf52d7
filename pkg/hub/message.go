// Package hub fans websocket traffic out to dashboard clients using
// the channel-based broadcast pattern. One hub per stream (status,
// logs, camera); a client that cannot keep up is dropped rather than
// allowed to stall everyone else.
package hub

// Kind selects the websocket frame type for a message.
type Kind int

const (
	// JSON frames carry dashboard state and log entries.
	JSON Kind = iota
	// Binary frames carry JPEG camera frames.
	Binary
)

// Message is one broadcast payload.
type Message struct {
	Kind Kind
	Data []byte
}

// NewJSON wraps pre-encoded JSON for broadcast.
func NewJSON(data []byte) Message {
	return Message{Kind: JSON, Data: data}
}

// NewBinary wraps raw bytes, typically a JPEG frame, for broadcast.
func NewBinary(data []byte) Message {
	return Message{Kind: Binary, Data: data}
}
