// Package protocol defines the WebSocket wire format between a robot
// and the relay. Both ends share this package: the robot's bridge
// speaks it outbound and the relay hub speaks it back.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Robot → relay messages
	TypeHello   MessageType = "hello"   // Robot introduces itself after connecting
	TypeStatus  MessageType = "status"  // Periodic mode and queue report
	TypeEmotion MessageType = "emotion" // Emotion broadcast changed

	// Relay → robot messages
	TypeCommand MessageType = "command" // Mode selection, stop, exit

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct.
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Robot → relay payloads
// =============================================================================

// HelloData introduces a robot to the relay.
type HelloData struct {
	RobotID string   `json:"robot_id"`
	Name    string   `json:"name,omitempty"`
	Version string   `json:"version,omitempty"`
	Modes   []string `json:"modes,omitempty"` // mode names the robot accepts
}

// StatusData is the periodic robot report.
type StatusData struct {
	RobotID    string `json:"robot_id"`
	Mode       string `json:"mode"`             // active mode name
	Status     string `json:"status,omitempty"` // subsystem status line
	QueueDepth int    `json:"queue_depth"`      // pending command events
	Uptime     int64  `json:"uptime_s"`         // seconds since boot
}

// EmotionData mirrors the robot's emotion broadcast.
type EmotionData struct {
	Emotion    string  `json:"emotion"`
	Intensity  float64 `json:"intensity"`
	SourceMode string  `json:"source_mode,omitempty"`
}

// =============================================================================
// Relay → robot payloads
// =============================================================================

// CommandData carries an operator command to the robot. Action is one
// of "select_mode", "stop_all", "exit"; Mode and Color apply only to
// mode selection.
type CommandData struct {
	Action string `json:"action"`
	Mode   string `json:"mode,omitempty"`
	Color  string `json:"color,omitempty"`
}

// =============================================================================
// Bidirectional payloads
// =============================================================================

// PingData contains ping information.
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains the pong response.
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
