package protocol

import "time"

// =============================================================================
// Message constructors
// =============================================================================

// NewHelloMessage creates the robot's introduction.
func NewHelloMessage(robotID, name, version string, modeNames []string) (*Message, error) {
	return NewMessage(TypeHello, HelloData{
		RobotID: robotID,
		Name:    name,
		Version: version,
		Modes:   modeNames,
	})
}

// NewStatusMessage creates a status report. Uptime is truncated to
// whole seconds on the wire.
func NewStatusMessage(robotID, mode, status string, queueDepth int, uptime time.Duration) (*Message, error) {
	return NewMessage(TypeStatus, StatusData{
		RobotID:    robotID,
		Mode:       mode,
		Status:     status,
		QueueDepth: queueDepth,
		Uptime:     int64(uptime.Seconds()),
	})
}

// NewEmotionMessage mirrors an emotion broadcast onto the wire.
func NewEmotionMessage(emotion string, intensity float64, sourceMode string) (*Message, error) {
	return NewMessage(TypeEmotion, EmotionData{
		Emotion:    emotion,
		Intensity:  intensity,
		SourceMode: sourceMode,
	})
}

// NewCommandMessage creates an operator command.
func NewCommandMessage(action, mode, color string) (*Message, error) {
	return NewMessage(TypeCommand, CommandData{
		Action: action,
		Mode:   mode,
		Color:  color,
	})
}

// NewPingMessage creates a ping message.
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message.
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Payload parsers
// =============================================================================

// ParseHello extracts the hello payload.
func (m *Message) ParseHello() (*HelloData, error) {
	var data HelloData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParseStatus extracts the status payload.
func (m *Message) ParseStatus() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParseEmotion extracts the emotion payload.
func (m *Message) ParseEmotion() (*EmotionData, error) {
	var data EmotionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParseCommand extracts the command payload.
func (m *Message) ParseCommand() (*CommandData, error) {
	var data CommandData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParsePing extracts the ping payload.
func (m *Message) ParsePing() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ParsePong extracts the pong payload.
func (m *Message) ParsePong() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
