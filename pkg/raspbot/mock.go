package raspbot

import (
	"sync"
	"time"
)

// DriveCall records one Drive invocation.
type DriveCall struct {
	VX, VY, Omega float64
	Speed         int
}

// LEDCall records one strip write. Index is -1 for SetAll.
type LEDCall struct {
	Index int
	Color Color
}

// ServoCall records one servo write.
type ServoCall struct {
	Channel, Angle int
}

// Mock is an in-memory Controller for tests. It records every call and
// serves scripted sensor frames and IR codes.
type Mock struct {
	mu sync.Mutex

	// Err, when set, is returned by every mutating call.
	Err error

	driveCalls []DriveCall
	stopCalls  int
	ledCalls   []LEDCall
	offCalls   int
	beeps      []time.Duration
	servoCalls []ServoCall

	frames   []SensorFrame
	frameIdx int
	irCodes  []byte
	irIdx    int
}

// NewMock creates a mock reporting a distant sonar echo and all line
// trackers on the surface.
func NewMock() *Mock {
	return &Mock{
		frames: []SensorFrame{{SonarMM: 1000, Line: [4]bool{true, true, true, true}}},
	}
}

// ScriptSensors queues sensor frames; the last frame repeats forever.
func (m *Mock) ScriptSensors(frames ...SensorFrame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = frames
	m.frameIdx = 0
}

// ScriptIR queues fresh IR codes, one per ReadIR call; afterwards
// ReadIR reports nothing fresh.
func (m *Mock) ScriptIR(codes ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.irCodes = codes
	m.irIdx = 0
}

func (m *Mock) Drive(vx, vy, omega float64, speed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.driveCalls = append(m.driveCalls, DriveCall{VX: vx, VY: vy, Omega: omega, Speed: speed})
	return nil
}

func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.stopCalls++
	return nil
}

func (m *Mock) SetAll(c Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.ledCalls = append(m.ledCalls, LEDCall{Index: -1, Color: c})
	return nil
}

func (m *Mock) Set(index int, c Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.ledCalls = append(m.ledCalls, LEDCall{Index: index, Color: c})
	return nil
}

func (m *Mock) Off() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.offCalls++
	return nil
}

func (m *Mock) Beep(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.beeps = append(m.beeps, d)
	return nil
}

func (m *Mock) SetServo(channel, angle int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.servoCalls = append(m.servoCalls, ServoCall{Channel: channel, Angle: angle})
	return nil
}

func (m *Mock) Sensors() (SensorFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return SensorFrame{}, m.Err
	}
	if len(m.frames) == 0 {
		return SensorFrame{}, nil
	}
	frame := m.frames[m.frameIdx]
	if m.frameIdx < len(m.frames)-1 {
		m.frameIdx++
	}
	return frame, nil
}

func (m *Mock) ReadIR() (byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, false, m.Err
	}
	if m.irIdx >= len(m.irCodes) {
		return 0, false, nil
	}
	code := m.irCodes[m.irIdx]
	m.irIdx++
	return code, true, nil
}

func (m *Mock) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Err
}

// DriveCalls returns a copy of recorded drive commands.
func (m *Mock) DriveCalls() []DriveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DriveCall, len(m.driveCalls))
	copy(out, m.driveCalls)
	return out
}

// LastDrive returns the most recent drive command.
func (m *Mock) LastDrive() (DriveCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.driveCalls) == 0 {
		return DriveCall{}, false
	}
	return m.driveCalls[len(m.driveCalls)-1], true
}

// StopCalls returns how many times Stop was called.
func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// LEDCalls returns a copy of recorded strip writes.
func (m *Mock) LEDCalls() []LEDCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LEDCall, len(m.ledCalls))
	copy(out, m.ledCalls)
	return out
}

// OffCalls returns how many times the strip was turned off.
func (m *Mock) OffCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offCalls
}

// Beeps returns a copy of recorded beep durations.
func (m *Mock) Beeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.beeps))
	copy(out, m.beeps)
	return out
}

// ServoCalls returns a copy of recorded servo writes.
func (m *Mock) ServoCalls() []ServoCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ServoCall, len(m.servoCalls))
	copy(out, m.servoCalls)
	return out
}
