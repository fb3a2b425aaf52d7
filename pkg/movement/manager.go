package movement

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/debug"
	"github.com/teslashibe/go-raspbot/pkg/raspbot"
)

// Stats is a snapshot of manager diagnostics.
type Stats struct {
	Ticks   uint64
	Sent    uint64
	Skipped uint64
	Errors  uint64
}

// Manager orchestrates all wheelbase movement through a single control
// loop. Priority per tick: active primary move, then the continuous
// steering target, then stop.
//
// Only ONE command is sent to the bridge per tick (20Hz), and repeated
// identical commands are suppressed by a dead-zone so the local HTTP
// API is not flooded.
type Manager struct {
	motors raspbot.MotorController

	mu sync.RWMutex

	// Primary move state
	currentMove   Move
	moveStartTime time.Time

	// Continuous steering target (vision tracking)
	steering    Drive
	steeringSet bool

	// Control loop
	rate    time.Duration
	stop    chan struct{}
	running bool

	// Dead-zone filtering
	lastSent    Drive
	sentStopped bool

	tickCount  uint64
	sentCount  uint64
	skipCount  uint64
	errorCount uint64
}

// Dead-zone thresholds: commands closer than this to the last sent
// command are not re-sent.
const (
	axisThreshold  = 0.02
	speedThreshold = 2
)

// NewManager creates a movement manager. rate should be ~50ms for the
// 20Hz control loop.
func NewManager(motors raspbot.MotorController, rate time.Duration) *Manager {
	return &Manager{
		motors: motors,
		rate:   rate,
		stop:   make(chan struct{}),
	}
}

// Run starts the control loop. Blocks until Stop is called. The base is
// halted on the way out.
func (m *Manager) Run() {
	ticker := time.NewTicker(m.rate)
	defer ticker.Stop()

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	fmt.Printf("🚗 MovementManager started (%.0fHz)\n", 1.0/m.rate.Seconds())

	for {
		select {
		case <-m.stop:
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			if err := m.motors.Stop(); err != nil {
				fmt.Printf("⚠️  MovementManager final stop failed: %v\n", err)
			}
			fmt.Println("🚗 MovementManager stopped")
			return
		case <-ticker.C:
			m.tick()
		}
	}
}

// Stop halts the control loop and the base.
func (m *Manager) Stop() {
	close(m.stop)
}

// tick executes one control cycle.
func (m *Manager) tick() {
	m.mu.Lock()
	m.tickCount++

	// 1. Resolve the target command.
	var target Drive
	switch {
	case m.currentMove != nil:
		elapsed := time.Since(m.moveStartTime)
		if m.currentMove.IsComplete(elapsed) {
			debug.Log("🚗 Move '%s' completed\n", m.currentMove.Name())
			m.currentMove = nil
			if m.steeringSet {
				target = m.steering
			}
		} else {
			target = m.currentMove.Evaluate(elapsed)
		}
	case m.steeringSet:
		target = m.steering
	}
	target = target.Clamp()

	// 2. Dead-zone: skip if close to what the base is already doing.
	if !m.needsSend(target) {
		m.skipCount++
		m.mu.Unlock()
		return
	}

	m.sentCount++
	m.lastSent = target
	m.sentStopped = target.IsZero()
	m.mu.Unlock()

	// 3. Send outside the lock.
	var err error
	if target.IsZero() {
		err = m.motors.Stop()
	} else {
		err = m.motors.Drive(target.VX, target.VY, target.Omega, target.Speed)
	}
	if err != nil {
		m.mu.Lock()
		m.errorCount++
		count := m.errorCount
		m.mu.Unlock()
		if count%100 == 1 {
			fmt.Printf("⚠️  MovementManager error: %v\n", err)
		}
	}
}

// needsSend reports whether the target differs enough from the last
// sent command. A transition to stopped always sends once.
func (m *Manager) needsSend(target Drive) bool {
	if target.IsZero() {
		return !m.sentStopped
	}
	if m.sentStopped {
		return true
	}
	if abs(target.VX-m.lastSent.VX) >= axisThreshold ||
		abs(target.VY-m.lastSent.VY) >= axisThreshold ||
		abs(target.Omega-m.lastSent.Omega) >= axisThreshold {
		return true
	}
	return absInt(target.Speed-m.lastSent.Speed) >= speedThreshold
}

// ============================================================
// Primary Move API
// ============================================================

// QueueMove sets the current primary move. The move starts immediately,
// replacing any current move.
func (m *Manager) QueueMove(move Move) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentMove = move
	m.moveStartTime = time.Now()
	debug.Log("🚗 Move queued: %s (duration: %v)\n", move.Name(), move.Duration())
}

// StopMove stops the current primary move immediately. The next tick
// falls back to steering or stop.
func (m *Manager) StopMove() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentMove != nil {
		debug.Log("🚗 Move '%s' stopped\n", m.currentMove.Name())
		m.currentMove = nil
	}
}

// IsMovePlaying returns true if a primary move is currently playing.
func (m *Manager) IsMovePlaying() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentMove != nil
}

// CurrentMoveName returns the name of the current move, or empty.
func (m *Manager) CurrentMoveName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.currentMove != nil {
		return m.currentMove.Name()
	}
	return ""
}

// ============================================================
// Steering API
// ============================================================

// SetSteering sets the continuous steering target. Vision tracking
// updates this every frame; it applies whenever no primary move plays.
func (m *Manager) SetSteering(d Drive) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steering = d
	m.steeringSet = true
}

// ClearSteering removes the steering target. The base stops unless a
// primary move is playing.
func (m *Manager) ClearSteering() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steering = Drive{}
	m.steeringSet = false
}

// Halt clears every target so the next tick stops the base.
func (m *Manager) Halt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentMove = nil
	m.steering = Drive{}
	m.steeringSet = false
}

// Stats returns a snapshot of loop diagnostics.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Ticks:   m.tickCount,
		Sent:    m.sentCount,
		Skipped: m.skipCount,
		Errors:  m.errorCount,
	}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
