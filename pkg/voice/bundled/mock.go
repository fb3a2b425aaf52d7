package bundled

import (
	"context"
	"sync"

	"github.com/teslashibe/go-raspbot/pkg/voice"
)

func init() {
	voice.Register("mock", NewMock)
}

// Mock is a Pipeline that plays scripted transcripts. It never touches
// the microphone, which makes it the recognizer of choice for tests
// and for driving the robot from a keyboard.
type Mock struct {
	cfg voice.Config

	mu      sync.Mutex
	running bool
	paused  bool

	onTranscript func(text string, final bool)
	onError      func(err error)

	metrics *voice.MetricsCollector
}

// NewMock creates a mock pipeline.
func NewMock(cfg voice.Config) (voice.Pipeline, error) {
	return &Mock{
		cfg:     cfg,
		metrics: voice.NewMetricsCollector(),
	}, nil
}

// Start marks the pipeline as running.
func (m *Mock) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return voice.ErrAlreadyStarted
	}
	m.running = true
	return nil
}

// Stop marks the pipeline as stopped.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// IsRunning reports whether the pipeline is running.
func (m *Mock) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pause gates injected speech, matching how a real microphone is gated.
func (m *Mock) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
	m.metrics.SetPaused(true)
}

// Resume lifts the gate.
func (m *Mock) Resume() {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	m.metrics.SetPaused(false)
}

// OnTranscript registers the transcript callback.
func (m *Mock) OnTranscript(fn func(text string, final bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTranscript = fn
}

// OnError registers the error callback.
func (m *Mock) OnError(fn func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = fn
}

// Metrics returns a snapshot of recognition counters.
func (m *Mock) Metrics() voice.Metrics {
	return m.metrics.Current()
}

// Config returns the pipeline configuration.
func (m *Mock) Config() voice.Config {
	return m.cfg
}

// Hear injects a final transcript as if the recognizer produced it.
// Speech is dropped while the pipeline is paused or stopped.
func (m *Mock) Hear(text string) {
	cb, ok := m.deliverable()
	if !ok {
		return
	}
	m.metrics.MarkFinal(text)
	if cb != nil {
		cb(text, true)
	}
}

// HearPartial injects a partial hypothesis.
func (m *Mock) HearPartial(text string) {
	cb, ok := m.deliverable()
	if !ok {
		return
	}
	m.metrics.MarkPartial()
	if cb != nil {
		cb(text, false)
	}
}

// Fail injects a recognizer error.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	cb := m.onError
	m.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

func (m *Mock) deliverable() (func(text string, final bool), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running || m.paused {
		return nil, false
	}
	return m.onTranscript, true
}

var _ voice.Pipeline = (*Mock)(nil)
