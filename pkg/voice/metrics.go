package voice

import (
	"fmt"
	"sync"
	"time"
)

// Metrics tracks recognition activity for a pipeline. Decode latency
// is measured per utterance, from the first partial hypothesis to the
// final transcript.
type Metrics struct {
	// Timestamps for the current or most recent utterance
	UtteranceStart time.Time // When the first partial arrived
	FinalTime      time.Time // When the final transcript arrived

	// Computed latency
	DecodeLatency time.Duration // First partial to final transcript

	// Counters since the pipeline started
	AudioChunks int64 // Microphone chunks sent to the recognizer
	Partials    int64 // Partial hypotheses received
	Finals      int64 // Final transcripts received
	Reconnects  int64 // Times the recognizer connection was rebuilt

	// State
	Paused    bool   // Whether the microphone is currently gated
	LastFinal string // Most recent final transcript
}

// FormatSummary returns a one-line summary of recognition activity.
func (m *Metrics) FormatSummary() string {
	return fmt.Sprintf("%d finals | %d partials | %s decode | %d reconnects",
		m.Finals, m.Partials, formatDuration(m.DecodeLatency), m.Reconnects)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}

// MetricsCollector aggregates recognition metrics for a pipeline
// implementation. It is goroutine-safe and shared between the capture
// and receive loops.
type MetricsCollector struct {
	mu      sync.Mutex
	current Metrics
	history []time.Duration // Recent decode latencies for averaging

	onUpdate func(Metrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]time.Duration, 0, 100),
	}
}

// OnUpdate sets a callback that fires whenever a final transcript
// closes out an utterance.
func (m *MetricsCollector) OnUpdate(fn func(Metrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// MarkPartial records a partial hypothesis. The first partial of an
// utterance starts the decode latency clock.
func (m *MetricsCollector) MarkPartial() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Partials++
	if m.current.UtteranceStart.IsZero() {
		m.current.UtteranceStart = time.Now()
	}
}

// MarkFinal records a final transcript and closes out the utterance.
func (m *MetricsCollector) MarkFinal(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.Finals++
	m.current.LastFinal = text
	m.current.FinalTime = time.Now()
	if !m.current.UtteranceStart.IsZero() {
		m.current.DecodeLatency = m.current.FinalTime.Sub(m.current.UtteranceStart)
		m.history = append(m.history, m.current.DecodeLatency)
		if len(m.history) > 100 {
			m.history = m.history[1:]
		}
	}
	m.current.UtteranceStart = time.Time{}
	m.notify()
}

// MarkReconnect records that the recognizer connection was rebuilt.
func (m *MetricsCollector) MarkReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Reconnects++
}

// AddAudioChunk increments the count of chunks sent to the recognizer.
func (m *MetricsCollector) AddAudioChunk() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.AudioChunks++
}

// SetPaused records whether the microphone is gated.
func (m *MetricsCollector) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.Paused = paused
}

// Current returns a snapshot of the current metrics.
func (m *MetricsCollector) Current() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// AverageDecodeLatency returns the mean decode latency over recent
// utterances, or zero if none have completed.
func (m *MetricsCollector) AverageDecodeLatency() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.history {
		sum += d
	}
	return sum / time.Duration(len(m.history))
}

// notify calls the update callback if set.
// Must be called with the mutex held.
func (m *MetricsCollector) notify() {
	if m.onUpdate != nil {
		metrics := m.current
		go m.onUpdate(metrics)
	}
}
