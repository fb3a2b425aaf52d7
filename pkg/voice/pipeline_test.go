package voice

import (
	"context"
	"strings"
	"testing"
	"time"
)

func init() {
	Register("stub", func(cfg Config) (Pipeline, error) {
		return &stubPipeline{cfg: cfg}, nil
	})
}

// stubPipeline is a do-nothing Pipeline for registry and callback tests.
type stubPipeline struct {
	cfg          Config
	transcriptFn func(text string, final bool)
	errorFn      func(err error)
}

func (s *stubPipeline) Start(ctx context.Context) error               { return nil }
func (s *stubPipeline) Stop() error                                   { return nil }
func (s *stubPipeline) IsRunning() bool                               { return false }
func (s *stubPipeline) Pause()                                        {}
func (s *stubPipeline) Resume()                                       {}
func (s *stubPipeline) OnTranscript(fn func(text string, final bool)) { s.transcriptFn = fn }
func (s *stubPipeline) OnError(fn func(err error))                    { s.errorFn = fn }
func (s *stubPipeline) Metrics() Metrics                              { return Metrics{} }
func (s *stubPipeline) Config() Config                                { return s.cfg }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ServerURL != "ws://127.0.0.1:2700" {
		t.Errorf("expected default vosk URL, got %s", cfg.ServerURL)
	}
	if cfg.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", cfg.SampleRate)
	}
	if cfg.BufferDuration != 100*time.Millisecond {
		t.Errorf("expected buffer duration 100ms, got %v", cfg.BufferDuration)
	}
	if cfg.ReconnectDelay != 2*time.Second {
		t.Errorf("expected reconnect delay 2s, got %v", cfg.ReconnectDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Config) { c.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "negative buffer duration",
			mutate:  func(c *Config) { c.BufferDuration = -time.Millisecond },
			wantErr: true,
		},
		{
			name:    "negative max alternatives",
			mutate:  func(c *Config) { c.MaxAlternatives = -1 },
			wantErr: true,
		},
		{
			name:    "zero reconnect delay",
			mutate:  func(c *Config) { c.ReconnectDelay = 0 },
			wantErr: true,
		},
		{
			name:    "backoff ceiling below initial delay",
			mutate:  func(c *Config) { c.MaxReconnectDelay = time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigWithMethods(t *testing.T) {
	cfg := DefaultConfig()

	cfg = cfg.WithServerURL("ws://recognizer:2700")
	if cfg.ServerURL != "ws://recognizer:2700" {
		t.Errorf("WithServerURL did not set URL, got %s", cfg.ServerURL)
	}

	cfg = cfg.WithDevice("plughw:1,0")
	if cfg.Device != "plughw:1,0" {
		t.Errorf("WithDevice did not set device, got %s", cfg.Device)
	}

	cfg = cfg.WithSampleRate(8000)
	if cfg.SampleRate != 8000 {
		t.Errorf("WithSampleRate did not set rate, got %d", cfg.SampleRate)
	}

	cfg = cfg.WithDebug(true)
	if !cfg.Debug {
		t.Errorf("WithDebug did not set debug flag")
	}
}

func TestRegistry(t *testing.T) {
	p, err := New("stub", DefaultConfig())
	if err != nil {
		t.Fatalf("New(stub) failed: %v", err)
	}
	if p == nil {
		t.Fatal("New(stub) returned nil pipeline")
	}

	if _, err := New("no-such-pipeline", DefaultConfig()); err == nil {
		t.Error("expected error for unknown pipeline name")
	} else if !strings.Contains(err.Error(), "unknown pipeline") {
		t.Errorf("unexpected error text: %v", err)
	}

	bad := DefaultConfig()
	bad.SampleRate = 0
	if _, err := New("stub", bad); err == nil {
		t.Error("expected validation error for bad config")
	}

	found := false
	for _, name := range Registered() {
		if name == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("Registered() missing stub, got %v", Registered())
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate Register")
		}
	}()
	Register("stub", func(cfg Config) (Pipeline, error) { return nil, nil })
}

func TestRegisterNilFactoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil factory")
		}
	}()
	Register("nil-factory", nil)
}

func TestCallbacksApply(t *testing.T) {
	p := &stubPipeline{}

	Callbacks{
		OnTranscript: func(text string, final bool) {},
		OnError:      func(err error) {},
	}.Apply(p)

	if p.transcriptFn == nil {
		t.Error("Apply did not set transcript callback")
	}
	if p.errorFn == nil {
		t.Error("Apply did not set error callback")
	}

	// Nil callbacks are not applied
	p2 := &stubPipeline{}
	Callbacks{}.Apply(p2)
	if p2.transcriptFn != nil || p2.errorFn != nil {
		t.Error("Apply set callbacks that were nil")
	}
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector()

	// Simulate one utterance
	mc.MarkPartial()
	mc.MarkPartial()
	time.Sleep(10 * time.Millisecond)
	mc.MarkFinal("hello robot")

	m := mc.Current()
	if m.Partials != 2 {
		t.Errorf("expected 2 partials, got %d", m.Partials)
	}
	if m.Finals != 1 {
		t.Errorf("expected 1 final, got %d", m.Finals)
	}
	if m.LastFinal != "hello robot" {
		t.Errorf("expected last final 'hello robot', got %q", m.LastFinal)
	}
	if m.DecodeLatency <= 0 {
		t.Errorf("expected positive decode latency, got %v", m.DecodeLatency)
	}
	if !m.UtteranceStart.IsZero() {
		t.Error("expected utterance start reset after final")
	}

	mc.AddAudioChunk()
	mc.MarkReconnect()
	mc.SetPaused(true)

	m = mc.Current()
	if m.AudioChunks != 1 {
		t.Errorf("expected 1 audio chunk, got %d", m.AudioChunks)
	}
	if m.Reconnects != 1 {
		t.Errorf("expected 1 reconnect, got %d", m.Reconnects)
	}
	if !m.Paused {
		t.Error("expected paused state recorded")
	}
}

func TestMetricsOnUpdate(t *testing.T) {
	mc := NewMetricsCollector()

	updates := make(chan Metrics, 1)
	mc.OnUpdate(func(m Metrics) { updates <- m })

	mc.MarkPartial()
	mc.MarkFinal("done")

	select {
	case m := <-updates:
		if m.Finals != 1 {
			t.Errorf("expected 1 final in update, got %d", m.Finals)
		}
	case <-time.After(time.Second):
		t.Fatal("OnUpdate callback never fired")
	}
}

func TestAverageDecodeLatency(t *testing.T) {
	mc := NewMetricsCollector()

	if avg := mc.AverageDecodeLatency(); avg != 0 {
		t.Errorf("expected zero average with no history, got %v", avg)
	}

	mc.MarkPartial()
	time.Sleep(5 * time.Millisecond)
	mc.MarkFinal("one")

	if avg := mc.AverageDecodeLatency(); avg <= 0 {
		t.Errorf("expected positive average after a final, got %v", avg)
	}
}

func TestMetricsFormatSummary(t *testing.T) {
	m := Metrics{
		Partials:      12,
		Finals:        3,
		DecodeLatency: 120 * time.Millisecond,
		Reconnects:    1,
	}

	formatted := m.FormatSummary()
	if formatted == "" {
		t.Error("FormatSummary returned empty string")
	}
	if !strings.Contains(formatted, "3 finals") {
		t.Errorf("summary missing final count: %s", formatted)
	}
}
