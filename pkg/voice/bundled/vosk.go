// Package bundled provides the built-in speech recognition pipelines.
package bundled

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-raspbot/pkg/audioio"
	"github.com/teslashibe/go-raspbot/pkg/voice"
)

func init() {
	voice.Register("vosk", NewVosk)
}

const (
	voskHandshakeTimeout = 5 * time.Second
	voskWriteTimeout     = 5 * time.Second
)

var errMicClosed = errors.New("microphone stream closed")

// Vosk implements voice.Pipeline against a vosk-server instance.
//
// The pipeline opens the microphone, streams raw PCM16 chunks to the
// server over a websocket, and parses the JSON replies into partial
// and final transcripts. If the connection drops the microphone keeps
// running and the pipeline redials with exponential backoff, so a
// recognizer restart costs a few seconds of speech, not the session.
type Vosk struct {
	cfg    voice.Config
	logger *slog.Logger

	// Session state
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	source  audioio.Source

	paused atomic.Bool

	// Callbacks
	cbMu         sync.RWMutex
	onTranscript func(text string, final bool)
	onError      func(err error)

	// Metrics
	metrics *voice.MetricsCollector
}

// NewVosk creates a vosk pipeline. The recognizer is not dialed and
// the microphone is not opened until Start.
func NewVosk(cfg voice.Config) (voice.Pipeline, error) {
	if cfg.ServerURL == "" {
		return nil, voice.ErrNoServerURL
	}
	return &Vosk{
		cfg:     cfg,
		logger:  slog.Default().With("component", "voice.vosk"),
		metrics: voice.NewMetricsCollector(),
	}, nil
}

// Start opens the microphone and begins streaming to the recognizer.
func (v *Vosk) Start(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.running {
		return voice.ErrAlreadyStarted
	}

	if v.source == nil {
		src, err := audioio.NewSource(audioio.Config{
			Backend:        audioio.BackendAuto,
			SampleRate:     v.cfg.SampleRate,
			Channels:       1,
			BufferDuration: v.cfg.BufferDuration,
			Device:         v.cfg.Device,
		}, v.logger)
		if err != nil {
			return fmt.Errorf("open microphone: %w", err)
		}
		v.source = src
	}
	if err := v.source.Start(ctx); err != nil {
		return fmt.Errorf("start microphone: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})
	v.running = true

	// The loop gets its own references so a Stop/Start cycle can never
	// swap them out from under it.
	go v.run(runCtx, v.source, v.done)

	v.logger.Info("vosk pipeline started",
		"server", v.cfg.ServerURL,
		"sample_rate", v.cfg.SampleRate,
	)
	return nil
}

// Stop shuts down the recognizer connection and releases the microphone.
func (v *Vosk) Stop() error {
	v.mu.Lock()
	if !v.running {
		v.mu.Unlock()
		return nil
	}
	v.running = false
	cancel := v.cancel
	done := v.done
	source := v.source
	v.source = nil
	v.mu.Unlock()

	cancel()
	<-done

	if source != nil {
		source.Stop()
		source.Close()
	}

	v.logger.Info("vosk pipeline stopped")
	return nil
}

// IsRunning reports whether the pipeline is processing audio.
func (v *Vosk) IsRunning() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.running
}

// Pause gates the microphone. Chunks are still read from the capture
// device but no longer forwarded, so the recognizer hears silence
// while the robot talks.
func (v *Vosk) Pause() {
	v.paused.Store(true)
	v.metrics.SetPaused(true)
}

// Resume lifts the microphone gate.
func (v *Vosk) Resume() {
	v.paused.Store(false)
	v.metrics.SetPaused(false)
}

// OnTranscript registers the transcript callback.
func (v *Vosk) OnTranscript(fn func(text string, final bool)) {
	v.cbMu.Lock()
	defer v.cbMu.Unlock()
	v.onTranscript = fn
}

// OnError registers the error callback.
func (v *Vosk) OnError(fn func(err error)) {
	v.cbMu.Lock()
	defer v.cbMu.Unlock()
	v.onError = fn
}

// Metrics returns a snapshot of recognition counters.
func (v *Vosk) Metrics() voice.Metrics {
	return v.metrics.Current()
}

// Config returns the pipeline configuration.
func (v *Vosk) Config() voice.Config {
	return v.cfg
}

// run dials the recognizer in a loop, backing off on failure. A
// session that held for a while earns a fresh backoff.
func (v *Vosk) run(ctx context.Context, source audioio.Source, done chan struct{}) {
	defer close(done)

	delay := v.cfg.ReconnectDelay
	for {
		start := time.Now()
		err := v.session(ctx, source)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, errMicClosed) {
			// No microphone means no pipeline. Reconnecting the
			// websocket cannot fix this.
			v.reportError(err)
			return
		}
		if time.Since(start) > time.Minute {
			delay = v.cfg.ReconnectDelay
		}
		if err != nil {
			v.reportError(err)
		}
		v.metrics.MarkReconnect()
		v.logger.Warn("recognizer disconnected, reconnecting",
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > v.cfg.MaxReconnectDelay {
			delay = v.cfg.MaxReconnectDelay
		}
	}
}

// session runs one websocket connection: handshake, then microphone
// chunks out and transcripts in until something breaks.
func (v *Vosk) session(ctx context.Context, source audioio.Source) error {
	dialer := websocket.Dialer{HandshakeTimeout: voskHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, v.cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial recognizer: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(voskWriteTimeout))
	if err := conn.WriteJSON(voskHandshake(v.cfg)); err != nil {
		return fmt.Errorf("send recognizer config: %w", err)
	}

	v.logger.Info("connected to recognizer", "url", v.cfg.ServerURL)

	// The receive loop runs aside so a slow recognizer reply cannot
	// stall audio capture. Closing conn unblocks it.
	recvErr := make(chan error, 1)
	go func() { recvErr <- v.receive(conn) }()

	stream := source.Stream()
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(voskWriteTimeout))
			conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`))
			return ctx.Err()
		case err := <-recvErr:
			return err
		case chunk, ok := <-stream:
			if !ok {
				return errMicClosed
			}
			if v.paused.Load() {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(voskWriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk.Bytes()); err != nil {
				return fmt.Errorf("send audio: %w", err)
			}
			v.metrics.AddAudioChunk()
		}
	}
}

// receive parses recognizer replies until the connection dies.
func (v *Vosk) receive(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read recognizer: %w", err)
		}

		text, final, ok := parseVoskMessage(data)
		if !ok {
			continue
		}

		if final {
			v.metrics.MarkFinal(text)
		} else {
			v.metrics.MarkPartial()
		}
		if v.cfg.Debug {
			v.logger.Debug("transcript", "text", text, "final", final)
		}

		v.cbMu.RLock()
		cb := v.onTranscript
		v.cbMu.RUnlock()
		if cb != nil {
			cb(text, final)
		}
	}
}

func (v *Vosk) reportError(err error) {
	v.cbMu.RLock()
	cb := v.onError
	v.cbMu.RUnlock()
	if cb != nil {
		cb(err)
	}
}

// voskHandshake builds the configuration message the server expects
// before any audio arrives.
func voskHandshake(cfg voice.Config) map[string]any {
	conf := map[string]any{"sample_rate": cfg.SampleRate}
	if cfg.MaxAlternatives > 0 {
		conf["max_alternatives"] = cfg.MaxAlternatives
	}
	return map[string]any{"config": conf}
}

// parseVoskMessage extracts a transcript from a vosk-server reply.
// Replies carry either a rolling {"partial": ...} hypothesis or a
// {"text": ...} final once the recognizer detects the utterance end.
// Empty hypotheses, which the server emits constantly during silence,
// are dropped.
func parseVoskMessage(data []byte) (text string, final bool, ok bool) {
	var msg struct {
		Partial string `json:"partial"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", false, false
	}
	if msg.Text != "" {
		return msg.Text, true, true
	}
	if msg.Partial != "" {
		return msg.Partial, false, true
	}
	return "", false, false
}

var _ voice.Pipeline = (*Vosk)(nil)
