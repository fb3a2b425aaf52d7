package tts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/audioio"
)

const providerPiper = "piper"

// Piper implements Provider by shelling out to the piper binary.
//
// Each Synthesize call runs one short-lived process: text goes to stdin,
// raw S16_LE mono comes back on stdout at the voice model's rate. Piper
// loads its model fast enough on the Pi that keeping a warm process
// around is not worth the lifecycle headache.
type Piper struct {
	config *Config
	voice  Voice
	model  string
	logger *slog.Logger
}

// NewPiper creates a Piper provider and verifies the voice model exists.
func NewPiper(opts ...Option) (*Piper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	voice := ResolvePiperVoice(cfg.Voice)
	model := voice.Model
	if !filepath.IsAbs(model) {
		model = filepath.Join(cfg.ModelDir, model)
	}
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoVoiceModel, model)
	}

	return &Piper{
		config: cfg,
		voice:  voice,
		model:  model,
		logger: cfg.Logger.With("component", "tts.piper"),
	}, nil
}

// Synthesize converts text to audio by running piper once.
func (p *Piper) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.config.PiperBin, "--model", p.model, "--output-raw")
	cmd.Stdin = strings.NewReader(text + "\n")

	var out bytes.Buffer
	var errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, WrapError(providerPiper, ctx.Err())
		}
		if msg := lastLine(errOut.String()); msg != "" {
			return nil, WrapError(providerPiper, fmt.Errorf("%w: %s", err, msg))
		}
		return nil, WrapError(providerPiper, err)
	}

	pcm := audioio.BytesToSamples(out.Bytes())
	latency := time.Since(start).Milliseconds()

	p.logger.Debug("synthesized audio",
		"chars", len(text),
		"samples", len(pcm),
		"latency_ms", latency,
		"voice", p.config.Voice,
	)

	return &AudioResult{
		PCM:        pcm,
		SampleRate: p.voice.SampleRate,
		CharCount:  len(text),
		LatencyMs:  latency,
	}, nil
}

// Health checks that the piper binary and voice model are present.
func (p *Piper) Health(ctx context.Context) error {
	if _, err := exec.LookPath(p.config.PiperBin); err != nil {
		return WrapError(providerPiper, err)
	}
	if _, err := os.Stat(p.model); err != nil {
		return WrapError(providerPiper, fmt.Errorf("%w: %s", ErrNoVoiceModel, p.model))
	}
	return nil
}

// Close releases resources. Piper holds none between calls.
func (p *Piper) Close() error {
	return nil
}

// VoiceName returns the configured voice.
func (p *Piper) VoiceName() string {
	return p.config.Voice
}

// lastLine returns the last non-empty line of s. Piper logs progress to
// stderr; only the final line says what actually broke.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

// Verify Piper implements Provider at compile time.
var _ Provider = (*Piper)(nil)
