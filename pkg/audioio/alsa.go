package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
)

// ALSASource captures audio from a microphone via an arecord subprocess.
//
// arecord writes raw S16_LE frames to its stdout, which we cut into
// fixed-size chunks. Going through the CLI instead of the ALSA C API
// keeps the binary cgo-free, which matters for cross-compiling to the Pi.
type ALSASource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	streamCh chan AudioChunk
	done     chan struct{}

	// Stats
	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

// newALSASource creates an ALSA audio source.
func newALSASource(cfg Config, logger *slog.Logger) (*ALSASource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return &ALSASource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.alsa_source"),
	}, nil
}

// captureArgs builds the arecord argument list for a config.
func captureArgs(cfg Config) []string {
	device := cfg.Device
	if device == "" {
		device = "default"
	}
	return []string{
		"-q",
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(cfg.SampleRate),
		"-c", strconv.Itoa(cfg.Channels),
		"-t", "raw",
	}
}

// Start launches arecord and begins streaming chunks.
func (s *ALSASource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	cmd := exec.Command("arecord", captureArgs(s.cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("arecord stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start arecord: %w", err)
	}

	s.cmd = cmd
	s.running = true
	s.streamCh = make(chan AudioChunk, 10)
	s.done = make(chan struct{})

	go s.captureLoop(cmd, stdout, s.streamCh, s.done)

	s.logger.Info("alsa source started",
		"device", s.cfg.Device,
		"sample_rate", s.cfg.SampleRate,
		"channels", s.cfg.Channels,
	)

	return nil
}

// captureLoop reads fixed-size frames from arecord until the pipe breaks.
// It owns the stream channel: closing it here means Read sees io.EOF only
// after the last captured chunk has been delivered.
func (s *ALSASource) captureLoop(cmd *exec.Cmd, stdout io.Reader, out chan<- AudioChunk, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	frame := make([]byte, s.cfg.BufferBytes())
	for {
		if _, err := io.ReadFull(stdout, frame); err != nil {
			// Pipe closed: either Stop killed arecord or it died on its own.
			break
		}

		chunk := AudioChunk{
			Samples:    BytesToSamples(frame),
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
		}

		select {
		case out <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(len(chunk.Samples)))
		default:
			// Consumer is behind. Drop the chunk rather than stall capture.
			s.overruns.Add(1)
		}
	}

	cmd.Wait()
}

// Stop kills arecord and waits for the capture loop to drain.
func (s *ALSASource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cmd := s.cmd
	done := s.done
	s.cmd = nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		cmd.Process.Kill()
	}
	if done != nil {
		<-done
	}

	s.logger.Info("alsa source stopped",
		"chunks", s.chunksRead.Load(),
		"overruns", s.overruns.Load(),
	)

	return nil
}

// Read returns the next captured chunk, or io.EOF once the source stops.
func (s *ALSASource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.streamCh
	s.mu.Unlock()

	if ch == nil {
		return AudioChunk{}, io.EOF
	}

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the capture channel for the current run.
func (s *ALSASource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the audio configuration.
func (s *ALSASource) Config() Config {
	return s.cfg
}

// Name returns "alsa".
func (s *ALSASource) Name() string {
	return "alsa"
}

// Close releases resources.
func (s *ALSASource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns source statistics.
func (s *ALSASource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     "alsa",
	}
}

// Ensure ALSASource implements SourceWithStats.
var _ SourceWithStats = (*ALSASource)(nil)

// ALSASink plays audio through an aplay subprocess.
//
// The process is spawned lazily on the first Write and pinned to that
// chunk's sample rate; a chunk at a different rate respawns aplay. The
// OS pipe provides natural backpressure since aplay consumes samples at
// real-time speed.
type ALSASink struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	rate     int
	channels int

	// Stats
	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	underruns      atomic.Int64
}

// newALSASink creates an ALSA audio sink.
func newALSASink(cfg Config, logger *slog.Logger) (*ALSASink, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return &ALSASink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.alsa_sink"),
	}, nil
}

// playbackArgs builds the aplay argument list for a stream format.
func playbackArgs(device string, rate, channels int) []string {
	if device == "" {
		device = "default"
	}
	return []string{
		"-q",
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(rate),
		"-c", strconv.Itoa(channels),
		"-t", "raw",
	}
}

// Start marks the sink ready. aplay itself is launched on first Write.
func (s *ALSASink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}

	s.running = true
	s.logger.Info("alsa sink started", "device", s.cfg.Device)

	return nil
}

// Stop halts playback immediately, discarding anything buffered.
func (s *ALSASink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.killLocked()
	s.logger.Info("alsa sink stopped", "chunks", s.chunksWritten.Load())

	return nil
}

// Write queues a chunk for playback, spawning or respawning aplay as
// needed to match the chunk's format.
func (s *ALSASink) Write(ctx context.Context, chunk AudioChunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running {
		return io.ErrClosedPipe
	}

	rate := chunk.SampleRate
	if rate == 0 {
		rate = s.cfg.SampleRate
	}
	channels := chunk.Channels
	if channels == 0 {
		channels = s.cfg.Channels
	}

	if s.cmd == nil || rate != s.rate || channels != s.channels {
		if err := s.spawnLocked(rate, channels); err != nil {
			return err
		}
	}

	if _, err := s.stdin.Write(chunk.Bytes()); err != nil {
		// aplay died under us, likely a device error.
		s.underruns.Add(1)
		s.killLocked()
		return fmt.Errorf("write to aplay: %w", err)
	}

	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(chunk.Samples)))

	return nil
}

// spawnLocked starts a fresh aplay process for the given format.
// Caller holds s.mu.
func (s *ALSASink) spawnLocked(rate, channels int) error {
	s.killLocked()

	cmd := exec.Command("aplay", playbackArgs(s.cfg.Device, rate, channels)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("aplay stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start aplay: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.rate = rate
	s.channels = channels

	s.logger.Debug("aplay spawned", "rate", rate, "channels", channels)

	return nil
}

// killLocked tears down the current aplay process without draining.
// Caller holds s.mu.
func (s *ALSASink) killLocked() {
	if s.cmd == nil {
		return
	}
	s.stdin.Close()
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd.Wait()
	s.cmd = nil
	s.stdin = nil
}

// Flush closes aplay's stdin and waits for it to finish playing what it
// has buffered. This is the only way to know the speaker has actually
// gone quiet.
func (s *ALSASink) Flush(ctx context.Context) error {
	s.mu.Lock()
	cmd := s.cmd
	stdin := s.stdin
	s.cmd = nil
	s.stdin = nil
	s.mu.Unlock()

	if cmd == nil {
		return nil
	}

	stdin.Close()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			s.logger.Warn("aplay exited with error", "error", err)
		}
		return nil
	}
}

// Clear kills the current playback without waiting for the buffer.
func (s *ALSASink) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.killLocked()
	s.logger.Debug("alsa sink cleared")

	return nil
}

// Config returns the audio configuration.
func (s *ALSASink) Config() Config {
	return s.cfg
}

// Name returns "alsa".
func (s *ALSASink) Name() string {
	return "alsa"
}

// Close releases resources.
func (s *ALSASink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

// Stats returns sink statistics.
func (s *ALSASink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SinkStats{
		ChunksWritten:  s.chunksWritten.Load(),
		SamplesWritten: s.samplesWritten.Load(),
		Underruns:      s.underruns.Load(),
		Running:        running,
		Backend:        "alsa",
	}
}

// Ensure ALSASink implements SinkWithStats.
var _ SinkWithStats = (*ALSASink)(nil)
