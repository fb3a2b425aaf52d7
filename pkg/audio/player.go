// Package audio provides serialized speech playback for the robot.
//
// The Player owns the speaker: everything the robot says goes through a
// single queue so two utterances never talk over each other. Callers hand
// it PCM clips (usually straight from TTS) and can observe or cancel
// playback.
package audio

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-raspbot/pkg/audioio"
)

// ErrQueueFull is returned by Say when the playback queue is saturated.
var ErrQueueFull = errors.New("audio: speech queue full")

// queueDepth bounds how many clips can wait behind the one playing.
const queueDepth = 8

// Clip is one utterance of mono PCM16 audio.
type Clip struct {
	Samples    []int16
	SampleRate int
	Text       string // what the clip says, for logs and status
}

// PlayerStats is a snapshot of playback counters.
type PlayerStats struct {
	Played   int64
	Dropped  int64
	Queued   int
	Speaking bool
}

// Player plays queued clips through an audio sink, one at a time.
type Player struct {
	sink   audioio.Sink
	logger *slog.Logger

	// OnPlaybackStart fires just before a clip starts playing.
	// Set before Run; used to pause the microphone so the robot
	// does not transcribe itself.
	OnPlaybackStart func()

	// OnPlaybackEnd fires after a clip finishes or is cancelled.
	OnPlaybackEnd func()

	// Tap observes each chunk as it is written, for level metering.
	// Must be fast; it runs on the playback goroutine.
	Tap func(samples []int16, sampleRate int)

	queue chan Clip

	mu        sync.Mutex
	speaking  bool
	interrupt chan struct{}

	played  atomic.Int64
	dropped atomic.Int64
}

// NewPlayer creates a player over the given sink.
func NewPlayer(sink audioio.Sink, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}

	return &Player{
		sink:   sink,
		logger: logger.With("component", "audio.player"),
		queue:  make(chan Clip, queueDepth),
	}
}

// Run plays queued clips until the context is cancelled.
func (p *Player) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case clip := <-p.queue:
			p.play(ctx, clip)
		}
	}
}

// Say enqueues a clip for playback. It never blocks: when the queue is
// full the clip is dropped and ErrQueueFull returned.
func (p *Player) Say(clip Clip) error {
	if len(clip.Samples) == 0 {
		return nil
	}

	select {
	case p.queue <- clip:
		return nil
	default:
		p.dropped.Add(1)
		p.logger.Warn("speech queue full, dropping clip", "text", clip.Text)
		return ErrQueueFull
	}
}

// Cancel stops the current clip and discards everything queued behind it.
func (p *Player) Cancel() {
	p.mu.Lock()
	if p.interrupt != nil {
		close(p.interrupt)
		p.interrupt = nil
	}
	p.mu.Unlock()

	// Drain without blocking; new clips may arrive after this and that
	// is fine, Cancel only clears what was pending at the time.
	for {
		select {
		case <-p.queue:
			p.dropped.Add(1)
		default:
			p.sink.Clear()
			return
		}
	}
}

// IsSpeaking reports whether a clip is currently playing.
func (p *Player) IsSpeaking() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.speaking
}

// Stats returns a snapshot of playback counters.
func (p *Player) Stats() PlayerStats {
	p.mu.Lock()
	speaking := p.speaking
	p.mu.Unlock()

	return PlayerStats{
		Played:   p.played.Load(),
		Dropped:  p.dropped.Load(),
		Queued:   len(p.queue),
		Speaking: speaking,
	}
}

// play writes one clip to the sink in 100ms chunks so cancellation can
// cut in between writes.
func (p *Player) play(ctx context.Context, clip Clip) {
	stop := make(chan struct{})

	p.mu.Lock()
	p.interrupt = stop
	p.speaking = true
	p.mu.Unlock()

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}

	p.logger.Debug("playing clip",
		"samples", len(clip.Samples),
		"sample_rate", clip.SampleRate,
		"text", clip.Text,
	)

	chunkSize := clip.SampleRate / 10
	if chunkSize <= 0 {
		chunkSize = len(clip.Samples)
	}

	cancelled := false
loop:
	for off := 0; off < len(clip.Samples); off += chunkSize {
		select {
		case <-ctx.Done():
			cancelled = true
			break loop
		case <-stop:
			cancelled = true
			break loop
		default:
		}

		end := off + chunkSize
		if end > len(clip.Samples) {
			end = len(clip.Samples)
		}
		part := clip.Samples[off:end]

		if p.Tap != nil {
			p.Tap(part, clip.SampleRate)
		}

		chunk := audioio.AudioChunk{
			Samples:    part,
			SampleRate: clip.SampleRate,
			Channels:   1,
		}
		if err := p.sink.Write(ctx, chunk); err != nil {
			p.logger.Warn("sink write failed", "error", err)
			cancelled = true
			break loop
		}
	}

	if !cancelled {
		if err := p.sink.Flush(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("sink flush failed", "error", err)
		}
		p.played.Add(1)
	}

	p.mu.Lock()
	p.speaking = false
	p.interrupt = nil
	p.mu.Unlock()

	if p.OnPlaybackEnd != nil {
		p.OnPlaybackEnd()
	}
}
