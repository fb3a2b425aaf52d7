package emotion

import (
	"context"
	"sync"
	"time"
)

// PlaybackState represents the current state of sequence playback.
type PlaybackState int

const (
	// StateStopped means no sequence is playing.
	StateStopped PlaybackState = iota

	// StatePlaying means a sequence is actively playing.
	StatePlaying
)

// String returns a human-readable state name.
func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// PlayerCallback is called for each frame tick during playback.
// Return false to stop playback early.
type PlayerCallback func(color LEDColor, elapsed time.Duration) bool

// Player plays LED sequences against a callback at a fixed tick rate.
type Player struct {
	mu      sync.RWMutex
	state   PlaybackState
	current *Sequence
	startAt time.Time
	stopCh  chan struct{}

	// TickRate is the playback evaluation rate. Defaults to 20 Hz.
	TickRate float64
}

// NewPlayer creates a new sequence player.
func NewPlayer() *Player {
	return &Player{
		state:    StateStopped,
		stopCh:   make(chan struct{}),
		TickRate: 20.0,
	}
}

// Play runs the sequence to completion, invoking the callback each tick.
// Blocks until the sequence finishes, the callback returns false, Stop is
// called, or the context is cancelled.
func (p *Player) Play(ctx context.Context, seq *Sequence, callback PlayerCallback) error {
	if len(seq.Frames) == 0 {
		return ErrEmptySequence
	}

	p.mu.Lock()
	if p.state == StatePlaying {
		p.mu.Unlock()
		return ErrAlreadyPlaying
	}
	p.current = seq
	p.state = StatePlaying
	p.startAt = time.Now()
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.state = StateStopped
		p.current = nil
		p.mu.Unlock()
	}()

	tick := time.Duration(float64(time.Second) / p.TickRate)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-p.stopCh:
			return nil

		case <-ticker.C:
			elapsed := time.Since(p.startAt)
			if elapsed >= seq.Duration {
				callback(seq.At(seq.Duration-time.Millisecond), seq.Duration)
				return nil
			}
			if !callback(seq.At(elapsed), elapsed) {
				return nil
			}
		}
	}
}

// Stop halts playback immediately.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StatePlaying {
		close(p.stopCh)
		p.state = StateStopped
	}
}

// State returns the current playback state.
func (p *Player) State() PlaybackState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Current returns the sequence being played, if any.
func (p *Player) Current() *Sequence {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}
