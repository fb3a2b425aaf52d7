// Package emotion provides the robot's emotion state and its LED language.
//
// Subsystems publish Emotion States into a Broadcaster; output sinks (the
// LED renderer, the dashboard, the relay bridge) pull the latest state on
// their own cadence. Publishing is an atomic overwrite: there is no queue
// of pending emotions and readers always observe a complete state.
package emotion

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Emotion identifies a primary emotion.
type Emotion int

const (
	Neutral Emotion = iota
	Happy
	Angry
	Shy
	Confused
	Scared
)

// String returns the emotion name.
func (e Emotion) String() string {
	switch e {
	case Neutral:
		return "neutral"
	case Happy:
		return "happy"
	case Angry:
		return "angry"
	case Shy:
		return "shy"
	case Confused:
		return "confused"
	case Scared:
		return "scared"
	default:
		return "unknown"
	}
}

// Parse parses an emotion name. Unknown names return an error so callers
// can fall back to Neutral explicitly.
func Parse(s string) (Emotion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "neutral":
		return Neutral, nil
	case "happy":
		return Happy, nil
	case "angry":
		return Angry, nil
	case "shy":
		return Shy, nil
	case "confused":
		return Confused, nil
	case "scared":
		return Scared, nil
	default:
		return Neutral, fmt.Errorf("emotion: unknown emotion %q", s)
	}
}

// State is a complete emotion snapshot.
type State struct {
	Emotion   Emotion
	Intensity float64
	// SourceMode names the mode that produced the state, empty for
	// system-level states (errors, reactions).
	SourceMode string
	At         time.Time
}

// Broadcaster holds the latest Emotion State. Writes overwrite, reads
// never block writers for long, and every write bumps a sequence number
// so a saved state can be restored only if nothing newer landed.
type Broadcaster struct {
	mu  sync.RWMutex
	cur State
	seq uint64
}

// NewBroadcaster returns a broadcaster starting at neutral.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		cur: State{Emotion: Neutral, Intensity: 0.5, At: time.Now()},
	}
}

// Publish overwrites the current state and returns the new sequence number.
func (b *Broadcaster) Publish(s State) uint64 {
	if s.At.IsZero() {
		s.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur = s
	b.seq++
	return b.seq
}

// Set is a convenience Publish.
func (b *Broadcaster) Set(e Emotion, intensity float64, sourceMode string) uint64 {
	return b.Publish(State{Emotion: e, Intensity: intensity, SourceMode: sourceMode})
}

// Current returns the latest state.
func (b *Broadcaster) Current() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cur
}

// Seq returns the current sequence number.
func (b *Broadcaster) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Snapshot returns the latest state together with its sequence number.
func (b *Broadcaster) Snapshot() (State, uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cur, b.seq
}

// Swap publishes a new emotion at the given intensity, keeping the
// current SourceMode, and returns the replaced state together with the
// new sequence number. Save and publish happen under one lock so no
// other write can slip between them.
func (b *Broadcaster) Swap(e Emotion, intensity float64) (State, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.cur
	b.cur = State{
		Emotion:    e,
		Intensity:  intensity,
		SourceMode: prev.SourceMode,
		At:         time.Now(),
	}
	b.seq++
	return prev, b.seq
}

// Restore publishes s only if the sequence still equals ifSeq, i.e. no
// newer state was published since the caller saved. Returns whether the
// restore was applied. Reactions use this to hand the LEDs back without
// clobbering an emotion a subsystem published mid-reaction.
func (b *Broadcaster) Restore(s State, ifSeq uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seq != ifSeq {
		return false
	}
	if s.At.IsZero() {
		s.At = time.Now()
	}
	b.cur = s
	b.seq++
	return true
}
