// Package command defines normalized command events and the bounded
// queue that feeds them to the mode engine. All input paths (IR remote,
// voice grammar, touch, sensors, dashboard, relay, scheduler) converge
// here so the engine consumes a single ordered stream.
package command

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// Kind identifies what a command event asks for.
type Kind int

const (
	KindSelectMode Kind = iota
	KindStopAll
	KindExit
	KindProximityApproach
	KindProximityRecede
	KindLiftDetected
	KindTap
	KindPat
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSelectMode:
		return "select-mode"
	case KindStopAll:
		return "stop-all"
	case KindExit:
		return "exit"
	case KindProximityApproach:
		return "proximity-approach"
	case KindProximityRecede:
		return "proximity-recede"
	case KindLiftDetected:
		return "lift-detected"
	case KindTap:
		return "tap"
	case KindPat:
		return "pat"
	default:
		return "unknown"
	}
}

// Priority reports whether events of this kind ride the priority lane.
// Priority events are never dropped and are always consumed before
// older normal events.
func (k Kind) Priority() bool {
	return k == KindStopAll || k == KindExit
}

// Source tags where an event came from.
type Source int

const (
	SourceRemote Source = iota
	SourceVoice
	SourceTouch
	SourceSensor
	SourceSchedule
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceRemote:
		return "remote"
	case SourceVoice:
		return "voice"
	case SourceTouch:
		return "touch"
	case SourceSensor:
		return "sensor"
	case SourceSchedule:
		return "schedule"
	default:
		return "unknown"
	}
}

// Event is a normalized command event. Mode is meaningful only for
// KindSelectMode.
type Event struct {
	ID     uuid.UUID
	Kind   Kind
	Mode   modes.Mode
	Source Source
	At     time.Time
}

// New creates an event of the given kind.
func New(kind Kind, source Source) Event {
	return Event{
		ID:     uuid.New(),
		Kind:   kind,
		Source: source,
		At:     time.Now(),
	}
}

// NewSelect creates a SelectMode event.
func NewSelect(m modes.Mode, source Source) Event {
	ev := New(KindSelectMode, source)
	ev.Mode = m
	return ev
}

// String renders the event for logs.
func (e Event) String() string {
	if e.Kind == KindSelectMode {
		return fmt.Sprintf("%s(%s) from %s", e.Kind, e.Mode, e.Source)
	}
	return fmt.Sprintf("%s from %s", e.Kind, e.Source)
}
