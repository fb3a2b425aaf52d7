package orchestrator

import (
	"context"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// Outputs is everything a reaction may drive. The app wires these to
// the speech player, the bridge beeper, the LED renderer, and the
// movement manager.
type Outputs interface {
	Speak(text string)
	Beep(d time.Duration)
	PlaySequence(name string)
	QueueMove(m movement.Move)
	Halt()
}

// Reaction is one transient interrupt response. With Hold set, the
// current emotion is saved, the reaction emotion published, and the
// saved one restored after Hold unless something newer was published
// meanwhile. A zero Hold performs the outputs without touching the
// emotion at all.
type Reaction struct {
	Name    string
	Emotion emotion.Emotion
	Hold    time.Duration
	Perform func(out Outputs)
}

func defaultReactions() map[command.Kind]Reaction {
	return map[command.Kind]Reaction{
		command.KindProximityApproach: {
			Name:    "greet",
			Emotion: emotion.Happy,
			Hold:    time.Second,
			Perform: func(out Outputs) {
				out.Beep(60 * time.Millisecond)
			},
		},
		command.KindProximityRecede: {
			Name:    "high-five",
			Emotion: emotion.Happy,
			Hold:    2 * time.Second,
			Perform: func(out Outputs) {
				out.PlaySequence("win")
				out.QueueMove(movement.NewCelebrateSpin())
				out.Speak("High five!")
			},
		},
		command.KindLiftDetected: {
			Name:    "lifted",
			Emotion: emotion.Scared,
			Hold:    2 * time.Second,
			Perform: func(out Outputs) {
				out.Halt()
				out.PlaySequence("scared")
				out.Speak("Whoa, put me down!")
			},
		},
		command.KindTap: {
			Name: "tap",
			Perform: func(out Outputs) {
				out.Beep(50 * time.Millisecond)
			},
		},
		command.KindPat: {
			Name:    "pat",
			Emotion: emotion.Shy,
			Hold:    2 * time.Second,
		},
	}
}

// Reactor plays interrupt reactions without ever touching the mode.
// One reaction plays at a time; while one plays, at most one more may
// wait, and further triggers are dropped.
type Reactor struct {
	emotions  *emotion.Broadcaster
	out       Outputs
	reactions map[command.Kind]Reaction
	trigger   chan command.Kind
}

// NewReactor creates a reactor with the built-in reaction set.
func NewReactor(emotions *emotion.Broadcaster, out Outputs) *Reactor {
	return &Reactor{
		emotions:  emotions,
		out:       out,
		reactions: defaultReactions(),
		trigger:   make(chan command.Kind, 1),
	}
}

// SetReaction replaces the reaction for an event kind.
func (r *Reactor) SetReaction(kind command.Kind, reaction Reaction) {
	r.reactions[kind] = reaction
}

// Trigger requests a reaction. It never blocks; false means the
// pending slot was already taken and the event is dropped.
func (r *Reactor) Trigger(kind command.Kind) bool {
	select {
	case r.trigger <- kind:
		return true
	default:
		return false
	}
}

// Run plays triggered reactions until the context ends.
func (r *Reactor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case kind := <-r.trigger:
			r.play(ctx, kind)
		}
	}
}

func (r *Reactor) play(ctx context.Context, kind command.Kind) {
	reaction, ok := r.reactions[kind]
	if !ok {
		log.Debug("no reaction defined", "event", kind.String())
		return
	}
	log.Info("playing reaction", "name", reaction.Name)

	if reaction.Hold <= 0 {
		if reaction.Perform != nil {
			reaction.Perform(r.out)
		}
		return
	}

	saved, seq := r.emotions.Swap(reaction.Emotion, 1)

	if reaction.Perform != nil {
		reaction.Perform(r.out)
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(reaction.Hold):
	}

	if !r.emotions.Restore(saved, seq) {
		log.Debug("reaction restore skipped, emotion superseded", "name", reaction.Name)
	}
}
