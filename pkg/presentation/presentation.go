// Package presentation runs the scripted self-introduction mode.
//
// A Show walks an ordered script. Each step can broadcast an emotion,
// start an LED sequence, queue a move, beep, and speak one line, then
// holds for its pause. Cancellation is checked between steps and cuts
// a spoken line short. A finished one-shot show parks until the mode
// is switched away; a looping show starts over.
package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/movement"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// Step is one beat of the show.
type Step struct {
	// Say is spoken once the step's effects have started. Playback
	// blocks until the line ends.
	Say string

	// Move is queued as the step begins. It replaces whatever the
	// previous step queued, so size Pause to let it finish.
	Move movement.Move

	// LEDSequence names a light sequence to play.
	LEDSequence string

	// Beep sounds a tone of this length before the line.
	Beep time.Duration

	// Emotion is broadcast at the start of the step. The zero value
	// is neutral.
	Emotion emotion.Emotion

	// Pause holds after the line before the next step.
	Pause time.Duration
}

// Config shapes a show.
type Config struct {
	// Steps is the script. Empty falls back to DefaultScript.
	Steps []Step

	// Loop restarts the script after LoopPause instead of parking.
	Loop      bool
	LoopPause time.Duration

	// SayTimeout bounds synthesis and playback of a single line.
	SayTimeout time.Duration
}

// DefaultConfig returns a one-shot run of the stock script.
func DefaultConfig() Config {
	return Config{
		LoopPause:  2 * time.Second,
		SayTimeout: 10 * time.Second,
	}
}

// Validate checks the show for values the step loop cannot run with.
func (c Config) Validate() error {
	if c.SayTimeout <= 0 {
		return errors.New("presentation: say timeout must be positive")
	}
	if c.LoopPause < 0 {
		return errors.New("presentation: loop pause must not be negative")
	}
	for i, s := range c.Steps {
		if s.Pause < 0 || s.Beep < 0 {
			return fmt.Errorf("presentation: step %d has a negative duration", i+1)
		}
	}
	return nil
}

// Voice speaks one line and returns when playback ends.
type Voice interface {
	Say(ctx context.Context, text string) error
}

// MoveSink queues scripted moves and stops the wheels.
type MoveSink interface {
	QueueMove(m movement.Move)
	StopMove()
	Halt()
}

// Lights plays a named LED sequence.
type Lights interface {
	PlaySequence(name string)
}

// Beeper plays a short tone.
type Beeper interface {
	Beep(d time.Duration)
}

// Deps are the show's collaborators. All of them are optional; a Show
// with none still paces through its script, it just has nothing to
// show.
type Deps struct {
	Voice    Voice
	Drive    MoveSink
	Lights   Lights
	Beeper   Beeper
	Emotions *emotion.Broadcaster
}

// Show plays a script until its context is cancelled.
type Show struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	status atomic.Value
}

var _ resource.Subsystem = (*Show)(nil)

// New builds a show. An empty script is replaced with DefaultScript
// before validation.
func New(cfg Config, deps Deps) (*Show, error) {
	if len(cfg.Steps) == 0 {
		cfg.Steps = DefaultScript()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Show{
		cfg:    cfg,
		deps:   deps,
		logger: log.L().With("component", "presentation"),
	}
	s.status.Store("idle")
	return s, nil
}

// Run performs the script. A one-shot show parks on its last step
// until cancellation so the mode stays active for the operator to
// switch away from.
func (s *Show) Run(ctx context.Context) error {
	defer func() {
		s.stopMoving()
		s.feel(emotion.Neutral, 0.5)
		s.status.Store("idle")
	}()

	for pass := 1; ; pass++ {
		for i, step := range s.cfg.Steps {
			if ctx.Err() != nil {
				return nil
			}
			s.status.Store(fmt.Sprintf("step %d/%d", i+1, len(s.cfg.Steps)))
			s.perform(ctx, step)
		}
		if !s.cfg.Loop {
			break
		}
		s.logger.Info("script finished, looping", "pass", pass)
		if !s.pause(ctx, s.cfg.LoopPause) {
			return nil
		}
	}

	s.status.Store("done")
	s.logger.Info("script finished, holding until mode switch")
	<-ctx.Done()
	return nil
}

// Status reports the step in progress, "done", or "idle".
func (s *Show) Status() string {
	return s.status.Load().(string)
}

func (s *Show) perform(ctx context.Context, step Step) {
	s.feel(step.Emotion, 0.8)
	if step.LEDSequence != "" && s.deps.Lights != nil {
		s.deps.Lights.PlaySequence(step.LEDSequence)
	}
	if step.Beep > 0 && s.deps.Beeper != nil {
		s.deps.Beeper.Beep(step.Beep)
	}
	if step.Move != nil && s.deps.Drive != nil {
		s.deps.Drive.QueueMove(step.Move)
	}
	s.say(ctx, step.Say)
	s.pause(ctx, step.Pause)
}

func (s *Show) say(ctx context.Context, text string) {
	if s.deps.Voice == nil || text == "" {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SayTimeout)
	defer cancel()
	if err := s.deps.Voice.Say(sctx, text); err != nil && ctx.Err() == nil {
		s.logger.Warn("line dropped", "text", text, "error", err)
	}
}

func (s *Show) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Show) feel(e emotion.Emotion, intensity float64) {
	if s.deps.Emotions != nil {
		s.deps.Emotions.Set(e, intensity, modes.Presentation().String())
	}
}

func (s *Show) stopMoving() {
	if s.deps.Drive != nil {
		s.deps.Drive.StopMove()
		s.deps.Drive.Halt()
	}
}
