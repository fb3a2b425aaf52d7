package movement

import "time"

// Move represents a motion that provides drive commands over time.
// Moves are "primary": while one plays it owns the wheelbase.
type Move interface {
	// Name returns the move identifier (for logging).
	Name() string

	// Duration returns the total duration of the move.
	// Returns 0 for infinite/continuous moves.
	Duration() time.Duration

	// Evaluate returns the drive command at time t since move start.
	Evaluate(t time.Duration) Drive

	// IsComplete returns true when the move has finished.
	IsComplete(t time.Duration) bool
}

// ============================================================
// TimedMove - a single drive command with an auto-stop
// ============================================================

// TimedMove drives one command for a fixed duration, then completes.
// Spoken movement commands use this so the base never runs away.
type TimedMove struct {
	name     string
	drive    Drive
	duration time.Duration
}

// NewTimedMove creates a timed move.
func NewTimedMove(name string, drive Drive, duration time.Duration) *TimedMove {
	return &TimedMove{name: name, drive: drive, duration: duration}
}

// Name returns the move name.
func (m *TimedMove) Name() string { return m.name }

// Duration returns the drive time.
func (m *TimedMove) Duration() time.Duration { return m.duration }

// Evaluate returns the command until the duration elapses.
func (m *TimedMove) Evaluate(t time.Duration) Drive {
	if t >= m.duration {
		return Drive{}
	}
	return m.drive
}

// IsComplete returns true once the duration has elapsed.
func (m *TimedMove) IsComplete(t time.Duration) bool { return t >= m.duration }

// ============================================================
// StepMove - a scripted sequence of drive commands
// ============================================================

// Step is one leg of a scripted routine.
type Step struct {
	Drive Drive
	For   time.Duration
}

// StepMove plays a sequence of steps, optionally looping.
type StepMove struct {
	name  string
	steps []Step
	loop  bool
	total time.Duration
}

// NewStepMove creates a scripted move.
func NewStepMove(name string, loop bool, steps ...Step) *StepMove {
	m := &StepMove{name: name, steps: steps, loop: loop}
	for _, s := range steps {
		m.total += s.For
	}
	return m
}

// Name returns the routine name.
func (m *StepMove) Name() string { return m.name }

// Duration returns the scripted length, 0 when looping.
func (m *StepMove) Duration() time.Duration {
	if m.loop {
		return 0
	}
	return m.total
}

// Evaluate walks the steps to find the active command at time t.
func (m *StepMove) Evaluate(t time.Duration) Drive {
	if len(m.steps) == 0 || m.total == 0 {
		return Drive{}
	}
	if m.loop {
		t = t % m.total
	} else if t >= m.total {
		return Drive{}
	}

	var at time.Duration
	for _, s := range m.steps {
		at += s.For
		if t < at {
			return s.Drive
		}
	}
	return Drive{}
}

// IsComplete returns true when a non-looping routine has finished.
func (m *StepMove) IsComplete(t time.Duration) bool {
	return !m.loop && t >= m.total
}

// ============================================================
// Stock routines
// ============================================================

// NewDanceRoutine is the party dance: quick alternating slides and
// spins at dance speed, 400ms per step.
func NewDanceRoutine() *StepMove {
	step := 400 * time.Millisecond
	return NewStepMove("dance", false,
		Step{Forward(DanceSpeed), step},
		Step{Backward(DanceSpeed), step},
		Step{StrafeLeft(DanceSpeed), step},
		Step{StrafeRight(DanceSpeed), step},
		Step{TurnLeft(DanceSpeed), step},
		Step{TurnRight(DanceSpeed), step},
		Step{Forward(DanceSpeed), step},
		Step{Backward(DanceSpeed), step},
	)
}

// NewPatrolSquare drives a square patrol until stopped: forward, then a
// quarter turn, repeated.
func NewPatrolSquare() *StepMove {
	return NewStepMove("patrol-square", true,
		Step{Forward(PatrolSpeed), 1200 * time.Millisecond},
		Step{TurnRight(PatrolSpeed), 600 * time.Millisecond},
	)
}

// NewAngryShake jitters side to side at angry speed, 200ms per step.
func NewAngryShake() *StepMove {
	step := 200 * time.Millisecond
	return NewStepMove("angry-shake", false,
		Step{StrafeLeft(AngrySpeed), step},
		Step{StrafeRight(AngrySpeed), step},
		Step{StrafeLeft(AngrySpeed), step},
		Step{StrafeRight(AngrySpeed), step},
		Step{StrafeLeft(AngrySpeed), step},
		Step{StrafeRight(AngrySpeed), step},
	)
}

// NewCelebrateSpin spins in place once for a win.
func NewCelebrateSpin() *StepMove {
	return NewStepMove("celebrate-spin", false,
		Step{TurnRight(PatrolSpeed), 1200 * time.Millisecond},
	)
}

// NewPatrolLap drives one circuit of the patrol square and stops, for
// showing the patrol off without committing to it.
func NewPatrolLap() *StepMove {
	steps := make([]Step, 0, 8)
	for i := 0; i < 4; i++ {
		steps = append(steps,
			Step{Forward(PatrolSpeed), 1200 * time.Millisecond},
			Step{TurnRight(PatrolSpeed), 600 * time.Millisecond},
		)
	}
	return NewStepMove("patrol-lap", false, steps...)
}

// NewBow dips forward and eases back, a little stage bow.
func NewBow() *StepMove {
	return NewStepMove("bow", false,
		Step{Forward(BowSpeed), 500 * time.Millisecond},
		Step{Backward(BowSpeed), 500 * time.Millisecond},
	)
}
