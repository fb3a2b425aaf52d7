package presentation

import (
	"time"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// DefaultScript is the stock self-introduction: a greeting, the party
// dance, one patrol lap, a rainbow, and a bow. Pauses are sized so
// each routine finishes before the next step replaces it.
func DefaultScript() []Step {
	return []Step{
		{
			Say:     "Hello! My name is Marich. Let me show you what I can do.",
			Emotion: emotion.Happy,
			Pause:   500 * time.Millisecond,
		},
		{
			Say:     "First of all, I love to dance!",
			Move:    movement.NewDanceRoutine(),
			Emotion: emotion.Happy,
			Pause:   3500 * time.Millisecond,
		},
		{
			Say:     "I can patrol on my own. Here is one lap.",
			Move:    movement.NewPatrolLap(),
			Emotion: emotion.Neutral,
			Pause:   7500 * time.Millisecond,
		},
		{
			Say:         "My lights do rainbows.",
			LEDSequence: "rainbow",
			Emotion:     emotion.Happy,
			Pause:       3 * time.Second,
		},
		{
			Say:     "That is everything. Thank you for watching!",
			Move:    movement.NewBow(),
			Beep:    150 * time.Millisecond,
			Emotion: emotion.Happy,
			Pause:   1500 * time.Millisecond,
		},
	}
}
