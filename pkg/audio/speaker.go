package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/tts"
)

// Speaker glues a synthesizer to the shared player for callers that
// pace themselves around their own lines. Say blocks until the robot
// has finished talking, which is what game loops and scripted demos
// want between steps.
type Speaker struct {
	tts    tts.Provider
	player *Player
}

// NewSpeaker wires a synthesizer to a running player.
func NewSpeaker(provider tts.Provider, player *Player) *Speaker {
	return &Speaker{tts: provider, player: player}
}

// Say synthesizes text, queues it, and waits for the player to drain.
// The wait covers the whole queue. The robot has one voice, so a line
// queued by someone else simply extends the wait.
func (s *Speaker) Say(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	res, err := s.tts.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	clip := Clip{Samples: res.PCM, SampleRate: res.SampleRate, Text: text}
	if err := s.player.Say(clip); err != nil {
		return fmt.Errorf("queue clip: %w", err)
	}

	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			st := s.player.Stats()
			if st.Queued == 0 && !st.Speaking {
				return nil
			}
		}
	}
}
