package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/movement"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// gestureSpeed scales the gesture drive commands.
const gestureSpeed = 70

// driveForFingers maps a finger count to a steering command. ok is
// false when the count means stop.
func driveForFingers(n, speed int) (d movement.Drive, ok bool) {
	switch n {
	case 1:
		return movement.Forward(speed), true
	case 2:
		return movement.Backward(speed), true
	case 3:
		return movement.TurnLeft(speed), true
	case 4:
		return movement.TurnRight(speed), true
	default:
		return movement.Drive{}, false
	}
}

func gestureName(n int) string {
	switch n {
	case 1:
		return "forward"
	case 2:
		return "backward"
	case 3:
		return "turn left"
	case 4:
		return "turn right"
	default:
		return "stop"
	}
}

// GestureControl drives the base from hand gestures: one finger
// forward, two backward, three turn left, four turn right, open hand
// or fist stops.
type GestureControl struct {
	pipeline
	hands *GestureDetector

	// A count must hold for two consecutive frames before it is
	// applied, so a flickering detection cannot twitch the motors.
	lastCount int
	streak    int
	applied   int

	misses    int
	missLimit int
	handSeen  bool
}

var _ resource.Subsystem = (*GestureControl)(nil)

// NewGestureControl opens the camera and builds the gesture pipeline.
func NewGestureControl(cfg Config, deps Deps) (*GestureControl, error) {
	p, err := newPipeline(modes.GestureControl().String(), cfg, deps)
	if err != nil {
		return nil, err
	}
	missLimit := cfg.Framerate / 2
	if missLimit < 1 {
		missLimit = 1
	}
	return &GestureControl{
		pipeline:  p,
		hands:     NewGestureDetector(),
		applied:   -1,
		missLimit: missLimit,
	}, nil
}

// Run reads frames and applies gestures until the context is
// cancelled.
func (g *GestureControl) Run(ctx context.Context) error {
	g.setStatus("show a hand")
	return g.loop(ctx, func(img gocv.Mat, n uint64) error {
		fc, err := g.hands.Count(img)
		if err != nil {
			return fmt.Errorf("gesture: %w", err)
		}
		g.apply(fc)
		return nil
	})
}

// apply folds one frame's finger count into the debounced drive
// state.
func (g *GestureControl) apply(fc FingerCount) {
	if !fc.Found {
		g.streak = 0
		g.misses++
		// Half a second without a hand stops the base. A single
		// dropped frame should not.
		if g.misses == g.missLimit {
			if g.deps.Drive != nil {
				g.deps.Drive.ClearSteering()
			}
			g.applied = -1
			g.setStatus("show a hand")
			if g.handSeen {
				g.setEmotion(emotion.Neutral, 0.5)
				g.handSeen = false
			}
		}
		return
	}

	g.misses = 0
	if !g.handSeen {
		g.handSeen = true
		g.setEmotion(emotion.Happy, 0.6)
	}

	if fc.Fingers == g.lastCount {
		g.streak++
	} else {
		g.lastCount = fc.Fingers
		g.streak = 1
	}
	if g.streak < 2 || fc.Fingers == g.applied {
		return
	}

	g.applied = fc.Fingers
	if g.deps.Drive != nil {
		if d, ok := driveForFingers(fc.Fingers, gestureSpeed); ok {
			g.deps.Drive.SetSteering(d)
		} else {
			g.deps.Drive.ClearSteering()
		}
	}
	g.setStatus(fmt.Sprintf("%d fingers: %s", fc.Fingers, gestureName(fc.Fingers)))
}
