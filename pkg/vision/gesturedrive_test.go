package vision

import (
	"sync"
	"testing"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/movement"
)

type fakeDrive struct {
	mu       sync.Mutex
	steering []movement.Drive
	clears   int
	halts    int
}

func (f *fakeDrive) SetSteering(d movement.Drive) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.steering = append(f.steering, d)
}

func (f *fakeDrive) ClearSteering() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
}

func (f *fakeDrive) Halt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.halts++
}

func (f *fakeDrive) commands() []movement.Drive {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]movement.Drive(nil), f.steering...)
}

func (f *fakeDrive) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

func newTestGesture(drive *fakeDrive) *GestureControl {
	return &GestureControl{
		pipeline: pipeline{
			deps: Deps{Drive: drive, Emotions: emotion.NewBroadcaster()},
			name: "gesture-control",
		},
		applied:   -1,
		missLimit: 2,
	}
}

func hand(fingers int) FingerCount {
	return FingerCount{Fingers: fingers, Found: true}
}

func TestDriveForFingers(t *testing.T) {
	cases := []struct {
		fingers int
		want    movement.Drive
		ok      bool
	}{
		{1, movement.Forward(gestureSpeed), true},
		{2, movement.Backward(gestureSpeed), true},
		{3, movement.TurnLeft(gestureSpeed), true},
		{4, movement.TurnRight(gestureSpeed), true},
		{5, movement.Drive{}, false},
		{0, movement.Drive{}, false},
	}

	for _, tc := range cases {
		d, ok := driveForFingers(tc.fingers, gestureSpeed)
		if ok != tc.ok || d != tc.want {
			t.Errorf("fingers %d -> (%+v, %v), want (%+v, %v)", tc.fingers, d, ok, tc.want, tc.ok)
		}
	}
}

func TestGestureNeedsTwoStableFrames(t *testing.T) {
	drive := &fakeDrive{}
	g := newTestGesture(drive)

	g.apply(hand(3))
	if len(drive.commands()) != 0 {
		t.Fatal("single frame applied a command")
	}

	g.apply(hand(3))
	cmds := drive.commands()
	if len(cmds) != 1 || cmds[0] != movement.TurnLeft(gestureSpeed) {
		t.Fatalf("commands = %+v, want one turn left", cmds)
	}

	// Holding the gesture does not resend.
	g.apply(hand(3))
	if len(drive.commands()) != 1 {
		t.Error("held gesture resent the command")
	}
}

func TestGestureFlickerIgnored(t *testing.T) {
	drive := &fakeDrive{}
	g := newTestGesture(drive)

	for i := 0; i < 4; i++ {
		g.apply(hand(1))
		g.apply(hand(3))
	}
	if len(drive.commands()) != 0 {
		t.Errorf("flickering count applied %d commands", len(drive.commands()))
	}
}

func TestGestureOpenHandStops(t *testing.T) {
	drive := &fakeDrive{}
	g := newTestGesture(drive)

	g.apply(hand(1))
	g.apply(hand(1))
	g.apply(hand(5))
	g.apply(hand(5))

	if drive.clearCount() != 1 {
		t.Errorf("clears = %d, want 1 after an open hand", drive.clearCount())
	}
}

func TestGestureLostHandStops(t *testing.T) {
	drive := &fakeDrive{}
	g := newTestGesture(drive)

	g.apply(hand(1))
	g.apply(hand(1))

	g.apply(FingerCount{})
	if drive.clearCount() != 0 {
		t.Fatal("one dropped frame stopped the base")
	}
	g.apply(FingerCount{})
	if drive.clearCount() != 1 {
		t.Fatalf("clears = %d, want 1 after the hand is gone", drive.clearCount())
	}

	// Same gesture again re-applies after the stop.
	g.apply(hand(1))
	g.apply(hand(1))
	cmds := drive.commands()
	if len(cmds) != 2 {
		t.Errorf("commands = %+v, want forward re-applied", cmds)
	}
}
