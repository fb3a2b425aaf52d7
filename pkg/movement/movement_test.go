package movement

import (
	"testing"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/raspbot"
)

func TestTimedMove(t *testing.T) {
	m := NewTimedMove("voice-forward", Forward(CruiseSpeed), 500*time.Millisecond)

	if got := m.Evaluate(100 * time.Millisecond); got.VX != 1 || got.Speed != CruiseSpeed {
		t.Errorf("mid-move drive = %+v", got)
	}
	if m.IsComplete(499 * time.Millisecond) {
		t.Error("should not be complete before the duration")
	}
	if !m.IsComplete(500 * time.Millisecond) {
		t.Error("should auto-stop at the duration")
	}
	if got := m.Evaluate(600 * time.Millisecond); !got.IsZero() {
		t.Errorf("post-duration drive = %+v, want zero", got)
	}
}

func TestStepMoveSequence(t *testing.T) {
	m := NewStepMove("test", false,
		Step{Forward(100), 100 * time.Millisecond},
		Step{TurnRight(100), 100 * time.Millisecond},
	)

	if d := m.Evaluate(50 * time.Millisecond); d.VX != 1 {
		t.Errorf("first step = %+v", d)
	}
	if d := m.Evaluate(150 * time.Millisecond); d.Omega != 1 {
		t.Errorf("second step = %+v", d)
	}
	if d := m.Evaluate(250 * time.Millisecond); !d.IsZero() {
		t.Errorf("past end = %+v", d)
	}
	if !m.IsComplete(200 * time.Millisecond) {
		t.Error("should complete at total duration")
	}
	if m.Duration() != 200*time.Millisecond {
		t.Errorf("duration = %v", m.Duration())
	}
}

func TestStepMoveLoops(t *testing.T) {
	m := NewPatrolSquare()

	if m.Duration() != 0 {
		t.Error("looping move should report duration 0")
	}
	if m.IsComplete(time.Hour) {
		t.Error("looping move never completes")
	}

	// One cycle is 1.8s; 2.0s into playback we are 200ms into the
	// second cycle, still in the forward leg.
	if d := m.Evaluate(2 * time.Second); d.VX != 1 {
		t.Errorf("wrapped evaluate = %+v, want forward leg", d)
	}
	if d := m.Evaluate(1500 * time.Millisecond); d.Omega != 1 {
		t.Errorf("turn leg = %+v", d)
	}
}

func TestDanceRoutineShape(t *testing.T) {
	m := NewDanceRoutine()
	if m.Duration() != 3200*time.Millisecond {
		t.Errorf("dance duration = %v, want 3.2s", m.Duration())
	}
	if d := m.Evaluate(0); d.Speed != DanceSpeed {
		t.Errorf("dance speed = %d, want %d", d.Speed, DanceSpeed)
	}
}

func TestPatrolLapCompletes(t *testing.T) {
	m := NewPatrolLap()
	if m.Duration() != 7200*time.Millisecond {
		t.Errorf("lap duration = %v, want 7.2s", m.Duration())
	}
	if !m.IsComplete(m.Duration()) {
		t.Error("lap should finish after one circuit")
	}
	if NewPatrolSquare().IsComplete(time.Hour) {
		t.Error("patrol square should loop forever")
	}
}

func TestBowShape(t *testing.T) {
	m := NewBow()
	if m.Duration() != time.Second {
		t.Errorf("bow duration = %v, want 1s", m.Duration())
	}
	if d := m.Evaluate(100 * time.Millisecond); d.VX != 1 {
		t.Errorf("bow should start forward, got %+v", d)
	}
	if d := m.Evaluate(700 * time.Millisecond); d.VX != -1 {
		t.Errorf("bow should ease back, got %+v", d)
	}
}

func TestDriveClamp(t *testing.T) {
	d := Drive{VX: 2, VY: -3, Omega: 0.5, Speed: 999}.Clamp()
	if d.VX != 1 || d.VY != -1 || d.Omega != 0.5 || d.Speed != 255 {
		t.Errorf("clamped = %+v", d)
	}
}

func runManager(t *testing.T, motors raspbot.MotorController) *Manager {
	t.Helper()
	m := NewManager(motors, 5*time.Millisecond)
	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()
	t.Cleanup(func() {
		m.Stop()
		<-done
	})
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerSendsQueuedMove(t *testing.T) {
	mock := raspbot.NewMock()
	m := runManager(t, mock)

	m.QueueMove(NewTimedMove("fwd", Forward(100), time.Second))

	waitFor(t, "drive command", func() bool {
		d, ok := mock.LastDrive()
		return ok && d.VX == 1 && d.Speed == 100
	})
}

func TestManagerAutoStopAfterMove(t *testing.T) {
	mock := raspbot.NewMock()
	m := runManager(t, mock)

	m.QueueMove(NewTimedMove("blip", Forward(100), 30*time.Millisecond))

	waitFor(t, "move to finish and base to stop", func() bool {
		return mock.StopCalls() > 0 && !m.IsMovePlaying()
	})
}

func TestManagerDeadZoneSuppressesRepeats(t *testing.T) {
	mock := raspbot.NewMock()
	m := runManager(t, mock)

	m.SetSteering(Forward(100))
	waitFor(t, "steering to reach the base", func() bool {
		return len(mock.DriveCalls()) > 0
	})

	time.Sleep(100 * time.Millisecond)
	if got := len(mock.DriveCalls()); got > 2 {
		t.Errorf("identical steering sent %d times, dead-zone not applied", got)
	}
}

func TestManagerPrimaryOverridesSteering(t *testing.T) {
	mock := raspbot.NewMock()
	m := runManager(t, mock)

	m.SetSteering(Forward(100))
	waitFor(t, "steering", func() bool {
		d, ok := mock.LastDrive()
		return ok && d.VX == 1
	})

	m.QueueMove(NewTimedMove("turn", TurnRight(120), time.Second))
	waitFor(t, "primary move to win", func() bool {
		d, ok := mock.LastDrive()
		return ok && d.Omega == 1 && d.Speed == 120
	})
}

func TestManagerHaltStopsBase(t *testing.T) {
	mock := raspbot.NewMock()
	m := runManager(t, mock)

	m.SetSteering(Forward(100))
	waitFor(t, "steering", func() bool {
		return len(mock.DriveCalls()) > 0
	})

	m.Halt()
	waitFor(t, "halt to stop the base", func() bool {
		return mock.StopCalls() > 0
	})
	if m.IsMovePlaying() {
		t.Error("halt should clear primary move")
	}
}

func TestManagerStopHaltsBaseOnExit(t *testing.T) {
	mock := raspbot.NewMock()
	m := NewManager(mock, 5*time.Millisecond)
	done := make(chan struct{})
	go func() {
		m.Run()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	m.Stop()
	<-done

	if mock.StopCalls() == 0 {
		t.Error("Run exit must halt the base")
	}
}
