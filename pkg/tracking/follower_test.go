package tracking

import (
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Kp = 1
	cfg.Kd = 0
	cfg.DeadZone = 0.05
	cfg.MaxOmega = 1
	cfg.NearArea = 0.3
	cfg.FarArea = 0.1
	cfg.Speed = 80
	cfg.SmoothingAlpha = 1
	cfg.LostTimeout = 500 * time.Millisecond
	return cfg
}

func TestFollowerLockAndSteer(t *testing.T) {
	f := NewFollower(testConfig())
	now := time.Now()

	drive, state := f.Update(Target{OffsetX: 0.5, Area: 0.2}, true, now)
	if state != StateLocked {
		t.Fatalf("state = %v, want locked", state)
	}
	if !almost(drive.Omega, 0.5) {
		t.Errorf("omega = %v, want 0.5", drive.Omega)
	}
	if drive.VX != 0 {
		t.Errorf("vx = %v, want 0 inside the distance band", drive.VX)
	}
	if drive.Speed != 80 {
		t.Errorf("speed = %d, want 80", drive.Speed)
	}
	if got := f.Stats().Locks; got != 1 {
		t.Errorf("locks = %d, want 1", got)
	}
}

func TestFollowerAdvancesOnFarTarget(t *testing.T) {
	f := NewFollower(testConfig())

	drive, _ := f.Update(Target{OffsetX: 0, Area: 0.05}, true, time.Now())
	if drive.VX != 1 {
		t.Errorf("vx = %v, want 1 for a far centered target", drive.VX)
	}
	if drive.Omega != 0 {
		t.Errorf("omega = %v, want 0 for a centered target", drive.Omega)
	}
}

func TestFollowerBacksOffNearTarget(t *testing.T) {
	f := NewFollower(testConfig())

	drive, _ := f.Update(Target{OffsetX: 0, Area: 0.5}, true, time.Now())
	if drive.VX != -1 {
		t.Errorf("vx = %v, want -1 for a close target", drive.VX)
	}
}

func TestFollowerHalvesAdvanceWhileTurning(t *testing.T) {
	f := NewFollower(testConfig())

	drive, _ := f.Update(Target{OffsetX: 0.5, Area: 0.05}, true, time.Now())
	if drive.VX != 0.5 {
		t.Errorf("vx = %v, want 0.5 while turning", drive.VX)
	}
}

func TestFollowerCoastsRotationOnly(t *testing.T) {
	f := NewFollower(testConfig())
	now := time.Now()

	locked, _ := f.Update(Target{OffsetX: 0.5, Area: 0.05}, true, now)
	drive, state := f.Update(Target{}, false, now.Add(100*time.Millisecond))

	if state != StateCoasting {
		t.Fatalf("state = %v, want coasting", state)
	}
	if drive.VX != 0 {
		t.Errorf("coasting vx = %v, want 0", drive.VX)
	}
	if drive.Omega != locked.Omega {
		t.Errorf("coasting omega = %v, want last omega %v", drive.Omega, locked.Omega)
	}
}

func TestFollowerLosesTargetAfterTimeout(t *testing.T) {
	f := NewFollower(testConfig())
	now := time.Now()

	f.Update(Target{OffsetX: 0.5, Area: 0.2}, true, now)
	drive, state := f.Update(Target{}, false, now.Add(600*time.Millisecond))

	if state != StateSearching {
		t.Fatalf("state = %v, want searching after timeout", state)
	}
	if !drive.IsZero() {
		t.Errorf("drive after loss = %+v, want zero", drive)
	}
	if got := f.Stats().Losses; got != 1 {
		t.Errorf("losses = %d, want 1", got)
	}

	// A fresh detection relocks.
	_, state = f.Update(Target{OffsetX: 0, Area: 0.2}, true, now.Add(time.Second))
	if state != StateLocked {
		t.Errorf("state = %v, want locked after reacquire", state)
	}
	if got := f.Stats().Locks; got != 2 {
		t.Errorf("locks = %d, want 2", got)
	}
}

func TestFollowerSearchingStaysQuiet(t *testing.T) {
	f := NewFollower(testConfig())

	drive, state := f.Update(Target{}, false, time.Now())
	if state != StateSearching {
		t.Fatalf("state = %v, want searching", state)
	}
	if !drive.IsZero() {
		t.Errorf("drive = %+v, want zero with no target ever seen", drive)
	}
}

func TestFollowerSmoothsObservations(t *testing.T) {
	cfg := testConfig()
	cfg.SmoothingAlpha = 0.5
	cfg.DeadZone = 0.01
	f := NewFollower(cfg)
	now := time.Now()

	f.Update(Target{OffsetX: 0.8, Area: 0.2}, true, now)
	drive, _ := f.Update(Target{OffsetX: 0, Area: 0.2}, true, now.Add(33*time.Millisecond))

	// EMA holds the estimate at 0.4, not the raw 0.
	if !almost(drive.Omega, 0.4) {
		t.Errorf("omega = %v, want smoothed 0.4", drive.Omega)
	}
}
