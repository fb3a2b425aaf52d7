package tracking

import (
	"testing"
	"time"
)

func TestTuningMergesOnlyNonzeroFields(t *testing.T) {
	f := NewFollower(DefaultConfig())

	if problems := f.SetTuningParams(TuningParams{Kp: 2.5, Speed: 120}); problems != nil {
		t.Fatalf("unexpected problems: %v", problems)
	}

	cfg := f.Config()
	if cfg.Kp != 2.5 {
		t.Errorf("kp = %v, want 2.5", cfg.Kp)
	}
	if cfg.Speed != 120 {
		t.Errorf("speed = %d, want 120", cfg.Speed)
	}
	if cfg.Kd != DefaultConfig().Kd {
		t.Errorf("kd = %v, changed by an unrelated update", cfg.Kd)
	}
	if cfg.LostTimeout != DefaultConfig().LostTimeout {
		t.Errorf("lost timeout = %v, changed by an unrelated update", cfg.LostTimeout)
	}
}

func TestTuningLostTimeoutInMilliseconds(t *testing.T) {
	f := NewFollower(DefaultConfig())

	if problems := f.SetTuningParams(TuningParams{LostTimeoutMS: 1500}); problems != nil {
		t.Fatalf("unexpected problems: %v", problems)
	}
	if got := f.Config().LostTimeout; got != 1500*time.Millisecond {
		t.Errorf("lost timeout = %v, want 1.5s", got)
	}
}

func TestTuningRejectsInvalidMerge(t *testing.T) {
	f := NewFollower(DefaultConfig())
	before := f.Config()

	problems := f.SetTuningParams(TuningParams{Speed: 999})
	if len(problems) == 0 {
		t.Fatal("speed 999 accepted")
	}
	if f.Config() != before {
		t.Error("invalid update changed the config")
	}
}

func TestTuningRoundTrip(t *testing.T) {
	f := NewFollower(DefaultConfig())

	p := f.GetTuningParams()
	if p.Kp != DefaultConfig().Kp {
		t.Errorf("kp = %v, want %v", p.Kp, DefaultConfig().Kp)
	}
	if p.LostTimeoutMS != int(DefaultConfig().LostTimeout/time.Millisecond) {
		t.Errorf("lost_timeout_ms = %d, want %d", p.LostTimeoutMS, int(DefaultConfig().LostTimeout/time.Millisecond))
	}
}
