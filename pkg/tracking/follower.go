package tracking

import (
	"sync"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// State describes what the follower is doing with the drive base.
type State int

const (
	// StateSearching means no target is known. The base holds still.
	StateSearching State = iota
	// StateLocked means a target is in frame and being followed.
	StateLocked
	// StateCoasting means detections stopped recently. The base keeps
	// turning toward where the target was last seen, in case it just
	// slipped out of frame.
	StateCoasting
)

func (s State) String() string {
	switch s {
	case StateLocked:
		return "locked"
	case StateCoasting:
		return "coasting"
	default:
		return "searching"
	}
}

// Stats counts follower activity for the status line.
type Stats struct {
	Frames uint64
	Locks  uint64
	Losses uint64
}

// Follower turns per-frame detections into steering commands. It owns
// the PD controller, the target smoother, and the lost-target timer.
// Safe for concurrent use; the vision loop calls Update while the
// dashboard reads Config and applies tuning.
type Follower struct {
	mu         sync.Mutex
	cfg        Config
	controller *Controller
	smoother   *Smoother
	state      State
	lastSeen   time.Time
	lastDrive  movement.Drive
	stats      Stats
}

// NewFollower builds a follower in the searching state.
func NewFollower(cfg Config) *Follower {
	return &Follower{
		cfg:        cfg,
		controller: NewController(cfg),
		smoother:   NewSmoother(cfg.SmoothingAlpha),
	}
}

// Update is called once per frame. found reports whether t holds a
// fresh detection. The returned drive is only meaningful when the
// state is Locked or Coasting; in Searching the base should stop.
func (f *Follower) Update(t Target, found bool, now time.Time) (movement.Drive, State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stats.Frames++

	if found {
		if f.state == StateSearching {
			f.stats.Locks++
		}
		f.state = StateLocked
		f.lastSeen = now
		f.lastDrive = f.steer(f.smoother.Observe(t))
		return f.lastDrive, f.state
	}

	if f.state == StateSearching {
		return movement.Drive{}, f.state
	}

	if now.Sub(f.lastSeen) > f.cfg.LostTimeout {
		f.state = StateSearching
		f.stats.Losses++
		f.controller.Reset()
		f.smoother.Reset()
		f.lastDrive = movement.Drive{}
		return f.lastDrive, f.state
	}

	// Coast on rotation only. Driving forward at a target that is no
	// longer there is how walls get hit.
	f.state = StateCoasting
	coast := f.lastDrive
	coast.VX = 0
	f.lastDrive = coast
	return coast, f.state
}

// steer builds the drive command for a smoothed target. Caller holds
// the lock.
func (f *Follower) steer(t Target) movement.Drive {
	omega, turning := f.controller.Steer(t.OffsetX)

	var vx float64
	switch {
	case t.Area > f.cfg.NearArea:
		vx = -1
	case t.Area < f.cfg.FarArea:
		vx = 1
	}
	if turning {
		// Half speed while turning keeps the approach from orbiting.
		vx *= 0.5
	}

	return movement.Drive{VX: vx, Omega: omega, Speed: f.cfg.Speed}
}

// Reset returns the follower to the searching state without touching
// the counters. Pipelines call it on start so a stale lock from a
// previous session does not count as a loss.
func (f *Follower) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateSearching
	f.controller.Reset()
	f.smoother.Reset()
	f.lastDrive = movement.Drive{}
}

// State returns the current follower state.
func (f *Follower) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Stats returns a copy of the counters.
func (f *Follower) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Config returns the active steering config.
func (f *Follower) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

// SetConfig swaps the steering parameters. The controller and
// smoother restart with the new gains on the next frame.
func (f *Follower) SetConfig(cfg Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
	f.controller = NewController(cfg)
	f.smoother = NewSmoother(cfg.SmoothingAlpha)
}
