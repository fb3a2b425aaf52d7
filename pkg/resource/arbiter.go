package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-raspbot/internal/log"
)

// DefaultReleaseTimeout bounds how long a release waits for the
// subsystem's Run to return before declaring the devices leaked.
const DefaultReleaseTimeout = 5 * time.Second

// Crash reports a subsystem that died while its lease was held.
type Crash struct {
	Handle *Handle
	Err    error
}

// Config configures an Arbiter.
type Config struct {
	// ReleaseTimeout bounds confirmed teardown. Zero uses the default.
	ReleaseTimeout time.Duration

	// Reclaimer, when set, runs before granting a lease whose Spec
	// sets NeedsReclaim.
	Reclaimer *Reclaimer
}

// Arbiter grants and revokes device leases. Acquire and Release are
// called only from the engine's control goroutine; the arbiter's lock
// protects the lease table against the readers (dashboard, relay) and
// the crash monitors.
type Arbiter struct {
	mu     sync.Mutex
	leases map[Device]*Handle

	releaseTimeout time.Duration
	reclaimer      *Reclaimer
	rootCtx        context.Context
	crashCh        chan Crash
}

// NewArbiter creates an arbiter. Subsystem run contexts derive from
// rootCtx, so cancelling it tears every subsystem down.
func NewArbiter(rootCtx context.Context, cfg Config) *Arbiter {
	timeout := cfg.ReleaseTimeout
	if timeout <= 0 {
		timeout = DefaultReleaseTimeout
	}
	return &Arbiter{
		leases:         make(map[Device]*Handle),
		releaseTimeout: timeout,
		reclaimer:      cfg.Reclaimer,
		rootCtx:        rootCtx,
		crashCh:        make(chan Crash, 4),
	}
}

// Crashes delivers subsystems that died without being released.
func (a *Arbiter) Crashes() <-chan Crash { return a.crashCh }

// Acquire leases the spec's devices and starts its subsystem. Any
// conflicting holder is released first and its teardown confirmed; a
// teardown timeout aborts the acquire and surfaces the leak. When the
// spec requires it, memory reclamation runs before construction, and a
// construction failure surfaces as StartError with no lease held.
func (a *Arbiter) Acquire(ctx context.Context, spec Spec) (*Handle, error) {
	for _, conflict := range a.conflicts(spec.Devices) {
		log.Info("releasing conflicting lease", "holder", conflict.Mode().String(), "for", spec.Mode.String())
		if err := a.Release(conflict); err != nil {
			return nil, err
		}
	}

	if spec.NeedsReclaim && a.reclaimer != nil {
		if err := a.reclaimer.Reclaim(ctx); err != nil {
			return nil, &ResourceError{Op: "reclaim", Mode: spec.Mode.String(), Err: err}
		}
	}

	sub, err := spec.New()
	if err != nil {
		return nil, &StartError{Mode: spec.Mode.String(), Err: err}
	}

	runCtx, cancel := context.WithCancel(a.rootCtx)
	h := &Handle{
		id:        uuid.New(),
		mode:      spec.Mode,
		devices:   spec.Devices,
		sub:       sub,
		cancel:    cancel,
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}

	a.mu.Lock()
	for _, dev := range spec.Devices {
		if holder, taken := a.leases[dev]; taken {
			a.mu.Unlock()
			cancel()
			return nil, &ResourceError{
				Op:   "acquire",
				Mode: spec.Mode.String(),
				Err:  fmt.Errorf("device %s still leased by %s", dev, holder.Mode()),
			}
		}
	}
	for _, dev := range spec.Devices {
		a.leases[dev] = h
	}
	a.mu.Unlock()

	go h.runLoop(runCtx)
	go a.monitor(h)

	log.Info("lease granted", "mode", spec.Mode.String(), "handle", h.id.String(), "devices", len(spec.Devices))
	return h, nil
}

// Release cancels the handle's subsystem and waits for its Run to
// return. The wait is bounded: on timeout the devices stay marked
// leased and ErrTeardownTimeout surfaces through the returned error.
// Releasing nil or an already-released handle is a no-op.
func (a *Arbiter) Release(h *Handle) error {
	if h == nil || h.wasReleased() {
		return nil
	}

	h.markReleased()
	h.cancel()

	select {
	case <-h.done:
		a.clearLeases(h)
		log.Info("lease released", "mode", h.Mode().String(), "handle", h.id.String(), "held", h.Age().Round(time.Millisecond))
		return nil
	case <-time.After(a.releaseTimeout):
		log.Error("teardown not confirmed, devices leaked", "mode", h.Mode().String(), "timeout", a.releaseTimeout)
		return &ResourceError{
			Op:   "release",
			Mode: h.Mode().String(),
			Err:  fmt.Errorf("%w after %v", ErrTeardownTimeout, a.releaseTimeout),
		}
	}
}

// Leases returns a snapshot of device holders for diagnostics.
func (a *Arbiter) Leases() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.leases))
	for dev, h := range a.leases {
		out[dev.String()] = h.Mode().String()
	}
	return out
}

// conflicts returns the distinct handles currently holding any of the
// given devices.
func (a *Arbiter) conflicts(devices []Device) []*Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var out []*Handle
	for _, dev := range devices {
		if h, taken := a.leases[dev]; taken && !seen[h.id] {
			seen[h.id] = true
			out = append(out, h)
		}
	}
	return out
}

func (a *Arbiter) clearLeases(h *Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for dev, holder := range a.leases {
		if holder == h {
			delete(a.leases, dev)
		}
	}
}

// monitor watches a handle for unexpected death. An intentional
// release never reports; everything else clears the leases and
// delivers a Crash.
func (a *Arbiter) monitor(h *Handle) {
	select {
	case <-h.done:
	case <-a.rootCtx.Done():
		return
	}

	if h.wasReleased() {
		return
	}

	a.clearLeases(h)

	err := h.Err()
	if err == nil {
		err = ErrUnexpectedExit
	}
	crash := Crash{Handle: h, Err: &CrashError{Mode: h.Mode().String(), Err: err}}
	log.Error("subsystem died with lease held", "mode", h.Mode().String(), "error", err)

	select {
	case a.crashCh <- crash:
	case <-a.rootCtx.Done():
	}
}
