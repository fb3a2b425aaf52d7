package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// Handle is the proof of an active lease: one running subsystem plus
// the devices it holds. Handles are created only by Arbiter.Acquire.
type Handle struct {
	id        uuid.UUID
	mode      modes.Mode
	devices   []Device
	sub       Subsystem
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time

	mu       sync.Mutex
	err      error
	released bool
}

// ID returns the lease identity.
func (h *Handle) ID() uuid.UUID { return h.id }

// Mode returns the mode this lease serves.
func (h *Handle) Mode() modes.Mode { return h.mode }

// Devices returns a copy of the leased devices.
func (h *Handle) Devices() []Device {
	out := make([]Device, len(h.devices))
	copy(out, h.devices)
	return out
}

// Done is closed when the subsystem's Run has returned.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the subsystem's Run error. Meaningful once Done is closed.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Status polls the subsystem's status string.
func (h *Handle) Status() string { return h.sub.Status() }

// Age returns how long the lease has been held.
func (h *Handle) Age() time.Duration { return time.Since(h.startedAt) }

func (h *Handle) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *Handle) markReleased() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released = true
}

func (h *Handle) wasReleased() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// runLoop hosts the subsystem. A panic is captured as the run error so
// a crashing mode cannot take the process down.
func (h *Handle) runLoop(ctx context.Context) {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			h.setErr(fmt.Errorf("panic: %v", r))
		}
	}()
	if err := h.sub.Run(ctx); err != nil {
		h.setErr(err)
	}
}
