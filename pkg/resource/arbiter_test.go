package resource

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// fakeSub is a scriptable subsystem. Run blocks until its context is
// cancelled or the test pushes an exit value. With ignoreCancel set it
// only honors the exit channel, simulating a wedged teardown.
type fakeSub struct {
	name         string
	ignoreCancel bool
	started      chan struct{}
	exit         chan error
	stopped      atomic.Bool
}

func newFakeSub(name string) *fakeSub {
	return &fakeSub{
		name:    name,
		started: make(chan struct{}),
		exit:    make(chan error, 1),
	}
}

func (f *fakeSub) Run(ctx context.Context) error {
	close(f.started)
	if f.ignoreCancel {
		err := <-f.exit
		return err
	}
	select {
	case <-ctx.Done():
		f.stopped.Store(true)
		return nil
	case err := <-f.exit:
		return err
	}
}

func (f *fakeSub) Status() string { return f.name }

type panicSub struct{ started chan struct{} }

func (p *panicSub) Run(ctx context.Context) error {
	close(p.started)
	panic("frame buffer corrupted")
}

func (p *panicSub) Status() string { return "panicking" }

func specFor(m modes.Mode, sub Subsystem, devices ...Device) Spec {
	return Spec{
		Mode:    m,
		Devices: devices,
		New:     func() (Subsystem, error) { return sub, nil },
	}
}

func waitStarted(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("subsystem never started")
	}
}

func waitCrash(t *testing.T, a *Arbiter) Crash {
	t.Helper()
	select {
	case c := <-a.Crashes():
		return c
	case <-time.After(time.Second):
		t.Fatal("no crash delivered")
		return Crash{}
	}
}

func TestAcquireGrantsAndReleaseClears(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	sub := newFakeSub("tracker")
	h, err := a.Acquire(ctx, specFor(modes.ColorTrack(modes.ColorRed), sub, DeviceCamera, DeviceMotors))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, sub.started)

	leases := a.Leases()
	if leases[DeviceCamera.String()] != "color-track(red)" {
		t.Fatalf("camera lease = %q, want color-track(red)", leases[DeviceCamera.String()])
	}
	if leases[DeviceMotors.String()] != "color-track(red)" {
		t.Fatalf("motors lease = %q", leases[DeviceMotors.String()])
	}

	if err := a.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !sub.stopped.Load() {
		t.Fatal("subsystem still running after confirmed release")
	}
	if got := len(a.Leases()); got != 0 {
		t.Fatalf("leases after release = %d, want 0", got)
	}

	// Releasing again is a no-op.
	if err := a.Release(h); err != nil {
		t.Fatalf("double release: %v", err)
	}
}

func TestAcquireTearsDownConflictFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	first := newFakeSub("face")
	if _, err := a.Acquire(ctx, specFor(modes.FaceTrack(), first, DeviceCamera)); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	waitStarted(t, first.started)

	second := newFakeSub("objects")
	var newAfterStop atomic.Bool
	spec := Spec{
		Mode:    modes.ObjectRecognition(),
		Devices: []Device{DeviceCamera},
		New: func() (Subsystem, error) {
			newAfterStop.Store(first.stopped.Load())
			return second, nil
		},
	}
	h2, err := a.Acquire(ctx, spec)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if !newAfterStop.Load() {
		t.Fatal("new subsystem constructed before old teardown confirmed")
	}
	if got := a.Leases()[DeviceCamera.String()]; got != "object-recognition" {
		t.Fatalf("camera lease = %q, want object-recognition", got)
	}
	a.Release(h2)
}

func TestReleaseTimeoutLeaksDevices(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{ReleaseTimeout: 30 * time.Millisecond})

	wedged := newFakeSub("wedged")
	wedged.ignoreCancel = true
	h, err := a.Acquire(ctx, specFor(modes.GestureControl(), wedged, DeviceCamera))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, wedged.started)
	defer func() { wedged.exit <- nil }()

	err = a.Release(h)
	if !errors.Is(err, ErrTeardownTimeout) {
		t.Fatalf("release error = %v, want ErrTeardownTimeout", err)
	}
	var re *ResourceError
	if !errors.As(err, &re) || re.Op != "release" {
		t.Fatalf("release error = %#v, want ResourceError{Op: release}", err)
	}

	// The device stays marked leased, so later acquires surface the leak.
	if got := a.Leases()[DeviceCamera.String()]; got != "gesture-control" {
		t.Fatalf("camera lease = %q, want gesture-control (leaked)", got)
	}
	_, err = a.Acquire(ctx, specFor(modes.FaceTrack(), newFakeSub("next"), DeviceCamera))
	if err == nil || !strings.Contains(err.Error(), "still leased") {
		t.Fatalf("acquire over leak = %v, want still-leased error", err)
	}
}

func TestCrashDeliveredWithCause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	sub := newFakeSub("tracker")
	h, err := a.Acquire(ctx, specFor(modes.ColorTrack(modes.ColorBlue), sub, DeviceCamera))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, sub.started)

	cause := errors.New("camera pipe closed")
	sub.exit <- cause

	crash := waitCrash(t, a)
	if crash.Handle != h {
		t.Fatal("crash reports wrong handle")
	}
	var ce *CrashError
	if !errors.As(crash.Err, &ce) {
		t.Fatalf("crash error = %#v, want CrashError", crash.Err)
	}
	if !errors.Is(crash.Err, cause) {
		t.Fatalf("crash error does not wrap cause: %v", crash.Err)
	}
	if got := len(a.Leases()); got != 0 {
		t.Fatalf("leases after crash = %d, want 0", got)
	}
}

func TestNilExitReportsUnexpected(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	sub := newFakeSub("quitter")
	if _, err := a.Acquire(ctx, specFor(modes.FaceTrack(), sub, DeviceCamera)); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, sub.started)
	sub.exit <- nil

	crash := waitCrash(t, a)
	if !errors.Is(crash.Err, ErrUnexpectedExit) {
		t.Fatalf("crash error = %v, want ErrUnexpectedExit", crash.Err)
	}
}

func TestPanicBecomesCrash(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	sub := &panicSub{started: make(chan struct{})}
	if _, err := a.Acquire(ctx, specFor(modes.RpsGame(), sub, DeviceCamera)); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, sub.started)

	crash := waitCrash(t, a)
	if !strings.Contains(crash.Err.Error(), "panic") {
		t.Fatalf("crash error = %v, want panic capture", crash.Err)
	}
}

func TestReleasedHandleNeverReportsCrash(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	sub := newFakeSub("clean")
	h, err := a.Acquire(ctx, specFor(modes.Presentation(), sub, DeviceCamera, DeviceMicrophone))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, sub.started)
	if err := a.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}

	select {
	case crash := <-a.Crashes():
		t.Fatalf("released handle reported crash: %v", crash.Err)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConstructionFailureHoldsNoLease(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := NewArbiter(ctx, Config{})

	boom := errors.New("model file missing")
	spec := Spec{
		Mode:    modes.ObjectRecognition(),
		Devices: []Device{DeviceCamera},
		New:     func() (Subsystem, error) { return nil, boom },
	}
	_, err := a.Acquire(ctx, spec)
	var se *StartError
	if !errors.As(err, &se) {
		t.Fatalf("acquire error = %#v, want StartError", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("StartError does not wrap cause: %v", err)
	}
	if got := len(a.Leases()); got != 0 {
		t.Fatalf("leases after failed start = %d, want 0", got)
	}
}

func TestReclaimFailureAbortsAcquire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mem := &fakeMemory{infos: []MemInfo{{AvailableMB: 128, SwapFreeMB: 0}}}
	rec := NewReclaimer(mem, ReclaimConfig{MinAvailableMB: 1024, SwapSizeMB: 64, WorkingSetMB: 2048})
	a := NewArbiter(ctx, Config{Reclaimer: rec})

	spec := Spec{
		Mode:         modes.AiChat(),
		Devices:      []Device{DeviceMicrophone},
		NeedsReclaim: true,
		New:          func() (Subsystem, error) { t.Fatal("New called despite failed reclaim"); return nil, nil },
	}
	_, err := a.Acquire(ctx, spec)
	if !errors.Is(err, ErrInsufficientMemory) {
		t.Fatalf("acquire error = %v, want ErrInsufficientMemory", err)
	}
	if got := len(a.Leases()); got != 0 {
		t.Fatalf("leases after failed reclaim = %d, want 0", got)
	}
}

func TestRootCancelStopsEverything(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := NewArbiter(ctx, Config{})

	sub := newFakeSub("runner")
	h, err := a.Acquire(context.Background(), specFor(modes.FaceTrack(), sub, DeviceCamera))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	waitStarted(t, sub.started)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("subsystem survived root cancel")
	}
}
