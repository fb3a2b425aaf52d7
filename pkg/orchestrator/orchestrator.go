// Package orchestrator decides which single heavy subsystem runs at
// any instant. One engine goroutine consumes the command queue and the
// crash reports, drives mode transitions through the resource arbiter,
// and hands interrupt events to the reactor. Nothing else mutates the
// active mode.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// DefaultCrashLoopWindow is how long after a crash a second crash of
// the same mode kind counts as a crash loop.
const DefaultCrashLoopWindow = 30 * time.Second

// Config tunes the engine.
type Config struct {
	// CrashLoopWindow bounds repeated-crash detection. Zero uses the
	// default.
	CrashLoopWindow time.Duration
}

// Engine is the mode transition state machine.
type Engine struct {
	queue    *command.Queue
	arbiter  *resource.Arbiter
	emotions *emotion.Broadcaster
	registry *Registry
	reactor  *Reactor

	crashWindow time.Duration

	mu   sync.RWMutex
	mode modes.Mode

	// Engine-goroutine state, untouched elsewhere.
	handle        *resource.Handle
	lastCrashKind modes.Kind
	lastCrashAt   time.Time

	transitions atomic.Uint64
}

// New creates an engine starting in Idle. The reactor may be nil, in
// which case interrupt events are logged and dropped.
func New(q *command.Queue, arb *resource.Arbiter, emo *emotion.Broadcaster, reg *Registry, reactor *Reactor, cfg Config) *Engine {
	window := cfg.CrashLoopWindow
	if window <= 0 {
		window = DefaultCrashLoopWindow
	}
	return &Engine{
		queue:       q,
		arbiter:     arb,
		emotions:    emo,
		registry:    reg,
		reactor:     reactor,
		crashWindow: window,
		mode:        modes.Idle(),
	}
}

// Mode returns the currently active mode.
func (e *Engine) Mode() modes.Mode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// Transitions reports how many successful mode entries have happened.
func (e *Engine) Transitions() uint64 { return e.transitions.Load() }

func (e *Engine) setMode(m modes.Mode) {
	e.mu.Lock()
	e.mode = m
	e.mu.Unlock()
}

// Run consumes events until an Exit command, a fatal resource leak, or
// a crash loop ends the session. The return value classifies the
// ending: nil for a graceful exit, an ErrTeardownTimeout-wrapped error
// for a leaked device, a CrashError for a crash loop. Context
// cancellation tears the active mode down and behaves like Exit.
func (e *Engine) Run(ctx context.Context) error {
	log.Info("orchestrator running", "mode", e.Mode().String())

	for {
		select {
		case <-ctx.Done():
			log.Info("orchestrator stopping", "reason", "context cancelled")
			e.setMode(modes.ShuttingDown())
			return e.teardown()

		case crash := <-e.arbiter.Crashes():
			if err := e.handleCrash(crash); err != nil {
				return err
			}

		case <-e.queue.Ready():
			for {
				ev, ok := e.queue.TryNext()
				if !ok {
					break
				}
				terminal, err := e.handleEvent(ctx, ev)
				if terminal {
					return err
				}
			}
		}
	}
}

// handleEvent dispatches one command event. terminal reports that Run
// should return err (which may be nil for a graceful exit).
func (e *Engine) handleEvent(ctx context.Context, ev command.Event) (terminal bool, err error) {
	log.Debug("command event", "event", ev.String())

	switch ev.Kind {
	case command.KindStopAll:
		if err := e.stopAll(ev.Source); err != nil {
			return true, err
		}
		return false, nil

	case command.KindExit:
		return true, e.exit(ev.Source)

	case command.KindSelectMode:
		winner, superseded := e.queue.CoalesceSelect(ev)
		if superseded > 0 {
			log.Info("superseded queued mode requests", "count", superseded, "winner", winner.Mode.String())
		}
		if err := e.selectMode(ctx, winner); err != nil {
			return true, err
		}
		return false, nil

	case command.KindProximityApproach, command.KindProximityRecede,
		command.KindLiftDetected, command.KindTap, command.KindPat:
		e.react(ev)
		return false, nil

	default:
		log.Warn("unhandled command event", "event", ev.String())
		return false, nil
	}
}

// selectMode enters the target mode, tearing the current one down
// first. A non-nil return is fatal (teardown timeout); recoverable
// entry failures fall back to Idle with a confused emotion.
func (e *Engine) selectMode(ctx context.Context, ev command.Event) error {
	target := ev.Mode
	current := e.Mode()

	if current.Kind == modes.KindShuttingDown {
		log.Debug("ignoring mode request during shutdown", "mode", target.String())
		return nil
	}
	if target == current {
		log.Debug("mode already active", "mode", target.String())
		return nil
	}
	if target.Kind == modes.KindIdle {
		return e.stopAll(ev.Source)
	}

	spec, ok := e.registry.SpecFor(target)
	if !ok {
		log.Warn("no subsystem registered for mode", "mode", target.String())
		return nil
	}

	if err := e.teardown(); err != nil {
		return err
	}

	log.Info("entering mode", "mode", target.String(), "source", ev.Source.String())
	handle, err := e.arbiter.Acquire(ctx, spec)
	if err != nil {
		if errors.Is(err, resource.ErrTeardownTimeout) {
			return err
		}
		e.failToIdle(target, err)
		return nil
	}

	e.handle = handle
	e.setMode(target)
	e.transitions.Add(1)
	e.emotions.Set(emotion.Neutral, 0.5, target.String())
	return nil
}

// stopAll tears down whatever is running and settles in Idle.
func (e *Engine) stopAll(src command.Source) error {
	current := e.Mode()
	if current.Kind == modes.KindShuttingDown {
		return nil
	}
	log.Info("stop all", "source", src.String(), "was", current.String())

	if err := e.teardown(); err != nil {
		return err
	}
	e.setMode(modes.Idle())
	e.emotions.Set(emotion.Neutral, 0.5, modes.Idle().String())
	return nil
}

// exit moves to the terminal ShuttingDown mode and tears everything
// down. The returned error is nil for a clean shutdown.
func (e *Engine) exit(src command.Source) error {
	log.Info("exit requested", "source", src.String(), "was", e.Mode().String())
	e.setMode(modes.ShuttingDown())
	return e.teardown()
}

// teardown releases the active handle, if any. The only possible error
// is a teardown timeout, which callers treat as fatal.
func (e *Engine) teardown() error {
	if e.handle == nil {
		return nil
	}
	h := e.handle
	e.handle = nil
	return e.arbiter.Release(h)
}

// failToIdle recovers from a failed mode entry: the system lands in
// Idle with a visible error emotion, never in a half-entered mode.
func (e *Engine) failToIdle(target modes.Mode, err error) {
	log.Error("mode entry failed", "mode", target.String(), "error", err)
	e.setMode(modes.Idle())
	e.emotions.Set(emotion.Confused, 1, modes.Idle().String())
}

// handleCrash recovers from a subsystem dying with its lease held. A
// second crash of the same mode kind inside the crash window is a
// crash loop and ends the session.
func (e *Engine) handleCrash(crash resource.Crash) error {
	if crash.Handle != e.handle {
		log.Debug("stale crash report", "mode", crash.Handle.Mode().String())
		return nil
	}
	e.handle = nil

	crashed := e.Mode()
	log.Error("active mode crashed", "mode", crashed.String(), "error", crash.Err)

	now := time.Now()
	if e.lastCrashKind == crashed.Kind && now.Sub(e.lastCrashAt) < e.crashWindow {
		log.Error("crash loop detected, shutting down", "mode", crashed.String(), "window", e.crashWindow)
		e.setMode(modes.ShuttingDown())
		return crash.Err
	}
	e.lastCrashKind = crashed.Kind
	e.lastCrashAt = now

	e.setMode(modes.Idle())
	e.emotions.Set(emotion.Confused, 1, modes.Idle().String())
	return nil
}

// react hands an interrupt event to the reactor. Reactions run off the
// engine goroutine and never change the mode.
func (e *Engine) react(ev command.Event) {
	if e.reactor == nil {
		log.Debug("no reactor wired", "event", ev.Kind.String())
		return
	}
	if !e.reactor.Trigger(ev.Kind) {
		log.Debug("reaction dropped, one already pending", "event", ev.Kind.String())
	}
}
