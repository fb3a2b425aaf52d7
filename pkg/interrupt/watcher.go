// Package interrupt runs the always-on sensor detectors. The watcher
// polls the sensor block regardless of which mode is active and turns
// threshold crossings into command events: the proximity high-five
// pattern, lift detection off the line trackers, and the touch
// contacts.
package interrupt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/raspbot"
)

// Emitter receives the detector outputs. The command normalizer is the
// production implementation.
type Emitter interface {
	ProximityApproach()
	ProximityRecede()
	LiftDetected()
	Tap()
	Pat()
}

var _ Emitter = (*command.Normalizer)(nil)

// Config holds the detector thresholds.
type Config struct {
	// PollInterval is the sensor sampling cadence.
	PollInterval time.Duration

	// NearThresholdMM arms the high-five detector when the sonar
	// reading drops below it.
	NearThresholdMM int

	// FarThresholdMM completes or re-arms the detector when the
	// reading rises above it. A zero sonar reading (no echo) counts
	// as beyond it.
	FarThresholdMM int

	// RecedeWindow bounds how quickly the hand must pull back after
	// approaching for the pattern to count.
	RecedeWindow time.Duration

	// HoldReset disarms the detector when a hand just hovers in
	// place; it re-arms silently once the hand leaves.
	HoldReset time.Duration

	// TapDebounce and PatDebounce suppress contact chatter.
	TapDebounce time.Duration
	PatDebounce time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		PollInterval:    100 * time.Millisecond,
		NearThresholdMM: 120,
		FarThresholdMM:  170,
		RecedeWindow:    time.Second,
		HoldReset:       1500 * time.Millisecond,
		TapDebounce:     300 * time.Millisecond,
		PatDebounce:     time.Second,
	}
}

// Validate checks the thresholds are usable.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.PollInterval)
	}
	if c.NearThresholdMM <= 0 || c.NearThresholdMM >= c.FarThresholdMM {
		return fmt.Errorf("near threshold %dmm must be positive and below far threshold %dmm",
			c.NearThresholdMM, c.FarThresholdMM)
	}
	if c.RecedeWindow <= 0 {
		return fmt.Errorf("recede window must be positive, got %v", c.RecedeWindow)
	}
	if c.HoldReset < c.RecedeWindow {
		return fmt.Errorf("hold reset %v must not undercut recede window %v", c.HoldReset, c.RecedeWindow)
	}
	return nil
}

type proximityState int

const (
	proximityFar proximityState = iota
	proximityNear
	proximitySpent
)

// Watcher is the interrupt detector loop. All detector state is owned
// by the Run goroutine.
type Watcher struct {
	sensors raspbot.SensorReader
	emit    Emitter
	cfg     Config

	state  proximityState
	nearAt time.Time
	lifted bool

	tapDown bool
	patDown bool
	lastTap time.Time
	lastPat time.Time

	readErrs atomic.Uint64
}

// NewWatcher creates a watcher. The config is not validated here;
// call Config.Validate during startup.
func NewWatcher(sensors raspbot.SensorReader, emit Emitter, cfg Config) *Watcher {
	return &Watcher{
		sensors: sensors,
		emit:    emit,
		cfg:     cfg,
	}
}

// Run polls until the context ends.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	log.Info("interrupt watcher running",
		"poll", w.cfg.PollInterval.String(),
		"near_mm", w.cfg.NearThresholdMM,
		"far_mm", w.cfg.FarThresholdMM)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := w.sensors.Sensors()
			if err != nil {
				n := w.readErrs.Add(1)
				if n == 1 || n%100 == 0 {
					log.Warn("sensor read failed", "error", err, "count", n)
				}
				continue
			}
			w.observe(frame, time.Now())
		}
	}
}

// ReadErrors reports how many sensor polls have failed.
func (w *Watcher) ReadErrors() uint64 { return w.readErrs.Load() }

func (w *Watcher) observe(f raspbot.SensorFrame, now time.Time) {
	w.observeProximity(f.SonarMM, now)
	w.observeLift(f)
	w.observeTouch(f, now)
}

func (w *Watcher) observeProximity(mm int, now time.Time) {
	near := mm > 0 && mm < w.cfg.NearThresholdMM
	far := mm == 0 || mm > w.cfg.FarThresholdMM

	switch w.state {
	case proximityFar:
		if near {
			w.state = proximityNear
			w.nearAt = now
			w.emit.ProximityApproach()
		}
	case proximityNear:
		switch {
		case far:
			if now.Sub(w.nearAt) <= w.cfg.RecedeWindow {
				w.emit.ProximityRecede()
			}
			w.state = proximityFar
		case now.Sub(w.nearAt) > w.cfg.HoldReset:
			// Hovering hand. Wait for it to leave before re-arming.
			w.state = proximitySpent
		}
	case proximitySpent:
		if far {
			w.state = proximityFar
		}
	}
}

func (w *Watcher) observeLift(f raspbot.SensorFrame) {
	if f.OnSurface() {
		w.lifted = false
		return
	}
	if !w.lifted {
		w.lifted = true
		w.emit.LiftDetected()
	}
}

func (w *Watcher) observeTouch(f raspbot.SensorFrame, now time.Time) {
	if f.Tap && !w.tapDown && now.Sub(w.lastTap) >= w.cfg.TapDebounce {
		w.lastTap = now
		w.emit.Tap()
	}
	w.tapDown = f.Tap

	if f.Pat && !w.patDown && now.Sub(w.lastPat) >= w.cfg.PatDebounce {
		w.lastPat = now
		w.emit.Pat()
	}
	w.patDown = f.Pat
}
