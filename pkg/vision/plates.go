package vision

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// plateGone is how long with no plate in frame before the happy flash
// resets.
const plateGone = 2 * time.Second

// LicensePlate watches for license plates and reacts when one comes
// into view.
type LicensePlate struct {
	pipeline
	plates      *PlateDetector
	detectEvery uint64
	lastSeen    time.Time
	active      bool
}

var _ resource.Subsystem = (*LicensePlate)(nil)

// NewLicensePlate loads the cascade and opens the camera.
func NewLicensePlate(cfg Config, deps Deps) (*LicensePlate, error) {
	plates, err := NewPlateDetector(cfg)
	if err != nil {
		return nil, err
	}
	p, err := newPipeline(modes.LicensePlate().String(), cfg, deps)
	if err != nil {
		plates.Close()
		return nil, err
	}
	return &LicensePlate{
		pipeline:    p,
		plates:      plates,
		detectEvery: uint64(cfg.DetectEvery),
	}, nil
}

// Run watches frames until the context is cancelled.
func (l *LicensePlate) Run(ctx context.Context) error {
	defer l.plates.Close()
	l.setStatus("watching for plates")
	return l.loop(ctx, func(img gocv.Mat, n uint64) error {
		if n%l.detectEvery != 0 {
			return nil
		}
		dets, err := l.plates.Detect(img)
		if err != nil {
			return fmt.Errorf("plate detect: %w", err)
		}
		l.spot(len(dets), time.Now())
		return nil
	})
}

// spot tracks plate visibility edges: happy when one shows up,
// back to neutral once plates have been gone for a while.
func (l *LicensePlate) spot(count int, now time.Time) {
	if count > 0 {
		l.lastSeen = now
		if !l.active {
			l.active = true
			l.setEmotion(emotion.Happy, 0.9)
		}
		if count == 1 {
			l.setStatus("plate in view")
		} else {
			l.setStatus(fmt.Sprintf("%d plates in view", count))
		}
		return
	}

	if l.active && now.Sub(l.lastSeen) > plateGone {
		l.active = false
		l.setEmotion(emotion.Neutral, 0.5)
		l.setStatus("watching for plates")
	}
}
