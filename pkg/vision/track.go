package vision

import (
	"context"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
	"github.com/teslashibe/go-raspbot/pkg/tracking"
)

// tracker is the follow loop shared by color and face tracking: best
// detection in, steering out, emotion on the lock and loss edges.
type tracker struct {
	pipeline
	follower *tracking.Follower
	subject  string
	last     tracking.State
}

func (t *tracker) begin() {
	t.follower.Reset()
	t.last = tracking.StateSearching
	t.setStatus("searching for " + t.subject)
}

// follow feeds one frame's detections through the follower and
// applies the result to the drive base.
func (t *tracker) follow(dets []Detection, now time.Time) {
	best := SelectBest(dets)
	var target tracking.Target
	if best != nil {
		target = best.Target()
	}

	drive, state := t.follower.Update(target, best != nil, now)

	if t.deps.Drive != nil {
		switch state {
		case tracking.StateLocked, tracking.StateCoasting:
			t.deps.Drive.SetSteering(drive)
		default:
			t.deps.Drive.ClearSteering()
		}
	}

	if state == t.last {
		return
	}
	switch state {
	case tracking.StateLocked:
		t.setEmotion(emotion.Happy, 0.8)
		t.setStatus("locked on " + t.subject)
	case tracking.StateSearching:
		t.setEmotion(emotion.Confused, 0.7)
		t.setStatus("lost " + t.subject)
	case tracking.StateCoasting:
		t.setStatus("coasting after " + t.subject)
	}
	t.last = state
}

// ColorTrack steers the base toward the largest blob of its color.
type ColorTrack struct {
	tracker
	mask *ColorMask
}

var _ resource.Subsystem = (*ColorTrack)(nil)

// NewColorTrack opens the camera and builds the color pipeline.
func NewColorTrack(color modes.Color, cfg Config, follower *tracking.Follower, deps Deps) (*ColorTrack, error) {
	mask, err := NewColorMask(color)
	if err != nil {
		return nil, err
	}
	p, err := newPipeline(modes.ColorTrack(color).String(), cfg, deps)
	if err != nil {
		return nil, err
	}
	return &ColorTrack{
		tracker: tracker{pipeline: p, follower: follower, subject: color.String()},
		mask:    mask,
	}, nil
}

// Run drives the follow loop until the context is cancelled.
func (c *ColorTrack) Run(ctx context.Context) error {
	c.begin()
	return c.loop(ctx, func(img gocv.Mat, n uint64) error {
		dets, err := c.mask.Detect(img)
		if err != nil {
			return fmt.Errorf("color mask: %w", err)
		}
		c.follow(dets, time.Now())
		return nil
	})
}

// FaceTrack steers the base toward the best face in frame.
type FaceTrack struct {
	tracker
	faces *FaceDetector
}

var _ resource.Subsystem = (*FaceTrack)(nil)

// NewFaceTrack loads the face model and opens the camera.
func NewFaceTrack(cfg Config, follower *tracking.Follower, deps Deps) (*FaceTrack, error) {
	faces, err := NewFaceDetector(cfg)
	if err != nil {
		return nil, err
	}
	p, err := newPipeline(modes.FaceTrack().String(), cfg, deps)
	if err != nil {
		faces.Close()
		return nil, err
	}
	return &FaceTrack{
		tracker: tracker{pipeline: p, follower: follower, subject: "face"},
		faces:   faces,
	}, nil
}

// Run drives the follow loop until the context is cancelled.
func (f *FaceTrack) Run(ctx context.Context) error {
	defer f.faces.Close()
	f.begin()
	return f.loop(ctx, func(img gocv.Mat, n uint64) error {
		dets, err := f.faces.Detect(img)
		if err != nil {
			return fmt.Errorf("face detect: %w", err)
		}
		f.follow(dets, time.Now())
		return nil
	})
}
