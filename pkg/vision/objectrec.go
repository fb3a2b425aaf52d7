package vision

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// announceCooldown is how long a label must be out of frame before it
// gets announced again.
const announceCooldown = 30 * time.Second

// ObjectRecognition names what the robot sees. Runs YOLO at a reduced
// cadence and speaks each label when it first shows up.
type ObjectRecognition struct {
	pipeline
	objects     *ObjectDetector
	seen        map[string]time.Time
	detectEvery uint64
}

var _ resource.Subsystem = (*ObjectRecognition)(nil)

// NewObjectRecognition loads the YOLO model and opens the camera.
func NewObjectRecognition(cfg Config, deps Deps) (*ObjectRecognition, error) {
	objects, err := NewObjectDetector(cfg)
	if err != nil {
		return nil, err
	}
	p, err := newPipeline(modes.ObjectRecognition().String(), cfg, deps)
	if err != nil {
		objects.Close()
		return nil, err
	}
	return &ObjectRecognition{
		pipeline:    p,
		objects:     objects,
		seen:        make(map[string]time.Time),
		detectEvery: uint64(cfg.DetectEvery),
	}, nil
}

// Run watches frames until the context is cancelled.
func (o *ObjectRecognition) Run(ctx context.Context) error {
	defer o.objects.Close()
	o.setStatus("looking around")
	return o.loop(ctx, func(img gocv.Mat, n uint64) error {
		if n%o.detectEvery != 0 {
			return nil
		}
		dets, err := o.objects.Detect(img)
		if err != nil {
			return fmt.Errorf("object detect: %w", err)
		}
		o.report(dets, time.Now())
		return nil
	})
}

// report refreshes the status line and announces labels that have
// been out of frame long enough to be news again.
func (o *ObjectRecognition) report(dets []Detection, now time.Time) {
	if len(dets) == 0 {
		return
	}

	var labels []string
	var fresh []string
	for _, d := range dets {
		if !contains(labels, d.Label) {
			labels = append(labels, d.Label)
		}
		last, known := o.seen[d.Label]
		o.seen[d.Label] = now
		if known && now.Sub(last) < announceCooldown {
			continue
		}
		fresh = append(fresh, d.Label)
	}

	o.setStatus(strings.Join(labels, ", "))

	for _, label := range fresh {
		if IsAnimal(label) {
			o.setEmotion(emotion.Happy, 1)
		} else {
			o.setEmotion(emotion.Happy, 0.6)
		}
		if o.deps.Speak != nil {
			o.deps.Speak("I see a " + label)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
