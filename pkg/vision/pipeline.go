package vision

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// DriveSink is where pipelines send steering. movement.Manager
// implements it.
type DriveSink interface {
	SetSteering(d movement.Drive)
	ClearSteering()
	Halt()
}

// Deps bundles what the pipelines need from the rest of the robot.
// Drive may be nil for camera-only pipelines; Sink and Speak are
// optional.
type Deps struct {
	Drive    DriveSink
	Emotions *emotion.Broadcaster
	Sink     FrameSink
	Speak    func(text string)
}

// maxConsecutiveReadErrors is how many frames in a row may fail
// before the pipeline gives up and reports a crash.
const maxConsecutiveReadErrors = 30

// pipeline is the shared frame loop under every vision subsystem.
type pipeline struct {
	deps   Deps
	camera *Camera
	name   string
	status atomic.Value // string
}

func newPipeline(name string, cfg Config, deps Deps) (pipeline, error) {
	cam, err := OpenCamera(cfg)
	if err != nil {
		return pipeline{}, err
	}
	return pipeline{deps: deps, camera: cam, name: name}, nil
}

// Status returns the pipeline's current one-line status.
func (p *pipeline) Status() string {
	if v := p.status.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (p *pipeline) setStatus(s string) {
	p.status.Store(s)
}

func (p *pipeline) setEmotion(e emotion.Emotion, intensity float64) {
	if p.deps.Emotions != nil {
		p.deps.Emotions.Set(e, intensity, p.name)
	}
}

// loop reads frames at the configured rate and hands each to onFrame
// with a running frame number. It returns nil on context cancellation
// and an error when the camera stalls or onFrame fails. Cleanup (stop
// motors, close camera) always runs.
func (p *pipeline) loop(ctx context.Context, onFrame func(img gocv.Mat, n uint64) error) error {
	defer p.shutdown()

	cfg := p.camera.Config()
	interval := time.Second / time.Duration(cfg.Framerate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	var frameNo uint64
	var readErrs int
	var totalErrs uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := p.camera.Read(&img); err != nil {
			readErrs++
			totalErrs++
			if totalErrs == 1 || totalErrs%100 == 0 {
				log.L().Warn("camera read error", "pipeline", p.name,
					"error", err, "total", totalErrs)
			}
			if readErrs >= maxConsecutiveReadErrors {
				return fmt.Errorf("camera stalled after %d consecutive read errors: %w", readErrs, err)
			}
			continue
		}
		readErrs = 0
		frameNo++

		if err := onFrame(img, frameNo); err != nil {
			return err
		}

		if p.deps.Sink != nil {
			if jpeg, err := EncodeJPEG(img, cfg.Quality); err == nil {
				p.deps.Sink(jpeg)
			}
		}
	}
}

// shutdown stops the motors and releases the camera. Safe to call
// once from the loop's defer.
func (p *pipeline) shutdown() {
	if p.deps.Drive != nil {
		p.deps.Drive.ClearSteering()
		p.deps.Drive.Halt()
	}
	if err := p.camera.Close(); err != nil {
		log.L().Warn("camera close failed", "pipeline", p.name, "error", err)
	}
}
