// Vision test - bench check for the camera and the detector models
//
// Opens the capture device, runs the chosen detector on live frames,
// and prints what it sees. Run this before blaming a mode for a dead
// camera or a missing model file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/vision"
)

func main() {
	device := flag.Int("device", 0, "V4L2 capture device index")
	models := flag.String("models", "models", "Vision model directory")
	detector := flag.String("detector", "face", "Detector to run: face, color, gesture, objects, plates")
	colorName := flag.String("color", "red", "Color for the color detector")
	frames := flag.Int("frames", 0, "Stop after this many frames, 0 runs until Ctrl+C")
	flag.Parse()

	fmt.Println("👁️  Raspbot Vision Test")
	fmt.Println("=======================")
	fmt.Printf("Device:   %d\n", *device)
	fmt.Printf("Models:   %s\n", *models)
	fmt.Printf("Detector: %s\n\n", *detector)

	cfg := vision.DefaultConfig()
	cfg.Device = *device
	cfg.ModelDir = *models
	if *detector == "objects" || *detector == "plates" {
		det := vision.DetectConfig()
		cfg.Width, cfg.Height = det.Width, det.Height
		cfg.Framerate = det.Framerate
	}

	fmt.Print("📷 Opening camera... ")
	cam, err := vision.OpenCamera(cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer cam.Close()
	fmt.Println("✅")

	detect, cleanup, err := buildDetector(*detector, *colorName, cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("\n🔄 Watching (Ctrl+C to stop)")

	img := gocv.NewMat()
	defer img.Close()

	seen := 0
	start := time.Now()
	for ctx.Err() == nil {
		if err := cam.Read(&img); err != nil {
			fmt.Printf("read: %v\n", err)
			time.Sleep(200 * time.Millisecond)
			continue
		}
		seen++

		line, err := detect(img)
		if err != nil {
			fmt.Printf("detect: %v\n", err)
			continue
		}
		if line != "" {
			fmt.Printf("[%6.1fs] %s\n", time.Since(start).Seconds(), line)
		}

		if *frames > 0 && seen >= *frames {
			break
		}
	}

	fmt.Printf("\n✅ %d frames in %.1fs\n", seen, time.Since(start).Seconds())
}

// detectFunc runs one detector pass and renders a report line, empty
// when there is nothing to say about the frame.
type detectFunc func(img gocv.Mat) (string, error)

func buildDetector(name, colorName string, cfg vision.Config) (detectFunc, func(), error) {
	noop := func() {}

	switch name {
	case "face":
		d, err := vision.NewFaceDetector(cfg)
		if err != nil {
			return nil, noop, err
		}
		return boxReporter("face", d.Detect), func() { d.Close() }, nil

	case "color":
		c, err := modes.ParseColor(colorName)
		if err != nil {
			return nil, noop, err
		}
		m, err := vision.NewColorMask(c)
		if err != nil {
			return nil, noop, err
		}
		return boxReporter(colorName+" blob", m.Detect), noop, nil

	case "gesture":
		g := vision.NewGestureDetector()
		return func(img gocv.Mat) (string, error) {
			fc, err := g.Count(img)
			if err != nil || !fc.Found {
				return "", err
			}
			return fmt.Sprintf("✋ %d fingers", fc.Fingers), nil
		}, noop, nil

	case "objects":
		d, err := vision.NewObjectDetector(cfg)
		if err != nil {
			return nil, noop, err
		}
		return boxReporter("object", d.Detect), func() { d.Close() }, nil

	case "plates":
		d, err := vision.NewPlateDetector(cfg)
		if err != nil {
			return nil, noop, err
		}
		return boxReporter("plate", d.Detect), func() { d.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown detector %q", name)
}

// boxReporter renders a detector's boxes as one line per frame.
func boxReporter(what string, detect func(gocv.Mat) ([]vision.Detection, error)) detectFunc {
	return func(img gocv.Mat) (string, error) {
		dets, err := detect(img)
		if err != nil || len(dets) == 0 {
			return "", err
		}
		parts := make([]string, 0, len(dets))
		for _, d := range dets {
			label := d.Label
			if label == "" {
				label = what
			}
			x, y := d.Center()
			parts = append(parts, fmt.Sprintf("%s %.0f%% at (%.2f, %.2f)", label, d.Confidence*100, x, y))
		}
		return "🎯 " + strings.Join(parts, ", "), nil
	}
}
