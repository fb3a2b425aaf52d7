package vision

import "github.com/teslashibe/go-raspbot/pkg/tracking"

// Detection is one found object in a frame. Coordinates are
// normalized to the frame, top-left origin, so downstream code does
// not care what resolution the camera runs at.
type Detection struct {
	X, Y       float64 // Top-left corner (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
	Label      string  // Class name, empty for single-class detectors
}

// Center returns the center point of the detection.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Target converts the detection into a steering target: horizontal
// offset in -1..1 plus the area as a distance proxy.
func (d Detection) Target() tracking.Target {
	cx, _ := d.Center()
	return tracking.Target{OffsetX: 2*cx - 1, Area: d.Area()}
}

// SelectBest picks the detection to follow when there are several.
// Confidence dominates, with a bias toward larger (closer) targets.
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}
	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection
	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}
