package vision

import (
	"image"
	"testing"
)

func TestDefectAngle(t *testing.T) {
	cases := []struct {
		name            string
		start, end, far image.Point
		want            float64
	}{
		{"right angle", image.Pt(10, 0), image.Pt(0, 10), image.Pt(0, 0), 90},
		{"straight line", image.Pt(-10, 0), image.Pt(10, 0), image.Pt(0, 0), 180},
		{"degenerate", image.Pt(5, 5), image.Pt(5, 5), image.Pt(5, 5), 180},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := defectAngleDeg(tc.start, tc.end, tc.far)
			if !near(got, tc.want) {
				t.Errorf("angle = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFingersFromValleys(t *testing.T) {
	cases := []struct {
		name     string
		valleys  int
		solidity float64
		want     int
	}{
		{"fist", 0, 0.95, 0},
		{"one finger", 0, 0.7, 1},
		{"peace sign", 1, 0.7, 2},
		{"three", 2, 0.6, 3},
		{"open hand", 4, 0.6, 5},
		{"noisy hull", 7, 0.5, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := fingersFromValleys(tc.valleys, tc.solidity); got != tc.want {
				t.Errorf("fingers = %d, want %d", got, tc.want)
			}
		})
	}
}
