package vision

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDetectionGeometry(t *testing.T) {
	d := Detection{X: 0.2, Y: 0.4, W: 0.2, H: 0.1}

	cx, cy := d.Center()
	if !near(cx, 0.3) || !near(cy, 0.45) {
		t.Errorf("center = (%v, %v), want (0.3, 0.45)", cx, cy)
	}
	if !near(d.Area(), 0.02) {
		t.Errorf("area = %v, want 0.02", d.Area())
	}
}

func TestDetectionTarget(t *testing.T) {
	cases := []struct {
		name   string
		det    Detection
		offset float64
	}{
		{"centered", Detection{X: 0.4, W: 0.2}, 0},
		{"left edge", Detection{X: 0, W: 0}, -1},
		{"right half", Detection{X: 0.7, W: 0.1}, 0.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := tc.det.Target()
			if !near(target.OffsetX, tc.offset) {
				t.Errorf("offset = %v, want %v", target.OffsetX, tc.offset)
			}
		})
	}
}

func TestSelectBestEmpty(t *testing.T) {
	if got := SelectBest(nil); got != nil {
		t.Errorf("SelectBest(nil) = %v, want nil", got)
	}
}

func TestSelectBestSingle(t *testing.T) {
	dets := []Detection{{X: 0.1, W: 0.2, H: 0.2, Confidence: 0.6}}
	if got := SelectBest(dets); got == nil || *got != dets[0] {
		t.Errorf("SelectBest single = %v, want the one detection", got)
	}
}

func TestSelectBestPrefersConfidence(t *testing.T) {
	dets := []Detection{
		{W: 0.2, H: 0.2, Confidence: 0.95, Label: "strong"},
		{W: 0.25, H: 0.25, Confidence: 0.55, Label: "big"},
	}
	if got := SelectBest(dets); got.Label != "strong" {
		t.Errorf("selected %q, want the confident detection", got.Label)
	}
}

func TestSelectBestAreaBreaksTies(t *testing.T) {
	dets := []Detection{
		{W: 0.1, H: 0.1, Confidence: 0.8, Label: "small"},
		{W: 0.3, H: 0.3, Confidence: 0.8, Label: "close"},
	}
	if got := SelectBest(dets); got.Label != "close" {
		t.Errorf("selected %q, want the larger detection", got.Label)
	}
}
