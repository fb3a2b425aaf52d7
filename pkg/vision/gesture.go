package vision

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// FingerCount is the result of one gesture frame.
type FingerCount struct {
	Fingers int
	Found   bool
	Box     Detection
}

// GestureDetector counts raised fingers from an HSV skin mask. The
// largest skin blob is taken as the hand; deep convexity defects are
// the valleys between extended fingers, so four valleys means an open
// hand.
type GestureDetector struct {
	// minBlobArea is the frame fraction the hand must fill before a
	// blob counts. Keeps faces in the background from steering the
	// robot.
	minBlobArea float64
}

// NewGestureDetector returns a detector tuned for a hand held at
// half a meter from the tracking camera.
func NewGestureDetector() *GestureDetector {
	return &GestureDetector{minBlobArea: 0.02}
}

// Count finds the hand and counts its raised fingers.
func (g *GestureDetector) Count(img gocv.Mat) (FingerCount, error) {
	if img.Empty() {
		return FingerCount{}, fmt.Errorf("empty frame")
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, 48, 80, 0),
		gocv.NewScalar(20, 255, 255, 0),
		&mask)
	gocv.MedianBlur(mask, &mask, 5)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(7, 7))
	defer kernel.Close()
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, kernel)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	best := -1
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			bestArea = area
			best = i
		}
	}

	frameArea := float64(img.Cols() * img.Rows())
	if best < 0 || bestArea/frameArea < g.minBlobArea {
		return FingerCount{}, nil
	}

	hand := contours.At(best)
	rect := gocv.BoundingRect(hand)

	hullIdx := gocv.NewMat()
	defer hullIdx.Close()
	gocv.ConvexHull(hand, &hullIdx, false, false)

	hullPts := gocv.NewMat()
	defer hullPts.Close()
	gocv.ConvexHull(hand, &hullPts, false, true)

	defects := gocv.NewMat()
	defer defects.Close()
	gocv.ConvexityDefects(hand, hullIdx, &defects)

	hullPV := gocv.NewPointVectorFromMat(hullPts)
	solidity := 0.0
	if hullArea := gocv.ContourArea(hullPV); hullArea > 0 {
		solidity = bestArea / hullArea
	}
	hullPV.Close()

	// Defect depth is 8.8 fixed point. Valleys between fingers run a
	// good fraction of the hand's height; shallower wrinkles do not.
	minDepth := 0.1 * float64(rect.Dy()) * 256

	valleys := 0
	for i := 0; i < defects.Rows(); i++ {
		v := defects.GetVeciAt(i, 0)
		if float64(v[3]) < minDepth {
			continue
		}
		start := hand.At(int(v[0]))
		end := hand.At(int(v[1]))
		far := hand.At(int(v[2]))
		if defectAngleDeg(start, end, far) < 95 {
			valleys++
		}
	}

	return FingerCount{
		Fingers: fingersFromValleys(valleys, solidity),
		Found:   true,
		Box: Detection{
			X:          float64(rect.Min.X) / float64(img.Cols()),
			Y:          float64(rect.Min.Y) / float64(img.Rows()),
			W:          float64(rect.Dx()) / float64(img.Cols()),
			H:          float64(rect.Dy()) / float64(img.Rows()),
			Confidence: 1,
			Label:      "hand",
		},
	}, nil
}

// defectAngleDeg returns the angle at the far point of a convexity
// defect, in degrees. Finger valleys are sharp; the heel of the palm
// is not.
func defectAngleDeg(start, end, far image.Point) float64 {
	a := dist(start, end)
	b := dist(start, far)
	c := dist(end, far)
	if b == 0 || c == 0 {
		return 180
	}
	cosv := (b*b + c*c - a*a) / (2 * b * c)
	if cosv > 1 {
		cosv = 1
	}
	if cosv < -1 {
		cosv = -1
	}
	return math.Acos(cosv) * 180 / math.Pi
}

func dist(p, q image.Point) float64 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// fingersFromValleys maps deep-valley count to raised fingers. No
// valleys is either a fist or a single finger; a fist hugs its convex
// hull while one finger leaves a slab of empty hull, so solidity
// splits them.
func fingersFromValleys(valleys int, solidity float64) int {
	if valleys == 0 {
		if solidity >= 0.9 {
			return 0
		}
		return 1
	}
	n := valleys + 1
	if n > 5 {
		n = 5
	}
	return n
}
