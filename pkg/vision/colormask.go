package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// hsvRange is one inclusive HSV band. OpenCV hue runs 0-179.
type hsvRange struct {
	loH, loS, loV float64
	hiH, hiS, hiV float64
}

// rangesFor returns the HSV bands for a trackable color. Red wraps
// around the hue axis, so it needs two bands.
func rangesFor(c modes.Color) []hsvRange {
	switch c {
	case modes.ColorRed:
		return []hsvRange{
			{0, 43, 46, 10, 255, 255},
			{156, 43, 46, 179, 255, 255},
		}
	case modes.ColorGreen:
		return []hsvRange{{35, 43, 46, 77, 255, 255}}
	case modes.ColorBlue:
		return []hsvRange{{100, 43, 46, 124, 255, 255}}
	case modes.ColorYellow:
		return []hsvRange{{26, 43, 46, 34, 255, 255}}
	default:
		return nil
	}
}

// ColorMask finds the largest blob of a given color in the frame.
// Cheap enough to run every frame at tracking resolution.
type ColorMask struct {
	color  modes.Color
	ranges []hsvRange

	// minArea is the blob area fraction below which a match counts as
	// noise.
	minArea float64
}

// NewColorMask builds a mask for one of the trackable colors.
func NewColorMask(color modes.Color) (*ColorMask, error) {
	ranges := rangesFor(color)
	if len(ranges) == 0 {
		return nil, fmt.Errorf("no HSV ranges for color %q", color)
	}
	return &ColorMask{color: color, ranges: ranges, minArea: 0.001}, nil
}

// Detect returns the largest blob of the mask's color, or an empty
// slice when nothing big enough is in frame.
func (m *ColorMask) Detect(img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(img, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(blurred, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	for i, r := range m.ranges {
		lo := gocv.NewScalar(r.loH, r.loS, r.loV, 0)
		hi := gocv.NewScalar(r.hiH, r.hiS, r.hiV, 0)
		if i == 0 {
			gocv.InRangeWithScalar(hsv, lo, hi, &mask)
			continue
		}
		band := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, lo, hi, &band)
		gocv.BitwiseOr(mask, band, &mask)
		band.Close()
	}

	// Open to kill speckle before looking for blobs.
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5))
	defer kernel.Close()
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, kernel)

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
	if best < 0 || bestArea/frameArea < m.minArea {
		return nil, nil
	}

	rect := gocv.BoundingRect(contours.At(best))
	return []Detection{{
		X:          float64(rect.Min.X) / float64(img.Cols()),
		Y:          float64(rect.Min.Y) / float64(img.Rows()),
		W:          float64(rect.Dx()) / float64(img.Cols()),
		H:          float64(rect.Dy()) / float64(img.Rows()),
		Confidence: 1,
		Label:      m.color.String(),
	}}, nil
}
