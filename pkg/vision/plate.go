package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// PlateModelFile is the Haar cascade expected under ModelDir.
const PlateModelFile = "haarcascade_russian_plate_number.xml"

// PlateDetector spots license plates with a Haar cascade. Old school,
// but it runs fast on the Pi with no DNN in the loop.
type PlateDetector struct {
	classifier gocv.CascadeClassifier
	mu         sync.Mutex
}

// NewPlateDetector loads the cascade from cfg.ModelDir.
func NewPlateDetector(cfg Config) (*PlateDetector, error) {
	path := filepath.Join(cfg.ModelDir, PlateModelFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("plate cascade not found: %s", path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load plate cascade from %s", path)
	}

	return &PlateDetector{classifier: classifier}, nil
}

// Detect finds plates in the frame.
func (d *PlateDetector) Detect(img gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	rects := d.classifier.DetectMultiScaleWithParams(
		gray,
		1.1,              // Scale step
		4,                // Min neighbors
		0,                // Flags (unused)
		image.Pt(40, 12), // Plates are wide and short
		image.Pt(0, 0),
	)

	var detections []Detection
	for _, r := range rects {
		detections = append(detections, Detection{
			X:          float64(r.Min.X) / imgW,
			Y:          float64(r.Min.Y) / imgH,
			W:          float64(r.Dx()) / imgW,
			H:          float64(r.Dy()) / imgH,
			Confidence: 1, // Cascades do not score
			Label:      "plate",
		})
	}

	return detections, nil
}

// Close releases the cascade.
func (d *PlateDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.classifier.Close()
	return nil
}
