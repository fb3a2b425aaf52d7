package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// FaceModelFile is the YuNet ONNX file expected under ModelDir.
const FaceModelFile = "face_detection_yunet.onnx"

// FaceDetector finds faces with OpenCV's FaceDetectorYN (YuNet).
type FaceDetector struct {
	detector gocv.FaceDetectorYN
	mu       sync.Mutex // Protects inference
}

// NewFaceDetector loads the YuNet model from cfg.ModelDir.
func NewFaceDetector(cfg Config) (*FaceDetector, error) {
	path := filepath.Join(cfg.ModelDir, FaceModelFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("face model not found: %s", path)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		path,
		"", // No config file needed for ONNX
		image.Pt(cfg.Width, cfg.Height), // Updated per-frame
		float32(cfg.MinConfidence),      // Score threshold
		0.3,                             // NMS threshold
		5000,                            // Top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &FaceDetector{detector: detector}, nil
}

// Detect finds faces in the frame.
func (d *FaceDetector) Detect(img gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	d.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()

	d.detector.Detect(img, &faces)

	// YuNet output format (15 columns):
	// 0-3: x, y, w, h (bounding box in pixels)
	// 4-13: 5 facial landmarks (x,y pairs)
	// 14: face score
	var detections []Detection
	for r := 0; r < faces.Rows(); r++ {
		x := float64(faces.GetFloatAt(r, 0))
		y := float64(faces.GetFloatAt(r, 1))
		w := float64(faces.GetFloatAt(r, 2))
		h := float64(faces.GetFloatAt(r, 3))
		score := float64(faces.GetFloatAt(r, 14))

		detections = append(detections, Detection{
			X:          x / imgW,
			Y:          y / imgH,
			W:          w / imgW,
			H:          h / imgH,
			Confidence: score,
			Label:      "face",
		})
	}

	return detections, nil
}

// Close releases the detector resources.
func (d *FaceDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detector.Close()
	return nil
}
