package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// ObjectModelFile is the YOLOv8 ONNX file expected under ModelDir.
const ObjectModelFile = "yolov8n.onnx"

// yoloInputSize is the square input YOLOv8n was exported with.
const yoloInputSize = 640

// ObjectDetector runs YOLOv8 over the OpenCV DNN backend.
type ObjectDetector struct {
	net       gocv.Net
	minConf   float32
	nmsThresh float32
	inputSize image.Point
	mu        sync.Mutex
}

// NewObjectDetector loads the YOLOv8 model from cfg.ModelDir.
func NewObjectDetector(cfg Config) (*ObjectDetector, error) {
	path := filepath.Join(cfg.ModelDir, ObjectModelFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("object model not found: %s", path)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load object model from %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &ObjectDetector{
		net:       net,
		minConf:   float32(cfg.MinConfidence),
		nmsThresh: 0.45,
		inputSize: image.Pt(yoloInputSize, yoloInputSize),
	}, nil
}

// Detect finds objects in the frame.
func (d *ObjectDetector) Detect(img gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	imgW := float32(img.Cols())
	imgH := float32(img.Rows())

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, imgW, imgH), nil
}

// parseOutput parses the YOLOv8 output tensor.
// Shape is [1, 84, 8400]: 84 = 4 bbox values + 80 class scores, laid
// out transposed, so the detection index varies fastest.
func (d *ObjectDetector) parseOutput(output gocv.Mat, imgW, imgH float32) []Detection {
	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int

	rows := output.Cols() // 8400 candidate detections
	cols := output.Rows() // 84 values per detection

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil
	}

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < d.minConf {
			continue
		}

		// Box comes as center x, center y, width, height in model
		// input coordinates.
		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		x1 := int((cx - w/2) * imgW / float32(d.inputSize.X))
		y1 := int((cy - h/2) * imgH / float32(d.inputSize.Y))
		x2 := int((cx + w/2) * imgW / float32(d.inputSize.X))
		y2 := int((cy + h/2) * imgH / float32(d.inputSize.Y))

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.minConf, d.nmsThresh)

	var detections []Detection
	for _, idx := range indices {
		box := boxes[idx]
		detections = append(detections, Detection{
			X:          float64(box.Min.X) / float64(imgW),
			Y:          float64(box.Min.Y) / float64(imgH),
			W:          float64(box.Dx()) / float64(imgW),
			H:          float64(box.Dy()) / float64(imgH),
			Confidence: float64(confidences[idx]),
			Label:      COCOClasses[classIDs[idx]],
		})
	}

	return detections
}

// Close releases the detector resources.
func (d *ObjectDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}

// COCOClasses contains the 80 COCO class names, indexed by class ID.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// IsAnimal returns true if the class is an animal.
func IsAnimal(className string) bool {
	animals := map[string]bool{
		"bird": true, "cat": true, "dog": true, "horse": true, "sheep": true,
		"cow": true, "elephant": true, "bear": true, "zebra": true, "giraffe": true,
	}
	return animals[className]
}

// IsPerson returns true if the class is a person.
func IsPerson(className string) bool {
	return className == "person"
}
