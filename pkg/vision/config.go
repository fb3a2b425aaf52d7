// Package vision runs the camera pipelines: color and face tracking,
// gesture drive, object recognition, and license plate spotting. Each
// pipeline is a resource subsystem that owns the camera (and usually
// the motors) while its mode is active.
package vision

// Config holds the camera and detector settings. These can be changed
// from the dashboard at runtime; the active pipeline reopens the
// capture on the next frame.
type Config struct {
	// === Capture ===
	Device    int `json:"device"`    // V4L2 device index
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality for dashboard frames

	// === Detection ===
	// ModelDir is where the ONNX and cascade files live.
	ModelDir string `json:"model_dir"`

	// MinConfidence drops detections scoring below it (0..1).
	MinConfidence float64 `json:"min_confidence"`

	// DetectEvery runs the heavy detectors on every Nth frame only.
	// 1 means every frame. Tracking masks always run per frame.
	DetectEvery int `json:"detect_every"`
}

// Capture limits for the stock USB camera.
const (
	CameraMaxWidth  = 1920
	CameraMaxHeight = 1080
	CameraMaxFPS    = 60
)

// DefaultConfig returns the low-latency tracking configuration. Small
// frames keep the steering loop fast on the Pi.
func DefaultConfig() Config {
	return Config{
		Device:        0,
		Width:         320,
		Height:        240,
		Framerate:     30,
		Quality:       70,
		ModelDir:      "models",
		MinConfidence: 0.5,
		DetectEvery:   1,
	}
}

// DetectConfig returns the higher-resolution configuration used by
// object recognition and plate spotting, where accuracy beats frame
// rate.
func DetectConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Framerate = 15
	cfg.Quality = 80
	cfg.DetectEvery = 2
	return cfg
}

// Validate checks the config values. Returns a list of problems, or
// nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}
	if c.Width < 160 || c.Width > CameraMaxWidth {
		errors = append(errors, "width must be between 160 and 1920")
	}
	if c.Height < 120 || c.Height > CameraMaxHeight {
		errors = append(errors, "height must be between 120 and 1080")
	}
	if c.Framerate < 1 || c.Framerate > CameraMaxFPS {
		errors = append(errors, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errors = append(errors, "min_confidence must be between 0 and 1")
	}
	if c.DetectEvery < 1 {
		errors = append(errors, "detect_every must be at least 1")
	}

	return errors
}
