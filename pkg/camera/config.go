// Package camera holds the dashboard-tunable capture settings. It
// follows the same pattern as the tracking tuning parameters: a
// guarded config struct, partial updates from JSON maps, and named
// presets. The manager does not touch the device itself; whoever owns
// the capture registers OnConfigChange and applies the settings there.
package camera

// Config holds all camera settings. These can be changed from the
// dashboard at runtime.
type Config struct {
	// === Capture ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// === Picture Controls ===
	// All three range -1.0 to +1.0, with 0 meaning the driver default.
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`

	// === Exposure ===
	// ExposureMode selects who drives the shutter.
	// Values: "auto", "manual"
	ExposureMode string `json:"exposure_mode"`

	// ExposureTime is the manual exposure in microseconds (100 to
	// 100000). Only honored when ExposureMode is "manual".
	ExposureTime int `json:"exposure_time"`

	// Gain is manual sensor gain (1.0 to 16.0). Set to 0 for auto.
	Gain float64 `json:"gain"`

	// === Digital Zoom ===
	// ZoomLevel is the digital zoom factor (1.0 to 4.0). The capture
	// crops the sensor center and scales back up.
	ZoomLevel float64 `json:"zoom_level"`

	// Manual crop region (overrides ZoomLevel if set).
	// All values in native sensor pixels.
	CropX      int `json:"crop_x"`
	CropY      int `json:"crop_y"`
	CropWidth  int `json:"crop_width"`
	CropHeight int `json:"crop_height"`

	// === Orientation ===
	// Flips for cameras mounted sideways or upside down.
	FlipHorizontal bool `json:"flip_horizontal"`
	FlipVertical   bool `json:"flip_vertical"`
}

// Capture limits for the stock USB camera.
const (
	SensorMaxWidth    = 1920
	SensorMaxHeight   = 1080
	SensorMaxFPS      = 60
	SensorMaxGain     = 16.0
	SensorMaxExposure = 100000 // microseconds
	SensorMaxZoom     = 4.0
)

// DefaultConfig returns the low-latency tracking configuration. Small
// frames keep the steering loop fast; this matches what the vision
// pipelines open by default.
func DefaultConfig() Config {
	return Config{
		Width:     320,
		Height:    240,
		Framerate: 30,
		Quality:   70,

		ExposureMode: "auto",
		ExposureTime: 0, // Auto
		Gain:         0, // Auto

		ZoomLevel: 1.0,
	}
}

// DetectConfig returns the higher-resolution configuration used when
// object recognition needs accuracy over frame rate.
func DetectConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Framerate = 15
	cfg.Quality = 80
	return cfg
}

// Validate checks the config values. Returns a list of problems, or
// nil if valid.
func (c *Config) Validate() []string {
	var problems []string

	if c.Width < 160 || c.Width > SensorMaxWidth {
		problems = append(problems, "width must be between 160 and 1920")
	}
	if c.Height < 120 || c.Height > SensorMaxHeight {
		problems = append(problems, "height must be between 120 and 1080")
	}
	if c.Framerate < 1 || c.Framerate > SensorMaxFPS {
		problems = append(problems, "framerate must be between 1 and 60")
	}
	if c.Quality < 1 || c.Quality > 100 {
		problems = append(problems, "quality must be between 1 and 100")
	}

	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		problems = append(problems, "brightness must be between -1.0 and 1.0")
	}
	if c.Contrast < -1.0 || c.Contrast > 1.0 {
		problems = append(problems, "contrast must be between -1.0 and 1.0")
	}
	if c.Saturation < -1.0 || c.Saturation > 1.0 {
		problems = append(problems, "saturation must be between -1.0 and 1.0")
	}

	switch c.ExposureMode {
	case "", "auto":
	case "manual":
		if c.ExposureTime == 0 {
			problems = append(problems, "exposure_time is required when exposure_mode is manual")
		}
	default:
		problems = append(problems, "exposure_mode must be auto or manual")
	}
	if c.ExposureTime != 0 && (c.ExposureTime < 100 || c.ExposureTime > SensorMaxExposure) {
		problems = append(problems, "exposure_time must be 0 (auto) or between 100 and 100000")
	}
	if c.Gain != 0 && (c.Gain < 1.0 || c.Gain > SensorMaxGain) {
		problems = append(problems, "gain must be 0 (auto) or between 1.0 and 16.0")
	}

	if c.ZoomLevel < 1.0 || c.ZoomLevel > SensorMaxZoom {
		problems = append(problems, "zoom_level must be between 1.0 and 4.0")
	}
	if c.CropWidth != 0 || c.CropHeight != 0 {
		if c.CropWidth < 32 || c.CropHeight < 32 {
			problems = append(problems, "crop region must be at least 32x32")
		} else if c.CropX < 0 || c.CropY < 0 ||
			c.CropX+c.CropWidth > SensorMaxWidth || c.CropY+c.CropHeight > SensorMaxHeight {
			problems = append(problems, "crop region must fit the sensor")
		}
	}

	return problems
}

// Capabilities returns the camera limits for the dashboard.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"sensor":          "usb_uvc",
		"max_width":       SensorMaxWidth,
		"max_height":      SensorMaxHeight,
		"max_fps":         SensorMaxFPS,
		"max_gain":        SensorMaxGain,
		"max_exposure_us": SensorMaxExposure,
		"max_zoom":        SensorMaxZoom,
		"exposure_modes":  []string{"auto", "manual"},
		"presets":         PresetNames(),
	}
}
