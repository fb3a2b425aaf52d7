// Package tracking turns detections in the camera frame into drive
// commands. A PD controller steers the base toward the target's
// horizontal offset while a distance band on the bounding box area
// decides whether to advance, hold, or back off. ColorTrack and
// FaceTrack share this package; only the detector differs.
package tracking

import "time"

// Config holds the steering parameters. All fields are tunable from
// the dashboard at runtime via TuningParams.
type Config struct {
	// PD gains on the normalized horizontal error (-1..1).
	Kp float64 `json:"kp"`
	Kd float64 `json:"kd"`

	// DeadZone is the error magnitude below which the target counts
	// as centered and no turn is commanded.
	DeadZone float64 `json:"dead_zone"`

	// MaxOmega clamps the rotation command (0..1).
	MaxOmega float64 `json:"max_omega"`

	// NearArea and FarArea bound the bounding-box area fraction that
	// counts as a comfortable distance. Above NearArea the base backs
	// off, below FarArea it advances, in between it holds.
	NearArea float64 `json:"near_area"`
	FarArea  float64 `json:"far_area"`

	// Speed scales the drive commands (0-255).
	Speed int `json:"speed"`

	// SmoothingAlpha is the EMA weight for new observations (0..1].
	// 1 disables smoothing.
	SmoothingAlpha float64 `json:"smoothing_alpha"`

	// LostTimeout is how long to keep steering on the last known
	// target after detections stop before declaring the target lost
	// and halting.
	LostTimeout time.Duration `json:"lost_timeout"`
}

// DefaultConfig returns gains tuned on the stock chassis at 320x240.
func DefaultConfig() Config {
	return Config{
		Kp:             1.4,
		Kd:             0.25,
		DeadZone:       0.08,
		MaxOmega:       0.8,
		NearArea:       0.24,
		FarArea:        0.10,
		Speed:          70,
		SmoothingAlpha: 0.45,
		LostTimeout:    2 * time.Second,
	}
}

// Validate returns a list of problems with the config, empty if ok.
func (c Config) Validate() []string {
	var problems []string
	if c.Kp <= 0 {
		problems = append(problems, "kp must be positive")
	}
	if c.Kd < 0 {
		problems = append(problems, "kd must not be negative")
	}
	if c.DeadZone < 0 || c.DeadZone >= 1 {
		problems = append(problems, "dead_zone must be in [0, 1)")
	}
	if c.MaxOmega <= 0 || c.MaxOmega > 1 {
		problems = append(problems, "max_omega must be in (0, 1]")
	}
	if c.FarArea <= 0 || c.NearArea <= c.FarArea {
		problems = append(problems, "need 0 < far_area < near_area")
	}
	if c.Speed <= 0 || c.Speed > 255 {
		problems = append(problems, "speed must be in 1-255")
	}
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		problems = append(problems, "smoothing_alpha must be in (0, 1]")
	}
	if c.LostTimeout <= 0 {
		problems = append(problems, "lost_timeout must be positive")
	}
	return problems
}
