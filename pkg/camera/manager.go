package camera

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Manager holds the current camera configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// OnConfigChange is called with the new config after every
	// successful update so the capture owner can apply it. If the
	// callback fails, the previous config is restored.
	OnConfigChange func(cfg Config) error
}

// NewManager creates a camera manager holding the default config.
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates and stores a full configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if problems := cfg.Validate(); len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}

	m.mu.Lock()
	prev := m.config
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			m.mu.Lock()
			m.config = prev
			m.mu.Unlock()
			return fmt.Errorf("apply config: %w", err)
		}
	}

	return nil
}

// UpdateConfig applies a partial update from a JSON-decoded map. A
// "preset" key loads that preset first; the remaining keys override
// individual fields on top of it.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if raw, ok := params["preset"]; ok {
		name, ok := raw.(string)
		if !ok {
			return fmt.Errorf("preset must be a string")
		}
		preset := GetPreset(name)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", name)
		}
		cfg = *preset
	}

	for key, value := range params {
		switch key {
		case "preset":
			// Folded in above.
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "framerate":
			if v, ok := toInt(value); ok {
				cfg.Framerate = v
			}
		case "quality":
			if v, ok := toInt(value); ok {
				cfg.Quality = v
			}
		case "brightness":
			if v, ok := toFloat(value); ok {
				cfg.Brightness = v
			}
		case "contrast":
			if v, ok := toFloat(value); ok {
				cfg.Contrast = v
			}
		case "saturation":
			if v, ok := toFloat(value); ok {
				cfg.Saturation = v
			}
		case "exposure_mode":
			if v, ok := value.(string); ok {
				cfg.ExposureMode = v
			}
		case "exposure_time":
			if v, ok := toInt(value); ok {
				cfg.ExposureTime = v
			}
		case "gain":
			if v, ok := toFloat(value); ok {
				cfg.Gain = v
			}
		case "zoom_level":
			if v, ok := toFloat(value); ok {
				cfg.ZoomLevel = v
			}
		case "crop_x":
			if v, ok := toInt(value); ok {
				cfg.CropX = v
			}
		case "crop_y":
			if v, ok := toInt(value); ok {
				cfg.CropY = v
			}
		case "crop_width":
			if v, ok := toInt(value); ok {
				cfg.CropWidth = v
			}
		case "crop_height":
			if v, ok := toInt(value); ok {
				cfg.CropHeight = v
			}
		case "flip_horizontal":
			if v, ok := value.(bool); ok {
				cfg.FlipHorizontal = v
			}
		case "flip_vertical":
			if v, ok := value.(bool); ok {
				cfg.FlipVertical = v
			}
		default:
			return fmt.Errorf("unknown camera parameter: %s", key)
		}
	}

	return m.SetConfig(cfg)
}

// Helper functions for type conversion. JSON decoding hands numbers
// over as float64, or json.Number when the decoder is set up that way.

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
