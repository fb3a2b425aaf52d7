package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetDetect  = "detect"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
	PresetNight   = "night"
	PresetBright  = "bright"
	PresetZoom2x  = "zoom2x"
	PresetZoom4x  = "zoom4x"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetDetect:  DetectConfig(),
		Preset720p:    HD720Config(),
		Preset1080p:   HD1080Config(),
		PresetNight:   NightConfig(),
		PresetBright:  BrightConfig(),
		PresetZoom2x:  Zoom2xConfig(),
		PresetZoom4x:  Zoom4xConfig(),
	}
}

// PresetNames returns the preset names in menu order.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetDetect,
		Preset720p,
		Preset1080p,
		PresetNight,
		PresetBright,
		PresetZoom2x,
		PresetZoom4x,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// HD720Config returns the 720p configuration. Good balance of quality
// and load for the dashboard feed.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.Quality = 80
	return cfg
}

// HD1080Config returns the full 1080p configuration. Maximum quality,
// too slow for the steering loop.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	cfg.Framerate = 15
	cfg.Quality = 85
	return cfg
}

// NightConfig returns a low-light configuration: long manual exposure
// with high gain, at 720p and a frame rate the shutter can keep up
// with.
func NightConfig() Config {
	cfg := HD720Config()
	cfg.Framerate = 10
	cfg.ExposureMode = "manual"
	cfg.ExposureTime = 50000
	cfg.Gain = 8.0
	cfg.Brightness = 0.3
	return cfg
}

// BrightConfig returns a configuration for harsh daylight. Slightly
// darker picture so highlights keep their detail.
func BrightConfig() Config {
	cfg := DefaultConfig()
	cfg.Brightness = -0.3
	cfg.Contrast = 0.1
	return cfg
}

// Zoom2xConfig returns 2x digital zoom on the default capture.
func Zoom2xConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoomLevel = 2.0
	return cfg
}

// Zoom4xConfig returns 4x digital zoom on the default capture.
func Zoom4xConfig() Config {
	cfg := DefaultConfig()
	cfg.ZoomLevel = 4.0
	return cfg
}
