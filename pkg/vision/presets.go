package vision

// Preset names for common configurations
const (
	PresetTracking = "tracking"
	PresetDetect   = "detect"
	PresetStream   = "stream"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetTracking: DefaultConfig(),
		PresetDetect:   DetectConfig(),
		PresetStream:   StreamConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{PresetTracking, PresetDetect, PresetStream}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// StreamConfig returns the configuration for watching the camera from
// the dashboard without a detector in the loop.
func StreamConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	cfg.Framerate = 20
	cfg.Quality = 85
	return cfg
}
