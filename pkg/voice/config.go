package voice

import (
	"errors"
	"time"
)

// Config holds the tunable parameters for recognition pipelines.
// Not every pipeline uses every field; the mock pipeline ignores all
// of them.
type Config struct {
	// ServerURL is the recognizer endpoint. The vosk pipeline expects
	// a vosk-server websocket URL, e.g. "ws://127.0.0.1:2700".
	ServerURL string

	// Audio capture settings
	SampleRate     int           // Microphone sample rate in Hz
	Device         string        // ALSA capture device, empty for the system default
	BufferDuration time.Duration // Size of each chunk sent to the recognizer

	// MaxAlternatives asks the recognizer for an n-best list. Zero
	// keeps the single best hypothesis, which is what the command
	// matcher wants.
	MaxAlternatives int

	// Reconnect behavior when the recognizer connection drops
	ReconnectDelay    time.Duration // Initial wait between reconnect attempts
	MaxReconnectDelay time.Duration // Backoff ceiling

	// Debug enables per-transcript logging.
	Debug bool
}

// DefaultConfig returns a config tuned for a local vosk-server and the
// 16kHz mono capture the small vosk models are trained on.
func DefaultConfig() Config {
	return Config{
		ServerURL:         "ws://127.0.0.1:2700",
		SampleRate:        16000,
		BufferDuration:    100 * time.Millisecond,
		ReconnectDelay:    2 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("voice: sample rate must be positive")
	}
	if c.BufferDuration <= 0 {
		return errors.New("voice: buffer duration must be positive")
	}
	if c.MaxAlternatives < 0 {
		return errors.New("voice: max alternatives cannot be negative")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("voice: reconnect delay must be positive")
	}
	if c.MaxReconnectDelay < c.ReconnectDelay {
		return errors.New("voice: max reconnect delay below reconnect delay")
	}
	return nil
}

// WithServerURL returns a copy of the config with the recognizer URL set.
func (c Config) WithServerURL(url string) Config {
	c.ServerURL = url
	return c
}

// WithDevice returns a copy of the config with the capture device set.
func (c Config) WithDevice(device string) Config {
	c.Device = device
	return c
}

// WithSampleRate returns a copy of the config with the sample rate set.
func (c Config) WithSampleRate(rate int) Config {
	c.SampleRate = rate
	return c
}

// WithDebug returns a copy of the config with debug logging toggled.
func (c Config) WithDebug(debug bool) Config {
	c.Debug = debug
	return c
}
