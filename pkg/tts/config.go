package tts

import (
	"log/slog"
	"time"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Piper configuration
	PiperBin string
	ModelDir string
	Voice    string

	// HTTP server configuration
	ServerURL string

	// Timeouts
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithPiperBin sets the piper executable path.
func WithPiperBin(path string) Option {
	return func(c *Config) {
		c.PiperBin = path
	}
}

// WithModelDir sets the directory voice models are loaded from.
func WithModelDir(dir string) Option {
	return func(c *Config) {
		c.ModelDir = dir
	}
}

// WithVoice sets the voice, either a preset name or a model path.
func WithVoice(voice string) Option {
	return func(c *Config) {
		c.Voice = voice
	}
}

// WithServerURL sets the synthesis server URL for the HTTP provider.
func WithServerURL(url string) Option {
	return func(c *Config) {
		c.ServerURL = url
	}
}

// WithTimeout sets the synthesis timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		PiperBin:   "piper",
		ModelDir:   "voices",
		Voice:      DefaultVoice,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 100 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
