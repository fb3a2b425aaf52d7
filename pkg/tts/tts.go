// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports a local Piper subprocess (the default on the
// robot), a generic HTTP synthesis server, and a mock for tests. All
// providers implement the Provider interface, enabling seamless
// switching without changing caller code.
//
// Example usage:
//
//	provider, _ := tts.NewPiper(
//	    tts.WithModelDir("/opt/piper/voices"),
//	    tts.WithVoice("amy"),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Hello world")
//	// result.PCM contains mono PCM16 samples at result.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Synthesize converts text to audio, returning the complete clip.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks that the provider can synthesize right now.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// PCM contains mono PCM16 samples.
	PCM []int16

	// SampleRate in Hz (e.g. 22050 for most Piper voices).
	SampleRate int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis time in milliseconds.
	LatencyMs int64
}

// Duration returns the playback duration of the clip.
func (r *AudioResult) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.PCM)) * time.Second / time.Duration(r.SampleRate)
}
