// Package tts voice presets for Piper.
package tts

// Voice describes a Piper voice model.
type Voice struct {
	// Model is the ONNX file name, resolved against the model directory
	// unless absolute.
	Model string

	// SampleRate is the rate the model synthesizes at.
	SampleRate int
}

// PiperVoices maps friendly preset names to voice models.
// Use ResolvePiperVoice to look up a voice by name or pass through raw
// model paths.
var PiperVoices = map[string]Voice{
	"amy":      {Model: "en_US-amy-medium.onnx", SampleRate: 22050},    // American female, clear
	"lessac":   {Model: "en_US-lessac-medium.onnx", SampleRate: 22050}, // American female, newsreader
	"ryan":     {Model: "en_US-ryan-high.onnx", SampleRate: 22050},     // American male
	"danny":    {Model: "en_US-danny-low.onnx", SampleRate: 16000},     // American male, fast on the Pi
	"kathleen": {Model: "en_US-kathleen-low.onnx", SampleRate: 16000},  // American female, fast on the Pi
	"alba":     {Model: "en_GB-alba-medium.onnx", SampleRate: 22050},   // Scottish female
	"alan":     {Model: "en_GB-alan-medium.onnx", SampleRate: 22050},   // British male
}

// DefaultVoice is the default voice preset.
const DefaultVoice = "amy"

// ResolvePiperVoice returns the voice for a preset name. Unknown names
// are treated as model paths at the common 22.05kHz rate.
func ResolvePiperVoice(name string) Voice {
	if v, ok := PiperVoices[name]; ok {
		return v
	}
	return Voice{Model: name, SampleRate: 22050}
}

// IsPiperPreset returns true if the name is a known preset.
func IsPiperPreset(name string) bool {
	_, ok := PiperVoices[name]
	return ok
}
