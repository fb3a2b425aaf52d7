package voice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Common errors returned by pipelines.
var (
	ErrNotStarted     = errors.New("voice: pipeline not started")
	ErrAlreadyStarted = errors.New("voice: pipeline already started")
	ErrNoServerURL    = errors.New("voice: server URL required")
)

// Pipeline is the interface for speech recognition pipelines.
//
// A pipeline owns the microphone. Start opens the audio source and
// begins streaming it to the recognizer, and transcripts come back
// through the OnTranscript callback. Pause gates the microphone while
// the robot is speaking so it does not transcribe its own voice.
type Pipeline interface {
	// Start opens the recognizer connection and begins streaming audio.
	// Set up callbacks before calling Start.
	Start(ctx context.Context) error

	// Stop shuts down the pipeline and releases the microphone.
	// Stopping a pipeline that is not running is a no-op.
	Stop() error

	// IsRunning reports whether the pipeline is processing audio.
	IsRunning() bool

	// Pause stops feeding microphone audio to the recognizer.
	Pause()

	// Resume continues feeding microphone audio after a Pause.
	Resume()

	// OnTranscript registers a callback for recognized speech.
	// final is false for partial hypotheses that may still change.
	OnTranscript(fn func(text string, final bool))

	// OnError registers a callback for recognizer and microphone errors.
	OnError(fn func(err error))

	// Metrics returns a snapshot of recognition counters.
	Metrics() Metrics

	// Config returns the pipeline configuration.
	Config() Config
}

// PipelineFactory creates a Pipeline from a config.
type PipelineFactory func(cfg Config) (Pipeline, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]PipelineFactory)
)

// Register makes a pipeline implementation available under the given
// name. Bundled implementations call Register from their init, so
// importing the bundled package for side effects is enough:
//
//	import _ "github.com/teslashibe/go-raspbot/pkg/voice/bundled"
//
// Register panics if the factory is nil or the name is already taken.
func Register(name string, factory PipelineFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if factory == nil {
		panic("voice: Register called with nil factory")
	}
	if _, dup := factories[name]; dup {
		panic("voice: Register called twice for pipeline " + name)
	}
	factories[name] = factory
}

// New creates a named pipeline with the given configuration.
func New(name string, cfg Config) (Pipeline, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("voice: unknown pipeline %q (registered: %v)", name, Registered())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return factory(cfg)
}

// Registered returns the names of all registered pipelines, sorted.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Callbacks groups the pipeline callbacks so callers can wire them up
// in one place.
type Callbacks struct {
	OnTranscript func(text string, final bool)
	OnError      func(err error)
}

// Apply sets all non-nil callbacks on the pipeline.
func (c Callbacks) Apply(p Pipeline) {
	if c.OnTranscript != nil {
		p.OnTranscript(c.OnTranscript)
	}
	if c.OnError != nil {
		p.OnError(c.OnError)
	}
}
