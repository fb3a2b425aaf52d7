package emotion

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// LEDColor is a color the LED strip can show. Values map to the strip's
// palette in the hardware adapter, not here.
type LEDColor int

const (
	LEDOff LEDColor = iota
	LEDRed
	LEDGreen
	LEDBlue
	LEDYellow
	LEDPurple
	LEDCyan
	LEDWhite
)

// String returns the color name.
func (c LEDColor) String() string {
	switch c {
	case LEDRed:
		return "red"
	case LEDGreen:
		return "green"
	case LEDBlue:
		return "blue"
	case LEDYellow:
		return "yellow"
	case LEDPurple:
		return "purple"
	case LEDCyan:
		return "cyan"
	case LEDWhite:
		return "white"
	default:
		return "off"
	}
}

// ParseLEDColor parses a color name as used in sequence files.
func ParseLEDColor(s string) (LEDColor, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LEDOff, nil
	case "red":
		return LEDRed, nil
	case "green":
		return LEDGreen, nil
	case "blue":
		return LEDBlue, nil
	case "yellow":
		return LEDYellow, nil
	case "purple":
		return LEDPurple, nil
	case "cyan":
		return LEDCyan, nil
	case "white":
		return LEDWhite, nil
	default:
		return LEDOff, fmt.Errorf("emotion: unknown led color %q", s)
	}
}

// ColorFor maps an emotion to its steady LED color.
func ColorFor(e Emotion) LEDColor {
	switch e {
	case Happy:
		return LEDGreen
	case Angry:
		return LEDRed
	case Shy:
		return LEDPurple
	case Confused:
		return LEDYellow
	case Scared:
		return LEDRed
	default:
		return LEDWhite
	}
}

// Frame is one step of an LED sequence: Color holds from At until the
// next frame's At.
type Frame struct {
	At    time.Duration
	Color LEDColor
}

// Sequence is a named, timed LED pattern.
type Sequence struct {
	Name     string
	Duration time.Duration
	Frames   []Frame
}

// At returns the color showing at the given elapsed time. Frames are a
// step function; times past the end hold the last frame.
func (s *Sequence) At(elapsed time.Duration) LEDColor {
	if len(s.Frames) == 0 {
		return LEDOff
	}
	idx := sort.Search(len(s.Frames), func(i int) bool {
		return s.Frames[i].At > elapsed
	})
	if idx == 0 {
		return s.Frames[0].Color
	}
	return s.Frames[idx-1].Color
}

var cycleColors = []LEDColor{LEDGreen, LEDBlue, LEDYellow, LEDPurple, LEDCyan, LEDWhite}

// WinSequence is the victory flash: the full palette cycled at 100ms for 1.5s.
func WinSequence() *Sequence {
	s := &Sequence{Name: "win", Duration: 1500 * time.Millisecond}
	step := 100 * time.Millisecond
	for at, i := time.Duration(0), 0; at < s.Duration; at, i = at+step, i+1 {
		s.Frames = append(s.Frames, Frame{At: at, Color: cycleColors[i%len(cycleColors)]})
	}
	return s
}

// LoseSequence is solid red for 1.5s.
func LoseSequence() *Sequence {
	return &Sequence{
		Name:     "lose",
		Duration: 1500 * time.Millisecond,
		Frames:   []Frame{{At: 0, Color: LEDRed}},
	}
}

// ScaredSequence blinks red, 150ms on and 100ms off, for 2s.
func ScaredSequence() *Sequence {
	s := &Sequence{Name: "scared", Duration: 2 * time.Second}
	for at := time.Duration(0); at < s.Duration; {
		s.Frames = append(s.Frames, Frame{At: at, Color: LEDRed})
		at += 150 * time.Millisecond
		s.Frames = append(s.Frames, Frame{At: at, Color: LEDOff})
		at += 100 * time.Millisecond
	}
	return s
}

// RainbowSequence cycles the palette at 100ms for the given duration.
func RainbowSequence(d time.Duration) *Sequence {
	s := &Sequence{Name: "rainbow", Duration: d}
	step := 100 * time.Millisecond
	for at, i := time.Duration(0), 0; at < d; at, i = at+step, i+1 {
		s.Frames = append(s.Frames, Frame{At: at, Color: cycleColors[i%len(cycleColors)]})
	}
	return s
}

// Registry manages a collection of LED sequences.
type Registry struct {
	mu        sync.RWMutex
	sequences map[string]*Sequence
}

// NewRegistry creates a registry preloaded with the built-in sequences.
func NewRegistry() *Registry {
	r := &Registry{sequences: make(map[string]*Sequence)}
	for _, s := range []*Sequence{
		WinSequence(),
		LoseSequence(),
		ScaredSequence(),
		RainbowSequence(3 * time.Second),
	} {
		r.Register(s)
	}
	return r
}

// Register adds a sequence to the registry, replacing any same-named one.
func (r *Registry) Register(s *Sequence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences[s.Name] = s
}

// Get retrieves a sequence by name.
func (r *Registry) Get(name string) (*Sequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sequences[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s, nil
}

// List returns all registered sequence names, sorted alphabetically.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sequences))
	for name := range r.sequences {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
