package app

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/audio"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/movement"
	"github.com/teslashibe/go-raspbot/pkg/orchestrator"
	"github.com/teslashibe/go-raspbot/pkg/raspbot"
)

// speakTimeout bounds one fire-and-forget utterance, synthesis and
// playback included.
const speakTimeout = 15 * time.Second

// pulseOnLevel is the speech envelope level above which the strip
// relights during an utterance.
const pulseOnLevel = 0.35

// ledStrip adapts the bridge LED controller to the renderer's strip
// surface and layers the speech pulse on top: the strip drops dark in
// the quiet stretches of an utterance and relights on the loud ones,
// so the lights follow the voice. The steady emotion color returns
// when the envelope settles back to zero.
type ledStrip struct {
	leds raspbot.LEDController

	mu   sync.Mutex
	last emotion.LEDColor
	lit  bool
}

func newLEDStrip(leds raspbot.LEDController) *ledStrip {
	return &ledStrip{leds: leds, lit: true}
}

var _ emotion.StripWriter = (*ledStrip)(nil)

// ShowColor paints the whole strip and remembers the color so the
// speech pulse can restore it.
func (s *ledStrip) ShowColor(c emotion.LEDColor) error {
	s.mu.Lock()
	s.last = c
	s.lit = true
	s.mu.Unlock()
	return s.paint(c)
}

// Off darkens the strip until the next ShowColor.
func (s *ledStrip) Off() error {
	s.mu.Lock()
	s.last = emotion.LEDOff
	s.lit = false
	s.mu.Unlock()
	return s.leds.Off()
}

// Pulse follows the speech envelope. Level zero restores the steady
// color. Writes go out only on lit transitions so the periodic level
// callback does not hammer the bridge.
func (s *ledStrip) Pulse(level float64) {
	lit := level == 0 || level >= pulseOnLevel

	s.mu.Lock()
	if s.last == emotion.LEDOff || lit == s.lit {
		s.mu.Unlock()
		return
	}
	s.lit = lit
	c := s.last
	s.mu.Unlock()

	var err error
	if lit {
		err = s.paint(c)
	} else {
		err = s.leds.Off()
	}
	if err != nil {
		log.Debug("speech pulse write failed", "error", err)
	}
}

func (s *ledStrip) paint(c emotion.LEDColor) error {
	if c == emotion.LEDOff {
		return s.leds.Off()
	}
	return s.leds.SetAll(stripColor(c))
}

// stripColor maps the renderer palette onto the bridge palette. The
// two enums are not value compatible, so the mapping is explicit.
func stripColor(c emotion.LEDColor) raspbot.Color {
	switch c {
	case emotion.LEDRed:
		return raspbot.ColorRed
	case emotion.LEDGreen:
		return raspbot.ColorGreen
	case emotion.LEDBlue:
		return raspbot.ColorBlue
	case emotion.LEDYellow:
		return raspbot.ColorYellow
	case emotion.LEDPurple:
		return raspbot.ColorPurple
	case emotion.LEDCyan:
		return raspbot.ColorCyan
	default:
		return raspbot.ColorWhite
	}
}

// robotOutputs is the surface reactions drive: the shared voice, the
// buzzer, the LED sequences, and the wheels.
type robotOutputs struct {
	speaker  *audio.Speaker
	beeper   raspbot.BeepController
	renderer *emotion.Renderer
	moves    *movement.Manager
}

var _ orchestrator.Outputs = (*robotOutputs)(nil)

// Speak says the line without blocking the caller. Reactions hold
// their emotion independently, so there is nothing to wait for here.
func (o *robotOutputs) Speak(text string) {
	if o.speaker == nil || text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
		defer cancel()
		if err := o.speaker.Say(ctx, text); err != nil {
			log.Warn("speech failed", "error", err)
		}
	}()
}

func (o *robotOutputs) Beep(d time.Duration) {
	if o.beeper == nil {
		return
	}
	if err := o.beeper.Beep(d); err != nil {
		log.Warn("beep failed", "error", err)
	}
}

func (o *robotOutputs) PlaySequence(name string) {
	if o.renderer == nil {
		return
	}
	if err := o.renderer.PlaySequence(name); err != nil {
		log.Debug("led sequence skipped", "sequence", name, "error", err)
	}
}

func (o *robotOutputs) QueueMove(m movement.Move) {
	if o.moves != nil {
		o.moves.QueueMove(m)
	}
}

func (o *robotOutputs) Halt() {
	if o.moves != nil {
		o.moves.Halt()
	}
}

// seqLights adapts the renderer to the fire-and-forget lights surface
// the game and presentation subsystems expect.
type seqLights struct {
	renderer *emotion.Renderer
}

func (l seqLights) PlaySequence(name string) {
	if err := l.renderer.PlaySequence(name); err != nil {
		log.Debug("led sequence skipped", "sequence", name, "error", err)
	}
}

// buzzer adapts the bridge beeper, dropping the error the subsystem
// loops have no use for.
type buzzer struct {
	hw raspbot.BeepController
}

func (b buzzer) Beep(d time.Duration) {
	if err := b.hw.Beep(d); err != nil {
		log.Debug("beep failed", "error", err)
	}
}
