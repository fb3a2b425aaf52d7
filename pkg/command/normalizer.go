package command

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// IR remote codes as decoded by the hardware bridge.
const (
	CodeExit         byte = 0x00
	CodeTrackRed     byte = 0x01
	CodeAiChat       byte = 0x02
	CodeTrackBlue    byte = 0x04
	CodeStopAll      byte = 0x05
	CodeTrackGreen   byte = 0x06
	CodeTrackYellow  byte = 0x09
	CodeFaceTrack    byte = 0x10
	CodeGesture      byte = 0x11
	CodeObjects      byte = 0x12
	CodePlate        byte = 0x14
	CodePresentation byte = 0x15
	CodeRpsGame      byte = 0x19
)

// irSelects maps IR codes to mode selections. StopAll and Exit are
// handled separately so they reach the priority lane.
var irSelects = map[byte]modes.Mode{
	CodeTrackRed:     modes.ColorTrack(modes.ColorRed),
	CodeTrackBlue:    modes.ColorTrack(modes.ColorBlue),
	CodeTrackGreen:   modes.ColorTrack(modes.ColorGreen),
	CodeTrackYellow:  modes.ColorTrack(modes.ColorYellow),
	CodeFaceTrack:    modes.FaceTrack(),
	CodeGesture:      modes.GestureControl(),
	CodeObjects:      modes.ObjectRecognition(),
	CodePlate:        modes.LicensePlate(),
	CodePresentation: modes.Presentation(),
	CodeRpsGame:      modes.RpsGame(),
	CodeAiChat:       modes.AiChat(),
}

// DefaultIRDebounce suppresses a repeated IR code within this window.
// Remotes repeat the code while the button is held.
const DefaultIRDebounce = 400 * time.Millisecond

// Normalizer turns raw input signals into queued command events. It is
// the only Push surface the input paths use.
type Normalizer struct {
	queue   *Queue
	limiter *rate.Limiter

	// IRDebounce is the same-code suppression window.
	IRDebounce time.Duration

	mu       sync.Mutex
	lastCode byte
	lastAt   time.Time

	unknown   atomic.Uint64
	debounced atomic.Uint64
}

// NewNormalizer creates a normalizer feeding the given queue. Unknown
// code diagnostics are rate limited so a stuck remote cannot flood the
// log.
func NewNormalizer(q *Queue) *Normalizer {
	return &Normalizer{
		queue:      q,
		limiter:    rate.NewLimiter(rate.Every(5*time.Second), 3),
		IRDebounce: DefaultIRDebounce,
	}
}

// HandleIRCode processes one decoded IR press.
func (n *Normalizer) HandleIRCode(code byte) {
	n.mu.Lock()
	now := time.Now()
	if code == n.lastCode && now.Sub(n.lastAt) < n.IRDebounce {
		n.lastAt = now
		n.mu.Unlock()
		n.debounced.Add(1)
		return
	}
	n.lastCode = code
	n.lastAt = now
	n.mu.Unlock()

	switch code {
	case CodeStopAll:
		n.queue.Push(New(KindStopAll, SourceRemote))
	case CodeExit:
		n.queue.Push(New(KindExit, SourceRemote))
	default:
		mode, ok := irSelects[code]
		if !ok {
			n.unknown.Add(1)
			if n.limiter.Allow() {
				log.Warn("dropping unknown ir code", "code", fmt.Sprintf("0x%02x", code), "total", n.unknown.Load())
			}
			return
		}
		n.queue.Push(NewSelect(mode, SourceRemote))
	}
}

// HandleRemoteCommand processes a dashboard or relay command. Action is
// one of "select_mode", "stop_all", "exit".
func (n *Normalizer) HandleRemoteCommand(action, modeName, colorName string, src Source) error {
	switch action {
	case "stop_all":
		n.queue.Push(New(KindStopAll, src))
		return nil
	case "exit":
		n.queue.Push(New(KindExit, src))
		return nil
	case "select_mode":
		kind, err := modes.ParseKind(modeName)
		if err != nil {
			return err
		}
		color, err := modes.ParseColor(colorName)
		if err != nil {
			return err
		}
		n.queue.Push(NewSelect(modes.Mode{Kind: kind, Color: color}, src))
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// SelectMode queues a mode selection from the given source. Used by the
// voice grammar and the scheduler.
func (n *Normalizer) SelectMode(m modes.Mode, src Source) {
	n.queue.Push(NewSelect(m, src))
}

// StopAll queues a stop-all from the given source.
func (n *Normalizer) StopAll(src Source) {
	n.queue.Push(New(KindStopAll, src))
}

// Exit queues a shutdown request from the given source.
func (n *Normalizer) Exit(src Source) {
	n.queue.Push(New(KindExit, src))
}

// ProximityApproach reports the sonar crossing into the near band.
func (n *Normalizer) ProximityApproach() {
	n.queue.Push(New(KindProximityApproach, SourceSensor))
}

// ProximityRecede reports the sonar leaving the near band quickly.
func (n *Normalizer) ProximityRecede() {
	n.queue.Push(New(KindProximityRecede, SourceSensor))
}

// LiftDetected reports all line trackers losing the surface.
func (n *Normalizer) LiftDetected() {
	n.queue.Push(New(KindLiftDetected, SourceSensor))
}

// Tap reports a tap on the shell.
func (n *Normalizer) Tap() {
	n.queue.Push(New(KindTap, SourceTouch))
}

// Pat reports a sustained pat on the shell.
func (n *Normalizer) Pat() {
	n.queue.Push(New(KindPat, SourceTouch))
}

// UnknownCodes returns how many unmapped IR codes were dropped.
func (n *Normalizer) UnknownCodes() uint64 {
	return n.unknown.Load()
}

// DebouncedCodes returns how many repeated IR codes were suppressed.
func (n *Normalizer) DebouncedCodes() uint64 {
	return n.debounced.Load()
}
