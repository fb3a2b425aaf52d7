package emotion

import (
	"context"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
)

// StripWriter is the hardware surface the renderer drives. The app wires
// it to the LED strip through the bridge.
type StripWriter interface {
	ShowColor(c LEDColor) error
	Off() error
}

// Renderer is the LED output sink. It polls the Broadcaster on its own
// cadence and keeps the strip showing the color for the current emotion.
// Sequence playback (win, lose, rainbow) preempts the steady color and
// the renderer repaints from the broadcaster afterwards.
type Renderer struct {
	broadcaster *Broadcaster
	strip       StripWriter
	registry    *Registry
	player      *Player
	interval    time.Duration
	reqCh       chan *Sequence

	lastSeq     uint64
	lastEmotion Emotion
	painted     bool
}

// NewRenderer creates a renderer polling at 100ms.
func NewRenderer(b *Broadcaster, strip StripWriter, registry *Registry) *Renderer {
	return &Renderer{
		broadcaster: b,
		strip:       strip,
		registry:    registry,
		player:      NewPlayer(),
		interval:    100 * time.Millisecond,
		reqCh:       make(chan *Sequence, 1),
	}
}

// PlaySequence requests playback of a registered sequence. Non-blocking;
// returns ErrAlreadyPlaying if a request is already pending.
func (r *Renderer) PlaySequence(name string) error {
	seq, err := r.registry.Get(name)
	if err != nil {
		return err
	}
	select {
	case r.reqCh <- seq:
		return nil
	default:
		return ErrAlreadyPlaying
	}
}

// Run drives the strip until the context is cancelled. The strip is
// turned off on exit.
func (r *Renderer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.strip.Off()

	r.refresh(ctx, true)
	for {
		select {
		case <-ctx.Done():
			return

		case seq := <-r.reqCh:
			r.playNow(ctx, seq)
			r.refresh(ctx, true)

		case <-ticker.C:
			r.refresh(ctx, false)
		}
	}
}

// refresh repaints the strip when the broadcaster has a newer state.
func (r *Renderer) refresh(ctx context.Context, force bool) {
	st, seqNo := r.broadcaster.Snapshot()
	if !force && r.painted && seqNo == r.lastSeq {
		return
	}

	// Entering scared plays the blink pattern before settling on solid.
	if st.Emotion == Scared && (!r.painted || r.lastEmotion != Scared) {
		if seq, err := r.registry.Get("scared"); err == nil {
			r.playNow(ctx, seq)
		}
	}

	if err := r.strip.ShowColor(ColorFor(st.Emotion)); err != nil {
		log.Warn("led repaint failed", "error", err)
	}
	r.lastSeq = seqNo
	r.lastEmotion = st.Emotion
	r.painted = true
}

func (r *Renderer) playNow(ctx context.Context, seq *Sequence) {
	err := r.player.Play(ctx, seq, func(c LEDColor, _ time.Duration) bool {
		if err := r.strip.ShowColor(c); err != nil {
			log.Warn("led sequence write failed", "sequence", seq.Name, "error", err)
		}
		return true
	})
	if err != nil && err != context.Canceled {
		log.Warn("led sequence aborted", "sequence", seq.Name, "error", err)
	}
}
