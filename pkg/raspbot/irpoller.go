package raspbot

import (
	"context"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
)

// IRPoller polls the IR receiver and delivers fresh codes to a callback.
// Debounce of held buttons is the consumer's concern; the poller only
// forwards what the bridge decoded.
type IRPoller struct {
	reader   IRReader
	interval time.Duration

	// OnCode receives each fresh code. Must be set before Run.
	OnCode func(code byte)
}

// NewIRPoller creates a poller at the default 50ms interval.
func NewIRPoller(reader IRReader) *IRPoller {
	return &IRPoller{
		reader:   reader,
		interval: 50 * time.Millisecond,
	}
}

// SetInterval overrides the poll interval. Call before Run.
func (p *IRPoller) SetInterval(d time.Duration) {
	if d > 0 {
		p.interval = d
	}
}

// Run polls until the context is cancelled. Read errors are logged and
// polling continues; the bridge may restart underneath us.
func (p *IRPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var failures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			code, fresh, err := p.reader.ReadIR()
			if err != nil {
				failures++
				if failures == 1 || failures%100 == 0 {
					log.Warn("ir poll failed", "error", err, "failures", failures)
				}
				continue
			}
			failures = 0
			if fresh && p.OnCode != nil {
				p.OnCode(code)
			}
		}
	}
}
