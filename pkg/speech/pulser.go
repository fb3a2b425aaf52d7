// Package speech turns outgoing audio into control signals.
//
// The Pulser tracks the loudness of whatever the robot is saying and
// drives a level callback at 20Hz. The app maps that level onto the LED
// strip so the lights breathe with the voice.
package speech

import (
	"math"
	"sync"

	"github.com/teslashibe/go-raspbot/pkg/audioio"
)

const (
	// SampleRate is the internal analysis rate. Incoming audio at any
	// other rate is resampled to this before framing.
	SampleRate = 16000

	// HopMS is the hop between level updates. 50ms hops give the 20Hz
	// rate the LED strip refreshes at.
	HopMS = 50
)

// Config tunes the level follower.
type Config struct {
	// SilenceDBFS is the gate floor. Frames at or below read as silence.
	SilenceDBFS float64 `json:"silence_dbfs"`

	// LoudDBFS maps to level 1.0. Typical speech peaks land near -15.
	LoudDBFS float64 `json:"loud_dbfs"`

	// AttackFrames is how many consecutive loud hops open the gate.
	AttackFrames int `json:"attack_frames"`

	// ReleaseFrames is how many consecutive quiet hops close it.
	ReleaseFrames int `json:"release_frames"`

	// FollowGain smooths the output level (0..1, higher follows faster).
	FollowGain float64 `json:"follow_gain"`
}

// DefaultConfig returns the follower tuning used on the robot.
func DefaultConfig() Config {
	return Config{
		SilenceDBFS:   -50,
		LoudDBFS:      -15,
		AttackFrames:  2,
		ReleaseFrames: 6,
		FollowGain:    0.65,
	}
}

// Pulser converts a PCM stream into a smoothed loudness level.
//
// Feed it the same chunks that go to the speaker; every 50ms of audio
// produces one OnLevel call. A hysteresis gate keeps single noisy hops
// from flickering the lights, and an envelope follower keeps the level
// from jumping.
type Pulser struct {
	cfg Config

	// OnLevel receives the smoothed level (0..1) once per hop.
	// It runs on the caller's goroutine.
	OnLevel func(level float64)

	mu     sync.Mutex
	buf    []int16
	env    float64
	active bool
	run    int
}

// NewPulser creates a pulser with the given tuning.
func NewPulser(cfg Config) *Pulser {
	return &Pulser{cfg: cfg}
}

// Feed consumes outgoing PCM. Chunks may be any size; the pulser frames
// them internally and emits one level per 50ms hop.
func (p *Pulser) Feed(samples []int16, sampleRate int) {
	if len(samples) == 0 {
		return
	}
	if sampleRate > 0 && sampleRate != SampleRate {
		samples = audioio.Resample(samples, sampleRate, SampleRate)
	}

	hop := SampleRate * HopMS / 1000

	p.mu.Lock()
	p.buf = append(p.buf, samples...)
	var levels []float64
	for len(p.buf) >= hop {
		levels = append(levels, p.processHop(p.buf[:hop]))
		p.buf = p.buf[hop:]
	}
	cb := p.OnLevel
	p.mu.Unlock()

	if cb != nil {
		for _, level := range levels {
			cb(level)
		}
	}
}

// Reset drops buffered audio and snaps the level to zero. Call it when
// playback ends or is cancelled so the lights do not hold a stale level.
func (p *Pulser) Reset() {
	p.mu.Lock()
	p.buf = p.buf[:0]
	p.env = 0
	p.active = false
	p.run = 0
	cb := p.OnLevel
	p.mu.Unlock()

	if cb != nil {
		cb(0)
	}
}

// Level returns the current smoothed level.
func (p *Pulser) Level() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.env
}

// processHop updates the gate and envelope for one hop of audio.
// Caller holds p.mu.
func (p *Pulser) processHop(frame []int16) float64 {
	db := rmsDBFS(frame)

	// Hysteresis: the gate only flips after a run of hops on the other
	// side, so one noisy hop cannot flicker the state.
	if p.active {
		if db <= p.cfg.SilenceDBFS {
			p.run++
			if p.run >= p.cfg.ReleaseFrames {
				p.active = false
				p.run = 0
			}
		} else {
			p.run = 0
		}
	} else {
		if db > p.cfg.SilenceDBFS {
			p.run++
			if p.run >= p.cfg.AttackFrames {
				p.active = true
				p.run = 0
			}
		} else {
			p.run = 0
		}
	}

	target := 0.0
	if p.active {
		target = loudness(db, p.cfg.SilenceDBFS, p.cfg.LoudDBFS)
	}

	p.env += (target - p.env) * p.cfg.FollowGain
	if p.env < 0.001 {
		p.env = 0
	}
	return p.env
}

// rmsDBFS computes the RMS level of a frame in dBFS.
func rmsDBFS(frame []int16) float64 {
	if len(frame) == 0 {
		return -96
	}
	var sum float64
	for _, s := range frame {
		f := float64(s) / 32768
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(frame)))
	if rms < 1e-5 {
		return -96
	}
	return 20 * math.Log10(rms)
}

// loudness maps a dBFS reading onto 0..1 between the gate floor and the
// loud ceiling.
func loudness(db, floor, ceil float64) float64 {
	if ceil <= floor {
		return 1
	}
	v := (db - floor) / (ceil - floor)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
