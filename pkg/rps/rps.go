// Package rps runs the rock-paper-scissors game mode.
//
// The robot calls each round, watches the player's hand through the
// gesture detector, and reacts with a spoken line and some
// choreography. A round is a shoot phrase, a beeped countdown, a short
// capture window, then the verdict. The loop repeats until the mode is
// torn down, which earns the player a goodbye line.
package rps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/movement"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// Config tunes the pacing of a game.
type Config struct {
	// IntroPause follows the start line before the first round.
	IntroPause time.Duration

	// CountdownBeeps cues the player that the capture window is about
	// to open. Zero disables the countdown.
	CountdownBeeps int

	// BeepLength and BeepGap shape each countdown beep.
	BeepLength time.Duration
	BeepGap    time.Duration

	// ShootLead is the grace between the countdown and the capture
	// window, time for the player to commit to a shape.
	ShootLead time.Duration

	// CaptureWindow is how long the camera watches for a hand.
	CaptureWindow time.Duration

	// SampleEvery is the gesture poll interval inside the window.
	SampleEvery time.Duration

	// RevealPause sits between the capture window and the verdict.
	RevealPause time.Duration

	// ResultPause lets the reaction play out before cleanup.
	ResultPause time.Duration

	// NextMatchPause follows the next-match line.
	NextMatchPause time.Duration

	// SayTimeout bounds synthesis and playback of a single line.
	SayTimeout time.Duration

	// FarewellTimeout bounds the goodbye line on teardown. Keep it
	// inside the mode teardown grace or the goodbye gets cut off.
	FarewellTimeout time.Duration
}

// DefaultConfig returns the pacing used on the robot.
func DefaultConfig() Config {
	return Config{
		IntroPause:      time.Second,
		CountdownBeeps:  3,
		BeepLength:      80 * time.Millisecond,
		BeepGap:         220 * time.Millisecond,
		ShootLead:       300 * time.Millisecond,
		CaptureWindow:   2 * time.Second,
		SampleEvery:     50 * time.Millisecond,
		RevealPause:     time.Second,
		ResultPause:     2 * time.Second,
		NextMatchPause:  time.Second,
		SayTimeout:      10 * time.Second,
		FarewellTimeout: 3 * time.Second,
	}
}

// Validate checks the pacing for values the game loop cannot run with.
func (c Config) Validate() error {
	if c.CaptureWindow <= 0 {
		return errors.New("rps: capture window must be positive")
	}
	if c.SampleEvery <= 0 {
		return errors.New("rps: sample interval must be positive")
	}
	if c.SampleEvery > c.CaptureWindow {
		return errors.New("rps: sample interval exceeds capture window")
	}
	if c.CountdownBeeps < 0 {
		return errors.New("rps: countdown beeps must not be negative")
	}
	if c.SayTimeout <= 0 || c.FarewellTimeout <= 0 {
		return errors.New("rps: say timeouts must be positive")
	}
	return nil
}

// GestureSource yields finger counts from the camera. ok is false when
// no hand is in view.
type GestureSource interface {
	Sample(ctx context.Context) (fingers int, ok bool, err error)
}

// Voice speaks one line and returns when playback ends.
type Voice interface {
	Say(ctx context.Context, text string) error
}

// MoveSink queues celebration moves and stops the wheels.
type MoveSink interface {
	QueueMove(m movement.Move)
	StopMove()
	Halt()
}

// Lights plays a named LED sequence.
type Lights interface {
	PlaySequence(name string)
}

// Beeper plays a short tone.
type Beeper interface {
	Beep(d time.Duration)
}

// Deps are the game's collaborators. Gestures is the only hard
// requirement; without the rest the game still runs, just quieter and
// stiller.
type Deps struct {
	Gestures GestureSource
	Voice    Voice
	Drive    MoveSink
	Lights   Lights
	Beeper   Beeper
	Emotions *emotion.Broadcaster
}

// Game plays rock-paper-scissors until its context is cancelled.
type Game struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger
	rng    *rand.Rand

	// pick selects the robot's throw.
	pick func() Move

	status atomic.Value

	mu                  sync.Mutex
	wins, losses, draws int
}

var _ resource.Subsystem = (*Game)(nil)

// New builds a game. The configuration is validated up front so a bad
// pacing value fails mode activation instead of a round.
func New(cfg Config, deps Deps) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Gestures == nil {
		return nil, errors.New("rps: gesture source is required")
	}

	g := &Game{
		cfg:    cfg,
		deps:   deps,
		logger: log.L().With("component", "rps"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	g.pick = func() Move { return Move(g.rng.Intn(3)) }
	g.status.Store("idle")
	return g, nil
}

// Run plays rounds until ctx is cancelled, then says goodbye. The
// farewell runs on its own short deadline because ctx is already dead
// by the time teardown reaches it.
func (g *Game) Run(ctx context.Context) error {
	defer func() {
		g.setStatus("finishing")
		fctx, cancel := context.WithTimeout(context.Background(), g.cfg.FarewellTimeout)
		defer cancel()
		g.say(fctx, g.line(endLines))
		g.stopMoving()
		g.feel(emotion.Neutral, 0.5)
		g.setStatus("idle")
	}()

	g.setStatus("starting")
	g.stopMoving()
	g.feel(emotion.Happy, 0.8)
	g.say(ctx, g.line(startLines))
	if !g.pause(ctx, g.cfg.IntroPause) {
		return nil
	}

	for round := 1; ctx.Err() == nil; round++ {
		g.playRound(ctx, round)
	}
	return nil
}

// Status reports the current phase and the running score.
func (g *Game) Status() string {
	g.mu.Lock()
	w, l, d := g.wins, g.losses, g.draws
	g.mu.Unlock()
	return fmt.Sprintf("%s, score %d-%d-%d", g.status.Load().(string), w, l, d)
}

// Score reports rounds the robot won, lost, and drew.
func (g *Game) Score() (wins, losses, draws int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.wins, g.losses, g.draws
}

func (g *Game) playRound(ctx context.Context, round int) {
	robot := g.pick()
	g.logger.Info("round starting", "round", round, "robot_move", robot.String())

	g.setStatus(fmt.Sprintf("round %d: shoot", round))
	g.say(ctx, g.line(shootPhrases))
	g.countdown(ctx)
	if !g.pause(ctx, g.cfg.ShootLead) {
		return
	}

	g.setStatus(fmt.Sprintf("round %d: watching", round))
	player, seen := g.capture(ctx)
	if ctx.Err() != nil {
		return
	}

	if !seen {
		g.feel(emotion.Confused, 0.7)
	}
	if !g.pause(ctx, g.cfg.RevealPause) {
		return
	}

	g.setStatus(fmt.Sprintf("round %d: verdict", round))
	if !seen {
		g.record(Draw)
		g.logger.Info("no hand seen, calling a draw", "round", round)
		g.say(ctx, lineNoGesture)
	} else {
		outcome := judge(robot, player)
		g.record(outcome)
		g.logger.Info("round scored",
			"round", round,
			"robot_move", robot.String(),
			"player_move", player.String(),
			"outcome", outcome.String())
		g.react(ctx, outcome)
	}
	if !g.pause(ctx, g.cfg.ResultPause) {
		return
	}

	// Reset between rounds so a dance or shake never bleeds into the
	// next capture window.
	g.stopMoving()
	g.feel(emotion.Neutral, 0.5)

	if ctx.Err() == nil {
		g.say(ctx, g.line(nextMatchLines))
		g.pause(ctx, g.cfg.NextMatchPause)
	}
}

// react performs the robot's response to a scored round.
func (g *Game) react(ctx context.Context, outcome Outcome) {
	switch outcome {
	case RobotWins:
		g.feel(emotion.Happy, 0.9)
		g.queueMove(movement.NewDanceRoutine())
		g.playLights("win")
		g.say(ctx, g.line(winLines))
	case PlayerWins:
		g.feel(emotion.Angry, 0.9)
		g.queueMove(movement.NewAngryShake())
		g.playLights("lose")
		g.say(ctx, g.line(loseLines))
	default:
		g.feel(emotion.Neutral, 0.5)
		g.say(ctx, g.line(drawLines))
	}
}

// capture watches for a hand until the window closes and takes a
// majority vote over every readable sample, so a single noisy frame
// loses to a steady hand.
func (g *Game) capture(ctx context.Context) (Move, bool) {
	wctx, cancel := context.WithTimeout(ctx, g.cfg.CaptureWindow)
	defer cancel()

	t := time.NewTicker(g.cfg.SampleEvery)
	defer t.Stop()

	var votes [3]int
	total := 0
	warned := false

	for {
		select {
		case <-wctx.Done():
			return majority(votes, total)
		case <-t.C:
			fingers, ok, err := g.deps.Gestures.Sample(wctx)
			if err != nil {
				if !warned && wctx.Err() == nil {
					g.logger.Warn("gesture sample failed", "error", err)
					warned = true
				}
				continue
			}
			if !ok {
				continue
			}
			if m, valid := moveFromFingers(fingers); valid {
				votes[m]++
				total++
			}
		}
	}
}

// majority returns the most voted move. Ties go to the earlier shape
// in rock, paper, scissors order.
func majority(votes [3]int, total int) (Move, bool) {
	if total == 0 {
		return 0, false
	}
	best := Rock
	for _, m := range []Move{Paper, Scissors} {
		if votes[m] > votes[best] {
			best = m
		}
	}
	return best, true
}

// countdown beeps the capture window open. The beeps stand in for the
// on-screen countdown the robot does not have.
func (g *Game) countdown(ctx context.Context) {
	if g.deps.Beeper == nil {
		return
	}
	for i := 0; i < g.cfg.CountdownBeeps; i++ {
		if ctx.Err() != nil {
			return
		}
		g.deps.Beeper.Beep(g.cfg.BeepLength)
		if !g.pause(ctx, g.cfg.BeepGap) {
			return
		}
	}
}

// pause sleeps for d and reports whether the full pause elapsed.
func (g *Game) pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (g *Game) say(ctx context.Context, text string) {
	if g.deps.Voice == nil || text == "" {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, g.cfg.SayTimeout)
	defer cancel()
	if err := g.deps.Voice.Say(sctx, text); err != nil && ctx.Err() == nil {
		g.logger.Warn("line dropped", "text", text, "error", err)
	}
}

func (g *Game) line(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *Game) feel(e emotion.Emotion, intensity float64) {
	if g.deps.Emotions != nil {
		g.deps.Emotions.Set(e, intensity, modes.RpsGame().String())
	}
}

func (g *Game) queueMove(m movement.Move) {
	if g.deps.Drive != nil {
		g.deps.Drive.QueueMove(m)
	}
}

func (g *Game) stopMoving() {
	if g.deps.Drive != nil {
		g.deps.Drive.StopMove()
		g.deps.Drive.Halt()
	}
}

func (g *Game) playLights(name string) {
	if g.deps.Lights != nil {
		g.deps.Lights.PlaySequence(name)
	}
}

func (g *Game) record(o Outcome) {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch o {
	case RobotWins:
		g.wins++
	case PlayerWins:
		g.losses++
	default:
		g.draws++
	}
}

func (g *Game) setStatus(s string) {
	g.status.Store(s)
}
