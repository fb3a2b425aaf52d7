package rps

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// steadyHand always shows the same finger count.
type steadyHand struct {
	mu      sync.Mutex
	fingers int
	found   bool
	err     error
	samples int
}

func (s *steadyHand) Sample(ctx context.Context) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples++
	return s.fingers, s.found, s.err
}

func (s *steadyHand) sampled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// voiceRecorder collects spoken lines along with the emotion that was
// broadcast when each line started.
type voiceRecorder struct {
	emo   *emotion.Broadcaster
	mu    sync.Mutex
	lines []string
	feels []emotion.Emotion
}

func (v *voiceRecorder) Say(ctx context.Context, text string) error {
	feel := v.emo.Current().Emotion
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lines = append(v.lines, text)
	v.feels = append(v.feels, feel)
	return nil
}

func (v *voiceRecorder) all() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.lines...)
}

func (v *voiceRecorder) feelFor(line string) (emotion.Emotion, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, l := range v.lines {
		if l == line {
			return v.feels[i], true
		}
	}
	return 0, false
}

func (v *voiceRecorder) anyFrom(pool []string) (string, bool) {
	for _, l := range v.all() {
		if inPool(l, pool) {
			return l, true
		}
	}
	return "", false
}

type moveRecorder struct {
	mu     sync.Mutex
	queued []string
	stops  int
	halts  int
}

func (r *moveRecorder) QueueMove(m movement.Move) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, m.Name())
}

func (r *moveRecorder) StopMove() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *moveRecorder) Halt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.halts++
}

func (r *moveRecorder) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.queued {
		if q == name {
			return true
		}
	}
	return false
}

func (r *moveRecorder) queuedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queued)
}

type lightRecorder struct {
	mu        sync.Mutex
	sequences []string
}

func (r *lightRecorder) PlaySequence(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences = append(r.sequences, name)
}

func (r *lightRecorder) played(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sequences {
		if s == name {
			n++
		}
	}
	return n
}

type beepRecorder struct {
	mu    sync.Mutex
	beeps int
}

func (r *beepRecorder) Beep(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps++
}

func (r *beepRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.beeps
}

func inPool(line string, pool []string) bool {
	for _, p := range pool {
		if line == p {
			return true
		}
	}
	return false
}

func testConfig() Config {
	return Config{
		IntroPause:      time.Millisecond,
		CountdownBeeps:  2,
		BeepLength:      time.Millisecond,
		BeepGap:         time.Millisecond,
		ShootLead:       time.Millisecond,
		CaptureWindow:   40 * time.Millisecond,
		SampleEvery:     5 * time.Millisecond,
		RevealPause:     time.Millisecond,
		ResultPause:     time.Millisecond,
		NextMatchPause:  time.Millisecond,
		SayTimeout:      time.Second,
		FarewellTimeout: time.Second,
	}
}

type rig struct {
	game   *Game
	hand   *steadyHand
	voice  *voiceRecorder
	drive  *moveRecorder
	lights *lightRecorder
	beeper *beepRecorder
	emo    *emotion.Broadcaster

	cancel  context.CancelFunc
	done    chan error
	stopped bool
}

// newRig starts a game with the robot's throw pinned so each round's
// outcome is decided by the scripted hand alone.
func newRig(t *testing.T, robot Move, hand *steadyHand) *rig {
	t.Helper()

	emo := emotion.NewBroadcaster()
	r := &rig{
		hand:   hand,
		voice:  &voiceRecorder{emo: emo},
		drive:  &moveRecorder{},
		lights: &lightRecorder{},
		beeper: &beepRecorder{},
		emo:    emo,
	}

	game, err := New(testConfig(), Deps{
		Gestures: hand,
		Voice:    r.voice,
		Drive:    r.drive,
		Lights:   r.lights,
		Beeper:   r.beeper,
		Emotions: emo,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	game.pick = func() Move { return robot }
	r.game = game

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan error, 1)
	go func() { r.done <- game.Run(ctx) }()

	t.Cleanup(func() { r.stop(t) })
	return r
}

func (r *rig) stop(t *testing.T) {
	t.Helper()
	if r.stopped {
		return
	}
	r.stopped = true
	r.cancel()
	select {
	case err := <-r.done:
		if err != nil {
			t.Errorf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("game did not stop")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresGestures(t *testing.T) {
	if _, err := New(DefaultConfig(), Deps{}); err == nil {
		t.Error("expected error for missing gesture source")
	}

	cfg := DefaultConfig()
	cfg.CaptureWindow = 0
	if _, err := New(cfg, Deps{Gestures: &steadyHand{}}); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestRobotWinsRound(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{fingers: 2, found: true})

	waitFor(t, "robot win", func() bool {
		w, _, _ := r.game.Score()
		return w >= 1
	})
	r.stop(t)

	lines := r.voice.all()
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 lines, got %v", lines)
	}
	if !inPool(lines[0], startLines) {
		t.Errorf("first line %q is not a start line", lines[0])
	}
	if !inPool(lines[1], shootPhrases) {
		t.Errorf("second line %q is not a shoot phrase", lines[1])
	}

	line, ok := r.voice.anyFrom(winLines)
	if !ok {
		t.Fatalf("no win line spoken in %v", lines)
	}
	if feel, _ := r.voice.feelFor(line); feel != emotion.Happy {
		t.Errorf("win line spoken with emotion %v, want happy", feel)
	}

	if !r.drive.has("dance") {
		t.Error("win did not queue the dance routine")
	}
	if r.lights.played("win") == 0 {
		t.Error("win did not play the win sequence")
	}
	if last := lines[len(lines)-1]; !inPool(last, endLines) {
		t.Errorf("last line %q is not an end line", last)
	}
}

func TestPlayerWinsRound(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{fingers: 5, found: true})

	waitFor(t, "player win", func() bool {
		_, l, _ := r.game.Score()
		return l >= 1
	})
	r.stop(t)

	line, ok := r.voice.anyFrom(loseLines)
	if !ok {
		t.Fatalf("no lose line spoken in %v", r.voice.all())
	}
	if feel, _ := r.voice.feelFor(line); feel != emotion.Angry {
		t.Errorf("lose line spoken with emotion %v, want angry", feel)
	}
	if !r.drive.has("angry-shake") {
		t.Error("loss did not queue the angry shake")
	}
	if r.lights.played("lose") == 0 {
		t.Error("loss did not play the lose sequence")
	}
}

func TestDrawRound(t *testing.T) {
	r := newRig(t, Scissors, &steadyHand{fingers: 3, found: true})

	waitFor(t, "draw", func() bool {
		_, _, d := r.game.Score()
		return d >= 1
	})
	r.stop(t)

	line, ok := r.voice.anyFrom(drawLines)
	if !ok {
		t.Fatalf("no draw line spoken in %v", r.voice.all())
	}
	if feel, _ := r.voice.feelFor(line); feel != emotion.Neutral {
		t.Errorf("draw line spoken with emotion %v, want neutral", feel)
	}
	if r.drive.has("dance") || r.drive.has("angry-shake") {
		t.Errorf("draw queued a reaction move: %v", r.drive.queued)
	}
	if r.lights.played("win")+r.lights.played("lose") != 0 {
		t.Error("draw played a result sequence")
	}
}

func TestNoGestureCallsDraw(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{found: false})

	waitFor(t, "draw call", func() bool {
		_, _, d := r.game.Score()
		return d >= 1
	})
	r.stop(t)

	feel, ok := r.voice.feelFor(lineNoGesture)
	if !ok {
		t.Fatalf("draw-call line not spoken in %v", r.voice.all())
	}
	if feel != emotion.Confused {
		t.Errorf("draw-call spoken with emotion %v, want confused", feel)
	}
	if r.drive.queuedCount() != 0 {
		t.Errorf("no-gesture round queued moves: %v", r.drive.queued)
	}
	if r.hand.sampled() == 0 {
		t.Error("gesture source was never sampled")
	}
}

func TestCountdownBeeps(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{fingers: 0, found: true})

	waitFor(t, "first round", func() bool {
		w, l, d := r.game.Score()
		return w+l+d >= 1
	})

	if got := r.beeper.count(); got < 2 {
		t.Errorf("beeped %d times, want at least 2", got)
	}
}

func TestPlaysMultipleRounds(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{fingers: 2, found: true})

	waitFor(t, "two wins", func() bool {
		w, _, _ := r.game.Score()
		return w >= 2
	})
	r.stop(t)

	if _, ok := r.voice.anyFrom(nextMatchLines); !ok {
		t.Errorf("no next-match line between rounds in %v", r.voice.all())
	}
	if got := r.lights.played("win"); got < 2 {
		t.Errorf("win sequence played %d times, want at least 2", got)
	}
}

func TestTeardownCleansUp(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{fingers: 2, found: true})

	waitFor(t, "first win", func() bool {
		w, _, _ := r.game.Score()
		return w >= 1
	})
	r.stop(t)

	lines := r.voice.all()
	if last := lines[len(lines)-1]; !inPool(last, endLines) {
		t.Errorf("last line %q is not an end line", last)
	}
	if r.drive.stops == 0 || r.drive.halts == 0 {
		t.Error("teardown did not stop the wheels")
	}
	if got := r.emo.Current().Emotion; got != emotion.Neutral {
		t.Errorf("emotion after teardown = %v, want neutral", got)
	}
	if !strings.HasPrefix(r.game.Status(), "idle") {
		t.Errorf("status after teardown = %q, want idle", r.game.Status())
	}
}

func TestStatusCarriesScore(t *testing.T) {
	r := newRig(t, Rock, &steadyHand{fingers: 2, found: true})

	waitFor(t, "first win", func() bool {
		w, _, _ := r.game.Score()
		return w >= 1
	})
	r.stop(t)

	w, l, d := r.game.Score()
	if w < 1 {
		t.Fatalf("wins = %d, want at least 1", w)
	}
	want := fmt.Sprintf("idle, score %d-%d-%d", w, l, d)
	if got := r.game.Status(); got != want {
		t.Errorf("Status() = %q, want %q", got, want)
	}
}

func TestCaptureStopsAtWindowClose(t *testing.T) {
	g, err := New(testConfig(), Deps{Gestures: &steadyHand{found: false}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	_, seen := g.capture(context.Background())
	elapsed := time.Since(start)

	if seen {
		t.Error("capture saw a hand that was never there")
	}
	if elapsed > g.cfg.CaptureWindow+500*time.Millisecond {
		t.Errorf("capture ran %v, want about %v", elapsed, g.cfg.CaptureWindow)
	}
}

func TestCaptureSurvivesSampleErrors(t *testing.T) {
	hand := &steadyHand{err: errors.New("camera read failed")}
	g, err := New(testConfig(), Deps{Gestures: hand})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, seen := g.capture(context.Background())
	if seen {
		t.Error("capture reported a hand despite sample errors")
	}
	if hand.sampled() == 0 {
		t.Error("capture gave up before sampling")
	}
}

func TestCaptureCountsSteadyHand(t *testing.T) {
	hand := &steadyHand{fingers: 5, found: true}
	g, err := New(testConfig(), Deps{Gestures: hand})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, seen := g.capture(context.Background())
	if !seen {
		t.Fatal("capture missed a steady hand")
	}
	if got != Paper {
		t.Errorf("capture = %v, want paper", got)
	}
}
