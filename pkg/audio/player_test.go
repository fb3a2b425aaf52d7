package audio_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/audio"
	"github.com/teslashibe/go-raspbot/pkg/audioio"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestPlayer(t *testing.T) (*audio.Player, *audioio.MockSink, context.CancelFunc) {
	t.Helper()

	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("sink start failed: %v", err)
	}

	player := audio.NewPlayer(sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go player.Run(ctx)

	return player, sink, cancel
}

// clip builds a short utterance whose samples all carry the given marker
// value, so tests can tell clips apart at the tap.
func clip(marker int16, samples int) audio.Clip {
	s := make([]int16, samples)
	for i := range s {
		s[i] = marker
	}
	return audio.Clip{Samples: s, SampleRate: 16000, Text: "test"}
}

func TestPlayerPlaysQueuedClipsInOrder(t *testing.T) {
	player, sink, cancel := newTestPlayer(t)
	defer cancel()

	var mu sync.Mutex
	var order []int16
	player.Tap = func(samples []int16, rate int) {
		mu.Lock()
		defer mu.Unlock()
		if len(samples) > 0 && (len(order) == 0 || order[len(order)-1] != samples[0]) {
			order = append(order, samples[0])
		}
	}

	if err := player.Say(clip(1, 800)); err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if err := player.Say(clip(2, 800)); err != nil {
		t.Fatalf("Say failed: %v", err)
	}

	waitFor(t, "both clips to play", func() bool {
		return player.Stats().Played == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("expected clips in order [1 2], got %v", order)
	}

	if sink.Stats().ChunksWritten < 2 {
		t.Errorf("expected sink writes, got %d", sink.Stats().ChunksWritten)
	}
}

func TestPlayerCallbacksBracketPlayback(t *testing.T) {
	player, _, cancel := newTestPlayer(t)
	defer cancel()

	var mu sync.Mutex
	var events []string
	player.OnPlaybackStart = func() {
		mu.Lock()
		events = append(events, "start")
		mu.Unlock()
	}
	player.OnPlaybackEnd = func() {
		mu.Lock()
		events = append(events, "end")
		mu.Unlock()
	}

	if err := player.Say(clip(1, 1600)); err != nil {
		t.Fatalf("Say failed: %v", err)
	}

	waitFor(t, "playback to finish", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if events[0] != "start" || events[1] != "end" {
		t.Errorf("expected [start end], got %v", events)
	}

	if player.IsSpeaking() {
		t.Error("expected IsSpeaking false after playback")
	}
}

func TestPlayerTapSeesWholeClip(t *testing.T) {
	player, _, cancel := newTestPlayer(t)
	defer cancel()

	var mu sync.Mutex
	total := 0
	player.Tap = func(samples []int16, rate int) {
		mu.Lock()
		total += len(samples)
		mu.Unlock()
	}

	// 3500 samples at 16kHz splits into 1600 + 1600 + 300.
	if err := player.Say(clip(1, 3500)); err != nil {
		t.Fatalf("Say failed: %v", err)
	}

	waitFor(t, "clip to play", func() bool {
		return player.Stats().Played == 1
	})

	mu.Lock()
	defer mu.Unlock()
	if total != 3500 {
		t.Errorf("tap saw %d samples, want 3500", total)
	}
}

func TestPlayerSayQueueFull(t *testing.T) {
	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	player := audio.NewPlayer(sink, nil)
	// No Run loop: clips pile up in the queue.

	var err error
	for i := 0; i < 12; i++ {
		err = player.Say(clip(1, 100))
		if err != nil {
			break
		}
	}

	if !errors.Is(err, audio.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if player.Stats().Dropped != 1 {
		t.Errorf("expected 1 dropped clip, got %d", player.Stats().Dropped)
	}
}

func TestPlayerSayEmptyClip(t *testing.T) {
	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	player := audio.NewPlayer(sink, nil)

	if err := player.Say(audio.Clip{SampleRate: 16000}); err != nil {
		t.Fatalf("empty clip should be a no-op, got %v", err)
	}
	if player.Stats().Queued != 0 {
		t.Error("empty clip should not be queued")
	}
}

// gateSink blocks every Write until the test feeds the gate, which lets
// tests freeze the player mid-clip.
type gateSink struct {
	gate   chan struct{}
	mu     sync.Mutex
	writes int
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Start(ctx context.Context) error { return nil }
func (s *gateSink) Stop() error                     { return nil }
func (s *gateSink) Flush(ctx context.Context) error { return nil }
func (s *gateSink) Clear() error                    { return nil }
func (s *gateSink) Config() audioio.Config          { return audioio.DefaultConfig() }
func (s *gateSink) Name() string                    { return "gate" }
func (s *gateSink) Close() error                    { return nil }

func (s *gateSink) Write(ctx context.Context, chunk audioio.AudioChunk) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	select {
	case <-s.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *gateSink) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func TestPlayerCancelStopsMidClip(t *testing.T) {
	sink := newGateSink()
	player := audio.NewPlayer(sink, nil)

	ended := make(chan struct{})
	player.OnPlaybackEnd = func() { close(ended) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go player.Run(ctx)

	// Ten chunks worth of audio, plus more clips waiting behind it.
	if err := player.Say(clip(1, 16000)); err != nil {
		t.Fatalf("Say failed: %v", err)
	}
	if err := player.Say(clip(2, 1600)); err != nil {
		t.Fatalf("Say failed: %v", err)
	}

	waitFor(t, "first write to block", func() bool {
		return sink.writeCount() == 1
	})
	if !player.IsSpeaking() {
		t.Fatal("expected IsSpeaking during playback")
	}

	player.Cancel()
	sink.gate <- struct{}{} // release the blocked write

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("playback never ended after cancel")
	}

	if got := sink.writeCount(); got != 1 {
		t.Errorf("expected exactly 1 write before cancel took effect, got %d", got)
	}
	if player.Stats().Played != 0 {
		t.Error("cancelled clip should not count as played")
	}
	if player.Stats().Queued != 0 {
		t.Error("cancel should drain the queue")
	}
}
