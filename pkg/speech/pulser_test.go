package speech

import (
	"math"
	"testing"
)

const hopSamples = SampleRate * HopMS / 1000

// tone builds n samples of constant amplitude, loud enough to sit well
// above the default gate floor.
func tone(n int, amplitude int16) []int16 {
	s := make([]int16, n)
	for i := range s {
		s[i] = amplitude
	}
	return s
}

func collectLevels(p *Pulser) *[]float64 {
	levels := &[]float64{}
	p.OnLevel = func(level float64) {
		*levels = append(*levels, level)
	}
	return levels
}

func TestPulserRisesOnLoudAudio(t *testing.T) {
	p := NewPulser(DefaultConfig())
	levels := collectLevels(p)

	p.Feed(tone(hopSamples*5, 8000), SampleRate)

	if len(*levels) != 5 {
		t.Fatalf("expected 5 level updates, got %d", len(*levels))
	}
	if (*levels)[0] != 0 {
		t.Errorf("first hop should still be gated, got %f", (*levels)[0])
	}
	if last := (*levels)[4]; last < 0.8 {
		t.Errorf("expected level near 1 after sustained loud audio, got %f", last)
	}
}

func TestPulserDecaysToZeroOnSilence(t *testing.T) {
	p := NewPulser(DefaultConfig())
	levels := collectLevels(p)

	p.Feed(tone(hopSamples*5, 8000), SampleRate)
	p.Feed(make([]int16, hopSamples*12), SampleRate)

	if len(*levels) != 17 {
		t.Fatalf("expected 17 level updates, got %d", len(*levels))
	}
	if final := (*levels)[16]; final != 0 {
		t.Errorf("expected level to settle at 0 after silence, got %f", final)
	}

	// The decay should be gradual, not a cliff.
	if (*levels)[5] < 0.2 {
		t.Errorf("expected envelope to ease down, got %f right after silence", (*levels)[5])
	}
}

func TestPulserIgnoresSingleLoudHop(t *testing.T) {
	p := NewPulser(DefaultConfig())
	levels := collectLevels(p)

	p.Feed(make([]int16, hopSamples*3), SampleRate)
	p.Feed(tone(hopSamples, 8000), SampleRate)
	p.Feed(make([]int16, hopSamples*5), SampleRate)

	for i, level := range *levels {
		if level != 0 {
			t.Errorf("hop %d: one loud hop should not open the gate, got %f", i, level)
		}
	}
}

func TestPulserResamplesInput(t *testing.T) {
	p := NewPulser(DefaultConfig())
	levels := collectLevels(p)

	// 9600 samples at 48kHz resample to 3200 at 16kHz: four hops.
	p.Feed(tone(9600, 8000), 48000)

	if len(*levels) != 4 {
		t.Errorf("expected 4 level updates from resampled audio, got %d", len(*levels))
	}
}

func TestPulserBuffersPartialHops(t *testing.T) {
	p := NewPulser(DefaultConfig())
	levels := collectLevels(p)

	// Three feeds of half a hop each: updates land on hop boundaries.
	half := hopSamples / 2
	p.Feed(tone(half, 8000), SampleRate)
	if len(*levels) != 0 {
		t.Fatalf("half a hop should not emit a level, got %d updates", len(*levels))
	}
	p.Feed(tone(half, 8000), SampleRate)
	if len(*levels) != 1 {
		t.Fatalf("expected 1 update after a full hop, got %d", len(*levels))
	}
	p.Feed(tone(half, 8000), SampleRate)
	if len(*levels) != 1 {
		t.Errorf("expected no update on the dangling half hop, got %d", len(*levels))
	}
}

func TestPulserReset(t *testing.T) {
	p := NewPulser(DefaultConfig())
	levels := collectLevels(p)

	p.Feed(tone(hopSamples*5, 8000), SampleRate)
	if p.Level() == 0 {
		t.Fatal("expected nonzero level before reset")
	}

	p.Reset()

	if p.Level() != 0 {
		t.Errorf("expected level 0 after reset, got %f", p.Level())
	}
	if final := (*levels)[len(*levels)-1]; final != 0 {
		t.Errorf("reset should emit a zero level, got %f", final)
	}
}

func TestRMSDBFS(t *testing.T) {
	if db := rmsDBFS(make([]int16, 100)); db != -96 {
		t.Errorf("silence should read -96 dBFS, got %f", db)
	}

	// Half scale reads about -6dBFS.
	db := rmsDBFS(tone(100, 16384))
	if math.Abs(db-(-6.02)) > 0.1 {
		t.Errorf("half scale should read about -6 dBFS, got %f", db)
	}

	if db := rmsDBFS(nil); db != -96 {
		t.Errorf("empty frame should read -96 dBFS, got %f", db)
	}
}

func TestLoudnessMapping(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{-50, 0},
		{-60, 0},
		{-32.5, 0.5},
		{-15, 1},
		{-5, 1},
	}
	for _, tt := range tests {
		got := loudness(tt.db, -50, -15)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("loudness(%f) = %f, want %f", tt.db, got, tt.want)
		}
	}
}
