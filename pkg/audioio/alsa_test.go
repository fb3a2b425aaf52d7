package audioio

import (
	"context"
	"io"
	"testing"
)

func sameArgs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCaptureArgs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "plughw:1,0"

	got := captureArgs(cfg)
	want := []string{"-q", "-D", "plughw:1,0", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "raw"}

	if !sameArgs(got, want) {
		t.Errorf("captureArgs = %v, want %v", got, want)
	}
}

func TestCaptureArgs_DefaultDevice(t *testing.T) {
	cfg := DefaultConfig()

	got := captureArgs(cfg)
	if got[2] != "default" {
		t.Errorf("expected default device, got %q", got[2])
	}
}

func TestPlaybackArgs(t *testing.T) {
	got := playbackArgs("hw:0,0", 22050, 1)
	want := []string{"-q", "-D", "hw:0,0", "-f", "S16_LE", "-r", "22050", "-c", "1", "-t", "raw"}

	if !sameArgs(got, want) {
		t.Errorf("playbackArgs = %v, want %v", got, want)
	}
}

func TestALSASource_ReadBeforeStart(t *testing.T) {
	src, err := newALSASource(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("newALSASource failed: %v", err)
	}

	_, err = src.Read(context.Background())
	if err != io.EOF {
		t.Errorf("expected io.EOF before start, got %v", err)
	}
}

func TestALSASource_StartAfterClose(t *testing.T) {
	src, err := newALSASource(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("newALSASource failed: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := src.Start(context.Background()); err != io.ErrClosedPipe {
		t.Errorf("expected ErrClosedPipe after close, got %v", err)
	}
}

func TestALSASink_WriteBeforeStart(t *testing.T) {
	sink, err := newALSASink(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("newALSASink failed: %v", err)
	}

	chunk := AudioChunk{
		Samples:    make([]int16, 320),
		SampleRate: 16000,
		Channels:   1,
	}

	if err := sink.Write(context.Background(), chunk); err != io.ErrClosedPipe {
		t.Errorf("expected ErrClosedPipe before start, got %v", err)
	}
}

func TestALSASink_FlushIdle(t *testing.T) {
	sink, err := newALSASink(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("newALSASink failed: %v", err)
	}

	if err := sink.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// No process has been spawned yet, Flush has nothing to wait for.
	if err := sink.Flush(context.Background()); err != nil {
		t.Errorf("Flush on idle sink failed: %v", err)
	}
}

func TestALSASink_StartAfterClose(t *testing.T) {
	sink, err := newALSASink(DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("newALSASink failed: %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := sink.Start(context.Background()); err != io.ErrClosedPipe {
		t.Errorf("expected ErrClosedPipe after close, got %v", err)
	}
}
