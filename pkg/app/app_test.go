package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/raspbot"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.WebPort = 0
	cfg.DataDir = t.TempDir()
	cfg.VoiceModelDir = t.TempDir()
	cfg.VoicePipeline = "mock"
	return cfg
}

func newTestApp(t *testing.T, cfg Config) *App {
	t.Helper()
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Hardware = raspbot.NewMock()
	return a
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"no bridge host", func(c *Config) { c.BridgeHost = "" }, "BridgeHost"},
		{"port too high", func(c *Config) { c.WebPort = 70000 }, "WebPort"},
		{"negative port", func(c *Config) { c.WebPort = -1 }, "WebPort"},
		{"no voice pipeline", func(c *Config) { c.VoicePipeline = "" }, "VoicePipeline"},
		{"no persona", func(c *Config) { c.Persona = "" }, "Persona"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %T", err)
			}
			if ce.Field != tc.field {
				t.Errorf("field = %q, want %q", ce.Field, tc.field)
			}
		})
	}
}

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("BRIDGE_HOST", "robot.local")
	t.Setenv("RELAY_URL", "ws://relay:8090/ws/robot")
	t.Setenv("RASPBOT_WEB_PORT", "9999")
	t.Setenv("RASPBOT_SCHEDULE", "0 9 * * 1,3,5=presentation; 0 18 * * *=stop")

	cfg := DefaultConfig()
	cfg.LoadEnvConfig()

	if cfg.BridgeHost != "robot.local" {
		t.Errorf("BridgeHost = %q", cfg.BridgeHost)
	}
	if cfg.RelayURL != "ws://relay:8090/ws/robot" {
		t.Errorf("RelayURL = %q", cfg.RelayURL)
	}
	if cfg.WebPort != 9999 {
		t.Errorf("WebPort = %d", cfg.WebPort)
	}
	want := []string{"0 9 * * 1,3,5=presentation", "0 18 * * *=stop"}
	if len(cfg.Schedule) != len(want) {
		t.Fatalf("Schedule = %v, want %v", cfg.Schedule, want)
	}
	for i := range want {
		if cfg.Schedule[i] != want[i] {
			t.Errorf("Schedule[%d] = %q, want %q", i, cfg.Schedule[i], want[i])
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"clean exit", nil, 0},
		{"teardown leak", fmt.Errorf("release color_track: %w", resource.ErrTeardownTimeout), 2},
		{"crash loop", &resource.CrashError{Mode: "ai_chat", Err: errors.New("boom")}, 3},
		{"wrapped crash loop", fmt.Errorf("engine: %w", &resource.CrashError{Mode: "face_track", Err: errors.New("boom")}), 3},
		{"anything else", errors.New("listen tcp :8080: address in use"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestLEDStripShowsColors(t *testing.T) {
	hw := raspbot.NewMock()
	strip := newLEDStrip(hw)

	if err := strip.ShowColor(emotion.LEDGreen); err != nil {
		t.Fatalf("ShowColor: %v", err)
	}
	calls := hw.LEDCalls()
	if len(calls) != 1 || calls[0].Index != -1 || calls[0].Color != raspbot.ColorGreen {
		t.Fatalf("LED calls = %+v", calls)
	}

	if err := strip.ShowColor(emotion.LEDOff); err != nil {
		t.Fatalf("ShowColor(off): %v", err)
	}
	if hw.OffCalls() != 1 {
		t.Errorf("off calls = %d, want 1", hw.OffCalls())
	}

	if err := strip.Off(); err != nil {
		t.Fatalf("Off: %v", err)
	}
	if hw.OffCalls() != 2 {
		t.Errorf("off calls = %d, want 2", hw.OffCalls())
	}
}

func TestLEDStripPulseFollowsTheVoice(t *testing.T) {
	hw := raspbot.NewMock()
	strip := newLEDStrip(hw)

	if err := strip.ShowColor(emotion.LEDCyan); err != nil {
		t.Fatalf("ShowColor: %v", err)
	}

	strip.Pulse(0.1) // quiet stretch, strip drops dark
	if hw.OffCalls() != 1 {
		t.Fatalf("off calls after quiet = %d, want 1", hw.OffCalls())
	}

	strip.Pulse(0.8) // loud, relight
	calls := hw.LEDCalls()
	if len(calls) != 2 || calls[1].Color != raspbot.ColorCyan {
		t.Fatalf("LED calls after loud = %+v", calls)
	}

	strip.Pulse(0.9) // still loud, no extra write
	if len(hw.LEDCalls()) != 2 {
		t.Errorf("LED calls = %d, want 2", len(hw.LEDCalls()))
	}

	strip.Pulse(0.1)
	strip.Pulse(0) // envelope settled, steady color returns
	calls = hw.LEDCalls()
	if len(calls) != 3 || calls[2].Color != raspbot.ColorCyan {
		t.Fatalf("LED calls after settle = %+v", calls)
	}
}

func TestLEDStripPulseLeavesDarkStripAlone(t *testing.T) {
	hw := raspbot.NewMock()
	strip := newLEDStrip(hw)

	if err := strip.Off(); err != nil {
		t.Fatalf("Off: %v", err)
	}
	strip.Pulse(0.9)
	strip.Pulse(0.1)
	if len(hw.LEDCalls()) != 0 {
		t.Errorf("LED calls = %+v, want none while dark", hw.LEDCalls())
	}
}

func TestStripColorCoversThePalette(t *testing.T) {
	cases := []struct {
		in   emotion.LEDColor
		want raspbot.Color
	}{
		{emotion.LEDRed, raspbot.ColorRed},
		{emotion.LEDGreen, raspbot.ColorGreen},
		{emotion.LEDBlue, raspbot.ColorBlue},
		{emotion.LEDYellow, raspbot.ColorYellow},
		{emotion.LEDPurple, raspbot.ColorPurple},
		{emotion.LEDCyan, raspbot.ColorCyan},
		{emotion.LEDWhite, raspbot.ColorWhite},
	}
	for _, tc := range cases {
		if got := stripColor(tc.in); got != tc.want {
			t.Errorf("stripColor(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestOutputsTolerateMissingPieces(t *testing.T) {
	var out robotOutputs
	out.Speak("hello")
	out.Beep(100 * time.Millisecond)
	out.PlaySequence("win")
	out.Halt()
}

func TestInitWiresTheEngine(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Shutdown()

	if got := len(a.registry.Kinds()); got != 8 {
		t.Errorf("registered kinds = %d, want 8", got)
	}

	spec, ok := a.registry.SpecFor(modes.Mode{Kind: modes.KindAiChat})
	if !ok {
		t.Fatal("no spec for chat")
	}
	if !spec.NeedsReclaim {
		t.Error("chat spec should request a memory reclaim")
	}
	wantDevices := map[resource.Device]bool{
		resource.DeviceMicrophone: true,
		resource.DeviceMotors:     true,
	}
	for _, d := range spec.Devices {
		if !wantDevices[d] {
			t.Errorf("unexpected chat device %v", d)
		}
		delete(wantDevices, d)
	}
	if len(wantDevices) != 0 {
		t.Errorf("chat spec missing devices %v", wantDevices)
	}

	// The chat subsystem is shared across activations.
	first, err := spec.New()
	if err != nil {
		t.Fatalf("chat New: %v", err)
	}
	second, err := spec.New()
	if err != nil {
		t.Fatalf("chat New again: %v", err)
	}
	if first != second {
		t.Error("chat activations should reuse one instance")
	}

	// Presentation needs no camera, so its builder works on a bench.
	spec, ok = a.registry.SpecFor(modes.Mode{Kind: modes.KindPresentation})
	if !ok {
		t.Fatal("no spec for presentation")
	}
	if len(spec.Devices) != 1 || spec.Devices[0] != resource.DeviceMotors {
		t.Errorf("presentation devices = %v, want motors only", spec.Devices)
	}
	if _, err := spec.New(); err != nil {
		t.Fatalf("presentation New: %v", err)
	}
}

func TestInitBuildsTheEdges(t *testing.T) {
	cfg := testConfig(t)
	cfg.WebPort = 18093
	cfg.RelayURL = "ws://127.0.0.1:9/ws/robot"
	cfg.Schedule = []string{"0 9 * * 1-5=presentation"}

	a := newTestApp(t, cfg)
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Shutdown()

	if a.webServer == nil {
		t.Fatal("dashboard not built")
	}
	if a.webServer.Ring() != a.ring {
		t.Error("dashboard should share the log ring the logger tees into")
	}
	if a.bridge == nil {
		t.Error("relay bridge not built")
	}
	if a.scheduler == nil || len(a.scheduler.Rules()) != 1 {
		t.Error("scheduler not built from the timetable")
	}
}

func TestInitRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule = []string{"not a rule"}

	a := newTestApp(t, cfg)
	if err := a.Init(); err == nil {
		t.Fatal("expected a schedule error")
	}
}

func TestInitRejectsUnknownVoicePipeline(t *testing.T) {
	cfg := testConfig(t)
	cfg.VoicePipeline = "no-such-recognizer"

	a := newTestApp(t, cfg)
	if err := a.Init(); err == nil {
		t.Fatal("expected a voice pipeline error")
	}
}

func TestRunLifecycle(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	// Drive a full mode round trip through the normalizer, the same
	// path the remote and the dashboard use.
	a.normalizer.SelectMode(modes.Mode{Kind: modes.KindPresentation}, command.SourceRemote)

	deadline := time.After(3 * time.Second)
	for a.engine.Mode().Kind != modes.KindPresentation {
		select {
		case <-deadline:
			t.Fatalf("mode = %v, never reached presentation", a.engine.Mode())
		case err := <-errCh:
			t.Fatalf("Run returned early: %v", err)
		case <-time.After(10 * time.Millisecond):
		}
	}

	a.normalizer.Exit(command.SourceRemote)

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if code := ExitCode(err); code != 0 {
			t.Errorf("exit code = %d, want 0", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after exit command")
	}
}
