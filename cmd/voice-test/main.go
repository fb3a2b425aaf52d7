// Command voice-test exercises the voice stack on the bench, without
// the rest of the controller. It listens on the chosen recognizer
// pipeline and prints transcripts, and can speak a test line through
// the synthesizer chain first.
//
// Usage:
//
//	go run ./cmd/voice-test --pipeline vosk --listen 30s
//	go run ./cmd/voice-test --say "hello from the bench"
//	go run ./cmd/voice-test --pipeline mock --listen 5s
//
// A vosk-server must be reachable at VOSK_URL (default
// ws://127.0.0.1:2700) for the vosk pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-raspbot/internal/config"
	intlog "github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/audio"
	"github.com/teslashibe/go-raspbot/pkg/audioio"
	"github.com/teslashibe/go-raspbot/pkg/tts"
	"github.com/teslashibe/go-raspbot/pkg/voice"
	_ "github.com/teslashibe/go-raspbot/pkg/voice/bundled" // Register the pipelines
)

func main() {
	pipeline := flag.String("pipeline", "vosk", "Recognizer pipeline: vosk, mock")
	listen := flag.Duration("listen", 30*time.Second, "How long to listen for transcripts")
	say := flag.String("say", "", "Line to speak through the synthesizer before listening")
	voices := flag.String("voices", "voices", "Piper voice directory")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	intlog.Init(level)

	fmt.Println("🎤 Raspbot Voice Test")
	fmt.Println("=====================")
	fmt.Printf("Pipeline: %s\n", *pipeline)
	fmt.Printf("Listen:   %s\n", *listen)
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *say != "" {
		speak(ctx, *voices, *say)
	}

	cfg := voice.DefaultConfig()
	cfg.ServerURL = config.VoskURL()
	cfg.Debug = *debug

	fmt.Print("🎙️  Starting recognizer... ")
	mic, err := voice.New(*pipeline, cfg)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	transcripts := 0
	mic.OnTranscript(func(text string, final bool) {
		if !final {
			return
		}
		transcripts++
		fmt.Printf("📝 %q\n", text)
	})
	mic.OnError(func(err error) {
		fmt.Printf("⚠️  %v\n", err)
	})

	if err := mic.Start(ctx); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅")
	fmt.Println("\n🔄 Say something (Ctrl+C to stop)")

	select {
	case <-ctx.Done():
	case <-time.After(*listen):
	}

	mic.Stop()
	fmt.Printf("\n✅ heard %d final transcripts\n", transcripts)
}

// speak renders the line with the synthesizer chain and plays it on
// the default output device, so both halves of the stack get checked.
func speak(ctx context.Context, voiceDir, text string) {
	fmt.Print("🗣️  Speaking test line... ")

	piper, err := tts.NewPiper(tts.WithModelDir(voiceDir))
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}
	sink, err := audioio.NewSink(audioio.DefaultConfig(), intlog.L())
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}

	player := audio.NewPlayer(sink, intlog.L())
	playCtx, stop := context.WithCancel(ctx)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		player.Run(playCtx)
	}()

	speaker := audio.NewSpeaker(piper, player)
	sayCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := speaker.Say(sayCtx, text); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}

	stop()
	<-done
}
