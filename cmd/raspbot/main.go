// Raspbot - mode-driven companion robot controller
// Talks to the hardware bridge daemon over HTTP and serves the
// dashboard, the relay link, and the voice assistant on top.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-raspbot/pkg/app"
)

func main() {
	cfg := parseFlags()

	bot, err := app.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := bot.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = bot.Run(ctx)
	bot.Shutdown()
	if err != nil {
		log.Printf("❌ Runtime error: %v", err)
	}
	os.Exit(app.ExitCode(err))
}

// parseFlags parses command line flags and returns configuration.
func parseFlags() app.Config {
	cfg := app.DefaultConfig()

	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	debugTracking := flag.Bool("debug-tracking", false, "Enable per-frame tracking logs (very chatty)")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	bridgeHost := flag.String("bridge-host", "", "Hardware bridge host (overrides BRIDGE_HOST env var)")
	webPort := flag.Int("web-port", cfg.WebPort, "Dashboard port, 0 disables")
	webStatic := flag.String("web-static", "", "Dashboard static file directory override")
	relay := flag.String("relay", "", "Relay websocket URL (overrides RELAY_URL env var)")
	dataDir := flag.String("data-dir", "", "Directory for notes, memory, and tokens")
	models := flag.String("models", cfg.VisionModelDir, "Vision model directory")
	voices := flag.String("voices", cfg.VoiceModelDir, "Piper voice directory")
	voicePipe := flag.String("voice", cfg.VoicePipeline, "Speech recognizer pipeline: vosk, mock")
	persona := flag.String("persona", cfg.Persona, "Name the robot answers to")
	schedule := flag.String("schedule", "", "Timetable rules, CRONSPEC=COMMAND separated by semicolons")

	flag.Parse()

	cfg.Debug, cfg.DebugTracking, cfg.LogLevel = *debug, *debugTracking, *logLevel
	cfg.WebPort = *webPort
	cfg.VisionModelDir, cfg.VoiceModelDir = *models, *voices
	cfg.VoicePipeline = *voicePipe
	cfg.Persona = *persona
	if *bridgeHost != "" {
		cfg.BridgeHost = *bridgeHost
	}
	if *webStatic != "" {
		cfg.WebStaticDir = *webStatic
	}
	if *relay != "" {
		cfg.RelayURL = *relay
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *schedule != "" {
		cfg.Schedule = nil
		for _, rule := range strings.Split(*schedule, ";") {
			if rule = strings.TrimSpace(rule); rule != "" {
				cfg.Schedule = append(cfg.Schedule, rule)
			}
		}
	}
	return cfg
}
