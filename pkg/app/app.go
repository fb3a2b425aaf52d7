// Package app assembles the whole controller: the hardware bridge, the
// input pollers, the mode engine and its subsystems, the output sinks,
// and the edges (dashboard, relay, timetable). cmd/raspbot parses the
// flags and hands the Config here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	runtimedebug "runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/teslashibe/go-raspbot/internal/log"
	"github.com/teslashibe/go-raspbot/pkg/audio"
	"github.com/teslashibe/go-raspbot/pkg/audioio"
	"github.com/teslashibe/go-raspbot/pkg/camera"
	"github.com/teslashibe/go-raspbot/pkg/chat"
	"github.com/teslashibe/go-raspbot/pkg/command"
	"github.com/teslashibe/go-raspbot/pkg/debug"
	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/inference"
	"github.com/teslashibe/go-raspbot/pkg/interrupt"
	"github.com/teslashibe/go-raspbot/pkg/memory"
	"github.com/teslashibe/go-raspbot/pkg/movement"
	"github.com/teslashibe/go-raspbot/pkg/notes"
	"github.com/teslashibe/go-raspbot/pkg/orchestrator"
	"github.com/teslashibe/go-raspbot/pkg/raspbot"
	"github.com/teslashibe/go-raspbot/pkg/remote"
	"github.com/teslashibe/go-raspbot/pkg/resource"
	"github.com/teslashibe/go-raspbot/pkg/schedule"
	"github.com/teslashibe/go-raspbot/pkg/speech"
	"github.com/teslashibe/go-raspbot/pkg/tracking"
	"github.com/teslashibe/go-raspbot/pkg/tts"
	"github.com/teslashibe/go-raspbot/pkg/vision"
	"github.com/teslashibe/go-raspbot/pkg/voice"
	"github.com/teslashibe/go-raspbot/pkg/web"

	// Bundled voice pipelines register themselves.
	_ "github.com/teslashibe/go-raspbot/pkg/voice/bundled"
)

// Version is announced to the relay.
const Version = "0.3.0"

// commandQueueCapacity bounds pending commands across all sources.
const commandQueueCapacity = 32

// App owns every long-lived component and their startup order.
type App struct {
	cfg Config

	// Hardware is the bridge the robot drives. Leave nil to connect
	// the HTTP bridge at Config.BridgeHost; tests drop in a mock
	// before Init.
	Hardware raspbot.Controller

	hw raspbot.Controller

	// Command plumbing
	queue      *command.Queue
	normalizer *command.Normalizer
	arbiter    *resource.Arbiter
	registry   *orchestrator.Registry
	reactor    *orchestrator.Reactor
	engine     *orchestrator.Engine

	// Inputs
	irPoller  *raspbot.IRPoller
	watcher   *interrupt.Watcher
	scheduler *schedule.Scheduler

	// Outputs
	movement  *movement.Manager
	emotions  *emotion.Broadcaster
	sequences *emotion.Registry
	renderer  *emotion.Renderer
	strip     *ledStrip
	outputs   *robotOutputs
	player    *audio.Player
	speaker   *audio.Speaker
	pulser    *speech.Pulser

	// Mode collaborators
	follower  *tracking.Follower
	visionMgr *vision.Manager
	cameraMgr *camera.Manager
	chat      *chat.Chat
	mic       voice.Pipeline
	brain     inference.Provider
	synth     tts.Provider
	mem       *memory.Memory
	noteSvc   *notes.Service

	// Edges
	webServer *web.Server
	ring      *web.LogRing
	bridge    *remote.Bridge

	rootCtx    context.Context
	rootCancel context.CancelFunc
	start      time.Time
}

// New validates the configuration and returns an app ready for Init.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	debug.Enabled = cfg.Debug
	debug.Tracking = cfg.DebugTracking
	return &App{cfg: cfg}, nil
}

// Init builds and wires every component. Hardware that is missing or
// asleep degrades with a warning; configuration problems fail hard.
func (a *App) Init() error {
	fmt.Println("🤖 Raspbot controller")
	fmt.Println("=====================")
	if debug.Enabled {
		fmt.Println("🐛 Debug mode enabled")
	}

	a.start = time.Now()
	a.rootCtx, a.rootCancel = context.WithCancel(context.Background())

	a.ring = web.NewLogRing(web.DefaultLogLines)
	log.InitTee(a.cfg.LogLevel, a.ring.Handler(slog.LevelDebug))

	fmt.Print("🔌 Connecting to hardware bridge... ")
	a.hw = a.Hardware
	if a.hw == nil {
		a.hw = raspbot.NewHTTPBridge(a.cfg.BridgeHost)
	}
	if err := a.hw.Ping(); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}

	fmt.Print("🚗 Starting movement manager... ")
	a.movement = movement.NewManager(a.hw, 50*time.Millisecond)
	fmt.Println("✅")

	fmt.Print("💡 Wiring emotions and lights... ")
	a.emotions = emotion.NewBroadcaster()
	a.sequences = emotion.NewRegistry()
	a.loadSequencePack()
	a.strip = newLEDStrip(a.hw)
	a.renderer = emotion.NewRenderer(a.emotions, a.strip, a.sequences)
	fmt.Println("✅")

	a.initSpeech()
	a.initBrain()
	if err := a.initVoice(); err != nil {
		return err
	}
	a.initNotesAndMemory()

	fmt.Print("👁️  Preparing vision... ")
	a.visionMgr = vision.NewManager()
	vcfg := a.visionMgr.GetConfig()
	vcfg.ModelDir = a.cfg.VisionModelDir
	if err := a.visionMgr.SetConfig(vcfg); err != nil {
		fmt.Printf("⚠️  %v\n", err)
	} else {
		fmt.Println("✅")
	}
	a.cameraMgr = camera.NewManager()
	a.cameraMgr.OnConfigChange = a.applyCameraConfig
	a.follower = tracking.NewFollower(tracking.DefaultConfig())

	fmt.Print("🧮 Building the mode engine... ")
	a.queue = command.NewQueue(commandQueueCapacity)
	a.normalizer = command.NewNormalizer(a.queue)
	reclaimer := resource.NewReclaimer(resource.NewLinuxMemory(), resource.DefaultReclaimConfig())
	reclaimer.AddHook("go-heap", func() error {
		runtimedebug.FreeOSMemory()
		return nil
	})
	a.arbiter = resource.NewArbiter(a.rootCtx, resource.Config{Reclaimer: reclaimer})
	a.registry = orchestrator.NewRegistry()
	a.outputs = &robotOutputs{
		speaker:  a.speaker,
		beeper:   a.hw,
		renderer: a.renderer,
		moves:    a.movement,
	}
	a.reactor = orchestrator.NewReactor(a.emotions, a.outputs)
	a.engine = orchestrator.New(a.queue, a.arbiter, a.emotions, a.registry, a.reactor, orchestrator.Config{})
	if err := a.buildChat(); err != nil {
		return err
	}
	a.registerSubsystems()
	fmt.Println("✅")

	fmt.Print("🎮 Arming input watchers... ")
	a.irPoller = raspbot.NewIRPoller(a.hw)
	a.irPoller.OnCode = a.normalizer.HandleIRCode
	icfg := interrupt.DefaultConfig()
	if err := icfg.Validate(); err != nil {
		return fmt.Errorf("interrupt config: %w", err)
	}
	a.watcher = interrupt.NewWatcher(a.hw, a.normalizer, icfg)
	fmt.Println("✅")

	if len(a.cfg.Schedule) > 0 {
		fmt.Print("📅 Loading timetable... ")
		s, err := schedule.New(a.cfg.Schedule, a.normalizer)
		if err != nil {
			return fmt.Errorf("schedule: %w", err)
		}
		a.scheduler = s
		fmt.Printf("✅ (%d rules)\n", len(s.Rules()))
	}

	if a.cfg.WebPort > 0 {
		fmt.Print("🌐 Preparing dashboard... ")
		wcfg := web.DefaultConfig()
		wcfg.Port = strconv.Itoa(a.cfg.WebPort)
		if a.cfg.WebStaticDir != "" {
			wcfg.StaticDir = a.cfg.WebStaticDir
		}
		srv, err := web.NewServer(wcfg, web.Deps{
			Commands: a.normalizer,
			Engine:   a.engine,
			Queue:    a.queue,
			Arbiter:  a.arbiter,
			Emotions: a.emotions,
			Tracking: a.follower,
			Camera:   a.cameraMgr,
			Notes:    a.noteSvc,
			Ring:     a.ring,
			Start:    a.start,
		})
		if err != nil {
			return fmt.Errorf("web server: %w", err)
		}
		a.webServer = srv
		fmt.Println("✅")
	}

	if a.cfg.RelayURL != "" {
		fmt.Print("📡 Preparing relay link... ")
		bcfg := remote.DefaultBridgeConfig(a.cfg.RelayURL)
		bcfg.Name = a.cfg.RobotName
		bcfg.Version = Version
		b, err := remote.NewBridge(bcfg, remote.BridgeDeps{
			Commands: a.normalizer,
			Report:   a.report,
			Emotions: a.emotions,
		})
		if err != nil {
			return fmt.Errorf("relay bridge: %w", err)
		}
		a.bridge = b
		fmt.Println("✅")
	}

	return nil
}

// initSpeech brings up the playback half of the voice stack. Any piece
// that is missing leaves the robot mute rather than broken.
func (a *App) initSpeech() {
	fmt.Print("🔊 Opening the speaker... ")
	sink, err := audioio.NewSink(audioio.DefaultConfig(), log.L())
	if err != nil {
		fmt.Printf("⚠️  %v (robot runs mute)\n", err)
		return
	}
	a.player = audio.NewPlayer(sink, log.L())
	a.pulser = speech.NewPulser(speech.DefaultConfig())
	a.pulser.OnLevel = a.strip.Pulse
	a.player.Tap = a.pulser.Feed
	a.player.OnPlaybackEnd = a.pulser.Reset
	fmt.Println("✅")

	fmt.Print("🗣️  Loading speech synthesis... ")
	var providers []tts.Provider
	piper, err := tts.NewPiper(
		tts.WithModelDir(a.cfg.VoiceModelDir),
		tts.WithLogger(log.L()),
	)
	if err != nil {
		log.Warn("piper unavailable", "error", err)
	} else {
		providers = append(providers, piper)
	}
	if a.cfg.TTSServerURL != "" {
		httpd, err := tts.NewHTTPD(
			tts.WithServerURL(a.cfg.TTSServerURL),
			tts.WithLogger(log.L()),
		)
		if err != nil {
			log.Warn("tts server unavailable", "error", err)
		} else {
			providers = append(providers, httpd)
		}
	}
	if len(providers) == 0 {
		fmt.Println("⚠️  no synthesizer available (robot runs mute)")
		return
	}
	chain, err := tts.NewChainWithLogger(log.L(), providers...)
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}
	a.synth = chain
	a.speaker = audio.NewSpeaker(chain, a.player)
	fmt.Println("✅")
}

// initBrain builds the language model chain: local first, cloud as the
// fallback. Chat degrades to canned phrases without either.
func (a *App) initBrain() {
	fmt.Print("🧠 Connecting the language model... ")
	var providers []inference.Provider
	client, err := inference.NewClient(
		inference.WithBaseURL(a.cfg.OllamaURL),
		inference.WithModel(a.cfg.OllamaModel),
		inference.WithLogger(log.L()),
	)
	if err != nil {
		log.Warn("local model unavailable", "error", err)
	} else {
		providers = append(providers, client)
	}
	if a.cfg.GeminiKey != "" {
		gemini, err := inference.NewGemini(
			inference.WithAPIKey(a.cfg.GeminiKey),
			inference.WithLogger(log.L()),
		)
		if err != nil {
			log.Warn("gemini unavailable", "error", err)
		} else {
			providers = append(providers, gemini)
		}
	}
	if len(providers) == 0 {
		fmt.Println("⚠️  no model available (chat will use canned phrases)")
		return
	}
	chain, err := inference.NewChainWithLogger(log.L(), providers...)
	if err != nil {
		fmt.Printf("⚠️  %v\n", err)
		return
	}
	a.brain = chain
	fmt.Printf("✅ (%s)\n", a.cfg.OllamaModel)
}

// initVoice builds the speech recognizer. An unknown pipeline name is
// a configuration problem, so this one fails hard.
func (a *App) initVoice() error {
	fmt.Print("🎤 Preparing speech recognition... ")
	vcfg := voice.DefaultConfig()
	vcfg.ServerURL = a.cfg.VoskURL
	vcfg.Debug = debug.Enabled
	mic, err := voice.New(a.cfg.VoicePipeline, vcfg)
	if err != nil {
		return fmt.Errorf("voice pipeline: %w", err)
	}
	a.mic = mic
	fmt.Printf("✅ (%s)\n", a.cfg.VoicePipeline)
	return nil
}

func (a *App) initNotesAndMemory() {
	fmt.Print("📝 Loading memory and notes... ")
	a.mem = memory.NewWithFile(filepath.Join(a.cfg.DataDir, "memory.json"))

	ncfg := notes.DefaultConfig()
	ncfg.StorePath = filepath.Join(a.cfg.DataDir, "notes.json")
	ncfg.AutoSync = a.cfg.NotesAutoSync
	if a.cfg.GeminiKey != "" {
		ncfg.Gemini.APIKey = a.cfg.GeminiKey
	}
	if a.cfg.GoogleClientID != "" {
		ncfg.Google.ClientID = a.cfg.GoogleClientID
		ncfg.Google.ClientSecret = a.cfg.GoogleClientSecret
		ncfg.Google.TokenPath = filepath.Join(a.cfg.DataDir, "google_token.json")
	}
	svc, err := notes.NewService(ncfg)
	if err != nil {
		fmt.Printf("⚠️  %v (notes disabled)\n", err)
		return
	}
	a.noteSvc = svc
	fmt.Printf("✅ (%d notes)\n", svc.Count())
}

// loadSequencePack adds any custom LED sequences dropped into the data
// directory on top of the built-in set.
func (a *App) loadSequencePack() {
	dir := filepath.Join(a.cfg.DataDir, "sequences")
	seqs, err := emotion.LoadFromDirectory(dir)
	if err != nil {
		log.Debug("no custom led sequences", "dir", dir, "error", err)
		return
	}
	for _, s := range seqs {
		a.sequences.Register(s)
	}
	if len(seqs) > 0 {
		log.Info("custom led sequences loaded", "count", len(seqs))
	}
}

func (a *App) buildChat() error {
	ccfg := chat.DefaultConfig()
	ccfg.Name = a.cfg.Persona

	deps := chat.Deps{
		Mic:      a.mic,
		Drive:    a.movement,
		Emotions: a.emotions,
		Memory:   a.mem,
		Notes:    a.noteSvc,
		Commands: a.normalizer,
	}
	if a.brain != nil {
		deps.Brain = a.brain
	}
	if a.synth != nil {
		deps.Speech = a.synth
	}
	if a.player != nil {
		deps.Player = a.player
	}

	c, err := chat.New(ccfg, deps)
	if err != nil {
		return fmt.Errorf("chat engine: %w", err)
	}
	a.chat = c
	return nil
}

// applyCameraConfig forwards the dashboard's capture geometry into the
// vision config the next pipeline activation reads. Picture controls
// beyond geometry stay in the camera manager; the capture layer applies
// what the driver supports.
func (a *App) applyCameraConfig(c camera.Config) error {
	return a.visionMgr.UpdateConfig(map[string]interface{}{
		"width":     c.Width,
		"height":    c.Height,
		"framerate": c.Framerate,
		"quality":   c.Quality,
	})
}

// report snapshots the robot for relay status pushes.
func (a *App) report() remote.Report {
	return remote.Report{
		Mode:       a.engine.Mode().String(),
		Detail:     a.emotions.Current().Emotion.String(),
		QueueDepth: a.queue.Depth(),
		Uptime:     time.Since(a.start),
	}
}

// Run starts the background loops and blocks in the mode engine until
// the context is canceled, an exit command arrives, or the engine gives
// up. The returned error is what ExitCode maps for the process.
func (a *App) Run(ctx context.Context) error {
	fmt.Println()
	fmt.Println("🚀 Raspbot is up. Pick a mode from the remote, the dashboard, or by voice.")
	fmt.Println("   (Ctrl+C to exit)")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.movement.Run()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.renderer.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.reactor.Run(runCtx)
	}()

	if a.player != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.player.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audio player stopped", "error", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.irPoller.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.watcher.Run(runCtx)
	}()

	if a.webServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.webServer.Run(runCtx); err != nil {
				log.Error("dashboard stopped", "error", err)
			}
		}()
	}

	if a.bridge != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.bridge.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay link stopped", "error", err)
			}
		}()
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	err := a.engine.Run(runCtx)

	cancel()
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.movement.Stop()
	wg.Wait()

	return err
}

// Shutdown releases what Run leaves behind. Safe to call after Run
// returns, whether or not Init finished.
func (a *App) Shutdown() {
	fmt.Println("\n👋 Goodbye!")

	if a.mic != nil {
		a.mic.Stop()
	}
	if a.noteSvc != nil {
		a.noteSvc.Close()
	}
	if a.hw != nil {
		a.hw.Stop()
		a.hw.Off()
	}
	if a.rootCancel != nil {
		a.rootCancel()
	}
}

// ExitCode maps the engine's terminal error to the process exit code:
// 0 for a clean exit, 2 when a subsystem leaked past its teardown
// deadline, 3 for a crash loop, 1 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, resource.ErrTeardownTimeout):
		return 2
	default:
		var crash *resource.CrashError
		if errors.As(err, &crash) {
			return 3
		}
		return 1
	}
}
