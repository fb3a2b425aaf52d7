package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/teslashibe/go-raspbot/internal/config"
)

// Config holds everything the controller needs to come up. Flag
// parsing lives in cmd/raspbot; this struct is plain data.
type Config struct {
	// Debug enables verbose debug output. DebugTracking adds the very
	// chatty per-frame tracking logs on top.
	Debug         bool
	DebugTracking bool

	// LogLevel sets the structured log level: debug, info, warn, error.
	LogLevel string

	// BridgeHost is where the hardware bridge daemon listens.
	BridgeHost string

	// RobotName identifies this robot to the relay and the dashboard.
	RobotName string

	// WebPort serves the local dashboard. Zero disables it.
	WebPort int

	// WebStaticDir overrides the embedded dashboard assets.
	WebStaticDir string

	// RelayURL is the relay websocket endpoint. Empty keeps the robot
	// local only.
	RelayURL string

	// DataDir holds notes, memory, and cached tokens.
	DataDir string

	// VisionModelDir holds the ONNX models and cascade files.
	VisionModelDir string

	// VoiceModelDir holds the piper voice models.
	VoiceModelDir string

	// TTSServerURL, when set, adds the HTTP synthesizer as a fallback
	// behind piper.
	TTSServerURL string

	// OllamaURL and OllamaModel configure the local language model.
	OllamaURL   string
	OllamaModel string

	// GeminiKey enables the cloud model fallback and note titling.
	GeminiKey string

	// VoskURL is the speech recognizer endpoint.
	VoskURL string

	// VoicePipeline names the registered recognizer pipeline. The mock
	// pipeline keeps bench setups without a microphone working.
	VoicePipeline string

	// GoogleClientID and GoogleClientSecret enable the notes sync to
	// Google Docs.
	GoogleClientID     string
	GoogleClientSecret string

	// NotesAutoSync pushes notes to Google Docs as they are taken.
	NotesAutoSync bool

	// Persona is the name the robot answers to in chat.
	Persona string

	// Schedule holds "CRONSPEC=COMMAND" rules for the timetable.
	Schedule []string
}

// DefaultConfig returns a config for a robot and bridge sharing one
// Raspberry Pi.
func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		BridgeHost:     "localhost",
		RobotName:      "raspbot",
		WebPort:        8080,
		DataDir:        config.DataDir(),
		VisionModelDir: "models",
		VoiceModelDir:  "voices",
		OllamaURL:      config.DefaultOllamaURL,
		OllamaModel:    "gemma2:2b",
		VoskURL:        config.DefaultVoskURL,
		VoicePipeline:  "vosk",
		NotesAutoSync:  true,
		Persona:        "Marich",
	}
}

// LoadEnvConfig overlays environment variables on the config. Values
// already set by flags survive unless the environment names them too.
func (c *Config) LoadEnvConfig() {
	if host := os.Getenv("BRIDGE_HOST"); host != "" {
		c.BridgeHost = host
	}
	if name := os.Getenv("RASPBOT_NAME"); name != "" {
		c.RobotName = name
	}
	if port := os.Getenv("RASPBOT_WEB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.WebPort = p
		}
	}
	if url := os.Getenv("RELAY_URL"); url != "" {
		c.RelayURL = url
	}
	if dir := os.Getenv("RASPBOT_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		c.OllamaURL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.OllamaModel = model
	}
	if url := os.Getenv("VOSK_URL"); url != "" {
		c.VoskURL = url
	}
	if url := os.Getenv("TTS_URL"); url != "" {
		c.TTSServerURL = url
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.GeminiKey = key
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		c.GoogleClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		c.GoogleClientSecret = secret
	}
	// Cron specs contain commas, so rules are separated by semicolons.
	if rules := os.Getenv("RASPBOT_SCHEDULE"); rules != "" {
		c.Schedule = nil
		for _, rule := range strings.Split(rules, ";") {
			if rule = strings.TrimSpace(rule); rule != "" {
				c.Schedule = append(c.Schedule, rule)
			}
		}
	}
}

// Validate checks the configuration before any hardware is touched.
func (c *Config) Validate() error {
	if c.BridgeHost == "" {
		return &ConfigError{
			Field:   "BridgeHost",
			Message: "bridge host is required (set BRIDGE_HOST or --bridge-host)",
		}
	}
	if c.WebPort < 0 || c.WebPort > 65535 {
		return &ConfigError{
			Field:   "WebPort",
			Message: "web port must be between 0 and 65535 (0 disables the dashboard)",
		}
	}
	if c.VoicePipeline == "" {
		return &ConfigError{
			Field:   "VoicePipeline",
			Message: "voice pipeline name is required",
		}
	}
	if c.Persona == "" {
		return &ConfigError{
			Field:   "Persona",
			Message: "persona name is required",
		}
	}
	return nil
}

// ConfigError describes a configuration problem.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
