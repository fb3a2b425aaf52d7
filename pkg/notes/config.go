package notes

import (
	"os"
	"path/filepath"
)

// Config holds the notes subsystem configuration.
type Config struct {
	// StorePath is the notes file, default ~/.raspbot/notes.json.
	StorePath string

	// AutoSync pushes notes to Google Docs as they are taken, when
	// the robot is connected.
	AutoSync bool

	// Gemini configures title and tag generation. Left empty, notes
	// fall back to a title derived from their content.
	Gemini GeminiConfig

	// Google configures Google Docs syncing. Left empty, notes stay
	// local.
	Google GoogleConfig
}

// DefaultConfig returns the default notes configuration.
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		StorePath: filepath.Join(homeDir, ".raspbot", "notes.json"),
		AutoSync:  true,
	}
}
