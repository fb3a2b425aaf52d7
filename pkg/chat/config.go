package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// Config holds the tunable parameters for the chat engine.
type Config struct {
	// Name is the persona the robot introduces itself as and the
	// name the language model is prompted with.
	Name string

	// Greeting is spoken on the first activation. Built from Name
	// when empty. Reactivations stay quiet.
	Greeting string

	// MoveSpeed is the wheel speed for spoken movement commands.
	MoveSpeed int

	// MoveDuration is how long a spoken movement command drives
	// before the auto-stop.
	MoveDuration time.Duration

	// HistoryLimit is how many user/assistant messages are kept
	// behind the system prompt.
	HistoryLimit int

	// MemoryFacts caps how many remembered facts go into the system
	// prompt. Zero includes them all.
	MemoryFacts int

	// RecentNotes is how many note titles go into the system prompt.
	RecentNotes int

	// ThinkTimeout bounds one language-model turn.
	ThinkTimeout time.Duration
}

// DefaultConfig returns the stock chat persona and timings.
func DefaultConfig() Config {
	return Config{
		Name:         "Marich",
		MoveSpeed:    50,
		MoveDuration: movement.DefaultCommandDuration,
		HistoryLimit: 6,
		MemoryFacts:  12,
		RecentNotes:  3,
		ThinkTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errors.New("chat: persona name required")
	}
	if c.MoveSpeed <= 0 || c.MoveSpeed > 255 {
		return fmt.Errorf("chat: move speed %d out of range 1-255", c.MoveSpeed)
	}
	if c.MoveDuration <= 0 {
		return errors.New("chat: move duration must be positive")
	}
	if c.HistoryLimit < 2 {
		return errors.New("chat: history limit must keep at least one exchange")
	}
	if c.ThinkTimeout <= 0 {
		return errors.New("chat: think timeout must be positive")
	}
	return nil
}

// greeting returns the configured greeting, or the stock introduction
// built from the persona name.
func (c *Config) greeting() string {
	if c.Greeting != "" {
		return c.Greeting
	}
	return fmt.Sprintf("Hello! My name is %s.", c.Name)
}
