// Package config provides configuration helpers for go-raspbot commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default endpoints. The hardware bridge daemon runs on the robot itself,
// so everything defaults to localhost.
const (
	DefaultBridgePort = "9090"
	DefaultOllamaURL  = "http://127.0.0.1:11434/v1"
	DefaultVoskURL    = "ws://127.0.0.1:2700"
)

// BridgeHost returns the hardware bridge host from BRIDGE_HOST env var.
// Falls back to the provided default if not set.
func BridgeHost(defaultHost string) string {
	if host := os.Getenv("BRIDGE_HOST"); host != "" {
		return host
	}
	return defaultHost
}

// BridgeHostRequired returns the bridge host from BRIDGE_HOST env var.
// Exits if not set.
func BridgeHostRequired() string {
	host := os.Getenv("BRIDGE_HOST")
	if host == "" {
		fmt.Fprintln(os.Stderr, "Error: BRIDGE_HOST environment variable is required")
		fmt.Fprintln(os.Stderr, "Usage: BRIDGE_HOST=127.0.0.1 go run ./cmd/...")
		os.Exit(1)
	}
	return host
}

// BridgeAPIURL returns the hardware bridge HTTP API URL.
func BridgeAPIURL(host string) string {
	return fmt.Sprintf("http://%s:%s", host, DefaultBridgePort)
}

// OllamaURL returns the local LLM endpoint from OLLAMA_URL env var or default.
func OllamaURL() string {
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		return url
	}
	return DefaultOllamaURL
}

// VoskURL returns the speech recognition server URL from VOSK_URL env var or default.
func VoskURL() string {
	if url := os.Getenv("VOSK_URL"); url != "" {
		return url
	}
	return DefaultVoskURL
}

// DataDir returns the persistent data directory from RASPBOT_DATA_DIR
// env var, defaulting to ~/.raspbot.
func DataDir() string {
	if dir := os.Getenv("RASPBOT_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".raspbot"
	}
	return filepath.Join(home, ".raspbot")
}
