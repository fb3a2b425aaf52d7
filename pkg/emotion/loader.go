package emotion

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// sequenceData is the raw JSON structure of a sequence file.
type sequenceData struct {
	Frames []struct {
		AtMs  int64  `json:"at_ms"`
		Color string `json:"color"`
	} `json:"frames"`
	DurationMs int64 `json:"duration_ms"`
}

// LoadFromFile loads an LED sequence from a JSON file on disk.
// This allows users to add custom sequences.
func LoadFromFile(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(path), ".json")
	return parseSequenceJSON(name, data)
}

// LoadFromDirectory loads all sequences from a directory.
// Useful for loading custom sequence packs.
func LoadFromDirectory(dir string) ([]*Sequence, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sequence files: %w", err)
	}

	var sequences []*Sequence
	for _, file := range files {
		seq, err := LoadFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		sequences = append(sequences, seq)
	}

	return sequences, nil
}

// parseSequenceJSON parses JSON data into a Sequence.
func parseSequenceJSON(name string, data []byte) (*Sequence, error) {
	var raw sequenceData
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse sequence JSON: %w", err)
	}

	if len(raw.Frames) == 0 {
		return nil, fmt.Errorf("sequence %q: %w", name, ErrEmptySequence)
	}

	seq := &Sequence{Name: name}
	for _, f := range raw.Frames {
		color, err := ParseLEDColor(f.Color)
		if err != nil {
			return nil, fmt.Errorf("sequence %q: %w", name, err)
		}
		seq.Frames = append(seq.Frames, Frame{
			At:    time.Duration(f.AtMs) * time.Millisecond,
			Color: color,
		})
	}

	if raw.DurationMs > 0 {
		seq.Duration = time.Duration(raw.DurationMs) * time.Millisecond
	} else {
		// Default: hold the last frame for one step beyond its start.
		seq.Duration = seq.Frames[len(seq.Frames)-1].At + 100*time.Millisecond
	}

	return seq, nil
}
