package emotion

import "errors"

// Package errors.
var (
	// ErrNotFound indicates the requested sequence is not registered.
	ErrNotFound = errors.New("emotion: sequence not found")

	// ErrAlreadyPlaying indicates the player is busy with another sequence.
	ErrAlreadyPlaying = errors.New("emotion: sequence already playing")

	// ErrEmptySequence indicates a sequence with no frames.
	ErrEmptySequence = errors.New("emotion: sequence has no frames")
)
