package command

import "errors"

// Package errors.
var (
	// ErrUnknownCode indicates an IR code with no mapping. The
	// normalizer drops these after counting them.
	ErrUnknownCode = errors.New("command: unknown ir code")

	// ErrUnknownAction indicates a remote command verb with no mapping.
	ErrUnknownAction = errors.New("command: unknown action")
)
