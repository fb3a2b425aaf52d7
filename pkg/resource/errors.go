package resource

import (
	"errors"
	"fmt"
)

// Package sentinels. The process exit code mapping tests against these
// with errors.Is / errors.As.
var (
	// ErrTeardownTimeout indicates a subsystem did not confirm its
	// teardown within the bounded release window. The devices it held
	// stay marked leased; the process must treat this as fatal.
	ErrTeardownTimeout = errors.New("resource: teardown timeout")

	// ErrInsufficientMemory indicates reclamation could not free
	// enough headroom for the language model working set.
	ErrInsufficientMemory = errors.New("resource: insufficient memory for model working set")

	// ErrUnexpectedExit indicates a subsystem's Run returned nil
	// without being released.
	ErrUnexpectedExit = errors.New("resource: subsystem exited unexpectedly")
)

// ResourceError wraps a lease or reclamation failure.
type ResourceError struct {
	Op   string
	Mode string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource: %s %s: %v", e.Op, e.Mode, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// StartError wraps a subsystem construction or startup failure. No
// lease is held when this is returned.
type StartError struct {
	Mode string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("resource: start %s: %v", e.Mode, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// CrashError wraps an unexpected subsystem death: a non-nil Run return
// or a recovered panic while the lease was still held.
type CrashError struct {
	Mode string
	Err  error
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("resource: subsystem %s crashed: %v", e.Mode, e.Err)
}

func (e *CrashError) Unwrap() error { return e.Err }
