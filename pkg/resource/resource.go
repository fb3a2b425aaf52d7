// Package resource owns exclusive hardware leases and subsystem
// lifecycles. Heavy subsystems (vision pipelines, the AI chat engine,
// the RPS game) are mutually exclusive over the camera, the microphone,
// and the motor bus; the Arbiter guarantees a device is never leased
// twice and that an old holder's teardown is confirmed before a new
// lease is granted.
package resource

import (
	"context"

	"github.com/teslashibe/go-raspbot/pkg/modes"
)

// Device identifies an exclusively leased hardware resource.
type Device int

const (
	DeviceCamera Device = iota
	DeviceMicrophone
	DeviceMotors
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceCamera:
		return "camera"
	case DeviceMicrophone:
		return "microphone"
	case DeviceMotors:
		return "motors"
	default:
		return "unknown"
	}
}

// Subsystem is the uniform lifecycle every heavy mode implements.
// Run blocks until the context is cancelled or the subsystem fails; a
// clean stop returns nil. Status is safe to call from other goroutines
// while Run is active.
type Subsystem interface {
	Run(ctx context.Context) error
	Status() string
}

// Spec describes a subsystem to acquire. New constructs the subsystem
// and may fail (missing models, unreachable servers); construction
// failures surface as StartError before any lease is held.
type Spec struct {
	Mode         modes.Mode
	Devices      []Device
	NeedsReclaim bool
	New          func() (Subsystem, error)
}
