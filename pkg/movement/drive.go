// Package movement provides the single motor control loop for the
// Raspbot. All drive output flows through one Manager tick so the
// wheelbase only ever has one writer:
// - Primary moves (routines, timed commands) control the drive
// - A continuous steering target (vision tracking) fills in when no
//   primary move is playing
// - With neither active the base is stopped
package movement

import "time"

// Drive is a normalized mecanum drive command. VX is forward (-1..1),
// VY is strafe right (-1..1), Omega is clockwise rotation (-1..1),
// Speed scales the whole command (0-255).
type Drive struct {
	VX    float64
	VY    float64
	Omega float64
	Speed int
}

// IsZero reports whether the command produces no motion.
func (d Drive) IsZero() bool {
	return d.VX == 0 && d.VY == 0 && d.Omega == 0
}

// Default speeds from the stock routines.
const (
	DanceSpeed  = 80
	PatrolSpeed = 100
	AngrySpeed  = 120
	CruiseSpeed = 100
	BowSpeed    = 60
)

// DefaultCommandDuration is how long a spoken movement command drives
// before the auto-stop.
const DefaultCommandDuration = 500 * time.Millisecond

// Forward drives straight ahead.
func Forward(speed int) Drive { return Drive{VX: 1, Speed: speed} }

// Backward drives straight back.
func Backward(speed int) Drive { return Drive{VX: -1, Speed: speed} }

// StrafeRight slides right without turning.
func StrafeRight(speed int) Drive { return Drive{VY: 1, Speed: speed} }

// StrafeLeft slides left without turning.
func StrafeLeft(speed int) Drive { return Drive{VY: -1, Speed: speed} }

// TurnRight rotates clockwise in place.
func TurnRight(speed int) Drive { return Drive{Omega: 1, Speed: speed} }

// TurnLeft rotates counter-clockwise in place.
func TurnLeft(speed int) Drive { return Drive{Omega: -1, Speed: speed} }

// DiagFrontRight drives diagonally forward-right.
func DiagFrontRight(speed int) Drive { return Drive{VX: 1, VY: 1, Speed: speed} }

// DiagFrontLeft drives diagonally forward-left.
func DiagFrontLeft(speed int) Drive { return Drive{VX: 1, VY: -1, Speed: speed} }

// DiagBackRight drives diagonally backward-right.
func DiagBackRight(speed int) Drive { return Drive{VX: -1, VY: 1, Speed: speed} }

// DiagBackLeft drives diagonally backward-left.
func DiagBackLeft(speed int) Drive { return Drive{VX: -1, VY: -1, Speed: speed} }

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Clamp returns the command with all axes clamped to the normalized
// range and speed clamped to the hardware range.
func (d Drive) Clamp() Drive {
	out := Drive{
		VX:    clamp(d.VX, -1, 1),
		VY:    clamp(d.VY, -1, 1),
		Omega: clamp(d.Omega, -1, 1),
		Speed: d.Speed,
	}
	if out.Speed < 0 {
		out.Speed = 0
	}
	if out.Speed > 255 {
		out.Speed = 255
	}
	return out
}
