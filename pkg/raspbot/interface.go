// Package raspbot provides interfaces and implementations for Raspbot
// hardware control.
//
// The controller process never touches I2C directly: a bridge daemon on
// the robot owns the motor driver, the LED strip, the buzzer, the camera
// servos, and the sensor block, and exposes them over a local HTTP API.
// This package follows the Interface Segregation Principle by defining
// small, focused interfaces that can be composed as needed. Consumers
// should depend only on the interfaces they actually use.
package raspbot

import "time"

// MotorController drives the mecanum wheelbase. vx is forward (-1..1),
// vy is strafe right (-1..1), omega is rotation clockwise (-1..1), and
// speed scales the whole command (0-255).
type MotorController interface {
	Drive(vx, vy, omega float64, speed int) error
	Stop() error
}

// LEDController sets the RGB strip. Index -1 is not used here; SetAll
// paints every LED.
type LEDController interface {
	SetAll(c Color) error
	Set(index int, c Color) error
	Off() error
}

// BeepController drives the buzzer.
type BeepController interface {
	Beep(d time.Duration) error
}

// ServoController positions the camera gimbal servos (angle 0-180).
type ServoController interface {
	SetServo(channel, angle int) error
}

// SensorReader reads one sensor frame: sonar, line trackers, touch.
type SensorReader interface {
	Sensors() (SensorFrame, error)
}

// IRReader reads the IR receiver. fresh is true when the code was
// decoded since the previous read; the bridge reports each press once.
type IRReader interface {
	ReadIR() (code byte, fresh bool, err error)
}

// StatusReader checks bridge liveness.
type StatusReader interface {
	Ping() error
}

// Controller is the composite interface for full hardware control.
// Use this when you need complete control capabilities.
type Controller interface {
	MotorController
	LEDController
	BeepController
	ServoController
	SensorReader
	IRReader
	StatusReader
}

// Ensure implementations satisfy Controller.
var (
	_ Controller = (*HTTPBridge)(nil)
	_ Controller = (*Mock)(nil)
)
