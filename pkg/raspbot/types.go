package raspbot

// Color is an LED strip palette index as the hardware understands it.
type Color int

const (
	ColorRed Color = iota
	ColorGreen
	ColorBlue
	ColorYellow
	ColorPurple
	ColorCyan
	ColorWhite
)

// String returns the color name.
func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	case ColorYellow:
		return "yellow"
	case ColorPurple:
		return "purple"
	case ColorCyan:
		return "cyan"
	case ColorWhite:
		return "white"
	default:
		return "unknown"
	}
}

// SensorFrame is one snapshot of the robot's sensor block.
type SensorFrame struct {
	// SonarMM is the ultrasonic range in millimeters. Zero means no echo.
	SonarMM int `json:"sonar_mm"`

	// Line holds the four line-tracker channels, true when the sensor
	// sees a surface beneath it. A lifted robot reads all false.
	Line [4]bool `json:"line"`

	// Tap and Pat are the touch sensor's short and sustained contacts.
	Tap bool `json:"tap"`
	Pat bool `json:"pat"`
}

// OnSurface reports whether any line tracker still sees the ground.
func (f SensorFrame) OnSurface() bool {
	for _, ch := range f.Line {
		if ch {
			return true
		}
	}
	return false
}
