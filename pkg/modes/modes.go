// Package modes defines the mode vocabulary shared by the command queue,
// the transition engine, and the subsystems. A Mode is a small value type:
// a kind plus an optional color argument for color tracking.
package modes

import (
	"fmt"
	"strings"
)

// Kind identifies a mode family.
type Kind int

const (
	KindIdle Kind = iota
	KindColorTrack
	KindFaceTrack
	KindGestureControl
	KindObjectRecognition
	KindLicensePlate
	KindRpsGame
	KindPresentation
	KindAiChat
	KindShuttingDown
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindColorTrack:
		return "color-track"
	case KindFaceTrack:
		return "face-track"
	case KindGestureControl:
		return "gesture-control"
	case KindObjectRecognition:
		return "object-recognition"
	case KindLicensePlate:
		return "license-plate"
	case KindRpsGame:
		return "rps-game"
	case KindPresentation:
		return "presentation"
	case KindAiChat:
		return "ai-chat"
	case KindShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// ParseKind parses a kind name as produced by String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle":
		return KindIdle, nil
	case "color-track":
		return KindColorTrack, nil
	case "face-track":
		return KindFaceTrack, nil
	case "gesture-control":
		return KindGestureControl, nil
	case "object-recognition":
		return KindObjectRecognition, nil
	case "license-plate":
		return KindLicensePlate, nil
	case "rps-game":
		return KindRpsGame, nil
	case "presentation":
		return KindPresentation, nil
	case "ai-chat":
		return KindAiChat, nil
	case "shutting-down":
		return KindShuttingDown, nil
	default:
		return KindIdle, fmt.Errorf("modes: unknown kind %q", s)
	}
}

// SelectableKinds lists the kinds an operator may request by name, in
// menu order. ShuttingDown is the terminal pseudo-mode and is excluded.
func SelectableKinds() []Kind {
	return []Kind{
		KindIdle,
		KindColorTrack,
		KindFaceTrack,
		KindGestureControl,
		KindObjectRecognition,
		KindLicensePlate,
		KindRpsGame,
		KindPresentation,
		KindAiChat,
	}
}

// Color is the tracking target color for KindColorTrack.
type Color int

const (
	ColorNone Color = iota
	ColorRed
	ColorGreen
	ColorBlue
	ColorYellow
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
	default:
		return "none"
	}
}

// ParseColor parses a color name. Empty input maps to ColorNone.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ColorNone, nil
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "blue":
		return ColorBlue, nil
	case "yellow":
		return ColorYellow, nil
	default:
		return ColorNone, fmt.Errorf("modes: unknown color %q", s)
	}
}

// Mode is a tagged mode value. Color is meaningful only for
// KindColorTrack; comparable with ==.
type Mode struct {
	Kind  Kind
	Color Color
}

// String renders the mode, including the color argument when present.
func (m Mode) String() string {
	if m.Kind == KindColorTrack && m.Color != ColorNone {
		return fmt.Sprintf("%s(%s)", m.Kind, m.Color)
	}
	return m.Kind.String()
}

// Idle returns the idle mode.
func Idle() Mode { return Mode{Kind: KindIdle} }

// ColorTrack returns a color tracking mode for the given target color.
func ColorTrack(c Color) Mode { return Mode{Kind: KindColorTrack, Color: c} }

// FaceTrack returns the face tracking mode.
func FaceTrack() Mode { return Mode{Kind: KindFaceTrack} }

// GestureControl returns the gesture control mode.
func GestureControl() Mode { return Mode{Kind: KindGestureControl} }

// ObjectRecognition returns the object recognition mode.
func ObjectRecognition() Mode { return Mode{Kind: KindObjectRecognition} }

// LicensePlate returns the license plate detection mode.
func LicensePlate() Mode { return Mode{Kind: KindLicensePlate} }

// RpsGame returns the rock-paper-scissors game mode.
func RpsGame() Mode { return Mode{Kind: KindRpsGame} }

// Presentation returns the scripted presentation mode.
func Presentation() Mode { return Mode{Kind: KindPresentation} }

// AiChat returns the conversational AI mode.
func AiChat() Mode { return Mode{Kind: KindAiChat} }

// ShuttingDown returns the terminal shutdown mode.
func ShuttingDown() Mode { return Mode{Kind: KindShuttingDown} }

// Parse parses "kind" or "kind(color)" as produced by Mode.String.
func Parse(s string) (Mode, error) {
	s = strings.TrimSpace(s)
	if open := strings.IndexByte(s, '('); open >= 0 && strings.HasSuffix(s, ")") {
		kind, err := ParseKind(s[:open])
		if err != nil {
			return Mode{}, err
		}
		color, err := ParseColor(s[open+1 : len(s)-1])
		if err != nil {
			return Mode{}, err
		}
		return Mode{Kind: kind, Color: color}, nil
	}
	kind, err := ParseKind(s)
	if err != nil {
		return Mode{}, err
	}
	return Mode{Kind: kind}, nil
}
