package chat

import (
	"strings"

	"github.com/teslashibe/go-raspbot/pkg/movement"
)

// directiveKind classifies what a transcript asked for.
type directiveKind int

const (
	directiveNone directiveKind = iota
	directiveMove
	directiveDance
	directivePatrol
	directiveStop
	directiveHelp
	directiveFarewell
	directiveNote
	directiveRemember
)

// directive is one parsed command. phrase and drive are set for
// movement, arg carries the note content or remember clause.
type directive struct {
	kind   directiveKind
	phrase string
	drive  func(speed int) movement.Drive
	arg    string
}

// moveVocabulary maps spoken phrases to drive directions. Longer
// phrases come first so "move back left" is not swallowed by
// "move back".
var moveVocabulary = []struct {
	phrase string
	drive  func(speed int) movement.Drive
}{
	{"move front right", movement.DiagFrontRight},
	{"move front left", movement.DiagFrontLeft},
	{"move back right", movement.DiagBackRight},
	{"move back left", movement.DiagBackLeft},
	{"move backward", movement.Backward},
	{"move forward", movement.Forward},
	{"move back", movement.Backward},
	{"move right", movement.StrafeRight},
	{"move left", movement.StrafeLeft},
	{"turn right", movement.TurnRight},
	{"turn left", movement.TurnLeft},
}

var (
	danceWords  = []string{"dance", "party", "let's dance"}
	patrolWords = []string{"move square", "car patrol"}
	helpWords   = []string{"help", "options"}

	// farewellWords match the whole utterance only. "by" is what the
	// recognizer often hears for a clipped "bye".
	farewellWords = []string{"goodbye", "bye", "by", "exit", "quit"}
)

// parseDirective classifies a transcript against the command
// vocabulary. Anything unmatched falls through to the language model.
func parseDirective(text string) directive {
	t := strings.ToLower(strings.TrimSpace(text))

	for _, w := range farewellWords {
		if t == w {
			return directive{kind: directiveFarewell}
		}
	}

	// Prefix commands run before the keyword scans so a note about
	// stopping by the store does not stop the motors.
	if rest, ok := strings.CutPrefix(t, "take a note"); ok {
		return directive{kind: directiveNote, arg: trimNoteLead(rest)}
	}
	if rest, ok := strings.CutPrefix(t, "remember"); ok {
		rest = strings.TrimSpace(rest)
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "that "))
		return directive{kind: directiveRemember, arg: rest}
	}

	if containsAny(t, danceWords) {
		return directive{kind: directiveDance}
	}
	if containsAny(t, patrolWords) {
		return directive{kind: directivePatrol}
	}
	if strings.Contains(t, "stop") {
		return directive{kind: directiveStop}
	}
	if containsAny(t, helpWords) {
		return directive{kind: directiveHelp}
	}

	for _, m := range moveVocabulary {
		if strings.Contains(t, m.phrase) {
			return directive{kind: directiveMove, phrase: m.phrase, drive: m.drive}
		}
	}

	return directive{kind: directiveNone}
}

// trimNoteLead drops the connective words people say between
// "take a note" and the content.
func trimNoteLead(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ":")
	s = strings.TrimPrefix(s, ",")
	s = strings.TrimSpace(s)
	for _, lead := range []string{"that ", "to ", "about "} {
		if rest, ok := strings.CutPrefix(s, lead); ok {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

// rememberVerbs anchor "remember <name> <verb> ..." clauses to a
// person instead of a context fact.
var rememberVerbs = map[string]bool{
	"likes": true,
	"loves": true,
	"hates": true,
	"has":   true,
	"wants": true,
	"needs": true,
	"plays": true,
	"knows": true,
}

// memoryWrite is a remember clause resolved into a memory mutation.
type memoryWrite struct {
	key    string // context key, or the person's name
	value  string // context value, or the fact about them
	person bool
}

// parseRememberClause breaks a remember clause into a memory write.
// "my favorite color is blue" becomes a context fact and "sam likes
// trains" a fact about sam; ok is false when neither shape fits.
func parseRememberClause(clause string) (memoryWrite, bool) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return memoryWrite{}, false
	}

	if key, value, found := strings.Cut(clause, " is "); found {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key != "" && value != "" {
			return memoryWrite{key: key, value: value}, true
		}
	}

	fields := strings.Fields(clause)
	for i := 1; i < len(fields); i++ {
		if rememberVerbs[fields[i]] {
			return memoryWrite{
				key:    strings.Join(fields[:i], " "),
				value:  strings.Join(fields[i:], " "),
				person: true,
			}, true
		}
	}

	return memoryWrite{}, false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
