package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/inference"
)

// buildSystemPrompt assembles the persona contract plus whatever the
// robot remembers. facts and noteTitles may be empty.
func buildSystemPrompt(name string, facts, noteTitles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an AI assistant. ", name)
	b.WriteString("Your response MUST be valid JSON, with keys 'text' and 'emotion'. ")
	b.WriteString("Rules for 'text': must be a single, short sentence. Plain words only. ")
	b.WriteString("Rules for 'emotion': must be one of 'neutral', 'happy', or 'angry'. ")
	b.WriteString("Act emotional - if insulted, respond with anger; if someone laughs, be happy.")

	if len(facts) > 0 {
		b.WriteString("\nThings you know:")
		for _, f := range facts {
			b.WriteString("\n- " + f)
		}
	}
	if len(noteTitles) > 0 {
		b.WriteString("\nRecent notes you took:")
		for _, t := range noteTitles {
			b.WriteString("\n- " + t)
		}
	}
	return b.String()
}

// reply is the JSON contract the system prompt demands from the model.
type reply struct {
	Text    string `json:"text"`
	Emotion string `json:"emotion"`
}

// parseReply extracts the spoken text and emotion from a model
// response. Small models wander off the contract in predictable ways,
// so code fences are stripped and a JSON object is dug out of
// surrounding prose before giving up and speaking the whole reply as
// neutral text.
func parseReply(raw string) (string, emotion.Emotion) {
	s := stripFences(raw)

	var r reply
	err := json.Unmarshal([]byte(s), &r)
	if err != nil {
		if obj, ok := innerObject(s); ok {
			err = json.Unmarshal([]byte(obj), &r)
		}
	}
	if err != nil {
		return s, emotion.Neutral
	}

	e, perr := emotion.Parse(r.Emotion)
	if perr != nil {
		e = emotion.Neutral
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		text = lineUnsure
	}
	return text, e
}

// stripFences removes a markdown code fence wrapper, with or without
// a language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// innerObject returns the outermost {...} span inside s.
func innerObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// clampHistory keeps the most recent limit messages, copying so the
// trimmed prefix can be collected.
func clampHistory(h []inference.Message, limit int) []inference.Message {
	if len(h) <= limit {
		return h
	}
	return append(h[:0:0], h[len(h)-limit:]...)
}

// encodeReply renders a reply back to the wire shape, for keeping the
// model's half of the conversation in contract form even when the
// spoken line came from an error path.
func encodeReply(text string, e emotion.Emotion) string {
	raw, err := json.Marshal(reply{Text: text, Emotion: e.String()})
	if err != nil {
		return text
	}
	return string(raw)
}
