package chat

import (
	"strings"
	"testing"

	"github.com/teslashibe/go-raspbot/pkg/emotion"
	"github.com/teslashibe/go-raspbot/pkg/inference"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		text string
		feel emotion.Emotion
	}{
		{"clean json", `{"text": "Hi there.", "emotion": "happy"}`, "Hi there.", emotion.Happy},
		{"fenced json", "```json\n{\"text\": \"Ok.\", \"emotion\": \"angry\"}\n```", "Ok.", emotion.Angry},
		{"bare fence", "```\n{\"text\": \"Ok.\", \"emotion\": \"neutral\"}\n```", "Ok.", emotion.Neutral},
		{"json inside prose", `Sure! {"text": "Done.", "emotion": "happy"} Hope that helps.`, "Done.", emotion.Happy},
		{"unknown emotion", `{"text": "Hm.", "emotion": "sleepy"}`, "Hm.", emotion.Neutral},
		{"uppercase emotion", `{"text": "Hm.", "emotion": "HAPPY"}`, "Hm.", emotion.Happy},
		{"plain prose", "I am just text.", "I am just text.", emotion.Neutral},
		{"missing text key", `{"emotion": "happy"}`, lineUnsure, emotion.Happy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, feel := parseReply(tt.raw)
			if text != tt.text {
				t.Errorf("text = %q, want %q", text, tt.text)
			}
			if feel != tt.feel {
				t.Errorf("emotion = %v, want %v", feel, tt.feel)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"plain", "plain"},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```json {\"a\": 1}```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.out {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.out)
		}
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	p := buildSystemPrompt("Marich", nil, nil)
	if !strings.Contains(p, "You are Marich") {
		t.Errorf("prompt missing persona: %q", p)
	}
	if !strings.Contains(p, "valid JSON") || !strings.Contains(p, "'emotion'") {
		t.Errorf("prompt missing the reply contract: %q", p)
	}
	if strings.Contains(p, "Things you know") {
		t.Error("factless prompt should not carry a facts section")
	}

	p = buildSystemPrompt("Marich",
		[]string{"owner name is alex"},
		[]string{"Grocery List"},
	)
	if !strings.Contains(p, "Things you know:\n- owner name is alex") {
		t.Errorf("prompt missing facts: %q", p)
	}
	if !strings.Contains(p, "Recent notes you took:\n- Grocery List") {
		t.Errorf("prompt missing notes: %q", p)
	}
}

func TestClampHistory(t *testing.T) {
	var h []inference.Message
	for i := 0; i < 10; i++ {
		h = append(h, inference.NewUserMessage(strings.Repeat("x", i+1)))
	}

	got := clampHistory(h, 6)
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	if got[0].Content != strings.Repeat("x", 5) {
		t.Errorf("first kept message = %q", got[0].Content)
	}

	short := clampHistory(h[:3], 6)
	if len(short) != 3 {
		t.Errorf("short history len = %d, want 3", len(short))
	}
}

func TestEncodeReply(t *testing.T) {
	raw := encodeReply("Goodbye!", emotion.Happy)
	text, feel := parseReply(raw)
	if text != "Goodbye!" || feel != emotion.Happy {
		t.Errorf("round trip = %q/%v", text, feel)
	}
}
