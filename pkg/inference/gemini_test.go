package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func geminiBody(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	}
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini()
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Expected ErrNoAPIKey, got %v", err)
	}
}

func TestGeminiChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			t.Errorf("Expected generateContent endpoint, got %s", r.URL.Path)
		}
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash") {
			t.Errorf("Expected default model in path, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected API key in query, got %q", r.URL.Query().Get("key"))
		}

		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)
		contents, _ := reqBody["contents"].([]any)
		if len(contents) != 1 {
			t.Errorf("Expected 1 content entry, got %d", len(contents))
		}
		if _, ok := reqBody["systemInstruction"]; !ok {
			t.Error("Expected systemInstruction for system message")
		}

		json.NewEncoder(w).Encode(geminiBody("Hello from Gemini"))
	}))
	defer server.Close()

	gemini, err := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	defer gemini.Close()

	resp, err := gemini.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewSystemMessage("You are a small robot."),
			NewUserMessage("Hello"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "Hello from Gemini" {
		t.Errorf("Unexpected content: %s", resp.Message.Content)
	}
	if resp.Message.Role != RoleAssistant {
		t.Errorf("Expected assistant role, got %s", resp.Message.Role)
	}
}

func TestGeminiRoleMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]any
		json.NewDecoder(r.Body).Decode(&reqBody)

		contents, _ := reqBody["contents"].([]any)
		if len(contents) != 2 {
			t.Fatalf("Expected 2 content entries, got %d", len(contents))
		}
		first, _ := contents[0].(map[string]any)
		second, _ := contents[1].(map[string]any)
		if first["role"] != "user" {
			t.Errorf("Expected user role, got %v", first["role"])
		}
		if second["role"] != "model" {
			t.Errorf("Expected assistant mapped to model, got %v", second["role"])
		}

		json.NewEncoder(w).Encode(geminiBody("ok"))
	}))
	defer server.Close()

	gemini, _ := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	defer gemini.Close()

	_, err := gemini.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			NewUserMessage("Hi"),
			NewAssistantMessage("Hello there"),
		},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
}

func TestGeminiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "API key not valid",
				"code":    400,
			},
		})
	}))
	defer server.Close()

	gemini, _ := NewGemini(WithAPIKey("bad-key"), WithBaseURL(server.URL))
	defer gemini.Close()

	_, err := gemini.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err == nil {
		t.Fatal("Expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %T", err)
	}
	if apiErr.StatusCode != 400 {
		t.Errorf("Expected 400, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "API key not valid" {
		t.Errorf("Expected parsed message, got %q", apiErr.Message)
	}
}

func TestGeminiEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer server.Close()

	gemini, _ := NewGemini(WithAPIKey("test-key"), WithBaseURL(server.URL))
	defer gemini.Close()

	_, err := gemini.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if err == nil {
		t.Fatal("Expected error for empty candidates")
	}
}

func TestGeminiStreamNotSupported(t *testing.T) {
	gemini, _ := NewGemini(WithAPIKey("test-key"))
	defer gemini.Close()

	_, err := gemini.Stream(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("Hello")},
	})
	if !errors.Is(err, ErrStreamingNotSupported) {
		t.Errorf("Expected ErrStreamingNotSupported, got %v", err)
	}
}
