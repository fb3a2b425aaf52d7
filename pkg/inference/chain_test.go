package inference

import (
	"context"
	"errors"
	"testing"
)

func TestChainFallback(t *testing.T) {
	ctx := context.Background()

	broken := WithError(errors.New("connection refused"))
	working := NewMock()
	working.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{
			Message: NewAssistantMessage("from fallback"),
		}, nil
	}

	chain, _ := NewChain(broken, working)
	defer chain.Close()

	resp, err := chain.Chat(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Message.Content != "from fallback" {
		t.Errorf("Expected fallback response, got %s", resp.Message.Content)
	}
	if broken.CallCount("Chat") != 1 {
		t.Errorf("Expected broken provider tried once, got %d", broken.CallCount("Chat"))
	}
	if working.CallCount("Chat") != 1 {
		t.Errorf("Expected working provider tried once, got %d", working.CallCount("Chat"))
	}
}

func TestChainAllFail(t *testing.T) {
	ctx := context.Background()

	chain, _ := NewChain(
		WithError(errors.New("first down")),
		WithError(errors.New("second down")),
	)
	defer chain.Close()

	_, err := chain.Chat(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("hello")},
	})
	if err == nil {
		t.Fatal("Expected error when all providers fail")
	}

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("Expected ChainError, got %T", err)
	}
	if len(chainErr.Errors) != 2 {
		t.Errorf("Expected 2 collected errors, got %d", len(chainErr.Errors))
	}
}

func TestChainEmpty(t *testing.T) {
	chain, _ := NewChain()
	defer chain.Close()

	_, err := chain.Chat(context.Background(), &ChatRequest{
		Messages: []Message{NewUserMessage("hello")},
	})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
}

func TestChainProviders(t *testing.T) {
	chain, _ := NewChain(NewMock(), NewMock(), NewMock())
	defer chain.Close()

	if got := len(chain.Providers()); got != 3 {
		t.Errorf("Expected 3 providers, got %d", got)
	}
}

func TestChainHealth(t *testing.T) {
	ctx := context.Background()

	unhealthy := NewMock()
	unhealthy.HealthFunc = func(ctx context.Context) error {
		return errors.New("not responding")
	}

	chain, _ := NewChain(unhealthy, NewMock())
	defer chain.Close()

	if err := chain.Health(ctx); err != nil {
		t.Errorf("Health should pass with one healthy provider: %v", err)
	}
}

func TestChainHealthAllUnhealthy(t *testing.T) {
	ctx := context.Background()

	chain, _ := NewChain(
		WithError(errors.New("down")),
		WithError(errors.New("also down")),
	)
	defer chain.Close()

	if err := chain.Health(ctx); err == nil {
		t.Error("Expected health failure when no provider responds")
	}
}

func TestChainStream(t *testing.T) {
	ctx := context.Background()

	broken := WithError(errors.New("stream refused"))
	working := NewMock()
	working.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return &ChatResponse{
			Message: NewAssistantMessage("streamed text"),
		}, nil
	}

	chain, _ := NewChain(broken, working)
	defer chain.Close()

	stream, err := chain.Stream(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var text string
	for {
		chunk, err := stream.Recv()
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		text += chunk.Delta
		if chunk.Done {
			break
		}
	}
	if text != "streamed text" {
		t.Errorf("Expected streamed text from fallback, got %q", text)
	}
}

func TestChainContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	slow := NewMock()
	slow.ChatFunc = func(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
		return nil, ctx.Err()
	}

	chain, _ := NewChain(slow, NewMock())
	defer chain.Close()

	_, err := chain.Chat(ctx, &ChatRequest{
		Messages: []Message{NewUserMessage("hello")},
	})
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
