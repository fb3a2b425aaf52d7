package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const providerHTTPD = "httpd"

// HTTPD implements Provider against a synthesis server that accepts
// POSTed text and answers with a WAV clip. Wrappers like piper-http
// speak this shape; anything that does can stand in.
type HTTPD struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewHTTPD creates an HTTP synthesis provider.
func NewHTTPD(opts ...Option) (*HTTPD, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.ServerURL == "" {
		return nil, ErrNoServerURL
	}

	return &HTTPD{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger.With("component", "tts.httpd"),
		baseURL: cfg.ServerURL,
	}, nil
}

// Synthesize posts the text and decodes the WAV response.
func (h *HTTPD) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	start := time.Now()

	body := []byte(text)
	req, err := http.NewRequestWithContext(ctx, "POST", h.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(providerHTTPD, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := h.doWithRetry(ctx, req, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	latency := time.Since(start).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		return nil, h.parseError(resp)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerHTTPD, fmt.Errorf("read response: %w", err))
	}

	pcm, rate, err := decodeWAV(wav)
	if err != nil {
		return nil, WrapError(providerHTTPD, err)
	}

	h.logger.Debug("synthesized audio",
		"chars", len(text),
		"samples", len(pcm),
		"latency_ms", latency,
	)

	return &AudioResult{
		PCM:        pcm,
		SampleRate: rate,
		CharCount:  len(text),
		LatencyMs:  latency,
	}, nil
}

// Health probes the server. Any response below 500 counts as alive;
// synthesis servers rarely expose a dedicated health route.
func (h *HTTPD) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL, nil)
	if err != nil {
		return WrapError(providerHTTPD, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return WrapError(providerHTTPD, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "server unhealthy",
			Provider:   providerHTTPD,
		}
	}

	return nil
}

// Close releases resources.
func (h *HTTPD) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// doWithRetry performs the request with retry logic.
func (h *HTTPD) doWithRetry(ctx context.Context, req *http.Request, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= h.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(h.config.RetryDelay * time.Duration(attempt)):
			}

			// Reset body for retry
			req.Body = io.NopCloser(bytes.NewReader(body))
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = WrapError(providerHTTPD, err)
			continue
		}

		// Check if retryable
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			lastErr = h.parseError(resp)
			resp.Body.Close()
			h.logger.Warn("retrying request",
				"attempt", attempt+1,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// parseError reads an error response body into an APIError.
func (h *HTTPD) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(body))
	if len(message) > 200 {
		message = message[:200]
	}
	if message == "" {
		message = resp.Status
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Provider:   providerHTTPD,
	}
}

// Verify HTTPD implements Provider at compile time.
var _ Provider = (*HTTPD)(nil)
