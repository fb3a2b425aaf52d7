package notes

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/teslashibe/go-raspbot/pkg/inference"
)

// GeminiClient generates titles and tags for notes. Requests are
// rate limited so a burst of voice notes cannot burn API quota, and
// results are cached by content.
type GeminiClient struct {
	llm     inference.Provider
	limiter *rate.Limiter

	cacheMu    sync.RWMutex
	titleCache map[string]string
	tagsCache  map[string][]string
}

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey         string
	Model          string // default gemini-2.0-flash
	MaxRequestsMin int    // max requests per minute (default 10)
}

// NewGeminiClient creates a Gemini client for note title and tag
// generation.
func NewGeminiClient(cfg GeminiConfig) (*GeminiClient, error) {
	opts := []inference.Option{
		inference.WithAPIKey(cfg.APIKey),
		inference.WithMaxTokens(100),
		inference.WithTemperature(0.3),
	}
	if cfg.Model != "" {
		opts = append(opts, inference.WithModel(cfg.Model))
	}

	llm, err := inference.NewGemini(opts...)
	if err != nil {
		return nil, err
	}

	return newGeminiClient(llm, cfg.MaxRequestsMin), nil
}

func newGeminiClient(llm inference.Provider, maxRequestsMin int) *GeminiClient {
	if maxRequestsMin <= 0 {
		maxRequestsMin = 10
	}

	return &GeminiClient{
		llm:        llm,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(maxRequestsMin)), 1),
		titleCache: make(map[string]string),
		tagsCache:  make(map[string][]string),
	}
}

// GenerateTitleAndTags generates a title and tags in a single call.
// On failure it returns a fallback title derived from the content
// along with the error so the caller can still save the note.
func (g *GeminiClient) GenerateTitleAndTags(ctx context.Context, content string) (string, []string, error) {
	if content == "" {
		return "", nil, fmt.Errorf("content is empty")
	}

	cacheKey := hashContent(content)
	g.cacheMu.RLock()
	cachedTitle, hasTitle := g.titleCache[cacheKey]
	cachedTags, hasTags := g.tagsCache[cacheKey]
	g.cacheMu.RUnlock()

	if hasTitle && hasTags {
		return cachedTitle, cachedTags, nil
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return fallbackTitle(content), nil, err
	}

	prompt := fmt.Sprintf(`Analyze this note and provide a title and tags:

"%s"

Respond in exactly this format:
TITLE: [concise 3-6 word title in Title Case]
TAGS: [3-5 lowercase tags separated by commas]

Example:
TITLE: Plant Watering Robot Idea
TAGS: robotics, gardening, automation`, content)

	resp, err := g.llm.Chat(ctx, &inference.ChatRequest{
		Messages: []inference.Message{inference.NewUserMessage(prompt)},
	})
	if err != nil {
		return fallbackTitle(content), nil, err
	}

	title, tags := parseTitleAndTags(resp.Message.Content)
	if title == "" {
		title = fallbackTitle(content)
	}

	g.cacheMu.Lock()
	g.titleCache[cacheKey] = title
	g.tagsCache[cacheKey] = tags
	g.cacheMu.Unlock()

	return title, tags, nil
}

// ClearCache clears the title and tag cache.
func (g *GeminiClient) ClearCache() {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()
	g.titleCache = make(map[string]string)
	g.tagsCache = make(map[string][]string)
}

// CacheStats returns the number of cached entries.
func (g *GeminiClient) CacheStats() (titles, tags int) {
	g.cacheMu.RLock()
	defer g.cacheMu.RUnlock()
	return len(g.titleCache), len(g.tagsCache)
}

// Close releases the underlying provider.
func (g *GeminiClient) Close() error {
	return g.llm.Close()
}

// hashContent creates a cache key for content.
func hashContent(content string) string {
	if len(content) > 100 {
		return fmt.Sprintf("%s...%d", content[:100], len(content))
	}
	return content
}

// cleanTitle strips quotes, prefixes and trailing punctuation from a
// generated title.
func cleanTitle(title string) string {
	title = strings.Trim(title, `"'`)
	title = strings.TrimRight(title, ".,;:!?")

	if strings.HasPrefix(strings.ToLower(title), "title:") {
		title = strings.TrimSpace(title[6:])
	}

	if len(title) > 60 {
		title = title[:57] + "..."
	}

	return strings.TrimSpace(title)
}

// parseTags parses comma-separated tags from a response.
func parseTags(response string) []string {
	response = strings.TrimPrefix(strings.ToLower(response), "tags:")
	response = strings.TrimSpace(response)

	var tags []string
	for _, part := range strings.Split(response, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, `"'#`)

		if tag != "" && len(tag) < 30 {
			tags = append(tags, tag)
		}
	}

	if len(tags) > 5 {
		tags = tags[:5]
	}

	return tags
}

// parseTitleAndTags parses the TITLE/TAGS lines of a response.
func parseTitleAndTags(response string) (string, []string) {
	var title string
	var tags []string

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		lineLower := strings.ToLower(line)

		if strings.HasPrefix(lineLower, "title:") {
			title = cleanTitle(strings.TrimSpace(line[6:]))
		} else if strings.HasPrefix(lineLower, "tags:") {
			tags = parseTags(strings.TrimSpace(line[5:]))
		}
	}

	return title, tags
}
