// Package notes stores voice notes taken through the "take a note"
// command. Notes persist to a JSON file, get titles and tags from
// Gemini when an API key is configured, and can sync to Google Docs.
package notes

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is a single captured note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// DocID is the Google Doc this note syncs to, empty until the
	// first successful sync.
	DocID string `json:"doc_id,omitempty"`
}

// NewNote creates a note with a generated ID and a title derived
// from the content.
func NewNote(content string) *Note {
	now := time.Now()
	return &Note{
		ID:        uuid.New().String(),
		Title:     fallbackTitle(content),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetTitle replaces the note title.
func (n *Note) SetTitle(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	n.Title = title
	n.UpdatedAt = time.Now()
}

// SetTags replaces the note tags.
func (n *Note) SetTags(tags []string) {
	n.Tags = tags
	n.UpdatedAt = time.Now()
}

// fallbackTitle derives a title from the first words of the content.
func fallbackTitle(content string) string {
	title := strings.TrimSpace(content)
	title = strings.ReplaceAll(title, "\n", " ")
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	return title
}
