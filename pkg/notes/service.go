package notes

import (
	"context"
	"errors"
	"log/slog"
)

// ErrDocsNotConfigured is returned when a sync is requested but no
// Google credentials were configured.
var ErrDocsNotConfigured = errors.New("notes: google docs not configured")

// Service ties the store, title generation and Google Docs sync
// together. The chat grammar calls Take for "take a note ..." and the
// dashboard reads through List/Search.
type Service struct {
	store    *JSONStore
	gemini   *GeminiClient
	docs     *GoogleDocsClient
	autoSync bool
	logger   *slog.Logger
}

// NewService builds the notes service from config. Gemini and Google
// Docs are optional, the service degrades to local-only notes with
// fallback titles when they are not configured.
func NewService(cfg Config) (*Service, error) {
	logger := slog.Default().With("component", "notes")

	store, err := NewJSONStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}

	s := &Service{
		store:    store,
		autoSync: cfg.AutoSync,
		logger:   logger,
	}

	if cfg.Gemini.APIKey != "" {
		gemini, err := NewGeminiClient(cfg.Gemini)
		if err != nil {
			logger.Warn("gemini unavailable, using fallback titles", "error", err)
		} else {
			s.gemini = gemini
		}
	}

	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		docs, err := NewGoogleDocsClient(cfg.Google)
		if err != nil {
			logger.Warn("google docs unavailable, notes stay local", "error", err)
		} else {
			s.docs = docs
		}
	}

	return s, nil
}

// Take captures a note, generates its title and tags, and syncs it
// when connected. Title generation failures fall back to a derived
// title so the note is never lost.
func (s *Service) Take(ctx context.Context, content string) (*Note, error) {
	note := NewNote(content)
	if err := s.store.Save(note); err != nil {
		return nil, err
	}

	if s.gemini != nil {
		title, tags, err := s.gemini.GenerateTitleAndTags(ctx, content)
		if err != nil {
			s.logger.Warn("title generation failed", "error", err)
		}
		if title != "" {
			note.SetTitle(title)
		}
		if len(tags) > 0 {
			note.SetTags(tags)
		}
		if err := s.store.Update(note); err != nil {
			return nil, err
		}
	}

	if s.autoSync && s.docs != nil && s.docs.IsAuthenticated() {
		if err := s.docs.SyncNote(note); err != nil {
			s.logger.Warn("google docs sync failed", "error", err)
		} else if err := s.store.Update(note); err != nil {
			s.logger.Warn("failed to persist doc id", "error", err)
		}
	}

	s.logger.Info("note taken", "title", note.Title, "id", note.ID)
	return note, nil
}

// Sync pushes a note to Google Docs and persists the doc ID.
func (s *Service) Sync(note *Note) error {
	if s.docs == nil {
		return ErrDocsNotConfigured
	}
	if err := s.docs.SyncNote(note); err != nil {
		return err
	}
	return s.store.Update(note)
}

// List returns all notes, newest first.
func (s *Service) List() ([]*Note, error) {
	return s.store.List()
}

// Search finds notes matching a query.
func (s *Service) Search(query string) ([]*Note, error) {
	return s.store.Search(query)
}

// Count returns the total number of notes.
func (s *Service) Count() int {
	return s.store.Count()
}

// Store exposes the underlying store.
func (s *Service) Store() *JSONStore {
	return s.store
}

// Docs exposes the Google Docs client for the dashboard auth flow,
// nil when not configured.
func (s *Service) Docs() *GoogleDocsClient {
	return s.docs
}

// Close releases held resources.
func (s *Service) Close() error {
	if s.gemini != nil {
		return s.gemini.Close()
	}
	return nil
}
