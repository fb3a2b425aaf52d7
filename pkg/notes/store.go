package notes

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store defines note storage operations.
type Store interface {
	// Save creates or updates a note.
	Save(note *Note) error

	// Get retrieves a note by ID.
	Get(id string) (*Note, error)

	// GetByTitle retrieves a note by exact title match.
	GetByTitle(title string) (*Note, error)

	// List returns all notes, newest first.
	List() ([]*Note, error)

	// Update updates an existing note.
	Update(note *Note) error

	// Delete removes a note by ID.
	Delete(id string) error

	// Search finds notes matching a query in title, content or tags.
	Search(query string) ([]*Note, error)

	// FindByKeyword finds notes whose title contains the keyword.
	FindByKeyword(keyword string) ([]*Note, error)

	// Count returns the total number of notes.
	Count() int
}

// JSONStore implements Store using a JSON file for persistence.
type JSONStore struct {
	path  string
	notes map[string]*Note
	mu    sync.RWMutex
}

// storeData is the JSON structure of the store file.
type storeData struct {
	Version   int     `json:"version"`
	UpdatedAt string  `json:"updated_at"`
	Notes     []*Note `json:"notes"`
}

const currentVersion = 1

// NewJSONStore creates a JSON-backed store at the given path. The
// file is created on first save.
func NewJSONStore(path string) (*JSONStore, error) {
	store := &JSONStore{
		path:  path,
		notes: make(map[string]*Note),
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := store.load(); err != nil {
			return nil, fmt.Errorf("failed to load store: %w", err)
		}
	}

	return store, nil
}

// NewDefaultStore creates a store at ~/.raspbot/notes.json.
func NewDefaultStore() (*JSONStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewJSONStore(filepath.Join(homeDir, ".raspbot", "notes.json"))
}

// load reads the store from disk.
func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var stored storeData
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	s.notes = make(map[string]*Note)
	for _, note := range stored.Notes {
		s.notes[note.ID] = note
	}

	return nil
}

// save writes the store to disk. Callers must hold s.mu.
func (s *JSONStore) save() error {
	notes := make([]*Note, 0, len(s.notes))
	for _, note := range s.notes {
		notes = append(notes, note)
	}

	stored := storeData{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Notes:     notes,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	// Write to temp file first, then rename (atomic write)
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Save creates or updates a note.
func (s *JSONStore) Save(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.New().String()
	}

	now := time.Now()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now

	s.notes[note.ID] = note
	return s.save()
}

// Get retrieves a note by ID.
func (s *JSONStore) Get(id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[id]
	if !ok {
		return nil, fmt.Errorf("note not found: %s", id)
	}
	return note, nil
}

// GetByTitle retrieves a note by exact title match, case-insensitive.
func (s *JSONStore) GetByTitle(title string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titleLower := strings.ToLower(title)
	for _, note := range s.notes {
		if strings.ToLower(note.Title) == titleLower {
			return note, nil
		}
	}
	return nil, fmt.Errorf("note not found with title: %s", title)
}

// List returns all notes sorted by updated time, newest first.
func (s *JSONStore) List() ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notes := make([]*Note, 0, len(s.notes))
	for _, note := range s.notes {
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})

	return notes, nil
}

// Update updates an existing note.
func (s *JSONStore) Update(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[note.ID]; !ok {
		return fmt.Errorf("note not found: %s", note.ID)
	}

	note.UpdatedAt = time.Now()
	s.notes[note.ID] = note
	return s.save()
}

// Delete removes a note by ID.
func (s *JSONStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return fmt.Errorf("note not found: %s", id)
	}

	delete(s.notes, id)
	return s.save()
}

// Search finds notes matching a query in title, content or tags.
func (s *JSONStore) Search(query string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryLower := strings.ToLower(query)
	var results []*Note

	for _, note := range s.notes {
		if strings.Contains(strings.ToLower(note.Title), queryLower) {
			results = append(results, note)
			continue
		}
		if strings.Contains(strings.ToLower(note.Content), queryLower) {
			results = append(results, note)
			continue
		}
		for _, tag := range note.Tags {
			if strings.Contains(strings.ToLower(tag), queryLower) {
				results = append(results, note)
				break
			}
		}
	}

	return results, nil
}

// FindByKeyword finds notes whose title contains the keyword.
func (s *JSONStore) FindByKeyword(keyword string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keywordLower := strings.ToLower(keyword)
	var results []*Note

	for _, note := range s.notes {
		if strings.Contains(strings.ToLower(note.Title), keywordLower) {
			results = append(results, note)
		}
	}

	return results, nil
}

// Count returns the total number of notes.
func (s *JSONStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Path returns the file path of the store.
func (s *JSONStore) Path() string {
	return s.path
}

var _ Store = (*JSONStore)(nil)
