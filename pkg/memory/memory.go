// Package memory provides persistent facts the robot carries across
// restarts.
//
// Memory is organized into two categories:
//   - Context: situational key-value facts ("owner name" -> "alex")
//   - People: facts about individuals, with a last-seen timestamp
//
// Mutations auto-save to the configured Store. The chat subsystem
// reads memory to enrich its system prompt and writes to it from the
// "remember ..." voice command.
package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is the robot's persistent fact store.
type Memory struct {
	// Context stores situational key-value facts.
	Context map[string]string `json:"context"`

	// People stores facts about individuals, keyed by lowercase name.
	People map[string]*Person `json:"people"`

	store Store        `json:"-"`
	mu    sync.RWMutex `json:"-"`
}

// New creates an in-memory store with no persistence.
func New() *Memory {
	return &Memory{
		Context: make(map[string]string),
		People:  make(map[string]*Person),
	}
}

// NewWithStore creates a memory backed by a persistence store and
// loads any existing data from it.
func NewWithStore(store Store) *Memory {
	m := New()
	m.store = store
	m.Load()
	return m
}

// NewWithFile creates a memory that persists to a JSON file.
func NewWithFile(path string) *Memory {
	return NewWithStore(NewJSONStore(path))
}

// Save persists memory to the configured store.
func (m *Memory) Save() error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		return err
	}

	return m.store.Save(data)
}

// Load reads memory from the configured store. Missing data is not an
// error, the robot simply starts with an empty memory.
func (m *Memory) Load() error {
	if m.store == nil {
		return nil
	}

	data, err := m.store.Load()
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var loaded Memory
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	if loaded.Context != nil {
		m.Context = loaded.Context
	}
	if loaded.People != nil {
		m.People = loaded.People
	}

	return nil
}

// Close releases resources held by the store.
func (m *Memory) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

// Clear resets all memory to an empty state.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.Context = make(map[string]string)
	m.People = make(map[string]*Person)
	m.mu.Unlock()

	m.Save()
}

// Stats returns counts of items in each category.
func (m *Memory) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	facts := 0
	for _, p := range m.People {
		facts += len(p.Facts)
	}

	return map[string]int{
		"context":      len(m.Context),
		"people":       len(m.People),
		"people_facts": facts,
	}
}

// PromptFacts renders memory as short lines suitable for a system
// prompt, sorted for stable output. At most limit lines are returned,
// 0 means no limit.
func (m *Memory) PromptFacts(limit int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var lines []string
	for k, v := range m.Context {
		lines = append(lines, fmt.Sprintf("%s is %s", k, v))
	}
	for name, p := range m.People {
		for _, fact := range p.Facts {
			lines = append(lines, fmt.Sprintf("%s: %s", name, fact))
		}
	}
	sort.Strings(lines)

	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return lines
}
