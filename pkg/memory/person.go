package memory

import (
	"strings"
	"time"
)

// Person stores facts about an individual the robot has met.
type Person struct {
	Name     string    `json:"name"`
	Facts    []string  `json:"facts"`
	LastSeen time.Time `json:"last_seen"`
}

// NewPerson creates a Person with the given name.
func NewPerson(name string) *Person {
	return &Person{
		Name:     strings.ToLower(strings.TrimSpace(name)),
		Facts:    []string{},
		LastSeen: time.Now(),
	}
}

// AddFact appends a fact and refreshes the last-seen timestamp.
func (p *Person) AddFact(fact string) {
	p.Facts = append(p.Facts, fact)
	p.LastSeen = time.Now()
}

// Touch updates the last-seen timestamp to now.
func (p *Person) Touch() {
	p.LastSeen = time.Now()
}

// RememberPerson stores a fact about a person and auto-saves.
func (m *Memory) RememberPerson(name, fact string) {
	name = strings.ToLower(strings.TrimSpace(name))
	fact = strings.TrimSpace(fact)
	if name == "" || fact == "" {
		return
	}

	m.mu.Lock()
	if _, ok := m.People[name]; !ok {
		m.People[name] = NewPerson(name)
	}
	m.People[name].AddFact(fact)
	m.mu.Unlock()

	m.Save()
}

// RecallPerson retrieves facts about a person and marks them seen.
func (m *Memory) RecallPerson(name string) []string {
	name = strings.ToLower(strings.TrimSpace(name))

	m.mu.Lock()
	defer m.mu.Unlock()

	if person, ok := m.People[name]; ok {
		person.Touch()
		return person.Facts
	}
	return nil
}

// FindPerson searches for a person by exact then partial name match.
func (m *Memory) FindPerson(query string) *Person {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if person, ok := m.People[query]; ok {
		return person
	}
	for name, person := range m.People {
		if strings.Contains(name, query) {
			return person
		}
	}
	return nil
}

// AllPeople returns the names of everyone the robot knows.
func (m *Memory) AllPeople() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.People))
	for name := range m.People {
		names = append(names, name)
	}
	return names
}

// ForgetPerson removes a person from memory. Reports whether the
// person existed.
func (m *Memory) ForgetPerson(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))

	m.mu.Lock()
	_, exists := m.People[name]
	if exists {
		delete(m.People, name)
	}
	m.mu.Unlock()

	if exists {
		m.Save()
	}
	return exists
}
