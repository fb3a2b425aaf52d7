package memory

import "strings"

// SetContext stores a situational fact and auto-saves.
// Example: SetContext("owner name", "alex")
func (m *Memory) SetContext(key, value string) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return
	}

	m.mu.Lock()
	m.Context[key] = strings.TrimSpace(value)
	m.mu.Unlock()

	m.Save()
}

// GetContext retrieves a situational fact.
func (m *Memory) GetContext(key string) (string, bool) {
	key = strings.ToLower(strings.TrimSpace(key))

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.Context[key]
	return value, ok
}

// DeleteContext removes a situational fact and auto-saves.
// Reports whether the key existed.
func (m *Memory) DeleteContext(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))

	m.mu.Lock()
	_, exists := m.Context[key]
	if exists {
		delete(m.Context, key)
	}
	m.mu.Unlock()

	if exists {
		m.Save()
	}
	return exists
}

// AllContext returns a copy of all context facts.
func (m *Memory) AllContext() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.Context))
	for k, v := range m.Context {
		result[k] = v
	}
	return result
}

// SearchContext finds facts whose key or value contains the query,
// case-insensitive.
func (m *Memory) SearchContext(query string) map[string]string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string)
	for k, v := range m.Context {
		if strings.Contains(strings.ToLower(k), query) ||
			strings.Contains(strings.ToLower(v), query) {
			result[k] = v
		}
	}
	return result
}
