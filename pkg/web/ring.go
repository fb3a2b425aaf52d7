package web

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// DefaultLogLines is how many entries the ring keeps when NewLogRing
// is given zero.
const DefaultLogLines = 500

// LogEntry is one dashboard log line.
type LogEntry struct {
	Time    string            `json:"time"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// LogRing keeps the most recent log entries for the dashboard. It
// plugs into the global logger through Handler, so everything the
// robot logs shows up in the browser: the ring serves the backlog and
// OnEntry streams new lines out as they land.
type LogRing struct {
	mu      sync.Mutex
	entries []LogEntry
	max     int

	// OnEntry is invoked for every recorded entry, outside the
	// ring lock. Set it before the ring is wired into a logger.
	OnEntry func(e LogEntry)
}

// NewLogRing creates a ring holding up to max entries.
func NewLogRing(max int) *LogRing {
	if max <= 0 {
		max = DefaultLogLines
	}
	return &LogRing{
		entries: make([]LogEntry, 0, max),
		max:     max,
	}
}

// Entries returns a copy of the buffered entries, oldest first.
func (r *LogRing) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of buffered entries.
func (r *LogRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *LogRing) add(e LogEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.max {
		r.entries = r.entries[1:]
	}
	onEntry := r.OnEntry
	r.mu.Unlock()

	if onEntry != nil {
		onEntry(e)
	}
}

// Handler returns a slog handler that records into the ring at or
// above min. Pass it to log.InitTee next to the console handler.
func (r *LogRing) Handler(min slog.Level) slog.Handler {
	return ringHandler{ring: r, min: min}
}

// ringHandler adapts the ring to slog. Attrs carried by WithAttrs and
// groups are flattened into the entry's Fields map with dotted keys.
type ringHandler struct {
	ring  *LogRing
	min   slog.Level
	attrs []slog.Attr
	group string
}

func (h ringHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h ringHandler) Handle(_ context.Context, rec slog.Record) error {
	var fields map[string]string
	put := func(a slog.Attr) {
		if fields == nil {
			fields = make(map[string]string, rec.NumAttrs()+len(h.attrs))
		}
		fields[h.key(a.Key)] = a.Value.Resolve().String()
	}
	for _, a := range h.attrs {
		put(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		put(a)
		return true
	})

	h.ring.add(LogEntry{
		Time:    rec.Time.Format("15:04:05"),
		Level:   strings.ToLower(rec.Level.String()),
		Message: rec.Message,
		Fields:  fields,
	})
	return nil
}

func (h ringHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return next
}

func (h ringHandler) WithGroup(name string) slog.Handler {
	next := h
	if next.group == "" {
		next.group = name
	} else {
		next.group = next.group + "." + name
	}
	return next
}
