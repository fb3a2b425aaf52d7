package orchestrator

import (
	"sync"

	"github.com/teslashibe/go-raspbot/pkg/modes"
	"github.com/teslashibe/go-raspbot/pkg/resource"
)

// Builder produces the resource spec backing a mode. The mode value
// carries the variant detail (which color to track).
type Builder func(m modes.Mode) resource.Spec

// Registry maps mode kinds to subsystem builders. The engine consults
// it on every select; registration happens once during wiring.
type Registry struct {
	mu       sync.RWMutex
	builders map[modes.Kind]Builder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[modes.Kind]Builder)}
}

// Register binds a builder to a mode kind, replacing any previous one.
func (r *Registry) Register(kind modes.Kind, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[kind] = b
}

// SpecFor resolves the spec for a mode. The second return is false
// when no builder is registered for its kind.
func (r *Registry) SpecFor(m modes.Mode) (resource.Spec, bool) {
	r.mu.RLock()
	b, ok := r.builders[m.Kind]
	r.mu.RUnlock()
	if !ok {
		return resource.Spec{}, false
	}
	return b(m), true
}

// Kinds lists the registered mode kinds.
func (r *Registry) Kinds() []modes.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]modes.Kind, 0, len(r.builders))
	for k := range r.builders {
		out = append(out, k)
	}
	return out
}
