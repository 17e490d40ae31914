// Package source binds a query builder, a fetcher and a normalizer into one
// upstream camera provider.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/camera-db/internal/model"
	"github.com/sells-group/camera-db/internal/normalize"
	"github.com/sells-group/camera-db/internal/query"
)

// Source is one upstream camera provider.
type Source interface {
	// Name returns the unique identifier used in plans (e.g., "overpass", "poi_factory").
	Name() string

	// Provider returns the pacing key. Sources sharing a host share a key.
	Provider() string

	// Supports reports whether the source can serve cat for scope.
	Supports(cat model.Category, scope query.Scope) bool

	// Collect fetches and normalizes the category. An error means the attempt
	// failed and its records must not be used.
	Collect(ctx context.Context, cat model.Category, scope query.Scope) ([]model.Camera, normalize.Stats, error)
}

// Registry maps source names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source. A later registration under the same name replaces
// the earlier one but keeps its position.
func (r *Registry) Register(s Source) {
	name := s.Name()
	if _, ok := r.sources[name]; !ok {
		r.order = append(r.order, name)
	}
	r.sources[name] = s
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q", name)
	}
	return s, nil
}

// Names returns all registered source names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
