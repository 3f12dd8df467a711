package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the local engine implementations known to this process.
// It is populated once at startup and read-only afterwards; lookups are
// exact-match and case-sensitive.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Registration
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Registration),
	}
}

// Register adds an engine under the given name. Registering the same name
// twice is an error: each engine has exactly one canonical implementation.
func (r *Registry) Register(name string, reg Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("engine %q is already registered", name)
	}
	r.engines[name] = reg
	return nil
}

// Lookup returns the registration for an engine name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.engines[name]
	return reg, ok
}

// List returns the metadata of all registered engines, sorted by name for a
// stable API response.
func (r *Registry) List() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]Metadata, 0, len(r.engines))
	for _, reg := range r.engines {
		metas = append(metas, reg.Metadata)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Name < metas[j].Name
	})
	return metas
}
