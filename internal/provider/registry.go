package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured verifiers by name.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

// Register adds a verifier under its own name.
// Called at startup for each enabled provider.
func (r *Registry) Register(v Verifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifiers[v.Name()] = v
}

// Get returns the verifier for the given provider name.
func (r *Registry) Get(name string) (Verifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.verifiers[name]
	if !ok {
		return nil, fmt.Errorf("provider not registered: %s", name)
	}
	return v, nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.verifiers))
	for name := range r.verifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
