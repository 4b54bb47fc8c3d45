package scope

import (
	"errors"
	"sync"
)

// Registry holds the set of scope names an application recognises, each
// with a human readable description for discovery endpoints.
type Registry struct {
	mu           sync.RWMutex
	descriptions map[string]string
	order        []string
	frozen       bool
}

// NewRegistry returns an empty, mutable registry.
func NewRegistry() *Registry {
	return &Registry{descriptions: make(map[string]string)}
}

// Register adds a scope. Must be called before [Registry.Freeze].
func (r *Registry) Register(name, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return errors.New("registry frozen")
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if _, exists := r.descriptions[name]; exists {
		return errors.New("scope already registered")
	}

	r.descriptions[name] = description
	r.order = append(r.order, name)
	return nil
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Known reports whether name is registered.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.descriptions[name]
	return ok
}

// Description returns the description registered for name.
func (r *Registry) Description(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptions[name]
	return d, ok
}

// Count returns the number of registered scopes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptions)
}

// Names returns registered scope names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Filter drops names the registry does not know, preserving order.
func (r *Registry) Filter(names []string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := r.descriptions[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Describe returns a copy of the name to description map.
func (r *Registry) Describe() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.descriptions))
	for k, v := range r.descriptions {
		out[k] = v
	}
	return out
}
