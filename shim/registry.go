package shim

import (
	"sort"
	"sync"

	shimerrors "github.com/ehealthMP/Omh-Schimmer/internal/errors"
)

// Registry maps shim keys to their Authorizers.
type Registry struct {
	mu          sync.RWMutex
	authorizers map[string]*Authorizer
}

// NewRegistry creates a registry holding authorizers.
func NewRegistry(authorizers ...*Authorizer) (*Registry, error) {
	r := &Registry{authorizers: make(map[string]*Authorizer)}
	for _, a := range authorizers {
		if err := r.Register(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a. Registering the same shim key twice is an error.
func (r *Registry) Register(a *Authorizer) error {
	if a == nil {
		return shimerrors.New(shimerrors.KindConfiguration, "Register", "authorizer is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := a.ShimKey()
	if _, exists := r.authorizers[key]; exists {
		return shimerrors.New(shimerrors.KindConfiguration, "Register", "shim %s is already registered", key)
	}
	r.authorizers[key] = a
	return nil
}

// Get returns the Authorizer for shimKey.
func (r *Registry) Get(shimKey string) (*Authorizer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.authorizers[shimKey]
	return a, ok
}

// Keys returns the registered shim keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.authorizers))
	for k := range r.authorizers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
