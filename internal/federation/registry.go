package federation

import (
	"sort"
	"sync"
)

// Registry mapea nombre → Provider. El set de providers es cerrado y
// se resuelve una vez al startup; después solo hay lecturas.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register agrega un provider bajo su Name().
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retorna el provider registrado bajo name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotConfigured
	}
	return p, nil
}

// Names lista los providers registrados, ordenados.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
