package view

import "sync"

// Registry hands out one View per bot, creating them lazily. Views are never
// shared across bots; the registry only deduplicates per bot ID.
type Registry struct {
	mu      sync.Mutex
	views   map[string]*View
	factory func(botID string) *View
}

// NewRegistry constructs a registry around a view factory.
func NewRegistry(factory func(botID string) *View) *Registry {
	return &Registry{views: make(map[string]*View), factory: factory}
}

// Get returns the view for a bot, creating it on first use.
func (r *Registry) Get(botID string) *View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.views[botID]; ok {
		return v
	}
	v := r.factory(botID)
	r.views[botID] = v
	return v
}

// CloseAll aborts every view's in-flight work.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.views {
		v.Close()
	}
}
