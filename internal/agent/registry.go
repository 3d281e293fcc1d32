package agent

import (
	"sync"
	"time"
)

// Registry keeps live agents by id along with when each was last used.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	now     func() time.Time
}

type registryEntry struct {
	agent    *Agent
	lastUsed time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*registryEntry),
		now:     time.Now,
	}
}

func (r *Registry) Add(id string, agent *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[id] = &registryEntry{agent: agent, lastUsed: r.now()}
}

// Get returns the agent for id and marks it as used.
func (r *Registry) Get(id string) (*Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastUsed = r.now()
	return entry.agent, true
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// EvictIdle removes agents unused for longer than maxIdle and returns their
// ids.
func (r *Registry) EvictIdle(maxIdle time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	var evicted []string
	for id, entry := range r.entries {
		if entry.lastUsed.Before(cutoff) {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
