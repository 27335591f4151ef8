package daemon

import (
	"sort"
	"sync"

	"stepwise/internal/session"
)

// sessionRegistry tracks the controllers of connected clients.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session.Controller)}
}

func (r *sessionRegistry) add(c *session.Controller) {
	r.mu.Lock()
	r.sessions[c.ID()] = c
	r.mu.Unlock()
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *sessionRegistry) get(id string) (*session.Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.sessions[id]
	return c, ok
}

func (r *sessionRegistry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// snapshots returns the live sessions, oldest first.
func (r *sessionRegistry) snapshots() []session.Snapshot {
	r.mu.RLock()
	out := make([]session.Snapshot, 0, len(r.sessions))
	for _, c := range r.sessions {
		out = append(out, c.Snapshot())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
