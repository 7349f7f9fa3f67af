package mockserver

import (
	"sync"
)

// Registry tracks the sessions connected to a Server.
type Registry struct {
	sessions map[*session]bool
	mu       sync.RWMutex
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*session]bool),
	}
}

// Register adds a session to the registry.
func (r *Registry) Register(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = true
}

// Unregister removes a session from the registry.
func (r *Registry) Unregister(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
}

// Count returns number of connected sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes the socket of every registered session. Their handlers
// unregister them as they exit.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for s := range r.sessions {
		_ = s.conn.Close()
	}
}
