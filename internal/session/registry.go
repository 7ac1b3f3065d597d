package session

import (
	"sync"
	"time"

	"peerprep/interview/internal/models"
)

// Registry maps a connection id to its live session. The lock covers map
// operations only; sessions carry their own lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() int64
}

type RegistryOption func(*Registry)

// WithClock replaces the millisecond clock used for new sessions.
func WithClock(now func() int64) RegistryOption {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		now:      func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers a fresh pending session for connectionID. A session that
// is still registered under the same id is replaced and its questions are
// lost; initial-setup is the only caller.
func (r *Registry) Create(connectionID string, candidate models.Candidate) *Session {
	s := newSession(connectionID, candidate, r.now)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connectionID] = s
	return s
}

func (r *Registry) Get(connectionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[connectionID]
	return s, ok
}

// Holds reports whether s is still the session registered under its id.
// Async collaborator results are only applied when this is true.
func (r *Registry) Holds(s *Session) bool {
	current, ok := r.Get(s.ID())
	return ok && current == s
}

func (r *Registry) Remove(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, connectionID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
