package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	fcErrors "github.com/ezoic/forestcal/pkg/errors"
	"github.com/ezoic/forestcal/session"
)

// ErrTooManySessions is returned by Registry.Add when the registry is full.
var ErrTooManySessions = fcErrors.New("too many open sessions")

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = fcErrors.New("session not found")

// entry serialises every operation on one session.
type entry struct {
	mu       sync.Mutex
	session  *session.Session
	lastUsed time.Time
}

// Registry maps session ids to sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
	max      int
}

// NewRegistry returns an empty registry holding at most max sessions.
func NewRegistry(max int) *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*entry), max: max}
}

// Add registers s.
func (r *Registry) Add(s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max > 0 && len(r.sessions) >= r.max {
		return ErrTooManySessions
	}
	r.sessions[s.ID] = &entry{session: s, lastUsed: time.Now()}
	return nil
}

// With runs fn on the session with the given id while holding that
// session's lock.
func (r *Registry) With(id uuid.UUID, fn func(*session.Session) error) error {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = time.Now()
	return fn(e.session)
}

// Remove deletes a session. It reports whether the id was known.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Expire removes sessions idle for longer than ttl and returns how many
// were removed. Sessions busy in With are skipped.
func (r *Registry) Expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if !e.mu.TryLock() {
			continue
		}
		if e.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}
