// Package memory provides an in-process SessionStore, suitable for tests and
// single-process deployments where durability across restarts is not needed.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/guardian/pkg/domain"
)

// Store implements ports.SessionStore with a mutex-guarded map.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

// Save persists a deep copy of the session, enforcing the optimistic version
// check. On success the session's version is bumped in place.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, exists := s.sessions[session.ID]
	switch {
	case !exists && session.Version != 0:
		return domain.ErrConflict
	case exists && stored.Version != session.Version:
		return domain.ErrConflict
	}

	session.Version++
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Load returns a deep copy of the stored session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return stored.Clone(), nil
}

// Exists reports whether the session is present.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// List returns all session IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
