// Package file provides a SessionStore backed by the local filesystem,
// storing each session as a JSON file in a configured directory.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/guardian/pkg/domain"
)

// Store implements ports.SessionStore on the local filesystem. The optimistic
// version check is serialized by an in-process mutex; for multi-process
// deployments use the redis adapter instead.
type Store struct {
	BasePath string
	mu       sync.Mutex
}

// New creates a new file store with the given base path.
// If basePath is empty, it defaults to ".guardian/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".guardian", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+".json")
}

// Save persists the session as JSON, enforcing the version check against the
// file's current contents.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.read(session.ID)
	switch {
	case err == nil:
		if stored.Version != session.Version {
			return domain.ErrConflict
		}
	case err == domain.ErrSessionNotFound:
		if session.Version != 0 {
			return domain.ErrConflict
		}
	default:
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}

	session.Version++
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		session.Version--
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Write-then-rename keeps a crashed writer from leaving a torn file.
	tmp := s.path(session.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		session.Version--
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path(session.ID)); err != nil {
		session.Version--
		return fmt.Errorf("failed to commit session file: %w", err)
	}

	return nil
}

// Load retrieves the session from its JSON file.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(sessionID)
}

func (s *Store) read(sessionID string) (*domain.Session, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Exists reports whether the session file is present.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, err := os.Stat(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat session file: %w", err)
	}
	return true, nil
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}

	err := os.Remove(s.path(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns all session IDs found in the base directory.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			name := entry.Name()
			sessions = append(sessions, name[:len(name)-len(".json")])
		}
	}
	return sessions, nil
}
