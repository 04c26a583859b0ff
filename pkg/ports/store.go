package ports

import (
	"context"

	"github.com/aretw0/guardian/pkg/domain"
)

// SessionStore defines the interface for persisting workflow sessions.
// This is what makes the approval workflow durable: a session suspended in one
// process or request can be resumed from another.
//
// Save is optimistic: it succeeds only when the stored version matches the
// version the caller loaded, then increments the version (reflected back into
// the passed session). A losing writer receives domain.ErrConflict and must
// not apply its in-memory mutation. A Load immediately following a successful
// Save observes that save's result within the same process.
type SessionStore interface {
	// Save persists the session, enforcing the version check.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a deep copy of the session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Exists reports whether the session is present without loading it.
	Exists(ctx context.Context, sessionID string) (bool, error)

	// Delete removes the session. Deleting an absent session is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns all known session IDs.
	List(ctx context.Context) ([]string, error)
}
