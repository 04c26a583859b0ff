// Package redis provides a SessionStore and DistributedLocker backed by
// Redis, suitable for multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/guardian/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.SessionStore using Redis. Saves run inside a
// WATCH/MULTI transaction so the optimistic version check and the write
// commit atomically; a racing writer on the same key fails the transaction.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
// This is also the entry point for miniredis-backed tests.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "guardian:session:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Locker returns a DistributedLocker sharing this store's client and prefix.
func (s *Store) Locker() *Locker {
	return NewLocker(s.client, s.prefix)
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session, enforcing the version check transactionally.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	key := s.key(session.ID)

	next := session.Clone()
	next.Version++

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	txn := func(tx *backend.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		switch {
		case err == backend.Nil:
			if session.Version != 0 {
				return domain.ErrConflict
			}
		case err != nil:
			return fmt.Errorf("failed to read current session: %w", err)
		default:
			var stored struct {
				Version uint64 `json:"version"`
			}
			if err := json.Unmarshal([]byte(current), &stored); err != nil {
				return fmt.Errorf("failed to decode stored session version: %w", err)
			}
			if stored.Version != session.Version {
				return domain.ErrConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)

			// Index entry scored by expiry for lazy cleanup on List.
			score := float64(time.Now().Add(s.ttl).Unix())
			if s.ttl == 0 {
				score = 4102444800 // 2100-01-01
			}
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: session.ID})
			return nil
		})
		return err
	}

	err = s.client.Watch(ctx, txn, key)
	switch {
	case errors.Is(err, backend.TxFailedErr):
		// Another writer touched the key between WATCH and EXEC.
		return domain.ErrConflict
	case err != nil:
		return err
	}

	session.Version = next.Version
	return nil
}

// Load retrieves the session from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Exists reports whether the session key is present.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return n > 0, nil
}

// Delete removes the session and its index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns active session IDs, pruning expired index entries lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
