package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/guardian/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract, including the
// optimistic concurrency semantics of Save.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405.000")

	t.Run("Save and Load round-trip", func(t *testing.T) {
		s := domain.NewSession(sessionID, "list all employees")
		s.Append(domain.RoleUser, "list all employees")
		s.History = append(s.History, domain.Step{
			Action: domain.ProposedAction{
				Capability: "hr_sql_db_query",
				Input:      domain.TextPayload("SELECT * FROM employees"),
			},
			Result: domain.ValueResult([]any{map[string]any{"id": float64(1)}}),
		})

		err := store.Save(ctx, s)
		require.NoError(t, err, "Save should not return error")
		assert.Equal(t, uint64(1), s.Version, "Save should reflect the new version")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, s.ID, loaded.ID)
		assert.Equal(t, s.OriginalRequest, loaded.OriginalRequest)
		assert.Equal(t, s.Status, loaded.Status)
		assert.Equal(t, s.Version, loaded.Version)
		require.Len(t, loaded.Log, 1)
		assert.Equal(t, domain.RoleUser, loaded.Log[0].Role)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "hr_sql_db_query", loaded.History[0].Action.Capability)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := store.Exists(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, "non-existent-"+sessionID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Save enforces version check", func(t *testing.T) {
		a, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		b, err := store.Load(ctx, sessionID)
		require.NoError(t, err)

		a.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, a), "first writer should win")

		b.Status = domain.StatusFailed
		err = store.Save(ctx, b)
		assert.ErrorIs(t, err, domain.ErrConflict, "stale writer must lose")

		// The committed state is the first writer's.
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
	})

	t.Run("Stale new-session save conflicts", func(t *testing.T) {
		dup := domain.NewSession(sessionID, "duplicate start")
		err := store.Save(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrConflict, "version 0 save over an existing session must lose")
	})

	t.Run("Loaded copies are isolated", func(t *testing.T) {
		first, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		first.Append(domain.RoleAssistant, "mutated behind the store's back")

		second, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotEqual(t, len(first.Log), len(second.Log), "mutating a loaded session must not affect the store")
	})

	t.Run("Loaded result values are isolated", func(t *testing.T) {
		s, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		res := domain.ValueResult(map[string]any{"rows_affected": float64(3)})
		s.LastResult = &res
		require.NoError(t, store.Save(ctx, s))

		a, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		av, ok := a.LastResult.Value.(map[string]any)
		require.True(t, ok)
		av["rows_affected"] = float64(99)

		b, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		bv, ok := b.LastResult.Value.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(3), bv["rows_affected"], "mutating a loaded result must not affect the store")
	})

	t.Run("Delete", func(t *testing.T) {
		id := sessionID + "-del"
		require.NoError(t, store.Save(ctx, domain.NewSession(id, "temp")))

		require.NoError(t, store.Delete(ctx, id))

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		// Deleting an absent session is not an error.
		assert.NoError(t, store.Delete(ctx, id))
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewSession(id1, "a")))
		require.NoError(t, store.Save(ctx, domain.NewSession(id2, "b")))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
