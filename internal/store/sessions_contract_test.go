package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

func newSession(id, username string, now time.Time, ttl time.Duration) *models.Session {
	return &models.Session{
		ID:             id,
		Username:       username,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
}

// runSessionStoreContract exercises the behaviour every SessionStore adapter
// must share.
func runSessionStoreContract(t *testing.T, newStore func(t *testing.T) SessionStore) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert and find", func(t *testing.T) {
		s := newStore(t)
		want := newSession("tok-1", "alice", now, 30*time.Minute)
		require.NoError(t, s.Insert(ctx, want))

		got, err := s.FindByID(ctx, "tok-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.True(t, got.CreatedAt.Equal(want.CreatedAt))
		assert.True(t, got.LastActivityAt.Equal(want.LastActivityAt))
		assert.True(t, got.ExpiresAt.Equal(want.ExpiresAt))
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, newSession("tok-1", "alice", now, time.Minute)))
		err := s.Insert(ctx, newSession("tok-1", "bob", now, time.Minute))
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("find missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("update expiry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, newSession("tok-1", "alice", now, 30*time.Minute)))

		later := now.Add(10 * time.Minute)
		require.NoError(t, s.UpdateExpiry(ctx, "tok-1", later, later.Add(30*time.Minute)))

		got, err := s.FindByID(ctx, "tok-1")
		require.NoError(t, err)
		assert.True(t, got.LastActivityAt.Equal(later))
		assert.True(t, got.ExpiresAt.Equal(later.Add(30*time.Minute)))
		assert.True(t, got.CreatedAt.Equal(now))
	})

	t.Run("update expiry of missing session", func(t *testing.T) {
		s := newStore(t)
		err := s.UpdateExpiry(ctx, "gone", now, now.Add(time.Minute))
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = s.FindByID(ctx, "gone")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("delete by id is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, newSession("tok-1", "alice", now, time.Minute)))
		require.NoError(t, s.DeleteByID(ctx, "tok-1"))
		require.NoError(t, s.DeleteByID(ctx, "tok-1"))

		_, err := s.FindByID(ctx, "tok-1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("delete by username", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, newSession("a1", "alice", now, time.Minute)))
		require.NoError(t, s.Insert(ctx, newSession("a2", "alice", now, time.Minute)))
		require.NoError(t, s.Insert(ctx, newSession("b1", "bob", now, time.Minute)))

		n, err := s.DeleteByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		_, err = s.FindByID(ctx, "a1")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = s.FindByID(ctx, "b1")
		assert.NoError(t, err)

		n, err = s.DeleteByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("delete expired", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Insert(ctx, newSession("old", "alice", now.Add(-time.Hour), 30*time.Minute)))
		require.NoError(t, s.Insert(ctx, newSession("fresh", "bob", now, 30*time.Minute)))

		n, err := s.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		_, err = s.FindByID(ctx, "old")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = s.FindByID(ctx, "fresh")
		assert.NoError(t, err)
	})
}
