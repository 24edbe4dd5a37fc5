package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

func newMockPostgres(t *testing.T) (*PostgresUsers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresUsers(db), mock
}

func TestPostgresUsers_Create(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:           "6b1f2c52-0a4e-4f39-9d6c-3f7f0b0d2a11",
		Username:     "alice",
		PasswordHash: "hash",
		PhoneNumber:  "555-0100",
		CreatedAt:    created,
	}

	t.Run("ok", func(t *testing.T) {
		users, mock := newMockPostgres(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID, "alice", "hash", "555-0100", false, created).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, users.Create(context.Background(), user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		users, mock := newMockPostgres(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := users.Create(context.Background(), user)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, "username already exists", apperr.PublicMessage(err))
	})

	t.Run("other error", func(t *testing.T) {
		users, mock := newMockPostgres(t)
		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("boom"))

		err := users.Create(context.Background(), user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, "internal server error", apperr.PublicMessage(err))
	})
}

func TestPostgresUsers_FindByUsername(t *testing.T) {
	cols := []string{"id", "username", "password_hash", "phone_number", "is_admin", "created_at"}
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		users, mock := newMockPostgres(t)
		mock.ExpectQuery(`SELECT id, username, password_hash, phone_number, is_admin, created_at\s+FROM users`).
			WithArgs("root").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("id-1", "root", "hash", "", true, created))

		u, err := users.FindByUsername(context.Background(), "root")
		require.NoError(t, err)
		assert.Equal(t, "id-1", u.ID)
		assert.True(t, u.IsAdmin)
		assert.Equal(t, "hash", u.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		users, mock := newMockPostgres(t)
		mock.ExpectQuery(`FROM users`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(cols))

		_, err := users.FindByUsername(context.Background(), "ghost")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestPostgresUsers_CallTimeout(t *testing.T) {
	cols := []string{"id", "username", "password_hash", "phone_number", "is_admin", "created_at"}
	users, mock := newMockPostgres(t)
	users.timeout = 20 * time.Millisecond

	mock.ExpectQuery(`FROM users`).
		WithArgs("alice").
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows(cols))

	start := time.Now()
	_, err := users.FindByUsername(context.Background(), "alice")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.Equal(t, 503, apperr.HTTPStatus(err))
}
