package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint failure.
const pgUniqueViolation = "23505"

// PostgresUsers is the UserStore backed by the users table created in
// database.InitPostgresTables.
type PostgresUsers struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db, timeout: DefaultCallTimeout}
}

func (s *PostgresUsers) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	const q = `
		INSERT INTO users (id, username, password_hash, phone_number, is_admin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, q,
		user.ID, user.Username, user.PasswordHash, user.PhoneNumber, user.IsAdmin, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
			return apperr.Public(apperr.ErrConflict, "username already exists")
		}
		return wrapDriverErr(ctx, "users: insert", err)
	}
	return nil
}

func (s *PostgresUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	const q = `
		SELECT id, username, password_hash, phone_number, is_admin, created_at
		FROM users
		WHERE username = $1`

	var u models.User
	err := s.db.QueryRowContext(ctx, q, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.PhoneNumber, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, wrapDriverErr(ctx, "users: find", err)
	}
	return &u, nil
}
