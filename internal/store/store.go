// Package store defines the persistence contracts of the service and their
// adapters (in-memory, MongoDB, PostgreSQL, Redis). Services depend only on
// the interfaces; which adapter backs them is decided at startup.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adoteiftm/adote-backend/internal/models"
)

// UserStore persists credentials. Implementations must enforce username
// uniqueness themselves and report a duplicate as apperr.ErrConflict.
type UserStore interface {
	// Create inserts the user if no user with the same username exists.
	Create(ctx context.Context, user *models.User) error
	// FindByUsername returns apperr.ErrNotFound when absent.
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// SessionStore persists login sessions keyed by session id.
type SessionStore interface {
	Insert(ctx context.Context, session *models.Session) error
	// FindByID returns apperr.ErrNotFound when absent.
	FindByID(ctx context.Context, id string) (*models.Session, error)
	// UpdateExpiry sets the activity and expiry timestamps of an existing
	// session. It returns apperr.ErrNotFound if the session is gone.
	UpdateExpiry(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error
	// DeleteByID is idempotent.
	DeleteByID(ctx context.Context, id string) error
	DeleteByUsername(ctx context.Context, username string) (int64, error)
	// DeleteExpired removes every session with expiresAt before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostStore persists adoption listings.
type PostStore interface {
	// Insert assigns post.ID when it is zero.
	Insert(ctx context.Context, post *models.Post) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	// List returns posts matching filter, newest first.
	List(ctx context.Context, filter models.PostFilter) ([]models.Post, error)
	// Replace overwrites the stored document; apperr.ErrNotFound if absent.
	Replace(ctx context.Context, post *models.Post) error
	// Delete returns apperr.ErrNotFound if absent.
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Pinger is implemented by backends the store monitor can health-check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// normalizeLimit clamps the page size the way every adapter applies it.
func normalizeLimit(limit int64) int64 {
	if limit <= 0 || limit > MaxListLimit {
		return DefaultListLimit
	}
	return limit
}
