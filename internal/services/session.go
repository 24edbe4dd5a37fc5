package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/models"
	"github.com/adoteiftm/adote-backend/internal/store"
)

// DefaultSessionTimeout is how long a session survives without activity.
const DefaultSessionTimeout = 30 * time.Minute

const sessionTokenBytes = 32

// SessionManager owns the session lifecycle: creation, sliding renewal,
// expiry enforcement and the one-session-per-user rule.
type SessionManager struct {
	store   store.SessionStore
	timeout time.Duration
	log     logging.Logger
	now     func() time.Time
}

type SessionOption func(*SessionManager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) { m.now = now }
}

func NewSessionManager(s store.SessionStore, timeout time.Duration, log logging.Logger, opts ...SessionOption) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if log == nil {
		log = logging.Discard()
	}
	m := &SessionManager{
		store:   s,
		timeout: timeout,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SessionManager) Timeout() time.Duration { return m.timeout }

// NewSessionID returns 32 bytes from crypto/rand, base64url encoded.
func NewSessionID() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateSession replaces every existing session of username with a new one.
// The delete and the insert are separate store calls; a failure between them
// leaves the user logged out, never with two sessions.
func (m *SessionManager) CreateSession(ctx context.Context, username string) (*models.Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	removed, err := m.store.DeleteByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("drop previous sessions: %w", err)
	}
	if removed > 0 {
		m.log.Debug(ctx, "previous sessions replaced", "username", username, "count", removed)
	}

	now := m.now().UTC()
	session := &models.Session{
		ID:             id,
		Username:       username,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(m.timeout),
	}
	if err := m.store.Insert(ctx, session); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return session, nil
}

// ValidateSession returns the refreshed session for id. An expired session is
// deleted and reported as ErrSessionExpired; an unknown one as ErrSessionInvalid.
func (m *SessionManager) ValidateSession(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, ErrSessionInvalid
	}

	session, err := m.store.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	now := m.now().UTC()
	if session.Expired(now) {
		if err := m.store.DeleteByID(ctx, id); err != nil {
			m.log.Warn(ctx, "failed to delete expired session", "username", session.Username, "error", err)
		}
		return nil, ErrSessionExpired
	}

	expiresAt := now.Add(m.timeout)
	err = m.store.UpdateExpiry(ctx, id, now, expiresAt)
	if errors.Is(err, apperr.ErrNotFound) {
		// Logged out or replaced between the read and the write.
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("extend session: %w", err)
	}

	session.LastActivityAt = now
	session.ExpiresAt = expiresAt
	return session, nil
}

// DeleteSession is idempotent.
func (m *SessionManager) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SweepExpired removes every session that expired before now.
func (m *SessionManager) SweepExpired(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return n, nil
}
