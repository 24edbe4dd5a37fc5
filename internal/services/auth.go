package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/models"
	"github.com/adoteiftm/adote-backend/internal/store"
	"github.com/adoteiftm/adote-backend/pkg/utils"
)

// SessionScheme is the Authorization scheme carrying a session id.
const SessionScheme = "Session"

const missingCredentials = "username and password are required"

// PasswordHasher is the one-way hash used for credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// AuthGate verifies credentials and resolves the acting user of a request.
type AuthGate struct {
	users    store.UserStore
	sessions *SessionManager
	hasher   PasswordHasher
	log      logging.Logger
}

func NewAuthGate(users store.UserStore, sessions *SessionManager, hasher PasswordHasher, log logging.Logger) *AuthGate {
	if hasher == nil {
		hasher = utils.NewPasswordHasher(utils.DefaultArgon2Params)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &AuthGate{users: users, sessions: sessions, hasher: hasher, log: log}
}

func (g *AuthGate) Sessions() *SessionManager { return g.sessions }

// Register creates a non-admin user. The existence check and the insert are
// not atomic; the store's uniqueness constraint reports the lost race as
// ErrUserExists too.
func (g *AuthGate) Register(ctx context.Context, username, password, phoneNumber string) (*models.User, error) {
	if err := utils.RequireCredentials(missingCredentials, username, password); err != nil {
		return nil, err
	}
	if err := utils.ValidateUsername(username); err != nil {
		return nil, err
	}

	_, err := g.users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrUserExists
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PhoneNumber:  strings.TrimSpace(phoneNumber),
		IsAdmin:      false,
		CreatedAt:    time.Now().UTC(),
		PasswordHash: hash,
	}
	if err := g.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	g.log.Info(ctx, "user registered", "username", username)
	return user.Public(), nil
}

// Authenticate checks a username and password. The returned user carries no
// password hash.
func (g *AuthGate) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if err := utils.RequireCredentials(missingCredentials, username, password); err != nil {
		return nil, err
	}

	user, err := g.users.FindByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := g.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		// An unreadable stored hash is treated as a failed check, never as a match.
		g.log.Warn(ctx, "stored password hash unreadable", "username", username, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user.Public(), nil
}

// Login authenticates and opens a new session, replacing any previous one.
func (g *AuthGate) Login(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	user, err := g.Authenticate(ctx, username, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := g.sessions.CreateSession(ctx, user.Username)
	if err != nil {
		return nil, nil, err
	}

	g.log.Info(ctx, "user logged in", "username", user.Username)
	return user, session, nil
}

// Logout deletes the session named by the Authorization header, if any.
func (g *AuthGate) Logout(ctx context.Context, authorization string) error {
	token, ok := ExtractSessionToken(authorization)
	if !ok {
		return nil
	}
	return g.sessions.DeleteSession(ctx, token)
}

// ResolveRequest validates the session in an Authorization header value and
// loads its user. Every authentication failure is reported as
// apperr.ErrUnauthenticated; store failures pass through unchanged.
func (g *AuthGate) ResolveRequest(ctx context.Context, authorization string) (*models.User, *models.Session, error) {
	token, ok := ExtractSessionToken(authorization)
	if !ok {
		return nil, nil, apperr.ErrUnauthenticated
	}

	session, err := g.sessions.ValidateSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	user, err := g.users.FindByUsername(ctx, session.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		g.log.Warn(ctx, "session references missing user", "username", session.Username)
		return nil, nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load session user: %w", err)
	}
	return user.Public(), session, nil
}

// ResolveRequestUser is ResolveRequest without the session.
func (g *AuthGate) ResolveRequestUser(ctx context.Context, authorization string) (*models.User, error) {
	user, _, err := g.ResolveRequest(ctx, authorization)
	return user, err
}

// ExtractSessionToken parses "Session <token>". The scheme is case-sensitive.
func ExtractSessionToken(authorization string) (string, bool) {
	prefix := SessionScheme + " "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	token := strings.TrimSpace(authorization[len(prefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
