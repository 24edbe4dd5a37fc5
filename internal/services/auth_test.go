package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
	"github.com/adoteiftm/adote-backend/internal/store"
	"github.com/adoteiftm/adote-backend/pkg/utils"
)

var testHasher = utils.NewPasswordHasher(utils.Argon2Params{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
})

type authFixture struct {
	gate     *AuthGate
	users    store.UserStore
	sessions store.SessionStore
	clock    *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mem := store.NewMemory()
	clock := newFakeClock()
	manager := NewSessionManager(mem.Sessions(), DefaultSessionTimeout, nil, WithClock(clock.Now))
	return &authFixture{
		gate:     NewAuthGate(mem.Users(), manager, testHasher, nil),
		users:    mem.Users(),
		sessions: mem.Sessions(),
		clock:    clock,
	}
}

func TestAuthGate_RegisterThenAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	u, err := f.gate.Register(ctx, "alice", "pw1", "555-0100")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "555-0100", u.PhoneNumber)
	assert.False(t, u.IsAdmin)
	assert.Empty(t, u.PasswordHash)

	stored, err := f.users.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", stored.PasswordHash)
	assert.NotEmpty(t, stored.ID)

	got, err := f.gate.Authenticate(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.PasswordHash)

	for _, wrong := range []string{"pw2", "PW1", "pw1 ", "x"} {
		_, err = f.gate.Authenticate(ctx, "alice", wrong)
		assert.ErrorIs(t, err, ErrInvalidCredentials, wrong)
		assert.Equal(t, 401, apperr.HTTPStatus(err))
	}
}

func TestAuthGate_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	cases := []struct{ username, password string }{
		{"", "pw"},
		{"alice", ""},
		{"   ", "pw"},
	}
	for _, tc := range cases {
		_, err := f.gate.Register(ctx, tc.username, tc.password, "")
		require.Error(t, err)
		assert.Equal(t, 400, apperr.HTTPStatus(err))
		assert.Equal(t, "username and password are required", apperr.PublicMessage(err))
	}
}

func TestAuthGate_WhitespacePasswordIsAPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.gate.Register(ctx, "alice", "   ", "")
	require.NoError(t, err)

	_, err = f.gate.Authenticate(ctx, "alice", "   ")
	require.NoError(t, err)

	_, err = f.gate.Authenticate(ctx, "alice", " ")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthGate_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.gate.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)

	_, err = f.gate.Register(ctx, "alice", "other", "")
	assert.ErrorIs(t, err, ErrUserExists)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// Case-sensitive usernames.
	_, err = f.gate.Register(ctx, "Alice", "pw1", "")
	assert.NoError(t, err)
}

// racingUsers hides the existing user from the pre-check so the insert
// hits the uniqueness constraint.
type racingUsers struct {
	store.UserStore
}

func (racingUsers) FindByUsername(context.Context, string) (*models.User, error) {
	return nil, apperr.ErrNotFound
}

func TestAuthGate_RegisterLostRace(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Users().Create(ctx, &models.User{Username: "alice"}))

	gate := NewAuthGate(racingUsers{mem.Users()}, NewSessionManager(mem.Sessions(), 0, nil), testHasher, nil)
	_, err := gate.Register(ctx, "alice", "pw", "")
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestAuthGate_AuthenticateUnknownUser(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.gate.Authenticate(context.Background(), "nobody", "pw")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}

func TestAuthGate_AuthenticateLegacyBcrypt(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &models.User{Username: "legacy", PasswordHash: string(hash)}))

	_, err = f.gate.Authenticate(ctx, "legacy", "old-secret")
	assert.NoError(t, err)
	_, err = f.gate.Authenticate(ctx, "legacy", "new-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthGate_CorruptHashNeverMatches(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.users.Create(ctx, &models.User{Username: "broken", PasswordHash: "plaintext"}))

	_, err := f.gate.Authenticate(ctx, "broken", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthGate_LoginResolveLogout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.gate.Register(ctx, "alice", "pw1", "555-0100")
	require.NoError(t, err)

	user, session, err := f.gate.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	header := "Session " + session.ID

	f.clock.Advance(10 * time.Minute)
	resolved, refreshed, err := f.gate.ResolveRequest(ctx, header)
	require.NoError(t, err)
	assert.Equal(t, "alice", resolved.Username)
	assert.Equal(t, "555-0100", resolved.PhoneNumber)
	assert.Empty(t, resolved.PasswordHash)
	assert.Equal(t, f.clock.Now().Add(DefaultSessionTimeout), refreshed.ExpiresAt)

	require.NoError(t, f.gate.Logout(ctx, header))
	require.NoError(t, f.gate.Logout(ctx, header))
	require.NoError(t, f.gate.Logout(ctx, ""))

	_, err = f.gate.ResolveRequestUser(ctx, header)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthGate_ResolveRejectsMalformedHeaders(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.gate.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)
	_, session, err := f.gate.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	for _, header := range []string{
		"",
		session.ID,
		"session " + session.ID,
		"Bearer " + session.ID,
		"Session",
		"Session ",
		"Session  ",
		"Session " + session.ID + " extra",
	} {
		_, err := f.gate.ResolveRequestUser(ctx, header)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated, "header %q", header)
	}

	_, err = f.gate.ResolveRequestUser(ctx, "Session "+session.ID)
	assert.NoError(t, err)
}

func TestAuthGate_ResolveDanglingSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	session, err := f.gate.Sessions().CreateSession(ctx, "ghost")
	require.NoError(t, err)

	_, err = f.gate.ResolveRequestUser(ctx, "Session "+session.ID)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestAuthGate_ResolveExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	_, err := f.gate.Register(ctx, "alice", "pw1", "")
	require.NoError(t, err)
	_, session, err := f.gate.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTimeout + time.Second)
	_, err = f.gate.ResolveRequestUser(ctx, "Session "+session.ID)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, "authentication required", apperr.PublicMessage(err))

	_, err = f.sessions.FindByID(ctx, session.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestExtractSessionToken(t *testing.T) {
	tok, ok := ExtractSessionToken("Session abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = ExtractSessionToken("Session\tabc")
	assert.False(t, ok)
}
