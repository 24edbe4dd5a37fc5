package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

// Memory is an in-process implementation of UserStore, SessionStore and
// PostStore. It is used for local development and tests; all state is lost
// when the process exits.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]models.User
	sessions map[string]models.Session
	posts    map[primitive.ObjectID]models.Post
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]models.User),
		sessions: make(map[string]models.Session),
		posts:    make(map[primitive.ObjectID]models.Post),
	}
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// The views below let one Memory back every store interface
// without method-name clashes.

func (m *Memory) Users() UserStore       { return memoryUsers{m} }
func (m *Memory) Sessions() SessionStore { return memorySessions{m} }
func (m *Memory) Posts() PostStore       { return memoryPosts{m} }

type memoryUsers struct{ m *Memory }

func (s memoryUsers) Create(_ context.Context, user *models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.users[user.Username]; ok {
		return apperr.Public(apperr.ErrConflict, "username already exists")
	}
	s.m.users[user.Username] = *user
	return nil
}

func (s memoryUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	u, ok := s.m.users[username]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

type memorySessions struct{ m *Memory }

func (s memorySessions) Insert(_ context.Context, session *models.Session) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.sessions[session.ID]; ok {
		return apperr.ErrConflict
	}
	s.m.sessions[session.ID] = *session
	return nil
}

func (s memorySessions) FindByID(_ context.Context, id string) (*models.Session, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	sess, ok := s.m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &sess, nil
}

func (s memorySessions) UpdateExpiry(_ context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	sess, ok := s.m.sessions[id]
	if !ok {
		return apperr.ErrNotFound
	}
	sess.LastActivityAt = lastActivityAt
	sess.ExpiresAt = expiresAt
	s.m.sessions[id] = sess
	return nil
}

func (s memorySessions) DeleteByID(_ context.Context, id string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	delete(s.m.sessions, id)
	return nil
}

func (s memorySessions) DeleteByUsername(_ context.Context, username string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var n int64
	for id, sess := range s.m.sessions {
		if sess.Username == username {
			delete(s.m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s memorySessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	var n int64
	for id, sess := range s.m.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.m.sessions, id)
			n++
		}
	}
	return n, nil
}

type memoryPosts struct{ m *Memory }

func (s memoryPosts) Insert(_ context.Context, post *models.Post) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if _, ok := s.m.posts[post.ID]; ok {
		return apperr.ErrConflict
	}
	s.m.posts[post.ID] = *post
	return nil
}

func (s memoryPosts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()

	p, ok := s.m.posts[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &p, nil
}

func (s memoryPosts) List(_ context.Context, filter models.PostFilter) ([]models.Post, error) {
	s.m.mu.RLock()
	out := make([]models.Post, 0, len(s.m.posts))
	for _, p := range s.m.posts {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Username != "" && p.Username != filter.Username {
			continue
		}
		out = append(out, p)
	}
	s.m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	skip := filter.Skip
	if skip < 0 {
		skip = 0
	}
	if skip >= int64(len(out)) {
		return []models.Post{}, nil
	}
	out = out[skip:]
	if limit := normalizeLimit(filter.Limit); int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memoryPosts) Replace(_ context.Context, post *models.Post) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.posts[post.ID]; !ok {
		return apperr.ErrNotFound
	}
	s.m.posts[post.ID] = *post
	return nil
}

func (s memoryPosts) Delete(_ context.Context, id primitive.ObjectID) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()

	if _, ok := s.m.posts[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.m.posts, id)
	return nil
}
