package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/models"
)

const (
	userCacheKeyPrefix = "cache:user:"
	// DefaultUserCacheTTL bounds how long an admin flag change made directly
	// in the database can take to be seen.
	DefaultUserCacheTTL = 5 * time.Minute
)

// cachedUser mirrors models.User including the hash, which the model hides
// from JSON.
type cachedUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PhoneNumber  string    `json:"phone_number"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	PasswordHash string    `json:"password_hash"`
}

// CachedUsers puts a Redis read-through cache in front of a UserStore. Every
// authenticated request loads its user, so this keeps that lookup off the
// primary store. Cache failures fall back to the primary store.
type CachedUsers struct {
	next UserStore
	rdb  *redis.Client
	ttl  time.Duration
	log  logging.Logger
}

func NewCachedUsers(next UserStore, rdb *redis.Client, ttl time.Duration, log logging.Logger) *CachedUsers {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	if log == nil {
		log = logging.Discard()
	}
	return &CachedUsers{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedUsers) Create(ctx context.Context, user *models.User) error {
	if err := c.next.Create(ctx, user); err != nil {
		return err
	}
	// Drop any negative leftovers from before the user existed.
	if err := c.rdb.Del(ctx, userCacheKeyPrefix+user.Username).Err(); err != nil {
		c.log.Warn(ctx, "user cache invalidate failed", "error", err)
	}
	return nil
}

func (c *CachedUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	key := userCacheKeyPrefix + username

	val, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cu cachedUser
		if jsonErr := json.Unmarshal(val, &cu); jsonErr == nil {
			return &models.User{
				ID:           cu.ID,
				Username:     cu.Username,
				PhoneNumber:  cu.PhoneNumber,
				IsAdmin:      cu.IsAdmin,
				CreatedAt:    cu.CreatedAt,
				PasswordHash: cu.PasswordHash,
			}, nil
		}
	case !errors.Is(err, redis.Nil):
		c.log.Warn(ctx, "user cache read failed", "error", err)
	}

	user, err := c.next.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedUser{
		ID:           user.ID,
		Username:     user.Username,
		PhoneNumber:  user.PhoneNumber,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    user.CreatedAt,
		PasswordHash: user.PasswordHash,
	})
	if err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn(ctx, "user cache write failed", "error", err)
		}
	}
	return user, nil
}
