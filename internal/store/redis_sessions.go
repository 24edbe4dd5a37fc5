package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/models"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

// insertScript writes the session hash and indexes it under its username
// in one step so readers never observe a partially written session.
// KEYS[1] session key, KEYS[2] user set; ARGV: username, created, last
// activity, expires, ttl ms, id.
var insertScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "username", ARGV[1], "created_at", ARGV[2], "last_activity_at", ARGV[3], "expires_at", ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
redis.call("SADD", KEYS[2], ARGV[6])
return 1
`)

// extendScript updates the timestamps only if the session still exists,
// so a refresh can never resurrect a session deleted by logout or re-login.
// KEYS[1] session key; ARGV[1] last activity, ARGV[2] expires at, ARGV[3] ttl ms.
var extendScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "last_activity_at", ARGV[1], "expires_at", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// deleteUserScript removes every session indexed under a user and unindexes
// exactly the ids it removed. The set itself is never dropped, so an id added
// by a concurrent login stays findable by the next one.
// KEYS[1] user set; ARGV[1] session key prefix.
var deleteUserScript = redis.NewScript(`
local ids = redis.call("SMEMBERS", KEYS[1])
local n = 0
for _, id in ipairs(ids) do
	n = n + redis.call("DEL", ARGV[1] .. id)
	redis.call("SREM", KEYS[1], id)
end
return n
`)

// RedisSessions keeps each session in a hash at session:<id> with a Redis TTL
// matching its expiry, plus a set user_sessions:<username> of the user's ids.
// Timestamps are stored as Unix nanoseconds.
type RedisSessions struct {
	rdb     *redis.Client
	now     func() time.Time
	timeout time.Duration
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb, now: time.Now, timeout: DefaultCallTimeout}
}

func sessionKey(id string) string            { return sessionKeyPrefix + id }
func userSessionsKey(username string) string { return userSessionKeyPrefix + username }

// sessionKeyGrace keeps a key around past its application expiry so lazy
// cleanup can still tell an expired session from an unknown one.
const sessionKeyGrace = time.Minute

// ttlUntil is never below the grace period.
func (s *RedisSessions) ttlUntil(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.now())
	if ttl < 0 {
		ttl = 0
	}
	return ttl + sessionKeyGrace
}

func (s *RedisSessions) Insert(ctx context.Context, session *models.Session) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	n, err := insertScript.Run(ctx, s.rdb,
		[]string{sessionKey(session.ID), userSessionsKey(session.Username)},
		session.Username,
		session.CreatedAt.UnixNano(),
		session.LastActivityAt.UnixNano(),
		session.ExpiresAt.UnixNano(),
		s.ttlUntil(session.ExpiresAt).Milliseconds(),
		session.ID,
	).Int()
	if err != nil {
		return wrapDriverErr(ctx, "sessions: insert", err)
	}
	if n == 0 {
		return apperr.ErrConflict
	}
	return nil
}

func (s *RedisSessions) FindByID(ctx context.Context, id string) (*models.Session, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	vals, err := s.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, wrapDriverErr(ctx, "sessions: find", err)
	}
	if len(vals) == 0 {
		return nil, apperr.ErrNotFound
	}
	return decodeSession(id, vals)
}

func (s *RedisSessions) UpdateExpiry(ctx context.Context, id string, lastActivityAt, expiresAt time.Time) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	n, err := extendScript.Run(ctx, s.rdb,
		[]string{sessionKey(id)},
		lastActivityAt.UnixNano(),
		expiresAt.UnixNano(),
		s.ttlUntil(expiresAt).Milliseconds(),
	).Int()
	if err != nil {
		return wrapDriverErr(ctx, "sessions: update expiry", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *RedisSessions) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	key := sessionKey(id)
	username, err := s.rdb.HGet(ctx, key, "username").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return wrapDriverErr(ctx, "sessions: delete", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, userSessionsKey(username), id)
		return nil
	})
	return wrapDriverErr(ctx, "sessions: delete", err)
}

func (s *RedisSessions) DeleteByUsername(ctx context.Context, username string) (int64, error) {
	ctx, cancel := callContext(ctx, s.timeout)
	defer cancel()

	n, err := deleteUserScript.Run(ctx, s.rdb, []string{userSessionsKey(username)}, sessionKeyPrefix).Int64()
	if err != nil {
		return 0, wrapDriverErr(ctx, "sessions: delete by username", err)
	}
	return n, nil
}

// DeleteExpired scans every session hash. Redis TTLs reap keys one grace
// period after expiry; this removes them at expiry and keeps the user sets
// tidy.
func (s *RedisSessions) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	iter := s.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := key[len(sessionKeyPrefix):]

		vals, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return deleted, wrapDriverErr(ctx, "sessions: delete expired", err)
		}
		if len(vals) == 0 {
			continue
		}
		sess, err := decodeSession(id, vals)
		if err != nil || !sess.ExpiresAt.Before(now) {
			continue
		}
		if err := s.DeleteByID(ctx, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, wrapDriverErr(ctx, "sessions: delete expired", err)
	}
	return deleted, nil
}

func decodeSession(id string, vals map[string]string) (*models.Session, error) {
	parse := func(field string) (time.Time, error) {
		n, err := strconv.ParseInt(vals[field], 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(0, n).UTC(), nil
	}

	sess := &models.Session{ID: id, Username: vals["username"]}
	var err error
	if sess.CreatedAt, err = parse("created_at"); err != nil {
		return nil, err
	}
	if sess.LastActivityAt, err = parse("last_activity_at"); err != nil {
		return nil, err
	}
	if sess.ExpiresAt, err = parse("expires_at"); err != nil {
		return nil, err
	}
	return sess, nil
}
