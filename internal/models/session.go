package models

import "time"

// Session is a server-side login session addressed by an opaque token.
type Session struct {
	ID             string    `bson:"_id" json:"-"`
	Username       string    `bson:"username" json:"username"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	LastActivityAt time.Time `bson:"last_activity_at" json:"last_activity"`
	ExpiresAt      time.Time `bson:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TimeRemaining is never negative.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
