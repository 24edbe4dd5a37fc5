package models

import (
	"time"
)

type User struct {
	ID          string    `bson:"user_id" json:"-"`
	Username    string    `bson:"username" json:"username"`
	PhoneNumber string    `bson:"phone_number" json:"phoneNumber"`
	IsAdmin     bool      `bson:"is_admin" json:"isAdmin"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`

	// Internal only - never returned in JSON
	PasswordHash string `bson:"password" json:"-"`
}

// Public returns a copy of the user without the password hash.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
