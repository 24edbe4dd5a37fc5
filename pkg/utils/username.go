package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 64
)

// ValidateUsername checks that a username is present and printable.
// Usernames are case-sensitive and stored exactly as given.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Message: "username and password are required"}
	}

	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: "username must be at most 64 characters"}
	}

	for _, r := range username {
		if unicode.IsControl(r) {
			return &ValidationError{Field: "username", Message: "username contains invalid characters"}
		}
	}

	return nil
}

// RequireFields returns a ValidationError naming the first blank field.
// Pairs are given as name, value, name, value...
func RequireFields(message string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return &ValidationError{Field: pairs[i], Message: message}
		}
	}
	return nil
}

// RequireCredentials rejects a blank username or an empty password.
// Whitespace is a legal password.
func RequireCredentials(message, username, password string) error {
	if err := RequireFields(message, "username", username); err != nil {
		return err
	}
	if password == "" {
		return &ValidationError{Field: "password", Message: message}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
