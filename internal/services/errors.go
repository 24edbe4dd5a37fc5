package services

import (
	"fmt"

	"github.com/adoteiftm/adote-backend/internal/apperr"
)

var (
	// ErrSessionInvalid covers every reason a presented token is unusable.
	ErrSessionInvalid = fmt.Errorf("session invalid: %w", apperr.ErrUnauthenticated)
	// ErrSessionExpired is an ErrSessionInvalid whose row was removed on detection.
	ErrSessionExpired = fmt.Errorf("session expired: %w", ErrSessionInvalid)

	ErrUserNotFound       = apperr.Public(apperr.ErrNotFound, "user not found")
	ErrInvalidCredentials = apperr.Public(apperr.ErrUnauthenticated, "invalid username or password")
	ErrUserExists         = apperr.Public(apperr.ErrConflict, "username already exists")

	ErrPostNotFound   = apperr.Public(apperr.ErrNotFound, "post not found")
	ErrInvalidPostID  = apperr.Public(apperr.ErrValidation, "invalid post id")
	ErrAlreadyAdopted = apperr.Public(apperr.ErrConflict, "post is already adopted")
	ErrNotPostOwner   = apperr.Public(apperr.ErrForbidden, "you can only modify your own posts")
)
