package services

import "github.com/adoteiftm/adote-backend/internal/models"

type Decision int

const (
	Forbidden Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "forbidden"
}

// AuthorizeMutation allows the owner of a resource and admins.
func AuthorizeMutation(actor *models.User, ownerUsername string) Decision {
	if actor == nil {
		return Forbidden
	}
	if actor.IsAdmin || actor.Username == ownerUsername {
		return Allowed
	}
	return Forbidden
}

// RequireOwnership returns ErrNotPostOwner unless actor may mutate a resource
// owned by ownerUsername.
func RequireOwnership(actor *models.User, ownerUsername string) error {
	if AuthorizeMutation(actor, ownerUsername) != Allowed {
		return ErrNotPostOwner
	}
	return nil
}
