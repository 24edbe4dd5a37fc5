package middleware

import (
	"context"
	"net/http"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/common"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/models"
)

type contextKey string

const (
	UserCtxKey    contextKey = "user"
	SessionCtxKey contextKey = "session"
)

// RequestResolver turns an Authorization header into the acting user and
// refreshed session. services.AuthGate implements it.
type RequestResolver interface {
	ResolveRequest(ctx context.Context, authorization string) (*models.User, *models.Session, error)
}

// RequireUser rejects requests without a valid session and puts the resolved
// user and session in the request context.
func RequireUser(resolver RequestResolver, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, session, err := resolver.ResolveRequest(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				common.RespondWithAppError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), user, session)))
		})
	}
}

// AdminOnly must run after RequireUser.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			common.RespondWithError(w, http.StatusUnauthorized, apperr.ErrUnauthenticated.Error())
			return
		}
		if !user.IsAdmin {
			common.RespondWithError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withIdentity(ctx context.Context, user *models.User, session *models.Session) context.Context {
	ctx = context.WithValue(ctx, UserCtxKey, user)
	return context.WithValue(ctx, SessionCtxKey, session)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(*models.User)
	return user, ok && user != nil
}

func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(SessionCtxKey).(*models.Session)
	return session, ok && session != nil
}
