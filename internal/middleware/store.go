package middleware

import (
	"net/http"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/common"
)

// Availability reports whether the backing stores are reachable.
type Availability interface {
	Available() bool
}

// RequireStore answers 503 before any handler touches a store that the
// monitor has marked unavailable.
func RequireStore(a Availability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a != nil && !a.Available() {
				common.RespondWithError(w, http.StatusServiceUnavailable, apperr.ErrStoreUnavailable.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
