package handlers

import (
	"net/http"

	"github.com/adoteiftm/adote-backend/internal/common"
	"github.com/adoteiftm/adote-backend/internal/middleware"
)

type SweepResponse struct {
	Deleted int64 `json:"deleted"`
}

// SweepSessions purges expired sessions on demand. Admin only.
func (h *Handler) SweepSessions(w http.ResponseWriter, r *http.Request) {
	n, err := h.auth.Sessions().SweepExpired(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if user, ok := middleware.UserFromContext(r.Context()); ok {
		h.log.Info(r.Context(), "manual session sweep", "admin", user.Username, "deleted", n)
	}
	common.RespondWithJSON(w, http.StatusOK, SweepResponse{Deleted: n})
}
