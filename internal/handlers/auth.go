package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/common"
	"github.com/adoteiftm/adote-backend/internal/middleware"
	"github.com/adoteiftm/adote-backend/internal/models"
)

type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message   string       `json:"message"`
	SessionID string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type SessionDetails struct {
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `json:"last_activity"`
	ExpiresAt     time.Time `json:"expires_at"`
	TimeRemaining int64     `json:"time_remaining"`
}

type SessionInfoResponse struct {
	User    *models.User   `json:"user"`
	Session SessionDetails `json:"session"`
}

// Register creates an account. Any isAdmin field in the body is ignored.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.auth.Register(r.Context(), req.Username, req.Password, req.PhoneNumber); err != nil {
		// The web client treats an existing username as a form error.
		if errors.Is(err, apperr.ErrConflict) {
			common.RespondWithAppErrorStatus(w, r, h.log, err, http.StatusBadRequest)
			return
		}
		h.fail(w, r, err)
		return
	}

	common.RespondWithJSON(w, http.StatusCreated, common.MessageResponse{Message: "user registered successfully"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, session, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	common.RespondWithJSON(w, http.StatusOK, LoginResponse{
		Message:   "login successful",
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		User:      user,
	})
}

// Logout succeeds whether or not the header names a live session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "logged out"})
}

// SessionInfo runs behind RequireUser, which has already refreshed the session.
func (h *Handler) SessionInfo(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	session, ok2 := middleware.SessionFromContext(r.Context())
	if !ok || !ok2 {
		h.fail(w, r, apperr.ErrUnauthenticated)
		return
	}

	common.RespondWithJSON(w, http.StatusOK, SessionInfoResponse{
		User: user,
		Session: SessionDetails{
			CreatedAt:     session.CreatedAt,
			LastActivity:  session.LastActivityAt,
			ExpiresAt:     session.ExpiresAt,
			TimeRemaining: int64(session.TimeRemaining(h.now()) / time.Second),
		},
	})
}
