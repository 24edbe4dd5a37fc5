// Package common holds the JSON response helpers shared by handlers and
// middleware.
package common

import (
	"encoding/json"
	"net/http"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/logging"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{Error: message})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondWithAppError maps err to its status and public message. Server-side
// failures are logged with their full text, which never reaches the client.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	RespondWithAppErrorStatus(w, r, log, err, apperr.HTTPStatus(err))
}

// RespondWithAppErrorStatus is RespondWithAppError with the status chosen by the caller.
func RespondWithAppErrorStatus(w http.ResponseWriter, r *http.Request, log logging.Logger, err error, code int) {
	if code >= http.StatusInternalServerError && log != nil {
		log.Error(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", code,
			"error", err,
		)
	}
	RespondWithError(w, code, apperr.PublicMessage(err))
}
