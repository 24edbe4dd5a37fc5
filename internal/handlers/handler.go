// Package handlers holds the HTTP endpoints. Each handler decodes the
// request, calls one service operation and renders the result as JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/adoteiftm/adote-backend/internal/common"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/services"
	"github.com/adoteiftm/adote-backend/pkg/utils"
)

const maxJSONBody = 1 << 20

type Handler struct {
	auth   *services.AuthGate
	posts  *services.PostService
	events *services.EventHub
	log    logging.Logger
	now    func() time.Time
}

func New(auth *services.AuthGate, posts *services.PostService, events *services.EventHub, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Discard()
	}
	return &Handler{auth: auth, posts: posts, events: events, log: log, now: time.Now}
}

// Health reports liveness only; store availability is tracked separately.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	common.RespondWithAppError(w, r, h.log, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return decodeJSONLimit(w, r, dst, maxJSONBody)
}

func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst interface{}, limit int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return &utils.ValidationError{Field: "body", Message: "request body is required"}
		}
		return &utils.ValidationError{Field: "body", Message: "invalid JSON body"}
	}
	return nil
}

// page reads the limit and skip query parameters; bad values fall back to defaults.
func page(r *http.Request) (limit, skip int64) {
	q := r.URL.Query()
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil {
		limit = v
	}
	if v, err := strconv.ParseInt(q.Get("skip"), 10, 64); err == nil && v > 0 {
		skip = v
	}
	return limit, skip
}
