package handlers

import (
	"context"
	"encoding/base64"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adoteiftm/adote-backend/internal/apperr"
	"github.com/adoteiftm/adote-backend/internal/common"
	"github.com/adoteiftm/adote-backend/internal/middleware"
	"github.com/adoteiftm/adote-backend/internal/models"
	"github.com/adoteiftm/adote-backend/internal/services"
	"github.com/adoteiftm/adote-backend/pkg/utils"
)

// maxUploadBytes covers the image plus the text fields of the form.
const maxUploadBytes = services.MaxImageBytes + 1<<20

type CreatePostResponse struct {
	Message string       `json:"message"`
	Post    *models.Post `json:"post"`
}

// CreatePostJSON is the JSON alternative to the multipart form; Image is base64.
type CreatePostJSON struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AnimalType  string `json:"animalType"`
	Image       string `json:"image"`
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, skip := page(r)
	posts, err := h.posts.ListAvailable(r.Context(), limit, skip)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) ListAdopted(w http.ResponseWriter, r *http.Request) {
	limit, skip := page(r)
	posts, err := h.posts.ListAdopted(r.Context(), limit, skip)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) MyPosts(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthenticated)
		return
	}
	limit, skip := page(r)
	posts, err := h.posts.ListByOwner(r.Context(), user.Username, limit, skip)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, post)
}

// CreatePost accepts multipart/form-data with title, description, animalType
// and an image file, or the same fields as JSON with a base64 image. The
// owner always comes from the session, never from the request.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthenticated)
		return
	}

	in, err := readNewPost(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.Create(r.Context(), user, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, CreatePostResponse{Message: "post created", Post: post})
}

func readNewPost(w http.ResponseWriter, r *http.Request) (services.NewPost, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body CreatePostJSON
		if err := decodeJSONLimit(w, r, &body, maxUploadBytes*4/3); err != nil {
			return services.NewPost{}, err
		}
		var img []byte
		if body.Image != "" {
			decoded, err := base64.StdEncoding.DecodeString(body.Image)
			if err != nil {
				return services.NewPost{}, &utils.ValidationError{Field: "image", Message: "image must be base64 encoded"}
			}
			img = decoded
		}
		return services.NewPost{
			Title:       body.Title,
			Description: body.Description,
			AnimalType:  body.AnimalType,
			Image:       img,
		}, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return services.NewPost{}, &utils.ValidationError{Field: "form", Message: "invalid or too large upload form"}
	}

	in := services.NewPost{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		AnimalType:  r.FormValue("animalType"),
	}

	file, _, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, services.MaxImageBytes+1))
		if err != nil {
			return services.NewPost{}, &utils.ValidationError{Field: "image", Message: "could not read image"}
		}
		in.Image = data
	}
	return in, nil
}

func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthenticated)
		return
	}

	var upd services.PostUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}

	post, err := h.posts.Update(r.Context(), user, chi.URLParam(r, "id"), upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, post)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthenticated)
		return
	}

	if err := h.posts.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, common.MessageResponse{Message: "post deleted"})
}

func (h *Handler) AdoptPost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.posts.Adopt)
}

func (h *Handler) ReactivatePost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.posts.Reactivate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor *models.User, id string) (*models.Post, error),
) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		h.fail(w, r, apperr.ErrUnauthenticated)
		return
	}

	post, err := fn(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, post)
}
