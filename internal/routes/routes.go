package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/adoteiftm/adote-backend/internal/handlers"
	"github.com/adoteiftm/adote-backend/internal/logging"
	"github.com/adoteiftm/adote-backend/internal/middleware"
)

// SetupRoutes registers every endpoint. Store-backed routes answer 503 while
// monitor reports the stores down; /health stays up regardless.
func SetupRoutes(r chi.Router, h *handlers.Handler, resolver middleware.RequestResolver, monitor middleware.Availability, log logging.Logger) {
	r.Get("/health", handlers.Health)

	requireUser := middleware.RequireUser(resolver, log)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireStore(monitor))

		// Public
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/posts", h.ListPosts)
		r.Get("/posts/{id}", h.GetPost)
		r.Get("/adopted", h.ListAdopted)
		r.Get("/ws/posts", h.PostsFeed)

		// Session required
		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/session-info", h.SessionInfo)
			r.Get("/me/posts", h.MyPosts)
			r.Post("/posts", h.CreatePost)
			r.Post("/upload", h.CreatePost)
			r.Put("/posts/{id}", h.UpdatePost)
			r.Delete("/posts/{id}", h.DeletePost)
			r.Post("/posts/{id}/adopt", h.AdoptPost)
			r.Post("/posts/{id}/reactivate", h.ReactivatePost)

			r.With(middleware.AdminOnly).Post("/admin/sessions/sweep", h.SweepSessions)
		})
	})
}
