package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ont/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Whole collection.
	r.Get("/outline", h.Outline)

	// Files CRUD.
	r.Get("/files", h.ListFiles)
	r.Get("/files/*", h.GetFile)
	r.Put("/files/*", h.PutFile)
	r.Delete("/files/*", h.DeleteFile)

	// Index queries.
	r.Get("/sections", h.Sections)
	r.Get("/sections/{id}", h.Section)
	r.Get("/tagged", h.Tagged)
	r.Get("/tags", h.Tags)
	r.Get("/search", h.Search)

	// Scripts.
	r.Post("/weave", h.Weave)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
