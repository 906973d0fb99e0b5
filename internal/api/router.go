package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/luhmann/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes.
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/*", h.GetNote)

	// Search.
	r.Get("/search", h.Search)

	// Luhmann index and navigation.
	r.Route("/luhmann", func(r chi.Router) {
		r.Get("/index", h.Index)
		r.Get("/tree", h.Tree)
		r.Get("/candidates", h.Candidates)
		r.Post("/open", h.Open)
		r.Post("/assign", h.AssignID)
		r.Get("/views/{view}", h.GetView)
		r.Put("/views/{view}/cursor", h.SetCursor)
		r.Post("/views/{view}/{command}", h.Navigate)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
