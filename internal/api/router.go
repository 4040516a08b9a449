package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/coleus/internal/library"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(lib *library.Library, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(lib)
	fh := NewFileHandler(lib.OutputRoot())

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Book structure.
	r.Get("/outline", h.GetOutline)
	r.Get("/pages", h.ListPages)
	r.Get("/pages/*", h.GetPage)
	r.Get("/backlinks/{id}", h.Backlinks)

	// Search.
	r.Get("/search", h.Search)

	// Builds.
	r.Get("/build", h.GetBuild)
	r.Post("/rebuild", h.Rebuild)
	r.Get("/diagnostics", h.Diagnostics)

	// Published mdBook sources.
	r.Get("/files/*", fh.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
