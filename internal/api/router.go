package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mdbridge/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Stateless conversion.
	r.Post("/convert/parse", h.ParseMarkdown)
	r.Post("/convert/serialize", h.SerializeTree)
	r.Post("/convert/html", h.ConvertHTML)
	r.Post("/convert/normalize", h.NormalizeMarkdown)
	r.Post("/detect", h.Detect)

	// Vault notes.
	r.Get("/notes", h.ListNotes)
	r.Get("/notes/*", h.GetNoteTree)
	r.Post("/normalize/*", h.RewriteNote)
	r.Get("/tasks/*", h.Tasks)
	r.Get("/backlinks", h.Backlinks)
	r.Get("/search", h.Search)

	r.Post("/export", h.Export)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
