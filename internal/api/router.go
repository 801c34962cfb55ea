package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/asteria/internal/layout"
	"github.com/starford/asteria/internal/projectservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *projectservice.Service, opts layout.Options, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, opts)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Project.
	r.Get("/project", h.GetProject)
	r.Post("/project/reload", h.Reload)

	// Diagram.
	r.Get("/diagram", h.GetDiagram)
	r.Get("/layout", h.GetLayout)

	// Models.
	r.Post("/challenges/{challengeID}/models", h.AddModel)
	r.Get("/models/local", h.ListLocalModels)
	r.Delete("/models/{modelID}", h.DeleteModel)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
