package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/checksum"
	"github.com/starford/asteria/internal/layout"
	"github.com/starford/asteria/internal/projectservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *projectservice.Service
	layout layout.Options
}

// NewHandler creates a new Handler.
func NewHandler(svc *projectservice.Service, opts layout.Options) *Handler {
	return &Handler{svc: svc, layout: opts}
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// GetProject handles GET /api/project.
//
//	@Summary		Get the current project tree
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	ProjectResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/project [get]
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Project(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNoProject) {
			// Nothing to serve yet; the resource itself is missing.
			writeJSON(w, http.StatusNotFound, errorBody("project not loaded"))
			return
		}
		writeError(w, "get project", err, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetDiagram handles GET /api/diagram.
//
//	@Summary		Get the laid-out diagram of the current project
//	@Tags			diagram
//	@Produce		json
//	@Param			If-None-Match	header		string	false	"Checksum of a previously fetched diagram"
//	@Success		200				{object}	DiagramResponse
//	@Success		304				"Diagram unchanged"
//	@Security		BearerAuth
//	@Router			/diagram [get]
func (h *Handler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	snap := h.svc.Diagram(r.Context())
	if snap.Checksum != "" {
		w.Header().Set("ETag", checksum.ETag(snap.Checksum))
		if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.MatchesETag(inm, snap.Checksum) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, DiagramResponse{
		Nodes:    snap.Diagram.Nodes,
		Edges:    snap.Diagram.Edges,
		Checksum: snap.Checksum,
	})
}

// GetLayout handles GET /api/layout.
//
//	@Summary		Get the layout columns and row spacing
//	@Tags			diagram
//	@Produce		json
//	@Success		200	{object}	LayoutResponse
//	@Security		BearerAuth
//	@Router			/layout [get]
func (h *Handler) GetLayout(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.layout)
}

// AddModel handles POST /api/challenges/{challengeID}/models.
//
//	@Summary		Add a biological model to a technical challenge
//	@Tags			models
//	@Accept			json
//	@Produce		json
//	@Param			challengeID	path		int				true	"Technical challenge id"
//	@Param			body		body		AddModelRequest	true	"Model to add"
//	@Success		201			{object}	LocalModel
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		503			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/challenges/{challengeID}/models [post]
func (h *Handler) AddModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	challengeID, ok := idParam(r, "challengeID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid challenge id"))
		return
	}
	var req AddModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	m, err := h.svc.AddModel(r.Context(), challengeID, req.Name)
	if err != nil {
		msg := ""
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			msg = "challenge not found"
		case errors.Is(err, apperr.ErrNoProject):
			msg = "project not loaded"
		}
		writeError(w, "add model", err, msg)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// ListLocalModels handles GET /api/models/local.
//
//	@Summary		List models added through this service
//	@Tags			models
//	@Produce		json
//	@Success		200	{object}	LocalModelListResponse
//	@Security		BearerAuth
//	@Router			/models/local [get]
func (h *Handler) ListLocalModels(w http.ResponseWriter, r *http.Request) {
	locals, err := h.svc.LocalModels(r.Context())
	if err != nil {
		writeError(w, "list local models", err, "")
		return
	}
	writeJSON(w, http.StatusOK, LocalModelListResponse{Models: locals, Total: len(locals)})
}

// DeleteModel handles DELETE /api/models/{modelID}.
//
//	@Summary		Delete a locally added model
//	@Tags			models
//	@Param			modelID	path	int	true	"Model id"
//	@Success		204		"Model deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/models/{modelID} [delete]
func (h *Handler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	modelID, ok := idParam(r, "modelID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid model id"))
		return
	}
	if err := h.svc.DeleteLocalModel(r.Context(), modelID); err != nil {
		writeError(w, "delete model", err, "local model not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reload handles POST /api/project/reload.
//
//	@Summary		Re-fetch the project from its source
//	@Tags			project
//	@Produce		json
//	@Success		200	{object}	ProjectResponse
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/project/reload [post]
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Load(r.Context())
	if err != nil {
		slog.Warn("reload failed", slog.String("error", err.Error()))
		writeError(w, "reload project", err, "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
