package api

import (
	"github.com/starford/asteria/internal/layout"
	"github.com/starford/asteria/internal/models"
)

// AddModelRequest is the request body for adding a biological model.
type AddModelRequest struct {
	Name string `json:"name" example:"Cyanobacteria carboxysome" validate:"required"`
}

// ProjectResponse is the current project tree (aliased from the domain layer).
type ProjectResponse = models.Project

// LocalModel is a model added through this service (aliased from the domain layer).
type LocalModel = models.LocalModel

// LocalModelListResponse wraps the locally added models.
type LocalModelListResponse struct {
	Models []LocalModel `json:"models" validate:"required"`
	Total  int          `json:"total" example:"2" validate:"required"`
}

// DiagramResponse is the full diagram snapshot.
type DiagramResponse struct {
	Nodes    []layout.Node `json:"nodes" validate:"required"`
	Edges    []layout.Edge `json:"edges" validate:"required"`
	Checksum string        `json:"checksum" example:"9f86d0..." validate:"required"`
}

// LayoutResponse reports the layout tuning in effect.
type LayoutResponse = layout.Options

// ReadyResponse is returned by the readiness probe.
type ReadyResponse struct {
	Status    string `json:"status" example:"ok" validate:"required"`
	ProjectID int64  `json:"projectId" example:"1" validate:"required"`
	Loaded    bool   `json:"loaded" validate:"required"`
}
