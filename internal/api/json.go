package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/asteria/internal/apperr"
	"github.com/starford/asteria/internal/parser"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// errorStatus maps service errors to HTTP statuses. Unknown errors are 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrNoProject):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrUpstream),
		errors.Is(err, parser.ErrNotJSON),
		errors.Is(err, parser.ErrInvalidProject):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status. msg replaces the error text
// for client errors when set; server errors are logged and hidden.
func writeError(w http.ResponseWriter, op string, err error, msg string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	if msg == "" {
		msg = err.Error()
	}
	writeJSON(w, status, errorBody(msg))
}
