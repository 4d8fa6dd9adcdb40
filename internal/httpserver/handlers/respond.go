package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/logger"
)

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type internalErrorResponse struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any, log logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}

// writeError maps a domain error onto a status code and body.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	var nf *domain.NotFoundError
	switch {
	case errors.As(err, &nf):
		msg := "Article not found"
		if nf.Collection == domain.CollectionUsers {
			msg = "User not found"
		}
		writeJSON(w, http.StatusNotFound, failureResponse{Message: msg}, d.Logger)
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, failureResponse{Message: err.Error()}, d.Logger)
	default:
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, internalErrorResponse{
			Timestamp: d.Now().Format(time.RFC3339),
			Status:    http.StatusInternalServerError,
			Error:     http.StatusText(http.StatusInternalServerError),
		}, d.Logger)
	}
}

// NotFound answers unknown routes.
func NotFound(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, failureResponse{Message: "Not found"}, d.Logger)
	}
}
