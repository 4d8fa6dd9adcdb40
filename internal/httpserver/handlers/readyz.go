package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/logger"
)

const readyzPingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports ready once the store answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyzPingTimeout)
		defer cancel()

		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Error: "store unreachable"}, d.Logger)
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true}, d.Logger)
	}
}
