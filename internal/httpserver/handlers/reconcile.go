package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/logger"
)

// Reconcile queues a manual counter reconciliation.
func Reconcile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ReconcileTrigger == nil {
			writeText(w, http.StatusServiceUnavailable, "❌ Reconciliation is disabled\n", d.Logger)
			return
		}

		select {
		case d.ReconcileTrigger <- struct{}{}:
			d.Logger.Info("manual reconciliation triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeText(w, http.StatusAccepted, "✅ Reconciliation triggered successfully\n", d.Logger)
		default:
			d.Logger.Warn("reconciliation already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeText(w, http.StatusTooManyRequests, "⏳ Reconciliation already pending, please wait\n", d.Logger)
		}
	}
}

func writeText(w http.ResponseWriter, status int, body string, log logger.Logger) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Debug("failed to write response", logger.Error(err))
	}
}
