package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/engage/internal/httpserver/mw"
)

func init() { Register(registerReconcile) }

func registerReconcile(r chi.Router, d deps.Deps) {
	r.With(mw.AllowOnlyCIDRS(d.AdminCIDRS, d.TrustProxy, d.Logger)).Post("/admin/reconcile", handlers.Reconcile(d))
}
