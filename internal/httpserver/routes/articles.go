package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/engage/internal/httpserver/mw"
)

func init() { Register(registerArticles) }

func registerArticles(r chi.Router, d deps.Deps) {
	r.Route("/api/v1/articles/{articleID}", func(r chi.Router) {
		r.Use(mw.RateLimit(d.RateLimit, d.TrustProxy))

		r.Post("/bookmarks/{userID}", handlers.Toggle(d, domain.KindBookmark))
		r.Post("/likes/{userID}", handlers.Toggle(d, domain.KindLike))
		r.Post("/dislikes/{userID}", handlers.Toggle(d, domain.KindDislike))
		r.Post("/views", handlers.View(d))
		r.Get("/engagement", handlers.Counters(d))
	})
}
