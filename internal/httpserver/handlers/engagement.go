package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
)

type toggleResponse struct {
	Success bool `json:"success"`
	domain.ToggleResult
}

type viewResponse struct {
	Success bool `json:"success"`
	domain.ViewResult
}

type countersResponse struct {
	Success bool            `json:"success"`
	Article *domain.Article `json:"article"`
}

// Toggle flips the user's membership of kind on the article.
func Toggle(d deps.Deps, kind domain.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		articleID := chi.URLParam(r, "articleID")
		userID := chi.URLParam(r, "userID")

		res, err := d.Engagement.Toggle(r.Context(), userID, articleID, kind)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{Success: true, ToggleResult: res}, d.Logger)
	}
}

// View counts one view of the article.
func View(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Engagement.RecordView(r.Context(), chi.URLParam(r, "articleID"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, viewResponse{Success: true, ViewResult: res}, d.Logger)
	}
}

// Counters returns the article's engagement counters.
func Counters(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		article, err := d.Articles.GetArticle(r.Context(), chi.URLParam(r, "articleID"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, countersResponse{Success: true, Article: article}, d.Logger)
	}
}
