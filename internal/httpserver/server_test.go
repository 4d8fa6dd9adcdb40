package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/engage/internal/config"
	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/engagement"
	"github.com/MrSnakeDoc/engage/internal/httpserver/deps"
	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/ratelimit"
	"github.com/MrSnakeDoc/engage/internal/store/memory"
)

type fixture struct {
	handler http.Handler
	store   *memory.Store
	trigger chan struct{}
}

func newFixture(t *testing.T, mutate ...func(*deps.Deps)) *fixture {
	t.Helper()
	ctx := context.Background()

	s := memory.New()
	for _, id := range []string{"u1", "u2"} {
		_, err := s.CreateUser(ctx, id)
		require.NoError(t, err)
	}
	_, err := s.CreateArticle(ctx, "a1")
	require.NoError(t, err)

	trigger := make(chan struct{}, 1)
	d := deps.Deps{
		Logger:           logger.Nop(),
		StartTime:        time.Now(),
		Version:          "test",
		TimeNow:          time.Now,
		RateLimit:        ratelimit.Config{RPS: 1000, Burst: 1000},
		Engagement:       engagement.NewCoordinator(s, logger.Nop()),
		Articles:         s,
		Store:            s,
		ReconcileTrigger: trigger,
	}
	for _, m := range mutate {
		m(&d)
	}

	cfg := &config.Config{ListenPort: ":0", RequestTimeout: 5 * time.Second}
	return &fixture{
		handler: New(cfg, logger.Nop(), d).Handler(),
		store:   s,
		trigger: trigger,
	}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestToggleBookmarkRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/bookmarks/u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "added": true}, decode(t, rec))

	rec = f.do(t, http.MethodPost, "/api/v1/articles/a1/bookmarks/u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "removed": true}, decode(t, rec))

	a, err := f.store.GetArticle(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.BookmarksCount)
}

func TestLikeThenDislikeRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/likes/u1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/articles/a1/dislikes/u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "added": true, "cleared": "like"}, decode(t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/articles/a1/engagement")
	require.Equal(t, http.StatusOK, rec.Code)
	article := decode(t, rec)["article"].(map[string]any)
	assert.Equal(t, float64(0), article["likesCount"])
	assert.Equal(t, float64(1), article["dislikesCount"])
}

func TestUnknownUserRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/likes/ghost")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "User not found"}, decode(t, rec))
}

func TestViewRoute(t *testing.T) {
	f := newFixture(t)

	for want := 1; want <= 3; want++ {
		rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/views")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(want), decode(t, rec)["viewsCount"])
	}

	rec := f.do(t, http.MethodPost, "/api/v1/articles/missing/views")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article not found", decode(t, rec)["message"])
}

func TestCountersRouteNotFound(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/articles/missing/engagement")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Article not found"}, decode(t, rec))
}

type failingEngagement struct{ err error }

func (f failingEngagement) Toggle(context.Context, string, string, domain.Kind) (domain.ToggleResult, error) {
	return domain.ToggleResult{}, f.err
}

func (f failingEngagement) RecordView(context.Context, string) (domain.ViewResult, error) {
	return domain.ViewResult{}, f.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"article missing behind write error", &domain.WriteError{Op: "increment", Err: domain.NewNotFound(domain.CollectionArticles, "a1")}, http.StatusNotFound},
		{"store failure", &domain.WriteError{Op: "add", Err: errors.New("connection reset")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(d *deps.Deps) { d.Engagement = failingEngagement{err: tt.err} })

			rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/likes/u1")
			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestInternalErrorBody(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, func(d *deps.Deps) {
		d.Engagement = failingEngagement{err: errors.New("boom")}
		d.TimeNow = func() time.Time { return fixed }
	})

	rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/views")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{
		"timestamp": "2024-05-01T12:00:00Z",
		"status":    float64(500),
		"error":     "Internal Server Error",
	}, decode(t, rec))
}

func TestRateLimitedAPI(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) {
		d.RateLimit = ratelimit.Config{RPS: 0.01, Burst: 2}
	})

	for i := 0; i < 2; i++ {
		rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/views")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := f.do(t, http.MethodPost, "/api/v1/articles/a1/views")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// probes are not limited
	rec = f.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProbes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])

	rec = f.do(t, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ready"])
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestReadyzStoreDown(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.Store = downStore{} })

	rec := f.do(t, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, false, decode(t, rec)["ready"])
}

func TestAdminReconcile(t *testing.T) {
	f := newFixture(t)

	post := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, post("192.0.2.1:4000").Code)
	assert.Empty(t, f.trigger)

	assert.Equal(t, http.StatusAccepted, post("127.0.0.1:4000").Code)
	assert.Len(t, f.trigger, 1)

	// one run already pending
	assert.Equal(t, http.StatusTooManyRequests, post("127.0.0.1:4000").Code)
}

func TestAdminReconcileConfiguredNetworks(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.AdminCIDRS = []string{"192.0.2.0/24"} })

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	req.RemoteAddr = "192.0.2.55:4000"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestAdminReconcileDisabled(t *testing.T) {
	f := newFixture(t, func(d *deps.Deps) { d.ReconcileTrigger = nil })

	req := httptest.NewRequest(http.MethodPost, "/admin/reconcile", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, map[string]any{"success": false, "message": "Not found"}, decode(t, rec))

	rec = f.do(t, http.MethodGet, "/api/v1/articles/a1/bookmarks/u1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
