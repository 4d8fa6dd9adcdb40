package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/store"
	"github.com/MrSnakeDoc/engage/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/engage/internal/store/redis"
)

// seed creates the given users and articles.
func seed(t *testing.T, s store.Creator, users, articles []string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range users {
		_, err := s.CreateUser(ctx, id)
		require.NoError(t, err)
	}
	for _, id := range articles {
		_, err := s.CreateArticle(ctx, id)
		require.NoError(t, err)
	}
}

func newFixture(t *testing.T) (*Coordinator, *memory.Store) {
	t.Helper()
	s := memory.New()
	seed(t, s, []string{"u1", "u2"}, []string{"a1", "a2"})
	return NewCoordinator(s, logger.Nop()), s
}

func getUser(t *testing.T, s store.UserGetter, id string) *domain.User {
	t.Helper()
	u, err := s.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func getArticle(t *testing.T, s store.ArticleGetter, id string) *domain.Article {
	t.Helper()
	a, err := s.GetArticle(context.Background(), id)
	require.NoError(t, err)
	return a
}

func TestToggleBookmarkScenario(t *testing.T) {
	c, s := newFixture(t)
	ctx := context.Background()

	res, err := c.ToggleBookmark(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Added: true}, res)
	assert.Equal(t, []string{"a1"}, getUser(t, s, "u1").Bookmarks)
	assert.Equal(t, int64(1), getArticle(t, s, "a1").BookmarksCount)

	res, err = c.ToggleBookmark(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Removed: true}, res)
	assert.Empty(t, getUser(t, s, "u1").Bookmarks)
	assert.Equal(t, int64(0), getArticle(t, s, "a1").BookmarksCount)
}

func TestToggleParity(t *testing.T) {
	for _, kind := range domain.ToggleKinds {
		for n := 1; n <= 6; n++ {
			c, s := newFixture(t)
			ctx := context.Background()
			spec, _ := domain.SpecFor(kind)

			for i := 0; i < n; i++ {
				_, err := c.Toggle(ctx, "u1", "a1", kind)
				require.NoError(t, err)
			}

			odd := n%2 == 1
			assert.Equal(t, odd, getUser(t, s, "u1").Has(kind, "a1"), "%s x%d membership", kind, n)
			want := int64(0)
			if odd {
				want = 1
			}
			assert.Equal(t, want, getArticle(t, s, "a1").Counter(kind), "%s x%d %s", kind, n, spec.CounterField)
		}
	}
}

func TestLikeThenDislike(t *testing.T) {
	c, s := newFixture(t)
	ctx := context.Background()

	res, err := c.ToggleLike(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Added: true}, res)

	res, err = c.ToggleDislike(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Added: true, Cleared: domain.KindLike}, res)

	user := getUser(t, s, "u1")
	assert.False(t, user.Has(domain.KindLike, "a1"))
	assert.True(t, user.Has(domain.KindDislike, "a1"))

	article := getArticle(t, s, "a1")
	assert.Equal(t, int64(0), article.LikesCount)
	assert.Equal(t, int64(1), article.DislikesCount)
}

func TestToggleLikeClearsDislike(t *testing.T) {
	c, s := newFixture(t)
	ctx := context.Background()
	require.NoError(t, s.AddToSet(ctx, domain.CollectionUsers, "u1", "dislikes", "a1"))
	require.NoError(t, s.SetField(ctx, domain.CollectionArticles, "a1", "dislikesCount", 1))

	res, err := c.ToggleLike(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, domain.KindDislike, res.Cleared)

	user := getUser(t, s, "u1")
	assert.Equal(t, []string{"a1"}, user.Likes)
	assert.Empty(t, user.Dislikes)

	article := getArticle(t, s, "a1")
	assert.Equal(t, int64(1), article.LikesCount)
	assert.Equal(t, int64(0), article.DislikesCount)
}

func TestBookmarkIgnoresLikes(t *testing.T) {
	c, s := newFixture(t)
	ctx := context.Background()

	_, err := c.ToggleLike(ctx, "u1", "a1")
	require.NoError(t, err)
	res, err := c.ToggleBookmark(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Empty(t, res.Cleared)

	article := getArticle(t, s, "a1")
	assert.Equal(t, int64(1), article.LikesCount)
	assert.Equal(t, int64(1), article.BookmarksCount)
}

func TestToggleUnknownUser(t *testing.T) {
	c, s := newFixture(t)

	_, err := c.ToggleBookmark(context.Background(), "ghost", "a1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, domain.IsUserNotFound(err))

	assert.Equal(t, domain.Article{ID: "a1"}, *getArticle(t, s, "a1"))
	_, err = s.GetUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToggleInvalidInput(t *testing.T) {
	c, _ := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    string
		article string
		kind    domain.Kind
	}{
		{"empty user", "", "a1", domain.KindLike},
		{"empty article", "u1", "", domain.KindLike},
		{"view is not a toggle", "u1", "a1", domain.KindView},
		{"unknown kind", "u1", "a1", domain.Kind("share")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Toggle(ctx, tt.user, tt.article, tt.kind)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestRecordViewConcurrent(t *testing.T) {
	c, s := newFixture(t)
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.RecordView(ctx, "a1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), getArticle(t, s, "a1").ViewsCount)

	res, err := c.RecordView(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), res.ViewsCount)
}

func TestRecordViewUnknownArticle(t *testing.T) {
	c, _ := newFixture(t)

	_, err := c.RecordView(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.RecordView(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestToggleMissingArticleKeepsSetWrite(t *testing.T) {
	c, s := newFixture(t)

	_, err := c.ToggleBookmark(context.Background(), "u1", "ghost")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrWriteFailure)
	assert.False(t, domain.IsUserNotFound(err))

	assert.Equal(t, []string{"ghost"}, getUser(t, s, "u1").Bookmarks)
}

// hookedStore intercepts adapter calls to inject failures and interleavings.
type hookedStore struct {
	store.Adapter

	afterGetUser func(ctx context.Context)
	incrErr      error

	mu          sync.Mutex
	writeCtxErr []error
}

func (h *hookedStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := h.Adapter.GetUser(ctx, id)
	if h.afterGetUser != nil {
		h.afterGetUser(ctx)
	}
	return u, err
}

func (h *hookedStore) record(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeCtxErr = append(h.writeCtxErr, ctx.Err())
}

func (h *hookedStore) IncrementField(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	h.record(ctx)
	if h.incrErr != nil {
		return 0, h.incrErr
	}
	return h.Adapter.IncrementField(ctx, collection, id, field, delta)
}

func (h *hookedStore) AddToSet(ctx context.Context, collection, id, field, value string) error {
	h.record(ctx)
	return h.Adapter.AddToSet(ctx, collection, id, field, value)
}

func (h *hookedStore) RemoveFromSet(ctx context.Context, collection, id, field, value string) error {
	h.record(ctx)
	return h.Adapter.RemoveFromSet(ctx, collection, id, field, value)
}

func TestConcurrentFirstTogglesOvercount(t *testing.T) {
	mem := memory.New()
	seed(t, mem, []string{"u1"}, []string{"a1"})

	// both toggles read the user before either writes
	var barrier sync.WaitGroup
	barrier.Add(2)
	hooked := &hookedStore{
		Adapter: mem,
		afterGetUser: func(context.Context) {
			barrier.Done()
			barrier.Wait()
		},
	}
	c := NewCoordinator(hooked, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.ToggleLike(context.Background(), "u1", "a1")
			assert.NoError(t, err)
			assert.True(t, res.Added)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"a1"}, getUser(t, mem, "u1").Likes)
	assert.Equal(t, int64(2), getArticle(t, mem, "a1").LikesCount)

	report, err := NewReconciler(mem, logger.Nop()).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Drift{{ArticleID: "a1", Kind: domain.KindLike, Was: 2, Now: 1}}, report.Drifts)
	assert.Equal(t, int64(1), getArticle(t, mem, "a1").LikesCount)
}

func TestPartialFailureIsNotRolledBack(t *testing.T) {
	mem := memory.New()
	seed(t, mem, []string{"u1"}, []string{"a1"})
	cause := errors.New("connection reset")
	c := NewCoordinator(&hookedStore{Adapter: mem, incrErr: cause}, logger.Nop())

	_, err := c.ToggleBookmark(context.Background(), "u1", "a1")
	require.ErrorIs(t, err, domain.ErrWriteFailure)
	assert.ErrorIs(t, err, cause)

	var werr *domain.WriteError
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, "bookmarksCount", werr.Field)

	// the set write landed and stays
	assert.Equal(t, []string{"a1"}, getUser(t, mem, "u1").Bookmarks)
	assert.Equal(t, int64(0), getArticle(t, mem, "a1").BookmarksCount)

	report, err := NewReconciler(mem, logger.Nop()).Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Corrected())
	assert.Equal(t, int64(1), getArticle(t, mem, "a1").BookmarksCount)
}

func TestCancelledCallerDoesNotAbandonWrites(t *testing.T) {
	mem := memory.New()
	seed(t, mem, []string{"u1"}, []string{"a1"})
	require.NoError(t, mem.AddToSet(context.Background(), domain.CollectionUsers, "u1", "dislikes", "a1"))
	require.NoError(t, mem.SetField(context.Background(), domain.CollectionArticles, "a1", "dislikesCount", 1))

	ctx, cancel := context.WithCancel(context.Background())
	hooked := &hookedStore{
		Adapter: mem,
		// the caller goes away right after the read
		afterGetUser: func(context.Context) { cancel() },
	}
	c := NewCoordinator(hooked, logger.Nop())

	res, err := c.ToggleLike(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.KindDislike, res.Cleared)

	require.Len(t, hooked.writeCtxErr, 4)
	for _, e := range hooked.writeCtxErr {
		assert.NoError(t, e)
	}

	article := getArticle(t, mem, "a1")
	assert.Equal(t, int64(1), article.LikesCount)
	assert.Equal(t, int64(0), article.DislikesCount)
}

func TestCoordinatorOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := redisstore.NewStore(client)
	seed(t, s, []string{"u1"}, []string{"a1"})
	c := NewCoordinator(s, logger.Nop())
	ctx := context.Background()

	_, err := c.ToggleDislike(ctx, "u1", "a1")
	require.NoError(t, err)
	res, err := c.ToggleLike(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, domain.ToggleResult{Added: true, Cleared: domain.KindDislike}, res)

	article := getArticle(t, s, "a1")
	assert.Equal(t, int64(1), article.LikesCount)
	assert.Equal(t, int64(0), article.DislikesCount)

	view, err := c.RecordView(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.ViewsCount)

	_, err = c.ToggleBookmark(ctx, "nobody", "a1")
	assert.True(t, domain.IsUserNotFound(err))
}

func TestToggleOnRedisColonUserIsNotFound(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := redisstore.NewStore(client)
	seed(t, s, []string{"u1", "all"}, []string{"a1"})
	c := NewCoordinator(s, logger.Nop())
	ctx := context.Background()

	_, err := c.ToggleLike(ctx, "u1", "a1")
	require.NoError(t, err)

	// "u1:likes" shares a prefix with u1's likes set but was never created
	_, err = c.ToggleBookmark(ctx, "u1:likes", "a1")
	require.True(t, domain.IsUserNotFound(err))

	article := getArticle(t, s, "a1")
	assert.Equal(t, int64(0), article.BookmarksCount)
	assert.Equal(t, int64(1), article.LikesCount)

	report, err := NewReconciler(s, logger.Nop()).Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Users)
	assert.Zero(t, report.Corrected())
}
