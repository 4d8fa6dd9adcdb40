// Package storetest holds the behavioural contract every store driver must
// satisfy. Driver packages call RunAdapterContract from their own tests.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// RunAdapterContract exercises the single-document semantics of a driver.
func RunAdapterContract(t *testing.T, newStore Factory) {
	t.Run("create is idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.CreateUser(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = s.CreateUser(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, created)

		created, err = s.CreateArticle(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, created)

		user, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, user.Bookmarks)
		assert.Empty(t, user.Likes)
		assert.Empty(t, user.Dislikes)

		article, err := s.GetArticle(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, domain.Article{ID: "a1"}, *article)
	})

	t.Run("missing documents are not found", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetUser(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.GetArticle(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = s.IncrementField(ctx, domain.CollectionArticles, "ghost", "likesCount", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = s.AddToSet(ctx, domain.CollectionUsers, "ghost", "likes", "a1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = s.RemoveFromSet(ctx, domain.CollectionUsers, "ghost", "likes", "a1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		err = s.SetField(ctx, domain.CollectionArticles, "ghost", "likesCount", 3)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		// a failed write must not materialise the document
		_, err = s.GetUser(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("increment returns post value and floors at zero", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustCreateArticle(t, s, "a1")

		v, err := s.IncrementField(ctx, domain.CollectionArticles, "a1", "bookmarksCount", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = s.IncrementField(ctx, domain.CollectionArticles, "a1", "bookmarksCount", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), v)

		v, err = s.IncrementField(ctx, domain.CollectionArticles, "a1", "bookmarksCount", -5)
		require.NoError(t, err)
		assert.Equal(t, int64(0), v)

		article, err := s.GetArticle(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), article.BookmarksCount)
	})

	t.Run("set mutations are idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustCreateUser(t, s, "u1")

		require.NoError(t, s.AddToSet(ctx, domain.CollectionUsers, "u1", "likes", "a1"))
		require.NoError(t, s.AddToSet(ctx, domain.CollectionUsers, "u1", "likes", "a1"))
		require.NoError(t, s.AddToSet(ctx, domain.CollectionUsers, "u1", "likes", "a2"))

		user, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a1", "a2"}, user.Likes)

		require.NoError(t, s.RemoveFromSet(ctx, domain.CollectionUsers, "u1", "likes", "a1"))
		require.NoError(t, s.RemoveFromSet(ctx, domain.CollectionUsers, "u1", "likes", "a1"))
		require.NoError(t, s.RemoveFromSet(ctx, domain.CollectionUsers, "u1", "dislikes", "a9"))

		user, err = s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"a2"}, user.Likes)
		assert.Empty(t, user.Dislikes)
	})

	t.Run("set field overwrites counter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustCreateArticle(t, s, "a1")

		require.NoError(t, s.SetField(ctx, domain.CollectionArticles, "a1", "likesCount", 7))

		article, err := s.GetArticle(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, int64(7), article.LikesCount)
	})

	t.Run("list ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustCreateUser(t, s, "u2")
		mustCreateUser(t, s, "u1")
		mustCreateArticle(t, s, "a1")

		ids, err := s.ListIDs(ctx, domain.CollectionUsers)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"u1", "u2"}, ids)

		ids, err = s.ListIDs(ctx, domain.CollectionArticles)
		require.NoError(t, err)
		assert.Equal(t, []string{"a1"}, ids)
	})

	t.Run("ids with separators and reserved names are ordinary documents", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		userIDs := []string{"all", "ids", "u1", "u1:likes", "x:bookmarks"}
		for _, id := range userIDs {
			mustCreateUser(t, s, id)
		}
		for _, id := range []string{"a1", "all", "a1:bookmarksCount"} {
			mustCreateArticle(t, s, id)
		}
		require.NoError(t, s.AddToSet(ctx, domain.CollectionUsers, "u1", "likes", "a1"))

		ids, err := s.ListIDs(ctx, domain.CollectionUsers)
		require.NoError(t, err)
		assert.ElementsMatch(t, userIDs, ids)

		// a colon id is its own document, not a view of u1's likes
		user, err := s.GetUser(ctx, "u1:likes")
		require.NoError(t, err)
		assert.Empty(t, user.Likes)
		assert.Empty(t, user.Bookmarks)

		_, err = s.GetUser(ctx, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.GetUser(ctx, "u1:dislikes")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		err = s.AddToSet(ctx, domain.CollectionUsers, "u1:dislikes", "bookmarks", "a1")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		v, err := s.IncrementField(ctx, domain.CollectionArticles, "all", "viewsCount", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
		v, err = s.IncrementField(ctx, domain.CollectionArticles, "a1:bookmarksCount", "bookmarksCount", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		a1, err := s.GetArticle(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, domain.Article{ID: "a1"}, *a1)

		articles, err := s.ListIDs(ctx, domain.CollectionArticles)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a1", "all", "a1:bookmarksCount"}, articles)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		mustCreateArticle(t, s, "a1")

		const n = 50
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.IncrementField(ctx, domain.CollectionArticles, "a1", "viewsCount", 1)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		article, err := s.GetArticle(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, int64(n), article.ViewsCount)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func mustCreateUser(t *testing.T, s store.Creator, id string) {
	t.Helper()
	if _, err := s.CreateUser(context.Background(), id); err != nil {
		t.Fatal(fmt.Errorf("creating user %s: %w", id, err))
	}
}

func mustCreateArticle(t *testing.T, s store.Creator, id string) {
	t.Helper()
	if _, err := s.CreateArticle(context.Background(), id); err != nil {
		t.Fatal(fmt.Errorf("creating article %s: %w", id, err))
	}
}
