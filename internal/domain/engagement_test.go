package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecFor(t *testing.T) {
	tests := []struct {
		kind       Kind
		set        string
		counter    string
		exclusive  Kind
		toggleable bool
	}{
		{KindBookmark, "bookmarks", "bookmarksCount", "", true},
		{KindLike, "likes", "likesCount", KindDislike, true},
		{KindDislike, "dislikes", "dislikesCount", KindLike, true},
		{KindView, "", "viewsCount", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			spec, err := SpecFor(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.set, spec.SetField)
			assert.Equal(t, tt.counter, spec.CounterField)
			assert.Equal(t, tt.exclusive, spec.ExclusiveWith)
			assert.Equal(t, tt.toggleable, spec.Toggleable())
		})
	}
}

func TestSpecForUnknown(t *testing.T) {
	_, err := SpecFor(Kind("share"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"bookmarks": KindBookmark,
		"like":      KindLike,
		"dislikes":  KindDislike,
		"views":     KindView,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("stars")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestUserMembership(t *testing.T) {
	u := NewUser("u1")
	assert.False(t, u.Has(KindLike, "a1"))

	u.SetMembers(KindLike, []string{"a1", "a2"})
	assert.True(t, u.Has(KindLike, "a1"))
	assert.False(t, u.Has(KindDislike, "a1"))
	assert.Nil(t, u.Set(KindView))

	u.SetMembers(KindBookmark, nil)
	assert.NotNil(t, u.Bookmarks)
}

func TestArticleCounters(t *testing.T) {
	a := &Article{ID: "a1"}
	for i, k := range []Kind{KindBookmark, KindLike, KindDislike, KindView} {
		a.SetCounter(k, int64(i+1))
	}
	assert.Equal(t, int64(1), a.BookmarksCount)
	assert.Equal(t, int64(4), a.Counter(KindView))

	k, ok := KindForCounter("dislikesCount")
	require.True(t, ok)
	assert.Equal(t, KindDislike, k)

	_, ok = KindForSet("viewsCount")
	assert.False(t, ok)

	assert.Len(t, CounterFields(), 4)
}

func TestErrorTaxonomy(t *testing.T) {
	nf := fmt.Errorf("reading user: %w", NewNotFound(CollectionUsers, "u1"))
	assert.ErrorIs(t, nf, ErrNotFound)
	assert.True(t, IsUserNotFound(nf))
	assert.False(t, IsUserNotFound(NewNotFound(CollectionArticles, "a1")))

	cause := errors.New("connection reset")
	we := fmt.Errorf("toggle: %w", &WriteError{
		Op: "incr", Collection: CollectionArticles, ID: "a1", Field: "likesCount", Err: cause,
	})
	assert.ErrorIs(t, we, ErrWriteFailure)
	assert.ErrorIs(t, we, cause)
	assert.Contains(t, we.Error(), "articles/a1.likesCount")
}
