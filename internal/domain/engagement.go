package domain

import "fmt"

// Kind identifies one type of engagement a user can have with an article.
type Kind string

const (
	KindBookmark Kind = "bookmark"
	KindLike     Kind = "like"
	KindDislike  Kind = "dislike"
	KindView     Kind = "view"
)

// Collection names shared by every store driver.
const (
	CollectionUsers    = "users"
	CollectionArticles = "articles"
)

// CheckCollection rejects collection names no driver knows about.
func CheckCollection(collection string) error {
	switch collection {
	case CollectionUsers, CollectionArticles:
		return nil
	default:
		return fmt.Errorf("%w: unknown collection %q", ErrInvalidInput, collection)
	}
}

// KindSpec describes where a kind keeps its state.
//
// SetField is the membership set on the user document, CounterField the
// denormalized counter on the article document. Kinds with an empty SetField
// are counter-only and cannot be toggled.
type KindSpec struct {
	Kind          Kind
	SetField      string
	CounterField  string
	ExclusiveWith Kind
}

// Toggleable reports whether the kind has membership semantics.
func (s KindSpec) Toggleable() bool {
	return s.SetField != ""
}

var kindSpecs = map[Kind]KindSpec{
	KindBookmark: {
		Kind:         KindBookmark,
		SetField:     "bookmarks",
		CounterField: "bookmarksCount",
	},
	KindLike: {
		Kind:          KindLike,
		SetField:      "likes",
		CounterField:  "likesCount",
		ExclusiveWith: KindDislike,
	},
	KindDislike: {
		Kind:          KindDislike,
		SetField:      "dislikes",
		CounterField:  "dislikesCount",
		ExclusiveWith: KindLike,
	},
	KindView: {
		Kind:         KindView,
		CounterField: "viewsCount",
	},
}

// ToggleKinds lists the kinds backed by a membership set, in a stable order.
var ToggleKinds = []Kind{KindBookmark, KindLike, KindDislike}

// SpecFor returns the storage layout for a kind.
func SpecFor(k Kind) (KindSpec, error) {
	spec, ok := kindSpecs[k]
	if !ok {
		return KindSpec{}, fmt.Errorf("%w: unknown engagement kind %q", ErrInvalidInput, k)
	}
	return spec, nil
}

// ParseKind maps a route segment or config value onto a Kind.
// Both singular and plural forms are accepted ("like", "likes").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "bookmark", "bookmarks":
		return KindBookmark, nil
	case "like", "likes":
		return KindLike, nil
	case "dislike", "dislikes":
		return KindDislike, nil
	case "view", "views":
		return KindView, nil
	default:
		return "", fmt.Errorf("%w: unknown engagement kind %q", ErrInvalidInput, s)
	}
}

// ToggleResult is the outcome of a toggle. Exactly one of Added/Removed is set.
// Cleared names the exclusive kind that was removed as a side effect, if any.
type ToggleResult struct {
	Added   bool `json:"added,omitempty"`
	Removed bool `json:"removed,omitempty"`
	Cleared Kind `json:"cleared,omitempty"`
}

// ViewResult carries the post-increment view counter.
type ViewResult struct {
	ViewsCount int64 `json:"viewsCount"`
}
