package domain

// Article carries the denormalized engagement counters of one article.
//
// Bookmarks, likes and dislikes counters mirror the cardinality of the
// matching user sets and converge once in-flight toggles settle.
// Views are a raw counter with no membership behind it.
type Article struct {
	// ID is the canonical unique identifier.
	ID string `json:"id" bson:"_id"`

	BookmarksCount int64 `json:"bookmarksCount" bson:"bookmarksCount"`
	LikesCount     int64 `json:"likesCount" bson:"likesCount"`
	DislikesCount  int64 `json:"dislikesCount" bson:"dislikesCount"`
	ViewsCount     int64 `json:"viewsCount" bson:"viewsCount"`
}

// Counter returns the counter backing kind k.
func (a *Article) Counter(k Kind) int64 {
	switch k {
	case KindBookmark:
		return a.BookmarksCount
	case KindLike:
		return a.LikesCount
	case KindDislike:
		return a.DislikesCount
	case KindView:
		return a.ViewsCount
	default:
		return 0
	}
}

// SetCounter assigns the counter backing kind k.
func (a *Article) SetCounter(k Kind, v int64) {
	switch k {
	case KindBookmark:
		a.BookmarksCount = v
	case KindLike:
		a.LikesCount = v
	case KindDislike:
		a.DislikesCount = v
	case KindView:
		a.ViewsCount = v
	}
}

// CounterFields lists every counter field an article document is created with.
func CounterFields() []string {
	return []string{
		kindSpecs[KindBookmark].CounterField,
		kindSpecs[KindLike].CounterField,
		kindSpecs[KindDislike].CounterField,
		kindSpecs[KindView].CounterField,
	}
}

// KindForCounter maps a counter field name back to its kind.
func KindForCounter(field string) (Kind, bool) {
	for k, spec := range kindSpecs {
		if spec.CounterField == field {
			return k, true
		}
	}
	return "", false
}

// KindForSet maps a set field name back to its kind.
func KindForSet(field string) (Kind, bool) {
	for k, spec := range kindSpecs {
		if spec.SetField != "" && spec.SetField == field {
			return k, true
		}
	}
	return "", false
}
