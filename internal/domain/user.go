package domain

// User holds the membership sets a user has built up through toggles.
//
// The sets are the source of truth for engagement; article counters are a
// cache of their cardinality.
type User struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the canonical unique identifier.
	ID string `json:"id" bson:"_id"`

	// ─────────────────────────────
	// Membership sets
	// (mutated only by the engagement coordinator)
	// ─────────────────────────────

	// Bookmarks is the set of bookmarked article IDs.
	Bookmarks []string `json:"bookmarks" bson:"bookmarks"`

	// Likes is the set of liked article IDs.
	// Never intersects Dislikes outside of a concurrent toggle window.
	Likes []string `json:"likes" bson:"likes"`

	// Dislikes is the set of disliked article IDs.
	Dislikes []string `json:"dislikes" bson:"dislikes"`
}

// NewUser returns a user with empty membership sets.
func NewUser(id string) *User {
	return &User{
		ID:        id,
		Bookmarks: []string{},
		Likes:     []string{},
		Dislikes:  []string{},
	}
}

// Set returns the membership set backing a kind, or nil for counter-only kinds.
func (u *User) Set(k Kind) []string {
	switch k {
	case KindBookmark:
		return u.Bookmarks
	case KindLike:
		return u.Likes
	case KindDislike:
		return u.Dislikes
	default:
		return nil
	}
}

// Has reports whether articleID is in the user's set for kind k.
func (u *User) Has(k Kind, articleID string) bool {
	for _, id := range u.Set(k) {
		if id == articleID {
			return true
		}
	}
	return false
}

// SetMembers assigns the members of the set backing k.
// Used by store drivers when hydrating a user from storage.
func (u *User) SetMembers(k Kind, members []string) {
	if members == nil {
		members = []string{}
	}
	switch k {
	case KindBookmark:
		u.Bookmarks = members
	case KindLike:
		u.Likes = members
	case KindDislike:
		u.Dislikes = members
	}
}
