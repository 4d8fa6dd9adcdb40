// Package store defines the document store contract the engagement
// coordinator runs against. Every method is a single atomic operation on one
// document; there is no multi-document transaction primitive.
package store

import (
	"context"

	"github.com/MrSnakeDoc/engage/internal/domain"
)

// FieldIncrementer atomically adds delta to an integer field and returns the
// post-update value. Counters are floored at zero.
type FieldIncrementer interface {
	IncrementField(ctx context.Context, collection, id, field string, delta int64) (int64, error)
}

// SetMutator inserts into or removes from a set-valued field.
// Adding a present value or removing an absent one is a no-op, not an error.
type SetMutator interface {
	AddToSet(ctx context.Context, collection, id, field, value string) error
	RemoveFromSet(ctx context.Context, collection, id, field, value string) error
}

// UserGetter reads one user document.
type UserGetter interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// ArticleGetter reads one article document.
type ArticleGetter interface {
	GetArticle(ctx context.Context, id string) (*domain.Article, error)
}

// Adapter is the contract consumed by the engagement coordinator.
type Adapter interface {
	FieldIncrementer
	SetMutator
	UserGetter
	ArticleGetter
}

// Creator inserts empty documents if they are absent.
// The boolean result is true when a document was created.
type Creator interface {
	CreateUser(ctx context.Context, id string) (bool, error)
	CreateArticle(ctx context.Context, id string) (bool, error)
}

// Lister enumerates document IDs of a collection.
type Lister interface {
	ListIDs(ctx context.Context, collection string) ([]string, error)
}

// FieldSetter overwrites an integer field. Used by reconciliation only.
type FieldSetter interface {
	SetField(ctx context.Context, collection, id, field string, value int64) error
}

// Pinger checks connectivity to the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store is the full capability set every driver provides.
type Store interface {
	Adapter
	Creator
	Lister
	FieldSetter
	Pinger
	Close() error
}
