// Package engagement implements the toggle protocol that keeps user
// membership sets and article counters in step, plus the reconciliation pass
// that repairs counter drift.
//
// The coordinator holds no locks and no shared state. A toggle reads the
// user, decides add or remove from set membership, then issues independent
// single-document writes concurrently. Two toggles racing on the same
// (user, article) pair can both observe "absent" and double count; the
// Reconciler bounds that drift.
package engagement

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/store"
)

// Coordinator runs toggles and view counting against a store adapter.
type Coordinator struct {
	store  store.Adapter
	logger logger.Logger
}

// NewCoordinator creates a new coordinator
func NewCoordinator(s store.Adapter, log logger.Logger) *Coordinator {
	return &Coordinator{
		store:  s,
		logger: log,
	}
}

// ToggleBookmark flips the article in the user's bookmarks
func (c *Coordinator) ToggleBookmark(ctx context.Context, userID, articleID string) (domain.ToggleResult, error) {
	return c.Toggle(ctx, userID, articleID, domain.KindBookmark)
}

// ToggleLike flips the article in the user's likes, clearing a dislike when adding
func (c *Coordinator) ToggleLike(ctx context.Context, userID, articleID string) (domain.ToggleResult, error) {
	return c.Toggle(ctx, userID, articleID, domain.KindLike)
}

// ToggleDislike flips the article in the user's dislikes, clearing a like when adding
func (c *Coordinator) ToggleDislike(ctx context.Context, userID, articleID string) (domain.ToggleResult, error) {
	return c.Toggle(ctx, userID, articleID, domain.KindDislike)
}

// Toggle flips membership of articleID in the user's set for kind and moves
// the matching article counter by one in the same direction.
//
// A missing user fails with a NotFoundError before any write is issued. The
// article is not checked up front; a missing article surfaces as a failed
// counter write after the set write has landed.
//
// Once writes are issued they all run to completion even if ctx is cancelled.
// If any write fails the first failure is returned and the others are kept.
func (c *Coordinator) Toggle(ctx context.Context, userID, articleID string, kind domain.Kind) (domain.ToggleResult, error) {
	spec, err := domain.SpecFor(kind)
	if err != nil {
		return domain.ToggleResult{}, err
	}
	if !spec.Toggleable() {
		return domain.ToggleResult{}, fmt.Errorf("%w: %s cannot be toggled", domain.ErrInvalidInput, kind)
	}
	if userID == "" || articleID == "" {
		return domain.ToggleResult{}, fmt.Errorf("%w: user and article ids are required", domain.ErrInvalidInput)
	}

	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return domain.ToggleResult{}, fmt.Errorf("failed to read user: %w", err)
	}

	writes, result := c.plan(user, articleID, spec)
	if err := c.apply(ctx, writes); err != nil {
		return domain.ToggleResult{}, err
	}

	c.logger.Debug("toggled",
		logger.String("kind", string(kind)),
		logger.String("user", userID),
		logger.String("article", articleID),
		logger.Bool("added", result.Added),
		logger.String("cleared", string(result.Cleared)))

	return result, nil
}

// RecordView increments the article's view counter and returns the new value.
// Views are not deduplicated.
func (c *Coordinator) RecordView(ctx context.Context, articleID string) (domain.ViewResult, error) {
	if articleID == "" {
		return domain.ViewResult{}, fmt.Errorf("%w: article id is required", domain.ErrInvalidInput)
	}

	spec, _ := domain.SpecFor(domain.KindView)
	v, err := c.store.IncrementField(ctx, domain.CollectionArticles, articleID, spec.CounterField, 1)
	if err != nil {
		return domain.ViewResult{}, fmt.Errorf("failed to record view: %w", writeErr("incr", domain.CollectionArticles, articleID, spec.CounterField, err))
	}
	return domain.ViewResult{ViewsCount: v}, nil
}

// write is one single-document mutation of a toggle.
type write struct {
	op         string
	collection string
	id         string
	field      string
	run        func(ctx context.Context) error
}

// plan decides the writes for one toggle from the user snapshot.
func (c *Coordinator) plan(user *domain.User, articleID string, spec domain.KindSpec) ([]write, domain.ToggleResult) {
	if user.Has(spec.Kind, articleID) {
		return c.removal(user.ID, articleID, spec), domain.ToggleResult{Removed: true}
	}

	writes := c.addition(user.ID, articleID, spec)
	result := domain.ToggleResult{Added: true}

	if spec.ExclusiveWith != "" && user.Has(spec.ExclusiveWith, articleID) {
		partner, _ := domain.SpecFor(spec.ExclusiveWith)
		writes = append(writes, c.removal(user.ID, articleID, partner)...)
		result.Cleared = partner.Kind
	}
	return writes, result
}

func (c *Coordinator) addition(userID, articleID string, spec domain.KindSpec) []write {
	return []write{
		{
			op: "addToSet", collection: domain.CollectionUsers, id: userID, field: spec.SetField,
			run: func(ctx context.Context) error {
				return c.store.AddToSet(ctx, domain.CollectionUsers, userID, spec.SetField, articleID)
			},
		},
		c.counter(articleID, spec.CounterField, 1),
	}
}

func (c *Coordinator) removal(userID, articleID string, spec domain.KindSpec) []write {
	return []write{
		{
			op: "removeFromSet", collection: domain.CollectionUsers, id: userID, field: spec.SetField,
			run: func(ctx context.Context) error {
				return c.store.RemoveFromSet(ctx, domain.CollectionUsers, userID, spec.SetField, articleID)
			},
		},
		c.counter(articleID, spec.CounterField, -1),
	}
}

func (c *Coordinator) counter(articleID, field string, delta int64) write {
	return write{
		op: "incr", collection: domain.CollectionArticles, id: articleID, field: field,
		run: func(ctx context.Context) error {
			_, err := c.store.IncrementField(ctx, domain.CollectionArticles, articleID, field, delta)
			return err
		},
	}
}

// apply issues every write concurrently and waits for all of them.
// Writes run on a context detached from the caller's cancellation.
func (c *Coordinator) apply(ctx context.Context, writes []write) error {
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	for _, w := range writes {
		g.Go(func() error {
			if err := w.run(ctx); err != nil {
				werr := writeErr(w.op, w.collection, w.id, w.field, err)
				c.logger.Warn("engagement write failed, sibling writes are kept",
					logger.String("op", w.op),
					logger.String("collection", w.collection),
					logger.String("id", w.id),
					logger.String("field", w.field),
					logger.Error(err))
				return werr
			}
			return nil
		})
	}
	return g.Wait()
}

// writeErr wraps a store failure. A wrapped NotFoundError still matches
// domain.ErrNotFound.
func writeErr(op, collection, id, field string, err error) error {
	return &domain.WriteError{Op: op, Collection: collection, ID: id, Field: field, Err: err}
}
