package engagement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/store"
)

// ReconcileStore is what a reconciliation pass needs from the store.
type ReconcileStore interface {
	store.UserGetter
	store.ArticleGetter
	store.Lister
	store.FieldSetter
}

// Drift is one counter that disagreed with its membership sets.
type Drift struct {
	ArticleID string      `json:"articleId"`
	Kind      domain.Kind `json:"kind"`
	Was       int64       `json:"was"`
	Now       int64       `json:"now"`
}

// ReconcileReport summarises one pass.
type ReconcileReport struct {
	Users    int           `json:"users"`
	Articles int           `json:"articles"`
	Orphans  int           `json:"orphans"` // memberships naming an article that does not exist
	Drifts   []Drift       `json:"drifts"`
	Duration time.Duration `json:"duration"`
}

// Corrected returns how many counters were rewritten.
func (r ReconcileReport) Corrected() int { return len(r.Drifts) }

// Reconciler recomputes bookmark, like and dislike counters from the
// cardinality of the user sets. View counters have no sets behind them and
// are left alone.
type Reconciler struct {
	store  ReconcileStore
	logger logger.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(s ReconcileStore, log logger.Logger) *Reconciler {
	return &Reconciler{
		store:  s,
		logger: log,
	}
}

// Reconcile runs one full pass. It is safe to run alongside toggles: a toggle
// landing mid-pass can leave drift that the next pass picks up.
// Documents deleted during the pass are skipped.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	start := time.Now()
	var report ReconcileReport

	tally, users, err := r.tally(ctx)
	if err != nil {
		return report, err
	}
	report.Users = users

	articleIDs, err := r.store.ListIDs(ctx, domain.CollectionArticles)
	if err != nil {
		return report, fmt.Errorf("failed to list articles: %w", err)
	}

	seen := make(map[string]struct{}, len(articleIDs))
	for _, id := range articleIDs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		article, err := r.store.GetArticle(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to read article %s: %w", id, err)
		}
		seen[id] = struct{}{}
		report.Articles++

		drifts, err := r.fixArticle(ctx, article, tally[id])
		if err != nil {
			return report, err
		}
		report.Drifts = append(report.Drifts, drifts...)
	}

	for id, counts := range tally {
		if _, ok := seen[id]; ok {
			continue
		}
		for _, n := range counts {
			report.Orphans += int(n)
		}
	}

	report.Duration = time.Since(start)
	r.logger.Info("reconciliation finished",
		logger.Int("users", report.Users),
		logger.Int("articles", report.Articles),
		logger.Int("corrected", report.Corrected()),
		logger.Int("orphans", report.Orphans),
		logger.Duration("duration", report.Duration))

	return report, nil
}

// tally counts set memberships per article and kind over every user.
func (r *Reconciler) tally(ctx context.Context) (map[string]map[domain.Kind]int64, int, error) {
	userIDs, err := r.store.ListIDs(ctx, domain.CollectionUsers)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	tally := make(map[string]map[domain.Kind]int64)
	users := 0
	for _, id := range userIDs {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		user, err := r.store.GetUser(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read user %s: %w", id, err)
		}
		users++

		for _, k := range domain.ToggleKinds {
			for _, articleID := range user.Set(k) {
				counts, ok := tally[articleID]
				if !ok {
					counts = make(map[domain.Kind]int64, len(domain.ToggleKinds))
					tally[articleID] = counts
				}
				counts[k]++
			}
		}
	}
	return tally, users, nil
}

func (r *Reconciler) fixArticle(ctx context.Context, article *domain.Article, counts map[domain.Kind]int64) ([]Drift, error) {
	var drifts []Drift
	for _, k := range domain.ToggleKinds {
		want := counts[k]
		have := article.Counter(k)
		if have == want {
			continue
		}

		spec, _ := domain.SpecFor(k)
		err := r.store.SetField(ctx, domain.CollectionArticles, article.ID, spec.CounterField, want)
		if errors.Is(err, domain.ErrNotFound) {
			return drifts, nil
		}
		if err != nil {
			return drifts, fmt.Errorf("failed to correct %s of article %s: %w", spec.CounterField, article.ID, err)
		}

		r.logger.Warn("counter drift corrected",
			logger.String("article", article.ID),
			logger.String("kind", string(k)),
			logger.Int64("was", have),
			logger.Int64("now", want))
		drifts = append(drifts, Drift{ArticleID: article.ID, Kind: k, Was: have, Now: want})
	}
	return drifts, nil
}
