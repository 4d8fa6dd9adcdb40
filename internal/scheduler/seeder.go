package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/engage/internal/logger"
	"github.com/MrSnakeDoc/engage/internal/sources/seed"
	"github.com/MrSnakeDoc/engage/internal/store"
)

// SeedResult counts what a seeding run did
type SeedResult struct {
	UsersCreated     int
	UsersExisting    int
	ArticlesCreated  int
	ArticlesExisting int
}

// Seeder creates the users and articles listed in a fixture file on startup
type Seeder struct {
	loader *seed.Loader
	mapper *seed.Mapper
	store  store.Creator
	logger logger.Logger
}

// NewSeeder creates a new seeder
func NewSeeder(
	seedFile string,
	s store.Creator,
	log logger.Logger,
) *Seeder {
	return &Seeder{
		loader: seed.NewLoader(seedFile),
		mapper: seed.NewMapper(),
		store:  s,
		logger: log,
	}
}

// Seed loads the fixture and inserts every missing document. Existing
// documents are left untouched, so seeding is safe to repeat.
func (sd *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	sd.logger.Info("seeding documents from fixture")

	fixture, err := sd.loader.Load()
	if err != nil {
		return res, fmt.Errorf("failed to load seed fixture: %w", err)
	}

	entries, err := sd.mapper.MapFixture(fixture)
	if err != nil {
		return res, fmt.Errorf("failed to map seed fixture: %w", err)
	}

	for _, id := range entries.UserIDs {
		created, err := sd.store.CreateUser(ctx, id)
		if err != nil {
			return res, fmt.Errorf("failed to seed user %s: %w", id, err)
		}
		if created {
			res.UsersCreated++
		} else {
			res.UsersExisting++
		}
	}

	for _, id := range entries.ArticleIDs {
		created, err := sd.store.CreateArticle(ctx, id)
		if err != nil {
			return res, fmt.Errorf("failed to seed article %s: %w", id, err)
		}
		if created {
			res.ArticlesCreated++
		} else {
			res.ArticlesExisting++
		}
	}

	sd.logger.Info("seeded documents",
		logger.Int("users_created", res.UsersCreated),
		logger.Int("users_existing", res.UsersExisting),
		logger.Int("articles_created", res.ArticlesCreated),
		logger.Int("articles_existing", res.ArticlesExisting))

	return res, nil
}
