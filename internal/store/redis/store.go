package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps users and articles as Redis hashes with one Redis set per
// set-valued field. Each write is a single Lua script.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// IncrementField adds delta to a hash field, flooring the result at zero
func (s *Store) IncrementField(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return 0, err
	}

	v, err := incrScript.Run(ctx, s.client, []string{DocKey(collection, id)}, field, delta).Int64()
	if err != nil {
		return 0, mapErr(err, collection, id, "failed to increment field")
	}
	return v, nil
}

// SetField overwrites a hash field
func (s *Store) SetField(ctx context.Context, collection, id, field string, value int64) error {
	if err := domain.CheckCollection(collection); err != nil {
		return err
	}

	err := setFieldScript.Run(ctx, s.client, []string{DocKey(collection, id)}, field, value).Err()
	if err != nil {
		return mapErr(err, collection, id, "failed to set field")
	}
	return nil
}

// AddToSet adds value to the set backing field
func (s *Store) AddToSet(ctx context.Context, collection, id, field, value string) error {
	return s.mutateSet(ctx, addScript, collection, id, field, value)
}

// RemoveFromSet removes value from the set backing field
func (s *Store) RemoveFromSet(ctx context.Context, collection, id, field, value string) error {
	return s.mutateSet(ctx, removeScript, collection, id, field, value)
}

func (s *Store) mutateSet(ctx context.Context, script *redis.Script, collection, id, field, value string) error {
	if err := domain.CheckCollection(collection); err != nil {
		return err
	}

	keys := []string{DocKey(collection, id), SetKey(collection, id, field)}
	if err := script.Run(ctx, s.client, keys, value).Err(); err != nil {
		return mapErr(err, collection, id, "failed to update set")
	}
	return nil
}

// GetUser reads the user's three sets in one MULTI/EXEC round trip
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var exists *redis.IntCmd
	members := make(map[domain.Kind]*redis.StringSliceCmd, len(domain.ToggleKinds))

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		exists = pipe.Exists(ctx, DocKey(domain.CollectionUsers, id))
		for _, k := range domain.ToggleKinds {
			spec, _ := domain.SpecFor(k)
			members[k] = pipe.SMembers(ctx, SetKey(domain.CollectionUsers, id, spec.SetField))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if exists.Val() == 0 {
		return nil, domain.NewNotFound(domain.CollectionUsers, id)
	}

	user := domain.NewUser(id)
	for k, cmd := range members {
		m := cmd.Val()
		sort.Strings(m)
		user.SetMembers(k, m)
	}
	return user, nil
}

// GetArticle reads the article counters
func (s *Store) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	fields, err := s.client.HGetAll(ctx, DocKey(domain.CollectionArticles, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.NewNotFound(domain.CollectionArticles, id)
	}

	article := &domain.Article{ID: id}
	for field, raw := range fields {
		k, ok := domain.KindForCounter(field)
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s of article %s: %w", field, id, err)
		}
		article.SetCounter(k, v)
	}
	return article, nil
}

// CreateUser inserts an empty user if absent
func (s *Store) CreateUser(ctx context.Context, id string) (bool, error) {
	return s.create(ctx, domain.CollectionUsers, id, nil)
}

// CreateArticle inserts an article with zeroed counters if absent
func (s *Store) CreateArticle(ctx context.Context, id string) (bool, error) {
	return s.create(ctx, domain.CollectionArticles, id, domain.CounterFields())
}

func (s *Store) create(ctx context.Context, collection, id string, counters []string) (bool, error) {
	args := make([]interface{}, 0, len(counters)+1)
	args = append(args, id)
	for _, f := range counters {
		args = append(args, f)
	}

	keys := []string{DocKey(collection, id), RegistryKey(collection)}
	created, err := createScript.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to create %s %s: %w", collection, id, err)
	}
	return created == 1, nil
}

// ListIDs returns every document ID of a collection, sorted
func (s *Store) ListIDs(ctx context.Context, collection string) ([]string, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}

	ids, err := s.client.SMembers(ctx, RegistryKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// mapErr turns the scripts' nil reply into a NotFoundError and wraps anything else.
func mapErr(err error, collection, id, msg string) error {
	if errors.Is(err, redis.Nil) {
		return domain.NewNotFound(collection, id)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
