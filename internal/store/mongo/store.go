// Package mongo stores users and articles as MongoDB documents keyed by a
// string _id. Every operation is a single-document update, which MongoDB
// applies atomically.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is a store.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore wraps a connected client
func NewStore(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

func (s *Store) coll(collection string) (*mongo.Collection, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	return s.db.Collection(collection), nil
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

// IncrementField adds delta with a pipeline update so the floor at zero is
// applied in the same atomic write, and returns the post-update value.
func (s *Store) IncrementField(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	c, err := s.coll(collection)
	if err != nil {
		return 0, err
	}

	ref := "$" + field
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: field, Value: bson.D{{Key: "$max", Value: bson.A{
			int64(0),
			bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{ref, int64(0)}}}, delta}}},
		}}}}}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.D{{Key: field, Value: 1}})

	var doc bson.M
	err = c.FindOneAndUpdate(ctx, byID(id), update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, domain.NewNotFound(collection, id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment field: %w", err)
	}

	return toInt64(doc[field])
}

// SetField overwrites an integer field
func (s *Store) SetField(ctx context.Context, collection, id, field string, value int64) error {
	return s.updateOne(ctx, collection, id, bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: value}}}}, "failed to set field")
}

// AddToSet adds value to an array field with set semantics
func (s *Store) AddToSet(ctx context.Context, collection, id, field, value string) error {
	return s.updateOne(ctx, collection, id, bson.D{{Key: "$addToSet", Value: bson.D{{Key: field, Value: value}}}}, "failed to add to set")
}

// RemoveFromSet pulls value from an array field
func (s *Store) RemoveFromSet(ctx context.Context, collection, id, field, value string) error {
	return s.updateOne(ctx, collection, id, bson.D{{Key: "$pull", Value: bson.D{{Key: field, Value: value}}}}, "failed to remove from set")
}

func (s *Store) updateOne(ctx context.Context, collection, id string, update bson.D, msg string) error {
	c, err := s.coll(collection)
	if err != nil {
		return err
	}

	res, err := c.UpdateOne(ctx, byID(id), update)
	if err != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	if res.MatchedCount == 0 {
		return domain.NewNotFound(collection, id)
	}
	return nil
}

// GetUser reads one user document
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.db.Collection(domain.CollectionUsers).FindOne(ctx, byID(id)).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NewNotFound(domain.CollectionUsers, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	for _, k := range domain.ToggleKinds {
		members := user.Set(k)
		sort.Strings(members)
		user.SetMembers(k, members)
	}
	return &user, nil
}

// GetArticle reads one article document
func (s *Store) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	var article domain.Article
	err := s.db.Collection(domain.CollectionArticles).FindOne(ctx, byID(id)).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NewNotFound(domain.CollectionArticles, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &article, nil
}

// CreateUser upserts an empty user if absent
func (s *Store) CreateUser(ctx context.Context, id string) (bool, error) {
	fields := bson.D{}
	for _, k := range domain.ToggleKinds {
		spec, _ := domain.SpecFor(k)
		fields = append(fields, bson.E{Key: spec.SetField, Value: bson.A{}})
	}
	return s.create(ctx, domain.CollectionUsers, id, fields)
}

// CreateArticle upserts an article with zeroed counters if absent
func (s *Store) CreateArticle(ctx context.Context, id string) (bool, error) {
	fields := bson.D{}
	for _, f := range domain.CounterFields() {
		fields = append(fields, bson.E{Key: f, Value: int64(0)})
	}
	return s.create(ctx, domain.CollectionArticles, id, fields)
}

func (s *Store) create(ctx context.Context, collection, id string, fields bson.D) (bool, error) {
	update := bson.D{{Key: "$setOnInsert", Value: fields}}
	res, err := s.db.Collection(collection).UpdateOne(ctx, byID(id), update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race against another creator
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s %s: %w", collection, id, err)
	}
	return res.UpsertedCount == 1, nil
}

// ListIDs returns every _id of a collection in ascending order
func (s *Store) ListIDs(ctx context.Context, collection string) ([]string, error) {
	c, err := s.coll(collection)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 1}}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := c.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s ids: %w", collection, err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// Ping checks the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected counter type %T", v)
	}
}
