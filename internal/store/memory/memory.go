package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrSnakeDoc/engage/internal/domain"
	"github.com/MrSnakeDoc/engage/internal/store"
)

var _ store.Store = (*Store)(nil)

// document is one user or article: integer fields plus set-valued fields.
type document struct {
	counters map[string]int64
	sets     map[string]map[string]struct{}
}

func newDocument() *document {
	return &document{
		counters: make(map[string]int64),
		sets:     make(map[string]map[string]struct{}),
	}
}

// Store is an in-process document store.
// A single lock guards all documents, so every operation is atomic per document.
type Store struct {
	mu   sync.RWMutex
	docs map[string]map[string]*document // collection -> ID -> document
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		docs: map[string]map[string]*document{
			domain.CollectionUsers:    {},
			domain.CollectionArticles: {},
		},
	}
}

// lookup returns the document or a NotFoundError. Caller holds the lock.
func (s *Store) lookup(collection, id string) (*document, error) {
	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	doc, ok := s.docs[collection][id]
	if !ok {
		return nil, domain.NewNotFound(collection, id)
	}
	return doc, nil
}

// IncrementField adds delta to an integer field, flooring the result at zero
func (s *Store) IncrementField(_ context.Context, collection, id, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.lookup(collection, id)
	if err != nil {
		return 0, err
	}

	v := doc.counters[field] + delta
	if v < 0 {
		v = 0
	}
	doc.counters[field] = v
	return v, nil
}

// AddToSet inserts value into a set field
func (s *Store) AddToSet(_ context.Context, collection, id, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.lookup(collection, id)
	if err != nil {
		return err
	}

	set, ok := doc.sets[field]
	if !ok {
		set = make(map[string]struct{})
		doc.sets[field] = set
	}
	set[value] = struct{}{}
	return nil
}

// RemoveFromSet deletes value from a set field
func (s *Store) RemoveFromSet(_ context.Context, collection, id, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.lookup(collection, id)
	if err != nil {
		return err
	}

	delete(doc.sets[field], value)
	return nil
}

// GetUser returns a snapshot of the user's membership sets
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.lookup(domain.CollectionUsers, id)
	if err != nil {
		return nil, err
	}

	user := domain.NewUser(id)
	for _, k := range domain.ToggleKinds {
		spec, _ := domain.SpecFor(k)
		user.SetMembers(k, sortedMembers(doc.sets[spec.SetField]))
	}
	return user, nil
}

// GetArticle returns a snapshot of the article counters
func (s *Store) GetArticle(_ context.Context, id string) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, err := s.lookup(domain.CollectionArticles, id)
	if err != nil {
		return nil, err
	}

	article := &domain.Article{ID: id}
	for field, v := range doc.counters {
		if k, ok := domain.KindForCounter(field); ok {
			article.SetCounter(k, v)
		}
	}
	return article, nil
}

// CreateUser inserts an empty user if absent
func (s *Store) CreateUser(_ context.Context, id string) (bool, error) {
	return s.create(domain.CollectionUsers, id, nil), nil
}

// CreateArticle inserts an article with zeroed counters if absent
func (s *Store) CreateArticle(_ context.Context, id string) (bool, error) {
	return s.create(domain.CollectionArticles, id, domain.CounterFields()), nil
}

func (s *Store) create(collection, id string, counters []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[collection][id]; exists {
		return false
	}
	doc := newDocument()
	for _, f := range counters {
		doc.counters[f] = 0
	}
	s.docs[collection][id] = doc
	return true
}

// ListIDs returns the IDs of a collection in sorted order
func (s *Store) ListIDs(_ context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := domain.CheckCollection(collection); err != nil {
		return nil, err
	}
	coll := s.docs[collection]

	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SetField overwrites an integer field
func (s *Store) SetField(_ context.Context, collection, id, field string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.lookup(collection, id)
	if err != nil {
		return err
	}
	doc.counters[field] = value
	return nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op
func (s *Store) Close() error { return nil }

func sortedMembers(set map[string]struct{}) []string {
	members := make([]string, 0, len(set))
	for m := range set {
		members = append(members, m)
	}
	sort.Strings(members)
	return members
}
