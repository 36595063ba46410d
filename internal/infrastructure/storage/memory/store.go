// Package memory implements docstore.Store with in-process maps.
// It is the default backend for tests and local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/core/id"
)

type collection struct {
	order []string
	docs  map[string]docstore.Document
}

// Store keeps every collection in memory, guarded by one RWMutex.
type Store struct {
	docstore.Notifier

	mu          sync.RWMutex
	collections map[string]*collection
	matcher     *docstore.Matcher
	now         func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		matcher:     docstore.MustMatcher(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]docstore.Document)}
		s.collections[name] = c
	}
	return c
}

// List implements docstore.Store.
func (s *Store) List(ctx context.Context, name string, filter docstore.Filter) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	eq, err := filter.NormalizedEq()
	if err != nil {
		return nil, apperror.NewValidation("invalid filter").WithCause(err)
	}

	s.mu.RLock()
	c, ok := s.collections[name]
	var out []docstore.Document
	if ok {
		out = make([]docstore.Document, 0, len(c.order))
		for _, docID := range c.order {
			doc := c.docs[docID]
			if docstore.MatchEq(doc, eq) {
				out = append(out, doc.Clone())
			}
		}
	}
	s.mu.RUnlock()

	return s.matcher.Apply(out, filter.Expr)
}

// Get implements docstore.Store.
func (s *Store) Get(ctx context.Context, name, docID string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, apperror.NewNotFound(name, docID)
	}
	doc, ok := c.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound(name, docID)
	}
	return doc.Clone(), nil
}

// Insert implements docstore.Store.
func (s *Store) Insert(ctx context.Context, name string, doc docstore.Document) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored, err := docstore.Normalize(doc)
	if err != nil {
		return nil, apperror.NewValidation("invalid document").WithCause(err)
	}
	stored[docstore.FieldID] = id.New()

	s.mu.Lock()
	c := s.coll(name)
	c.docs[stored.ID()] = stored
	c.order = append(c.order, stored.ID())
	s.mu.Unlock()

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeInsert, ID: stored.ID(), At: s.now()})
	return stored.Clone(), nil
}

// Update implements docstore.Store.
func (s *Store) Update(ctx context.Context, name, docID string, fields docstore.Document) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	patch, err := docstore.Normalize(fields)
	if err != nil {
		return nil, apperror.NewValidation("invalid document").WithCause(err)
	}
	delete(patch, docstore.FieldID)

	s.mu.Lock()
	c, ok := s.collections[name]
	var doc docstore.Document
	if ok {
		doc, ok = c.docs[docID]
	}
	if !ok {
		s.mu.Unlock()
		return nil, apperror.NewNotFound(name, docID)
	}
	for k, v := range patch {
		doc[k] = v
	}
	out := doc.Clone()
	s.mu.Unlock()

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeUpdate, ID: docID, At: s.now()})
	return out, nil
}

// Remove implements docstore.Store.
func (s *Store) Remove(ctx context.Context, name, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	c, ok := s.collections[name]
	if ok {
		_, ok = c.docs[docID]
	}
	if !ok {
		s.mu.Unlock()
		return apperror.NewNotFound(name, docID)
	}
	delete(c.docs, docID)
	for i, v := range c.order {
		if v == docID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.Notify(docstore.Change{Collection: name, Kind: docstore.ChangeRemove, ID: docID, At: s.now()})
	return nil
}
