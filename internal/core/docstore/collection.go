package docstore

import (
	"context"
)

// Collection is a typed view over one store collection. T is encoded through JSON.
type Collection[T any] struct {
	store Store
	name  string
}

// NewCollection binds a collection name to a store.
func NewCollection[T any](store Store, name string) *Collection[T] {
	return &Collection[T]{store: store, name: name}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string {
	return c.name
}

// Store returns the underlying store.
func (c *Collection[T]) Store() Store {
	return c.store
}

// Get loads one document.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	doc, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := Decode(doc, out); err != nil {
		return nil, err
	}
	return out, nil
}

// List loads every document matching filter.
func (c *Collection[T]) List(ctx context.Context, filter Filter) ([]*T, error) {
	docs, err := c.store.List(ctx, c.name, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v := new(T)
		if err := Decode(doc, v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Insert stores v and decodes the stored document (with its new id) back into v.
func (c *Collection[T]) Insert(ctx context.Context, v *T) error {
	doc, err := Normalize(v)
	if err != nil {
		return err
	}
	delete(doc, FieldID)
	stored, err := c.store.Insert(ctx, c.name, doc)
	if err != nil {
		return err
	}
	return Decode(stored, v)
}

// Save writes every field of v over the stored document with the given id.
// Stored keys that v no longer carries are set to null.
func (c *Collection[T]) Save(ctx context.Context, id string, v *T) error {
	doc, err := Normalize(v)
	if err != nil {
		return err
	}
	delete(doc, FieldID)

	current, err := c.store.Get(ctx, c.name, id)
	if err != nil {
		return err
	}
	for k := range current {
		if _, ok := doc[k]; !ok && k != FieldID {
			doc[k] = nil
		}
	}
	_, err = c.store.Update(ctx, c.name, id, doc)
	return err
}

// UpdateFields merges a partial set of fields into the stored document.
// Values may be any JSON-encodable type.
func (c *Collection[T]) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	doc, err := Normalize(fields)
	if err != nil {
		return err
	}
	_, err = c.store.Update(ctx, c.name, id, doc)
	return err
}

// Remove deletes one document.
func (c *Collection[T]) Remove(ctx context.Context, id string) error {
	return c.store.Remove(ctx, c.name, id)
}
