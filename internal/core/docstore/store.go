// Package docstore defines the document store the settlement services persist through.
// Backends live in internal/infrastructure/storage.
package docstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Document is a stored record. Values are JSON primitives (string, float64, bool, nil,
// []any, map[string]any); the "id" key holds the store-assigned identifier.
type Document map[string]any

// FieldID is the key holding the document identifier.
const FieldID = "id"

// ID returns the document identifier.
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out, err := Normalize(d)
	if err != nil {
		// d was produced by Normalize, so re-encoding cannot fail in practice.
		panic(fmt.Sprintf("docstore: clone: %v", err))
	}
	return out
}

// Store is the persistence contract of the reconciliation core.
type Store interface {
	// List returns the documents of a collection matching filter, in insertion order.
	List(ctx context.Context, collection string, filter Filter) ([]Document, error)

	// Get returns one document or a NOT_FOUND AppError.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Insert stores doc under a newly assigned id and returns the stored document.
	Insert(ctx context.Context, collection string, doc Document) (Document, error)

	// Update merges fields into an existing document and returns the result.
	Update(ctx context.Context, collection, id string, fields Document) (Document, error)

	// Remove deletes a document. Removing a missing document returns NOT_FOUND.
	Remove(ctx context.Context, collection, id string) error

	// Subscribe registers a listener for change notifications.
	Subscribe(listener Listener) (cancel func())
}

// Normalize converts any JSON-encodable value into a Document made of JSON primitives.
// Backends only ever see normalized documents.
func Normalize(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Decode converts a stored document into dst.
func Decode(doc Document, dst any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
