// Package entity provides the base types shared by stored documents.
package entity

import (
	"context"
	"time"
)

// Validatable is implemented by documents that support self-validation.
// Validation checks internal invariants (without store access).
type Validatable interface {
	// Validate returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// BaseDocument contains the fields every stored document carries.
type BaseDocument struct {
	// ID is assigned by the document store on insert (UUIDv7)
	ID string `json:"id,omitempty"`

	// Version is incremented on every save. It is informational only:
	// updates are not rejected on version mismatch.
	Version int `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	CreatedBy string    `json:"createdBy,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// NewBaseDocument creates a BaseDocument stamped with the current time.
func NewBaseDocument() BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (b *BaseDocument) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// GetID returns the document id.
func (b *BaseDocument) GetID() string {
	return b.ID
}
