// Package tx provides transaction management abstractions.
// Domain services depend on Manager, not on a particular store.
package tx

import (
	"context"
	"sync"
)

// Manager defines the contract for running one settlement operation.
type Manager interface {
	// RunInTransaction executes fn as one logical operation.
	// Nested calls reuse the scope already present in ctx.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Serial is a Manager for stores without transactions (memory, mongo).
// It admits one operation at a time per process and never rolls back:
// writes issued before a failure stay applied.
type Serial struct {
	mu sync.Mutex
}

// NewSerial creates a Serial manager.
func NewSerial() *Serial {
	return &Serial{}
}

type serialKey struct{}

// RunInTransaction implements Manager.
func (s *Serial) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(serialKey{}).(*Serial); held == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(context.WithValue(ctx, serialKey{}, s))
}

var _ Manager = (*Serial)(nil)
