package reports

import (
	"context"
	"fmt"

	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/yield"
)

// Repository defines report data access interface.
type Repository interface {
	Receipts(ctx context.Context) ([]*receipt.Receipt, error)
	Blends(ctx context.Context) ([]*blend.Blend, error)
	Runs(ctx context.Context) ([]*yield.Run, error)
}

// DocumentRepository reads report data through the document repositories.
type DocumentRepository struct {
	receipts receipt.Repository
	blends   blend.Repository
	runs     yield.Repository
}

// NewRepository creates a report repository.
func NewRepository(receipts receipt.Repository, blends blend.Repository, runs yield.Repository) *DocumentRepository {
	return &DocumentRepository{receipts: receipts, blends: blends, runs: runs}
}

var _ Repository = (*DocumentRepository)(nil)

// all disables pagination.
var all = domain.ListFilter{}

func (r *DocumentRepository) Receipts(ctx context.Context) ([]*receipt.Receipt, error) {
	res, err := r.receipts.List(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	return res.Items, nil
}

func (r *DocumentRepository) Blends(ctx context.Context) ([]*blend.Blend, error) {
	res, err := r.blends.List(ctx, all)
	if err != nil {
		return nil, fmt.Errorf("list blends: %w", err)
	}
	return res.Items, nil
}

func (r *DocumentRepository) Runs(ctx context.Context) ([]*yield.Run, error) {
	var out []*yield.Run
	for _, kind := range []yield.RunKind{yield.RunYield, yield.RunReprocess} {
		runs, err := r.runs.ListAll(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s runs: %w", kind, err)
		}
		out = append(out, runs...)
	}
	return out, nil
}
