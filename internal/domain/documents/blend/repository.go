package blend

import (
	"context"
	"fmt"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/ledger"
)

// Collection holds blends.
const Collection = "blends"

// Repository defines operations for blends.
type Repository interface {
	Create(ctx context.Context, b *Blend) error
	GetByID(ctx context.Context, blendID string) (*Blend, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Blend, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Blend], error)
	Update(ctx context.Context, b *Blend) error
	SaveBalance(ctx context.Context, blendID string, b ledger.BlendBalance) error
	Delete(ctx context.Context, blendID string) error
}

// StoreRepository implements Repository over a document store.
type StoreRepository struct {
	docs *docstore.Collection[Blend]
}

// NewRepository creates a blend repository.
func NewRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{docs: docstore.NewCollection[Blend](store, Collection)}
}

var _ Repository = (*StoreRepository)(nil)

func (r *StoreRepository) Create(ctx context.Context, b *Blend) error {
	return r.docs.Insert(ctx, b)
}

func (r *StoreRepository) GetByID(ctx context.Context, blendID string) (*Blend, error) {
	return r.docs.Get(ctx, blendID)
}

func (r *StoreRepository) GetMany(ctx context.Context, ids []string) (map[string]*Blend, error) {
	if len(ids) == 0 {
		return map[string]*Blend{}, nil
	}
	found, err := r.docs.List(ctx, docstore.All().MatchExpr(docstore.InExpr(docstore.FieldID, ids)))
	if err != nil {
		return nil, fmt.Errorf("load blends: %w", err)
	}
	out := make(map[string]*Blend, len(found))
	for _, b := range found {
		out[b.ID] = b
	}
	return out, nil
}

func (r *StoreRepository) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Blend], error) {
	f := docstore.All()
	if filter.Status != "" {
		f = docstore.Where("status", filter.Status)
	}
	items, err := r.docs.List(ctx, f)
	if err != nil {
		return domain.ListResult[*Blend]{}, err
	}
	return domain.Paginate(items, filter), nil
}

func (r *StoreRepository) Update(ctx context.Context, b *Blend) error {
	return r.docs.Save(ctx, b.ID, b)
}

// SaveBalance writes only the balance fields.
func (r *StoreRepository) SaveBalance(ctx context.Context, blendID string, b ledger.BlendBalance) error {
	return r.docs.UpdateFields(ctx, blendID, map[string]any{
		"totalInput": b.TotalInput,
		"dispatched": b.Dispatched,
		"remaining":  b.Remaining,
		"status":     b.Status,
	})
}

func (r *StoreRepository) Delete(ctx context.Context, blendID string) error {
	return r.docs.Remove(ctx, blendID)
}
