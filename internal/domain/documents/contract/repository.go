package contract

import (
	"context"
	"fmt"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain"
)

// Collection holds contract lots.
const Collection = "contract_lots"

// Repository defines operations for lots.
type Repository interface {
	Create(ctx context.Context, lot *Lot) error
	GetByID(ctx context.Context, lotID string) (*Lot, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Lot, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Lot], error)
	SetAssignment(ctx context.Context, lotID string, status LotStatus, orderID string) error
}

// StoreRepository implements Repository over a document store.
type StoreRepository struct {
	docs *docstore.Collection[Lot]
}

// NewRepository creates a lot repository.
func NewRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{docs: docstore.NewCollection[Lot](store, Collection)}
}

var _ Repository = (*StoreRepository)(nil)

func (r *StoreRepository) Create(ctx context.Context, lot *Lot) error {
	return r.docs.Insert(ctx, lot)
}

func (r *StoreRepository) GetByID(ctx context.Context, lotID string) (*Lot, error) {
	return r.docs.Get(ctx, lotID)
}

func (r *StoreRepository) GetMany(ctx context.Context, ids []string) (map[string]*Lot, error) {
	if len(ids) == 0 {
		return map[string]*Lot{}, nil
	}
	found, err := r.docs.List(ctx, docstore.All().MatchExpr(docstore.InExpr(docstore.FieldID, ids)))
	if err != nil {
		return nil, fmt.Errorf("load lots: %w", err)
	}
	out := make(map[string]*Lot, len(found))
	for _, lot := range found {
		out[lot.ID] = lot
	}
	return out, nil
}

func (r *StoreRepository) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Lot], error) {
	f := docstore.All()
	if filter.Status != "" {
		f = docstore.Where("status", filter.Status)
	}
	items, err := r.docs.List(ctx, f)
	if err != nil {
		return domain.ListResult[*Lot]{}, err
	}
	return domain.Paginate(items, filter), nil
}

func (r *StoreRepository) SetAssignment(ctx context.Context, lotID string, status LotStatus, orderID string) error {
	return r.docs.UpdateFields(ctx, lotID, map[string]any{
		"status":           status,
		"threshingOrderId": orderID,
	})
}
