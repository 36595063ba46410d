package receipt

import (
	"context"
	"fmt"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/ledger"
)

// Collection holds receipts.
const Collection = "receipts"

// Repository defines operations for receipts.
type Repository interface {
	Create(ctx context.Context, r *Receipt) error
	GetByID(ctx context.Context, receiptID string) (*Receipt, error)
	GetMany(ctx context.Context, ids []string) (map[string]*Receipt, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error)
	Update(ctx context.Context, r *Receipt) error
	SaveBalance(ctx context.Context, receiptID string, b ledger.ReceiptBalance) error
}

// StoreRepository implements Repository over a document store.
type StoreRepository struct {
	docs *docstore.Collection[Receipt]
}

// NewRepository creates a receipt repository.
func NewRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{docs: docstore.NewCollection[Receipt](store, Collection)}
}

var _ Repository = (*StoreRepository)(nil)

func (r *StoreRepository) Create(ctx context.Context, rec *Receipt) error {
	return r.docs.Insert(ctx, rec)
}

func (r *StoreRepository) GetByID(ctx context.Context, receiptID string) (*Receipt, error) {
	return r.docs.Get(ctx, receiptID)
}

// GetMany loads the given receipts. Missing ids are absent from the result.
func (r *StoreRepository) GetMany(ctx context.Context, ids []string) (map[string]*Receipt, error) {
	if len(ids) == 0 {
		return map[string]*Receipt{}, nil
	}
	found, err := r.docs.List(ctx, docstore.All().MatchExpr(docstore.InExpr(docstore.FieldID, ids)))
	if err != nil {
		return nil, fmt.Errorf("load receipts: %w", err)
	}
	out := make(map[string]*Receipt, len(found))
	for _, rec := range found {
		out[rec.ID] = rec
	}
	return out, nil
}

func (r *StoreRepository) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error) {
	f := docstore.All()
	if filter.Status != "" {
		f = docstore.Where("status", filter.Status)
	}
	items, err := r.docs.List(ctx, f)
	if err != nil {
		return domain.ListResult[*Receipt]{}, err
	}
	return domain.Paginate(items, filter), nil
}

func (r *StoreRepository) Update(ctx context.Context, rec *Receipt) error {
	return r.docs.Save(ctx, rec.ID, rec)
}

// SaveBalance writes only the balance fields.
func (r *StoreRepository) SaveBalance(ctx context.Context, receiptID string, b ledger.ReceiptBalance) error {
	return r.docs.UpdateFields(ctx, receiptID, map[string]any{
		"inWarehouse": b.InWarehouse,
		"threshed":    b.Threshed,
		"returned":    b.Returned,
	})
}
