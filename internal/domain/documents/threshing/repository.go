package threshing

import (
	"context"
	"fmt"
	"sort"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain"
)

const (
	// OrderCollection holds order headers.
	OrderCollection = "threshing_orders"
	// InputCollection holds one record per order row.
	InputCollection = "threshing_inputs"
)

// Repository defines operations for orders and their input rows.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Order], error)
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, orderID string) error

	Inputs(ctx context.Context, orderID string) ([]Input, error)
	CreateInputs(ctx context.Context, orderID string, inputs []Input) ([]Input, error)
	DeleteInputs(ctx context.Context, orderID string) error
}

// StoreRepository implements Repository over a document store.
type StoreRepository struct {
	orders *docstore.Collection[Order]
	inputs *docstore.Collection[Input]
}

// NewRepository creates an order repository.
func NewRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{
		orders: docstore.NewCollection[Order](store, OrderCollection),
		inputs: docstore.NewCollection[Input](store, InputCollection),
	}
}

var _ Repository = (*StoreRepository)(nil)

// Create stores the header only; rows are written with CreateInputs.
func (r *StoreRepository) Create(ctx context.Context, o *Order) error {
	header := *o
	header.Inputs = nil
	if err := r.orders.Insert(ctx, &header); err != nil {
		return err
	}
	o.ID = header.ID
	return nil
}

// GetByID loads the header and attaches its rows.
func (r *StoreRepository) GetByID(ctx context.Context, orderID string) (*Order, error) {
	o, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Inputs, err = r.Inputs(ctx, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

// List returns headers without rows.
func (r *StoreRepository) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Order], error) {
	items, err := r.orders.List(ctx, docstore.All())
	if err != nil {
		return domain.ListResult[*Order]{}, err
	}
	return domain.Paginate(items, filter), nil
}

func (r *StoreRepository) Update(ctx context.Context, o *Order) error {
	header := *o
	header.Inputs = nil
	return r.orders.Save(ctx, o.ID, &header)
}

func (r *StoreRepository) Delete(ctx context.Context, orderID string) error {
	return r.orders.Remove(ctx, orderID)
}

// Inputs returns the rows of an order in line order.
func (r *StoreRepository) Inputs(ctx context.Context, orderID string) ([]Input, error) {
	found, err := r.inputs.List(ctx, docstore.Where("orderId", orderID))
	if err != nil {
		return nil, fmt.Errorf("load inputs: %w", err)
	}
	out := make([]Input, 0, len(found))
	for _, in := range found {
		out = append(out, *in)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out, nil
}

// CreateInputs writes all rows concurrently and returns them with their ids.
func (r *StoreRepository) CreateInputs(ctx context.Context, orderID string, inputs []Input) ([]Input, error) {
	out := make([]Input, len(inputs))
	writes := make([]func(context.Context) error, 0, len(inputs))
	for i := range inputs {
		out[i] = inputs[i]
		out[i].ID = ""
		out[i].OrderID = orderID
		out[i].Line = i
		writes = append(writes, func(ctx context.Context) error {
			return r.inputs.Insert(ctx, &out[i])
		})
	}
	if err := docstore.Batch(ctx, docstore.DefaultBatchLimit, writes...); err != nil {
		return nil, fmt.Errorf("create inputs: %w", err)
	}
	return out, nil
}

// DeleteInputs removes every row of an order.
func (r *StoreRepository) DeleteInputs(ctx context.Context, orderID string) error {
	found, err := r.inputs.List(ctx, docstore.Where("orderId", orderID))
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}
	writes := make([]func(context.Context) error, 0, len(found))
	for _, in := range found {
		inputID := in.ID
		writes = append(writes, func(ctx context.Context) error {
			return r.inputs.Remove(ctx, inputID)
		})
	}
	if err := docstore.Batch(ctx, docstore.DefaultBatchLimit, writes...); err != nil {
		return fmt.Errorf("delete inputs: %w", err)
	}
	return nil
}
