package dispatch

import (
	"context"
	"fmt"
	"sort"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain"
)

const (
	// Collection holds dispatch headers.
	Collection = "dispatches"
	// RowCollection holds one record per dispatch line.
	RowCollection = "dispatch_rows"
)

// Repository defines operations for dispatches and their rows.
type Repository interface {
	Create(ctx context.Context, d *Dispatch) error
	GetByID(ctx context.Context, dispatchID string) (*Dispatch, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Dispatch], error)
	Update(ctx context.Context, d *Dispatch) error

	Rows(ctx context.Context, dispatchID string) ([]Row, error)
	ReplaceRows(ctx context.Context, dispatchID string, rows []Row) ([]Row, error)
}

// StoreRepository implements Repository over a document store.
type StoreRepository struct {
	headers *docstore.Collection[Dispatch]
	rows    *docstore.Collection[Row]
}

// NewRepository creates a dispatch repository.
func NewRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{
		headers: docstore.NewCollection[Dispatch](store, Collection),
		rows:    docstore.NewCollection[Row](store, RowCollection),
	}
}

var _ Repository = (*StoreRepository)(nil)

func (r *StoreRepository) Create(ctx context.Context, d *Dispatch) error {
	header := *d
	header.Rows = nil
	if err := r.headers.Insert(ctx, &header); err != nil {
		return err
	}
	d.ID = header.ID
	return nil
}

func (r *StoreRepository) GetByID(ctx context.Context, dispatchID string) (*Dispatch, error) {
	d, err := r.headers.Get(ctx, dispatchID)
	if err != nil {
		return nil, err
	}
	if d.Rows, err = r.Rows(ctx, dispatchID); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *StoreRepository) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Dispatch], error) {
	f := docstore.All()
	if filter.Status != "" {
		f = docstore.Where("status", filter.Status)
	}
	items, err := r.headers.List(ctx, f)
	if err != nil {
		return domain.ListResult[*Dispatch]{}, err
	}
	return domain.Paginate(items, filter), nil
}

func (r *StoreRepository) Update(ctx context.Context, d *Dispatch) error {
	header := *d
	header.Rows = nil
	return r.headers.Save(ctx, d.ID, &header)
}

// Rows returns the lines of a dispatch in order.
func (r *StoreRepository) Rows(ctx context.Context, dispatchID string) ([]Row, error) {
	found, err := r.rows.List(ctx, docstore.Where("dispatchId", dispatchID))
	if err != nil {
		return nil, fmt.Errorf("load dispatch rows: %w", err)
	}
	out := make([]Row, 0, len(found))
	for _, row := range found {
		out = append(out, *row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out, nil
}

// ReplaceRows deletes every stored line of the dispatch, then inserts rows.
func (r *StoreRepository) ReplaceRows(ctx context.Context, dispatchID string, rows []Row) ([]Row, error) {
	existing, err := r.rows.List(ctx, docstore.Where("dispatchId", dispatchID))
	if err != nil {
		return nil, fmt.Errorf("load dispatch rows: %w", err)
	}
	removals := make([]func(context.Context) error, 0, len(existing))
	for _, row := range existing {
		rowID := row.ID
		removals = append(removals, func(ctx context.Context) error {
			return r.rows.Remove(ctx, rowID)
		})
	}
	if err := docstore.Batch(ctx, docstore.DefaultBatchLimit, removals...); err != nil {
		return nil, fmt.Errorf("delete dispatch rows: %w", err)
	}

	out := make([]Row, len(rows))
	inserts := make([]func(context.Context) error, 0, len(rows))
	for i := range rows {
		out[i] = rows[i]
		out[i].ID = ""
		out[i].DispatchID = dispatchID
		out[i].Line = i
		inserts = append(inserts, func(ctx context.Context) error {
			return r.rows.Insert(ctx, &out[i])
		})
	}
	if err := docstore.Batch(ctx, docstore.DefaultBatchLimit, inserts...); err != nil {
		return nil, fmt.Errorf("create dispatch rows: %w", err)
	}
	return out, nil
}
