package yield

import (
	"context"
	"fmt"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain"
)

// Collections holding the runs.
const (
	CollectionYield     = "yield_runs"
	CollectionReprocess = "reprocess_runs"
)

// Repository defines operations for runs.
type Repository interface {
	Create(ctx context.Context, run *Run) error
	GetByID(ctx context.Context, kind RunKind, runID string) (*Run, error)
	List(ctx context.Context, kind RunKind, filter domain.ListFilter) (domain.ListResult[*Run], error)
	ListAll(ctx context.Context, kind RunKind) ([]*Run, error)
	SaveVignettes(ctx context.Context, kind RunKind, runID string, vignettes []Vignette) error
}

// StoreRepository implements Repository over a document store.
type StoreRepository struct {
	yield     *docstore.Collection[Run]
	reprocess *docstore.Collection[Run]
}

// NewRepository creates a run repository.
func NewRepository(store docstore.Store) *StoreRepository {
	return &StoreRepository{
		yield:     docstore.NewCollection[Run](store, CollectionYield),
		reprocess: docstore.NewCollection[Run](store, CollectionReprocess),
	}
}

var _ Repository = (*StoreRepository)(nil)

func (r *StoreRepository) coll(kind RunKind) *docstore.Collection[Run] {
	if kind == RunReprocess {
		return r.reprocess
	}
	return r.yield
}

func (r *StoreRepository) Create(ctx context.Context, run *Run) error {
	return r.coll(run.Kind).Insert(ctx, run)
}

func (r *StoreRepository) GetByID(ctx context.Context, kind RunKind, runID string) (*Run, error) {
	return r.coll(kind).Get(ctx, runID)
}

func (r *StoreRepository) List(ctx context.Context, kind RunKind, filter domain.ListFilter) (domain.ListResult[*Run], error) {
	runs, err := r.ListAll(ctx, kind)
	if err != nil {
		return domain.ListResult[*Run]{}, err
	}
	return domain.Paginate(runs, filter), nil
}

func (r *StoreRepository) ListAll(ctx context.Context, kind RunKind) ([]*Run, error) {
	runs, err := r.coll(kind).List(ctx, docstore.All())
	if err != nil {
		return nil, fmt.Errorf("list %s runs: %w", kind, err)
	}
	return runs, nil
}

// SaveVignettes replaces the embedded vignette array of one run.
func (r *StoreRepository) SaveVignettes(ctx context.Context, kind RunKind, runID string, vignettes []Vignette) error {
	return r.coll(kind).UpdateFields(ctx, runID, map[string]any{"vignettes": vignettes})
}
