package yield

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/core/id"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/audit"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/pkg/logger"
)

// EntityName is used in errors and the activity log.
const EntityName = "run"

// Service provides operations on yield and reprocess runs.
type Service struct {
	repo      Repository
	index     *Index
	txManager tx.Manager
	activity  *activity.Log
}

// NewService creates a new run service.
func NewService(repo Repository, index *Index, txManager tx.Manager, activity *activity.Log) *Service {
	return &Service{repo: repo, index: index, txManager: txManager, activity: activity}
}

// Create stores a run. Every vignette starts En Bodega with its original weight snapshotted.
func (s *Service) Create(ctx context.Context, req CreateRunRequest) (*Run, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}

	run := &Run{
		BaseDocument: entity.NewBaseDocument(),
		Kind:         req.Kind,
		Date:         req.Date,
		Description:  strings.TrimSpace(req.Description),
		Vignettes:    make([]Vignette, 0, len(req.Vignettes)),
	}
	if run.Date.IsZero() {
		run.Date = time.Now().UTC()
	}
	for _, spec := range req.Vignettes {
		run.Vignettes = append(run.Vignettes, Vignette{
			ID:             id.New(),
			Type:           strings.TrimSpace(spec.Type),
			Label:          spec.Label,
			OriginalWeight: spec.Weight,
			NetWeight:      spec.Weight,
			Status:         ledger.VignetteInWarehouse,
		})
	}
	audit.EnrichCreated(ctx, &run.BaseDocument)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, run); err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		if s.activity == nil {
			return nil
		}
		return s.activity.Record(ctx, string(run.Kind), run.ID, activity.ActionCreate, run)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "run created", "id", run.ID, "kind", run.Kind, "vignettes", len(run.Vignettes))
	return run, nil
}

// GetByID retrieves a run.
func (s *Service) GetByID(ctx context.Context, kind RunKind, runID string) (*Run, error) {
	return s.repo.GetByID(ctx, kind, runID)
}

// List retrieves runs of one kind.
func (s *Service) List(ctx context.Context, kind RunKind, filter domain.ListFilter) (domain.ListResult[*Run], error) {
	return s.repo.List(ctx, kind, filter)
}

// Available lists every pickable vignette across both run kinds.
func (s *Service) Available(ctx context.Context) ([]AvailableVignette, error) {
	var out []AvailableVignette
	for _, kind := range []RunKind{RunYield, RunReprocess} {
		runs, err := s.repo.ListAll(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, run := range runs {
			for _, v := range run.Vignettes {
				if v.Pickable() {
					out = append(out, AvailableVignette{Vignette: v, RunID: run.ID, RunKind: kind})
				}
			}
		}
	}
	return out, nil
}

// GetVignette returns one vignette and its parent.
func (s *Service) GetVignette(ctx context.Context, vignetteID string) (*AvailableVignette, error) {
	parents, err := s.index.Lookup(ctx, []string{vignetteID})
	if err != nil {
		return nil, err
	}
	parent, ok := parents[vignetteID]
	if !ok {
		return nil, apperror.NewNotFound("vignette", vignetteID)
	}
	run, err := s.repo.GetByID(ctx, parent.Kind, parent.RunID)
	if err != nil {
		return nil, err
	}
	i := run.VignetteIndex(vignetteID)
	if i < 0 {
		return nil, apperror.NewNotFound("vignette", vignetteID)
	}
	return &AvailableVignette{Vignette: run.Vignettes[i], RunID: run.ID, RunKind: run.Kind}, nil
}
