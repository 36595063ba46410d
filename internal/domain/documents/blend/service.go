package blend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/core/numerator"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/core/types"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/audit"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/printout"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/pkg/logger"
)

// ServiceConfig configures the blend service.
type ServiceConfig struct {
	Repo      Repository
	Vignettes reconcile.SourceAdapter
	Policy    reconcile.MissingSourcePolicy
	Numerator numerator.Generator
	TxManager tx.Manager
	Activity  *activity.Log
	Printer   printout.Printer
}

// Service composes, edits and deletes blends.
type Service struct {
	repo       Repository
	reconciler *reconcile.Reconciler
	numerator  numerator.Generator
	txManager  tx.Manager
	activity   *activity.Log
	printer    printout.Printer
}

// NewService creates a new blend service.
func NewService(cfg ServiceConfig) *Service {
	printer := cfg.Printer
	if printer == nil {
		printer = printout.Nop{}
	}
	return &Service{
		repo:       cfg.Repo,
		reconciler: reconcile.New(cfg.Policy, cfg.Vignettes),
		numerator:  cfg.Numerator,
		txManager:  cfg.TxManager,
		activity:   cfg.Activity,
		printer:    printer,
	}
}

// Create composes a new blend and decrements every used vignette.
func (s *Service) Create(ctx context.Context, req Request) (*Blend, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}

	var b *Blend
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		snap, err := s.reconciler.Snapshot(ctx, req.refs()...)
		if err != nil {
			return err
		}
		components, updated, err := compose(snap, req, reconcile.Consumption{})
		if err != nil {
			return err
		}
		plan, err := s.reconciler.Plan(ctx, snap, reconcile.Consumption{}, updated)
		if err != nil {
			return err
		}

		b = &Blend{
			BaseDocument: entity.NewBaseDocument(),
			BlendBalance: ledger.NewBlendBalance(total(components)),
			Date:         dateOrNow(req.Date),
			TypeLabel:    strings.TrimSpace(req.TypeLabel),
			Components:   components,
		}
		audit.EnrichCreated(ctx, &b.BaseDocument)

		b.Number, err = s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixBlend), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return fmt.Errorf("create blend: %w", err)
		}

		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "blend created", "id", b.ID, "number", b.Number,
			"total", b.TotalInput.String(), "deltas", len(res.Applied), "skipped", len(res.Skipped))

		return s.record(ctx, b.ID, activity.ActionCreate, b)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	s.printer.Print(ctx, printout.TemplateBlend, b.Number, b)
	return b, nil
}

// Update replaces the composition. Dispatched weight is kept; the new total
// may not drop below it.
func (s *Service) Update(ctx context.Context, blendID string, req Request) (*Blend, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}

	var b *Blend
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.repo.GetByID(ctx, blendID)
		if err != nil {
			return err
		}
		before := *b

		original := b.Consumption()
		snap, err := s.reconciler.Snapshot(ctx, append(original.Refs(), req.refs()...)...)
		if err != nil {
			return err
		}
		components, updated, err := compose(snap, req, original)
		if err != nil {
			return err
		}

		newTotal := total(components)
		if newTotal.LessThan(b.Dispatched.Sub(calc.Epsilon)) {
			return apperror.NewValidation("blend total cannot be lower than the dispatched weight").
				WithDetail("total", calc.Round2(newTotal).String()).
				WithDetail("dispatched", calc.Round2(b.Dispatched).String())
		}

		plan, err := s.reconciler.Plan(ctx, snap, original, updated)
		if err != nil {
			return err
		}

		b.Components = components
		b.TypeLabel = strings.TrimSpace(req.TypeLabel)
		if !req.Date.IsZero() {
			b.Date = req.Date
		}
		b.BlendBalance = b.BlendBalance.Recompose(newTotal)
		audit.EnrichUpdated(ctx, &b.BaseDocument)

		if err := s.repo.Update(ctx, b); err != nil {
			return fmt.Errorf("update blend: %w", err)
		}
		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "blend updated", "id", b.ID, "number", b.Number,
			"total", b.TotalInput.String(), "deltas", len(res.Applied), "skipped", len(res.Skipped))

		changes, err := activity.DiffDocuments(before, b)
		if err != nil {
			return err
		}
		return s.record(ctx, b.ID, activity.ActionUpdate, changes)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	s.printer.Print(ctx, printout.TemplateBlend, b.Number, b)
	return b, nil
}

// Delete restores every consumed vignette, then removes the blend.
// A blend with dispatched weight cannot be deleted.
func (s *Service) Delete(ctx context.Context, blendID string) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		b, err := s.repo.GetByID(ctx, blendID)
		if err != nil {
			return err
		}
		if b.HasDispatches() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "blend has dispatched weight").
				WithDetail("dispatched", calc.Round2(b.Dispatched).String())
		}

		original := b.Consumption()
		snap, err := s.reconciler.Snapshot(ctx, original.Refs()...)
		if err != nil {
			return err
		}
		plan, err := s.reconciler.Plan(ctx, snap, original, reconcile.Consumption{})
		if err != nil {
			return err
		}
		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, b.ID); err != nil {
			return fmt.Errorf("delete blend: %w", err)
		}
		logger.Info(ctx, "blend deleted", "id", b.ID, "number", b.Number,
			"deltas", len(res.Applied), "skipped", len(res.Skipped))

		return s.record(ctx, b.ID, activity.ActionDelete, map[string]any{"number": b.Number})
	})
	return apperror.Normalize(err)
}

// GetByID retrieves a blend.
func (s *Service) GetByID(ctx context.Context, blendID string) (*Blend, error) {
	return s.repo.GetByID(ctx, blendID)
}

// List retrieves blends.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Blend], error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) record(ctx context.Context, blendID string, action activity.Action, changes any) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, EntityName, blendID, action, changes)
}

// compose resolves and clamps the requested components against the snapshot.
func compose(snap *reconcile.Snapshot, req Request, original reconcile.Consumption) ([]Component, reconcile.Consumption, error) {
	alloc := reconcile.NewAllocator(snap, original)
	components := make([]Component, 0, len(req.Components))

	for i, in := range req.Components {
		ref := reconcile.SourceRef{Kind: reconcile.KindVignette, ID: in.VignetteID}
		acc, ok := snap.Account(ref)
		if !ok {
			return nil, nil, apperror.NewSourceNotFound(ref.Kind.String(), ref.ID).WithDetail("row", i)
		}
		va, ok := acc.(yield.Account)
		if !ok {
			return nil, nil, apperror.NewInternal(fmt.Errorf("unexpected vignette account %T", acc))
		}

		v := va.Vignette()
		if !v.Pickable() && original.Get(ref).IsZero() {
			return nil, nil, apperror.NewValidation("vignette is not available for blending").
				WithDetail("row", i).
				WithDetail("status", string(v.Status))
		}

		weight := alloc.Take(ref, in.Weight)
		if !weight.GreaterThan(calc.Epsilon) {
			return nil, nil, apperror.NewValidation("vignette has no weight left").WithDetail("row", i)
		}
		components = append(components, Component{
			VignetteID: v.ID,
			RunID:      va.Run.ID,
			Type:       v.Type,
			Weight:     weight,
		})
	}
	return components, alloc.Consumption(), nil
}

func total(components []Component) types.Weight {
	sum := types.Sum()
	for _, c := range components {
		sum = sum.Add(c.Weight)
	}
	return sum
}

func dateOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
