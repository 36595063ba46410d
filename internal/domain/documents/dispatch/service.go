package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	appctx "coffeetrace/internal/core/context"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/core/numerator"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/audit"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/printout"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/pkg/logger"
)

// ServiceConfig configures the dispatch service.
type ServiceConfig struct {
	Repo Repository
	// Blends is the blend adapter used by shipments
	Blends reconcile.SourceAdapter
	// Receipts is the returned-bucket receipt adapter used by returns
	Receipts  reconcile.SourceAdapter
	Policy    reconcile.MissingSourcePolicy
	Numerator numerator.Generator
	TxManager tx.Manager
	Activity  *activity.Log
	Printer   printout.Printer
}

// Service creates, edits and voids dispatches.
type Service struct {
	repo        Repository
	reconcilers map[Mode]*reconcile.Reconciler
	numerator   numerator.Generator
	txManager   tx.Manager
	activity    *activity.Log
	printer     printout.Printer
}

// NewService creates a new dispatch service.
func NewService(cfg ServiceConfig) *Service {
	printer := cfg.Printer
	if printer == nil {
		printer = printout.Nop{}
	}
	return &Service{
		repo: cfg.Repo,
		reconcilers: map[Mode]*reconcile.Reconciler{
			ModeShipment: reconcile.New(cfg.Policy, cfg.Blends),
			ModeReturn:   reconcile.New(cfg.Policy, cfg.Receipts),
		},
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		activity:  cfg.Activity,
		printer:   printer,
	}
}

// Create saves a new dispatch and consumes its sources.
func (s *Service) Create(ctx context.Context, req Request) (*Dispatch, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}
	req.Mode, _ = ParseMode(string(req.Mode))
	if err := authorizeTare(ctx, nil, req.TareOverride); err != nil {
		return nil, err
	}
	r := s.reconcilers[req.Mode]

	var disp *Dispatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		snap, err := r.Snapshot(ctx, req.refs(req.Mode)...)
		if err != nil {
			return err
		}
		rows, updated, err := buildRows(snap, req, reconcile.Consumption{})
		if err != nil {
			return err
		}
		plan, err := r.Plan(ctx, snap, reconcile.Consumption{}, updated)
		if err != nil {
			return err
		}

		disp = &Dispatch{
			BaseDocument: entity.NewBaseDocument(),
			Mode:         req.Mode,
			Status:       entity.StatusActive,
		}
		fill(disp, req, rows)
		audit.EnrichCreated(ctx, &disp.BaseDocument)

		disp.Number, err = s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixDispatch), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		if err := s.repo.Create(ctx, disp); err != nil {
			return fmt.Errorf("create dispatch: %w", err)
		}
		if disp.Rows, err = s.repo.ReplaceRows(ctx, disp.ID, rows); err != nil {
			return err
		}

		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "dispatch created", "id", disp.ID, "number", disp.Number, "mode", disp.Mode,
			"net", disp.Net.String(), "deltas", len(res.Applied), "skipped", len(res.Skipped))

		return s.record(ctx, disp.ID, activity.ActionCreate, disp)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	s.printer.Print(ctx, printout.TemplateDispatch, disp.Number, disp)
	return disp, nil
}

// Update replaces the rows of an active dispatch and reconciles the difference.
func (s *Service) Update(ctx context.Context, dispatchID string, req Request) (*Dispatch, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}
	req.Mode, _ = ParseMode(string(req.Mode))

	var disp *Dispatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		disp, err = s.repo.GetByID(ctx, dispatchID)
		if err != nil {
			return err
		}
		if err := entity.CanModify(EntityName, disp.ID, disp.Status); err != nil {
			return err
		}
		if req.Mode != disp.Mode {
			return apperror.NewValidation("dispatch mode cannot change").WithDetail("field", "mode")
		}
		if err := authorizeTare(ctx, disp.TareOverride, req.TareOverride); err != nil {
			return err
		}
		before := *disp
		r := s.reconcilers[disp.Mode]

		original := disp.Consumption()
		snap, err := r.Snapshot(ctx, append(original.Refs(), req.refs(disp.Mode)...)...)
		if err != nil {
			return err
		}
		rows, updated, err := buildRows(snap, req, original)
		if err != nil {
			return err
		}
		plan, err := r.Plan(ctx, snap, original, updated)
		if err != nil {
			return err
		}

		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}
		if rows, err = s.repo.ReplaceRows(ctx, disp.ID, rows); err != nil {
			return err
		}

		fill(disp, req, rows)
		audit.EnrichUpdated(ctx, &disp.BaseDocument)
		if err := s.repo.Update(ctx, disp); err != nil {
			return fmt.Errorf("update dispatch: %w", err)
		}
		logger.Info(ctx, "dispatch updated", "id", disp.ID, "number", disp.Number, "mode", disp.Mode,
			"net", disp.Net.String(), "deltas", len(res.Applied), "skipped", len(res.Skipped))

		changes, err := activity.DiffDocuments(before, disp)
		if err != nil {
			return err
		}
		return s.record(ctx, disp.ID, activity.ActionUpdate, changes)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	s.printer.Print(ctx, printout.TemplateDispatch, disp.Number, disp)
	return disp, nil
}

// Void marks the dispatch Anulado and restores everything it consumed.
// Rows are kept for history.
func (s *Service) Void(ctx context.Context, dispatchID string) (*Dispatch, error) {
	var disp *Dispatch
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		disp, err = s.repo.GetByID(ctx, dispatchID)
		if err != nil {
			return err
		}
		if err := entity.CanModify(EntityName, disp.ID, disp.Status); err != nil {
			return err
		}
		r := s.reconcilers[disp.Mode]

		original := disp.Consumption()
		snap, err := r.Snapshot(ctx, original.Refs()...)
		if err != nil {
			return err
		}
		plan, err := r.Plan(ctx, snap, original, reconcile.Consumption{})
		if err != nil {
			return err
		}
		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}

		disp.Status = entity.StatusVoided
		audit.EnrichUpdated(ctx, &disp.BaseDocument)
		if err := s.repo.Update(ctx, disp); err != nil {
			return fmt.Errorf("void dispatch: %w", err)
		}
		logger.Info(ctx, "dispatch voided", "id", disp.ID, "number", disp.Number,
			"deltas", len(res.Applied), "skipped", len(res.Skipped))

		return s.record(ctx, disp.ID, activity.ActionVoid, map[string]any{"status": disp.Status})
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}
	return disp, nil
}

// GetByID retrieves a dispatch with its rows.
func (s *Service) GetByID(ctx context.Context, dispatchID string) (*Dispatch, error) {
	return s.repo.GetByID(ctx, dispatchID)
}

// List retrieves dispatch headers.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Dispatch], error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) record(ctx context.Context, dispatchID string, action activity.Action, changes any) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, EntityName, dispatchID, action, changes)
}

// authorizeTare requires the supervisor role to set or change a tare override.
func authorizeTare(ctx context.Context, current, requested *decimal.Decimal) error {
	if requested == nil {
		return nil
	}
	if current != nil && current.Equal(*requested) {
		return nil
	}
	if !appctx.HasRole(ctx, appctx.RoleSupervisor) {
		return apperror.NewForbidden("tare override requires the supervisor role")
	}
	return nil
}

// buildRows clamps every row to what its source can still give.
func buildRows(snap *reconcile.Snapshot, req Request, original reconcile.Consumption) ([]Row, reconcile.Consumption, error) {
	alloc := reconcile.NewAllocator(snap, original)
	kind := req.Mode.SourceKind()
	rows := make([]Row, 0, len(req.Rows))

	for i, in := range req.Rows {
		ref := reconcile.SourceRef{Kind: kind, ID: in.SourceID}
		if _, ok := snap.Account(ref); !ok {
			return nil, nil, apperror.NewSourceNotFound(ref.Kind.String(), ref.ID).WithDetail("row", i)
		}
		weight := alloc.Take(ref, in.Weight)
		if !weight.GreaterThan(calc.Epsilon) {
			return nil, nil, apperror.NewValidation("source has no balance left").
				WithDetail("row", i).
				WithDetail("source", ref.String())
		}
		rows = append(rows, Row{
			SourceID: in.SourceID,
			Weight:   weight,
			Yute:     in.Yute,
			Nylon:    in.Nylon,
		})
	}
	return rows, alloc.Consumption(), nil
}

func fill(disp *Dispatch, req Request, rows []Row) {
	if !req.Date.IsZero() {
		disp.Date = req.Date
	} else if disp.Date.IsZero() {
		disp.Date = time.Now().UTC()
	}
	disp.Client = strings.TrimSpace(req.Client)
	disp.TareOverride = req.TareOverride
	disp.Rows = rows
	disp.weigh()
}
