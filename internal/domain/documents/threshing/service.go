package threshing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/core/numerator"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/audit"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/documents/contract"
	"coffeetrace/internal/domain/printout"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/pkg/logger"
)

// Lots resolves and assigns the contract lots of export orders.
type Lots interface {
	Resolve(ctx context.Context, orderID string, lotIDs []string) ([]*contract.Lot, error)
	Assign(ctx context.Context, orderID string, previous, current []string) error
}

// fixedYield is implemented by accounts whose rows use their own yield
// percentages instead of the requested ones.
type fixedYield interface {
	YieldPercents() (first, reject decimal.Decimal)
}

// ServiceConfig configures the threshing service.
type ServiceConfig struct {
	Repo      Repository
	Lots      Lots
	Sources   []reconcile.SourceAdapter
	Policy    reconcile.MissingSourcePolicy
	Numerator numerator.Generator
	TxManager tx.Manager
	Activity  *activity.Log
	Printer   printout.Printer
}

// Service creates, edits and voids threshing orders.
type Service struct {
	repo       Repository
	lots       Lots
	reconciler *reconcile.Reconciler
	numerator  numerator.Generator
	txManager  tx.Manager
	activity   *activity.Log
	printer    printout.Printer
}

// NewService creates a new threshing service.
func NewService(cfg ServiceConfig) *Service {
	printer := cfg.Printer
	if printer == nil {
		printer = printout.Nop{}
	}
	return &Service{
		repo:       cfg.Repo,
		lots:       cfg.Lots,
		reconciler: reconcile.New(cfg.Policy, cfg.Sources...),
		numerator:  cfg.Numerator,
		txManager:  cfg.TxManager,
		activity:   cfg.Activity,
		printer:    printer,
	}
}

// Create saves a new order, consumes its sources and assigns its lots.
func (s *Service) Create(ctx context.Context, req Request) (*Order, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}
	req.Kind, _ = ParseKind(string(req.Kind))

	var o *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lots, err := s.lots.Resolve(ctx, "", req.LotIDs)
		if err != nil {
			return err
		}

		snap, err := s.reconciler.Snapshot(ctx, req.refs()...)
		if err != nil {
			return err
		}
		inputs, updated, err := buildInputs(snap, req, reconcile.Consumption{})
		if err != nil {
			return err
		}
		plan, err := s.reconciler.Plan(ctx, snap, reconcile.Consumption{}, updated)
		if err != nil {
			return err
		}

		o = &Order{BaseDocument: entity.NewBaseDocument()}
		fill(o, req, inputs, lots)
		audit.EnrichCreated(ctx, &o.BaseDocument)

		o.Number, err = s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixThreshing), nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		if err := s.repo.Create(ctx, o); err != nil {
			return fmt.Errorf("create threshing order: %w", err)
		}
		if o.Inputs, err = s.repo.CreateInputs(ctx, o.ID, inputs); err != nil {
			return err
		}

		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}
		if err := s.lots.Assign(ctx, o.ID, nil, o.LotIDs); err != nil {
			return fmt.Errorf("assign lots: %w", err)
		}
		logger.Info(ctx, "threshing order created", "id", o.ID, "number", o.Number,
			"primeras", o.Primeras.String(), "shortfall", o.Shortfall,
			"deltas", len(res.Applied), "skipped", len(res.Skipped))

		return s.record(ctx, o.ID, activity.ActionCreate, o)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	s.printer.Print(ctx, printout.TemplateThreshing, o.Number, o)
	return o, nil
}

// Update reconciles the stored rows against the new ones and replaces them.
// The order's own prior consumption counts as available to the edit.
func (s *Service) Update(ctx context.Context, orderID string, req Request) (*Order, error) {
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}
	req.Kind, _ = ParseKind(string(req.Kind))

	var o *Order
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if req.Kind != o.Kind {
			return apperror.NewValidation("order kind cannot change").WithDetail("field", "kind")
		}
		before := *o
		previousLots := o.LotIDs

		lots, err := s.lots.Resolve(ctx, o.ID, req.LotIDs)
		if err != nil {
			return err
		}

		original := o.Consumption()
		snap, err := s.reconciler.Snapshot(ctx, append(original.Refs(), req.refs()...)...)
		if err != nil {
			return err
		}
		inputs, updated, err := buildInputs(snap, req, original)
		if err != nil {
			return err
		}
		plan, err := s.reconciler.Plan(ctx, snap, original, updated)
		if err != nil {
			return err
		}

		res, err := plan.Execute(ctx)
		if err != nil {
			return err
		}
		if err := s.repo.DeleteInputs(ctx, o.ID); err != nil {
			return err
		}

		fill(o, req, inputs, lots)
		audit.EnrichUpdated(ctx, &o.BaseDocument)
		if o.Inputs, err = s.repo.CreateInputs(ctx, o.ID, inputs); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update threshing order: %w", err)
		}
		if err := s.lots.Assign(ctx, o.ID, previousLots, o.LotIDs); err != nil {
			return fmt.Errorf("assign lots: %w", err)
		}
		logger.Info(ctx, "threshing order updated", "id", o.ID, "number", o.Number,
			"primeras", o.Primeras.String(), "shortfall", o.Shortfall,
			"deltas", len(res.Applied), "skipped", len(res.Skipped))

		changes, err := activity.DiffDocuments(before, o)
		if err != nil {
			return err
		}
		return s.record(ctx, o.ID, activity.ActionUpdate, changes)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	s.printer.Print(ctx, printout.TemplateThreshing, o.Number, o)
	return o, nil
}

// Void restores every consumed balance, then deletes the rows and the order
// and releases its lots.
func (s *Service) Void(ctx context.Context, orderID string) (reconcile.Result, error) {
	var res reconcile.Result
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}

		original := o.Consumption()
		snap, err := s.reconciler.Snapshot(ctx, original.Refs()...)
		if err != nil {
			return err
		}
		plan, err := s.reconciler.Plan(ctx, snap, original, reconcile.Consumption{})
		if err != nil {
			return err
		}
		if res, err = plan.Execute(ctx); err != nil {
			return err
		}

		if err := s.repo.DeleteInputs(ctx, o.ID); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, o.ID); err != nil {
			return fmt.Errorf("delete threshing order: %w", err)
		}
		if err := s.lots.Assign(ctx, o.ID, o.LotIDs, nil); err != nil {
			return fmt.Errorf("release lots: %w", err)
		}
		logger.Info(ctx, "threshing order voided", "id", o.ID, "number", o.Number,
			"deltas", len(res.Applied), "skipped", len(res.Skipped))

		return s.record(ctx, o.ID, activity.ActionVoid, map[string]any{"number": o.Number})
	})
	if err != nil {
		return reconcile.Result{}, apperror.Normalize(err)
	}
	return res, nil
}

// Settlement recomputes the settlement of a stored order against its current lots.
func (s *Service) Settlement(ctx context.Context, orderID string) (Settlement, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Settlement{}, err
	}
	lots, err := s.lots.Resolve(ctx, o.ID, o.LotIDs)
	if err != nil {
		return Settlement{}, err
	}
	return Settle(needed(o.Kind, lots, o.SoldWeight), o.Primeras), nil
}

// GetByID retrieves an order with its rows.
func (s *Service) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// List retrieves order headers.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Order], error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) record(ctx context.Context, orderID string, action activity.Action, changes any) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, EntityName, orderID, action, changes)
}

// buildInputs clamps every row to what its source can still give and computes
// its yield split.
func buildInputs(snap *reconcile.Snapshot, req Request, original reconcile.Consumption) ([]Input, reconcile.Consumption, error) {
	alloc := reconcile.NewAllocator(snap, original)
	inputs := make([]Input, 0, len(req.Inputs))

	for i, row := range req.Inputs {
		ref := row.Ref()
		acc, ok := snap.Account(ref)
		if !ok {
			return nil, nil, apperror.NewSourceNotFound(ref.Kind.String(), ref.ID).WithDetail("row", i)
		}

		amount := alloc.Take(ref, row.Amount)
		if !amount.GreaterThan(calc.Epsilon) {
			return nil, nil, apperror.NewValidation("source has no balance left").
				WithDetail("row", i).
				WithDetail("source", ref.String())
		}

		var first, reject decimal.Decimal
		if fy, ok := acc.(fixedYield); ok {
			first, reject = fy.YieldPercents()
		} else {
			first, reject = calc.ClampPercents(row.FirstPercent, row.RejectPercent)
		}
		split := calc.YieldSplit(amount, first, reject)

		inputs = append(inputs, Input{
			SourceKind:    ref.Kind,
			SourceID:      ref.ID,
			Amount:        amount,
			FirstPercent:  first,
			RejectPercent: reject,
			Primeras:      split.Primeras,
			Catadura:      split.Catadura,
		})
	}
	return inputs, alloc.Consumption(), nil
}

// fill copies the request target and the computed rows into o.
func fill(o *Order, req Request, inputs []Input, lots []*contract.Lot) {
	o.Kind = req.Kind
	if !req.Date.IsZero() {
		o.Date = req.Date
	} else if o.Date.IsZero() {
		o.Date = time.Now().UTC()
	}
	o.LotIDs = append([]string(nil), req.LotIDs...)
	o.ClientName = strings.TrimSpace(req.ClientName)
	o.SoldWeight = req.SoldWeight
	if o.Kind == KindExport {
		o.ClientName = clientOf(lots)
		o.SoldWeight = decimal.Zero
	}
	o.Inputs = inputs
	o.Totals = totals(inputs)
	o.Settlement = Settle(needed(o.Kind, lots, o.SoldWeight), o.Primeras)
}

func needed(kind Kind, lots []*contract.Lot, soldWeight decimal.Decimal) decimal.Decimal {
	if kind == KindLocal {
		return soldWeight
	}
	sum := decimal.Zero
	for _, lot := range lots {
		sum = sum.Add(lot.WeightQQ)
	}
	return sum
}

func clientOf(lots []*contract.Lot) string {
	for _, lot := range lots {
		if lot.Client != "" {
			return lot.Client
		}
	}
	return ""
}
