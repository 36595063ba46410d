package receipt

import (
	"context"
	"fmt"
	"time"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/core/numerator"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/audit"
	"coffeetrace/internal/domain/printout"
	"coffeetrace/pkg/logger"
)

// Service provides business operations for receipts.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	activity  *activity.Log
	printer   printout.Printer
}

// NewService creates a new receipt service.
func NewService(
	repo Repository,
	numerator numerator.Generator,
	txManager tx.Manager,
	activity *activity.Log,
	printer printout.Printer,
) *Service {
	if printer == nil {
		printer = printout.Nop{}
	}
	return &Service{
		repo:      repo,
		numerator: numerator,
		txManager: txManager,
		activity:  activity,
		printer:   printer,
	}
}

// Create records the intake of a receipt.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Receipt, error) {
	rec := NewReceipt(req)
	if err := rec.Validate(ctx); err != nil {
		return nil, err
	}
	audit.EnrichCreated(ctx, &rec.BaseDocument)

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(numerator.PrefixReceipt), nil, time.Now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}
	rec.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create receipt: %w", err)
		}
		return s.record(ctx, rec.ID, activity.ActionCreate, rec)
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "receipt created", "id", rec.ID, "number", rec.Number, "net_weight", rec.NetWeight.String())
	s.printer.Print(ctx, printout.TemplateReceipt, rec.Number, rec)
	return rec, nil
}

// GetByID retrieves a receipt.
func (s *Service) GetByID(ctx context.Context, receiptID string) (*Receipt, error) {
	return s.repo.GetByID(ctx, receiptID)
}

// List retrieves receipts.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Receipt], error) {
	return s.repo.List(ctx, filter)
}

// Void flips an untouched receipt to Anulado. Receipts that were threshed or
// returned must first be released by voiding those settlements.
func (s *Service) Void(ctx context.Context, receiptID string) (*Receipt, error) {
	var rec *Receipt
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetByID(ctx, receiptID)
		if err != nil {
			return err
		}
		if err := entity.CanModify(EntityName, rec.ID, rec.Status); err != nil {
			return err
		}
		if !rec.Untouched() {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "receipt has threshed or returned weight").
				WithDetail("threshed", rec.Threshed.String()).
				WithDetail("returned", rec.Returned.String())
		}

		rec.Status = entity.StatusVoided
		audit.EnrichUpdated(ctx, &rec.BaseDocument)
		if err := s.repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("void receipt: %w", err)
		}
		return s.record(ctx, rec.ID, activity.ActionVoid, map[string]any{"status": rec.Status})
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "receipt voided", "id", rec.ID, "number", rec.Number)
	return rec, nil
}

func (s *Service) record(ctx context.Context, receiptID string, action activity.Action, changes any) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, EntityName, receiptID, action, changes)
}
