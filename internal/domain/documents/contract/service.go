package contract

import (
	"context"
	"fmt"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/audit"
	"coffeetrace/pkg/logger"
)

// Service provides operations on contract lots.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

// NewService creates a lot service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// Create registers a pending lot.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Lot, error) {
	lot := NewLot(req)
	if err := lot.Validate(ctx); err != nil {
		return nil, err
	}
	audit.EnrichCreated(ctx, &lot.BaseDocument)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, lot); err != nil {
			return fmt.Errorf("create lot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Normalize(err)
	}

	logger.Info(ctx, "contract lot created", "id", lot.ID, "contract", lot.Contract, "weight_qq", lot.WeightQQ.String())
	return lot, nil
}

// GetByID retrieves a lot.
func (s *Service) GetByID(ctx context.Context, lotID string) (*Lot, error) {
	return s.repo.GetByID(ctx, lotID)
}

// List retrieves lots.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Lot], error) {
	return s.repo.List(ctx, filter)
}

// Resolve loads lots for an order and checks that none belongs to another order.
func (s *Service) Resolve(ctx context.Context, orderID string, lotIDs []string) ([]*Lot, error) {
	found, err := s.repo.GetMany(ctx, lotIDs)
	if err != nil {
		return nil, err
	}
	lots := make([]*Lot, 0, len(lotIDs))
	seen := make(map[string]struct{}, len(lotIDs))
	for _, lotID := range lotIDs {
		if _, dup := seen[lotID]; dup {
			return nil, apperror.NewValidation("lot selected twice").WithDetail("lotId", lotID)
		}
		seen[lotID] = struct{}{}

		lot, ok := found[lotID]
		if !ok {
			return nil, apperror.NewNotFound("contract lot", lotID)
		}
		if !lot.AssignableTo(orderID) {
			return nil, apperror.NewBusinessRule(apperror.CodeConflict, "lot is assigned to another threshing order").
				WithDetail("lotId", lotID).
				WithDetail("threshingOrderId", lot.ThreshingOrderID)
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// Assign binds lots to an order and releases the ones it no longer holds.
func (s *Service) Assign(ctx context.Context, orderID string, previous, current []string) error {
	keep := make(map[string]struct{}, len(current))
	for _, lotID := range current {
		keep[lotID] = struct{}{}
	}

	writes := make([]func(context.Context) error, 0, len(previous)+len(current))
	for _, lotID := range previous {
		if _, ok := keep[lotID]; ok {
			continue
		}
		writes = append(writes, func(ctx context.Context) error {
			return s.repo.SetAssignment(ctx, lotID, LotPending, "")
		})
	}
	for _, lotID := range current {
		writes = append(writes, func(ctx context.Context) error {
			return s.repo.SetAssignment(ctx, lotID, LotAssigned, orderID)
		})
	}
	return docstore.Batch(ctx, docstore.DefaultBatchLimit, writes...)
}
