// Package contract provides export contract lots fulfilled by threshing orders.
package contract

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/domain/calc"
)

// LotStatus tracks whether a lot is bound to a threshing order.
type LotStatus string

const (
	LotPending  LotStatus = "Pendiente"
	LotAssigned LotStatus = "Asignado"
)

// Lot is one lot of an export contract.
type Lot struct {
	entity.BaseDocument

	Contract     string          `json:"contract"`
	Client       string          `json:"client"`
	LotNumber    string          `json:"lotNumber"`
	WeightQQ     decimal.Decimal `json:"weightQQ"`
	Fixation     decimal.Decimal `json:"fixation"`
	Differential decimal.Decimal `json:"differential"`
	FinalPrice   decimal.Decimal `json:"finalPrice"`

	Status           LotStatus `json:"status"`
	ThreshingOrderID string    `json:"threshingOrderId,omitempty"`
}

// CreateRequest is the form of a new lot.
type CreateRequest struct {
	Contract     string          `json:"contract"`
	Client       string          `json:"client"`
	LotNumber    string          `json:"lotNumber"`
	WeightQQ     decimal.Decimal `json:"weightQQ"`
	Fixation     decimal.Decimal `json:"fixation"`
	Differential decimal.Decimal `json:"differential"`
}

// NewLot builds a pending lot.
func NewLot(req CreateRequest) *Lot {
	return &Lot{
		BaseDocument: entity.NewBaseDocument(),
		Contract:     strings.TrimSpace(req.Contract),
		Client:       strings.TrimSpace(req.Client),
		LotNumber:    strings.TrimSpace(req.LotNumber),
		WeightQQ:     req.WeightQQ,
		Fixation:     req.Fixation,
		Differential: req.Differential,
		FinalPrice:   calc.FinalPrice(req.Fixation, req.Differential),
		Status:       LotPending,
	}
}

// Validate implements entity.Validatable.
func (l *Lot) Validate(_ context.Context) error {
	if l.Contract == "" {
		return apperror.NewValidation("contract is required").WithDetail("field", "contract")
	}
	if !l.WeightQQ.GreaterThan(calc.Epsilon) {
		return apperror.NewValidation("lot weight must be positive").WithDetail("field", "weightQQ")
	}
	return nil
}

// AssignableTo reports whether the lot may join the given order.
func (l *Lot) AssignableTo(orderID string) bool {
	return l.Status == LotPending || l.ThreshingOrderID == orderID
}
