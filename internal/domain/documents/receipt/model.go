// Package receipt provides the purchase receipt document (Recibo) and its
// reconciliation adapters.
package receipt

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/ledger"
)

// EntityName is used in errors and the activity log.
const EntityName = "receipt"

// Receipt is a batch of raw coffee bought from a supplier.
// NetWeight is fixed at intake; the other balances move with threshing and returns.
type Receipt struct {
	entity.BaseDocument
	ledger.ReceiptBalance

	Number   string        `json:"number"`
	Date     time.Time     `json:"date"`
	Supplier string        `json:"supplier"`
	Status   entity.Status `json:"status"`

	Bultos     decimal.Decimal `json:"bultos"`
	KgPerBulto decimal.Decimal `json:"kgPerBulto"`
	PriceUnit  string          `json:"priceUnit"`

	Fixation     decimal.Decimal `json:"fixation"`
	Differential decimal.Decimal `json:"differential"`
	FinalPrice   decimal.Decimal `json:"finalPrice"`
	ChargeValue  decimal.Decimal `json:"chargeValue"`

	// Yield percentages applied when the receipt is threshed
	FirstPercent  decimal.Decimal `json:"firstPercent"`
	RejectPercent decimal.Decimal `json:"rejectPercent"`
}

// CreateRequest is the intake form of a receipt.
type CreateRequest struct {
	Date          time.Time       `json:"date"`
	Supplier      string          `json:"supplier"`
	Bultos        decimal.Decimal `json:"bultos"`
	KgPerBulto    decimal.Decimal `json:"kgPerBulto"`
	PriceUnit     string          `json:"priceUnit"`
	Fixation      decimal.Decimal `json:"fixation"`
	Differential  decimal.Decimal `json:"differential"`
	FirstPercent  decimal.Decimal `json:"firstPercent"`
	RejectPercent decimal.Decimal `json:"rejectPercent"`
}

// NewReceipt computes the derived intake fields.
func NewReceipt(req CreateRequest) *Receipt {
	// Balances are kept in quintals; the price unit only affects ChargeValue.
	net := calc.Quintals(req.Bultos, req.KgPerBulto)
	finalPrice := calc.FinalPrice(req.Fixation, req.Differential)
	first, reject := calc.ClampPercents(req.FirstPercent, req.RejectPercent)

	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return &Receipt{
		BaseDocument:   entity.NewBaseDocument(),
		ReceiptBalance: ledger.NewReceiptBalance(net),
		Date:           date,
		Supplier:       strings.TrimSpace(req.Supplier),
		Status:         entity.StatusActive,
		Bultos:         req.Bultos,
		KgPerBulto:     req.KgPerBulto,
		PriceUnit:      req.PriceUnit,
		Fixation:       req.Fixation,
		Differential:   req.Differential,
		FinalPrice:     finalPrice,
		ChargeValue:    calc.ChargeValue(req.Bultos, req.KgPerBulto, finalPrice, req.PriceUnit),
		FirstPercent:   first,
		RejectPercent:  reject,
	}
}

// Validate implements entity.Validatable.
func (r *Receipt) Validate(_ context.Context) error {
	if r.Supplier == "" {
		return apperror.NewValidation("supplier is required").WithDetail("field", "supplier")
	}
	switch r.PriceUnit {
	case calc.UnitCentsPerPound, calc.UnitQuintal46Kg:
	default:
		return apperror.NewValidation("unsupported price unit").
			WithDetail("field", "priceUnit").
			WithDetail("value", r.PriceUnit)
	}
	if !r.NetWeight.IsPositive() {
		return apperror.NewValidation("bultos and kg per bulto must be positive").WithDetail("field", "bultos")
	}
	return nil
}

// Available is the weight settlements may consume. Voided receipts expose nothing.
func (r *Receipt) Available() decimal.Decimal {
	if r.Status.IsVoided() {
		return decimal.Zero
	}
	return r.InWarehouse
}

// Yield splits a threshed amount using the receipt's percentages.
func (r *Receipt) Yield(amount decimal.Decimal) calc.Split {
	return calc.YieldSplit(amount, r.FirstPercent, r.RejectPercent)
}
