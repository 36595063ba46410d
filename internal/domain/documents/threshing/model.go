// Package threshing provides the threshing order (Trilla): receipts, vignettes
// and blends converted into graded primeras and catadura.
package threshing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/reconcile"
)

// EntityName is used in errors and the activity log.
const EntityName = "threshing order"

// Kind selects how the order target is defined.
type Kind string

const (
	// KindExport fills contract lots.
	KindExport Kind = "export"
	// KindLocal fills a sold weight for a local client.
	KindLocal Kind = "local"
)

// ParseKind validates a kind value.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindExport, KindLocal:
		return k, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("unknown order kind %q", s)).WithDetail("field", "kind")
}

// Input is one persisted row of an order.
type Input struct {
	ID            string               `json:"id,omitempty"`
	OrderID       string               `json:"orderId"`
	Line          int                  `json:"line"`
	SourceKind    reconcile.SourceKind `json:"sourceKind"`
	SourceID      string               `json:"sourceId"`
	Amount        decimal.Decimal      `json:"amount"`
	FirstPercent  decimal.Decimal      `json:"firstPercent"`
	RejectPercent decimal.Decimal      `json:"rejectPercent"`
	Primeras      decimal.Decimal      `json:"primeras"`
	Catadura      decimal.Decimal      `json:"catadura"`
}

// Ref returns the source consumed by the row.
func (in Input) Ref() reconcile.SourceRef {
	return reconcile.SourceRef{Kind: in.SourceKind, ID: in.SourceID}
}

// Totals sums the rows of an order.
type Totals struct {
	Amount   decimal.Decimal `json:"totalAmount"`
	Primeras decimal.Decimal `json:"totalPrimeras"`
	Catadura decimal.Decimal `json:"totalCatadura"`
}

// Settlement compares produced primeras against the order target.
type Settlement struct {
	Needed     decimal.Decimal `json:"needed"`
	Difference decimal.Decimal `json:"difference"`
	Shortfall  bool            `json:"shortfall"`
}

// Settle computes the settlement of a target. A difference below -Epsilon is a shortfall.
func Settle(needed, primeras decimal.Decimal) Settlement {
	diff := primeras.Sub(needed)
	return Settlement{
		Needed:     needed,
		Difference: diff,
		Shortfall:  diff.LessThan(calc.Epsilon.Neg()),
	}
}

// Order is a threshing order. Inputs live in their own collection and are
// attached by the repository on read.
type Order struct {
	entity.BaseDocument
	Totals
	Settlement

	Number     string          `json:"number"`
	Date       time.Time       `json:"date"`
	Kind       Kind            `json:"kind"`
	LotIDs     []string        `json:"lotIds,omitempty"`
	ClientName string          `json:"clientName,omitempty"`
	SoldWeight decimal.Decimal `json:"soldWeight"`

	Inputs []Input `json:"inputs,omitempty"`
}

// Consumption is what the order takes from each source.
func (o *Order) Consumption() reconcile.Consumption {
	c := reconcile.Consumption{}
	for _, in := range o.Inputs {
		c.Add(in.Ref(), in.Amount)
	}
	return c
}

func totals(inputs []Input) Totals {
	t := Totals{Amount: decimal.Zero, Primeras: decimal.Zero, Catadura: decimal.Zero}
	for _, in := range inputs {
		t.Amount = t.Amount.Add(in.Amount)
		t.Primeras = t.Primeras.Add(in.Primeras)
		t.Catadura = t.Catadura.Add(in.Catadura)
	}
	return t
}

// InputRequest is one requested row. Percentages are ignored for receipt rows,
// which use the receipt's own yield.
type InputRequest struct {
	SourceKind    reconcile.SourceKind `json:"sourceKind"`
	SourceID      string               `json:"sourceId"`
	Amount        decimal.Decimal      `json:"amount"`
	FirstPercent  decimal.Decimal      `json:"firstPercent"`
	RejectPercent decimal.Decimal      `json:"rejectPercent"`
}

// Ref returns the requested source.
func (r InputRequest) Ref() reconcile.SourceRef {
	return reconcile.SourceRef{Kind: r.SourceKind, ID: r.SourceID}
}

// Request is the form of an order on create and edit.
type Request struct {
	Kind       Kind            `json:"kind"`
	Date       time.Time       `json:"date"`
	LotIDs     []string        `json:"lotIds,omitempty"`
	ClientName string          `json:"clientName,omitempty"`
	SoldWeight decimal.Decimal `json:"soldWeight"`
	Inputs     []InputRequest  `json:"inputs"`
}

// Validate checks the request shape before any store access.
func (r Request) Validate(_ context.Context) error {
	kind, err := ParseKind(string(r.Kind))
	if err != nil {
		return err
	}

	switch kind {
	case KindExport:
		if len(r.LotIDs) == 0 {
			return apperror.NewValidation("select at least one contract lot").WithDetail("field", "lotIds")
		}
	case KindLocal:
		if len(r.LotIDs) > 0 {
			return apperror.NewValidation("contract lots apply to export orders only").WithDetail("field", "lotIds")
		}
		if strings.TrimSpace(r.ClientName) == "" {
			return apperror.NewValidation("client is required").WithDetail("field", "clientName")
		}
		if !r.SoldWeight.GreaterThan(calc.Epsilon) {
			return apperror.NewValidation("sold weight must be positive").WithDetail("field", "soldWeight")
		}
	}

	if len(r.Inputs) == 0 {
		return apperror.NewValidation("at least one input row is required").WithDetail("field", "inputs")
	}
	for i, in := range r.Inputs {
		if _, err := in.SourceKind.MarshalText(); err != nil {
			return apperror.NewValidation("source type is required").WithDetail("row", i)
		}
		if in.SourceID == "" {
			return apperror.NewValidation("source is required").WithDetail("row", i)
		}
		if !in.Amount.IsPositive() {
			return apperror.NewValidation("amount must be positive").WithDetail("row", i)
		}
	}
	return nil
}

func (r Request) refs() []reconcile.SourceRef {
	refs := make([]reconcile.SourceRef, 0, len(r.Inputs))
	for _, in := range r.Inputs {
		refs = append(refs, in.Ref())
	}
	return refs
}
