// Package dispatch provides the dispatch document (Salida): blend shipments
// and receipt returns.
package dispatch

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
const EntityName = "dispatch"

// Mode selects what a dispatch consumes.
type Mode string

const (
	// ModeShipment sends blend weight out of the warehouse.
	ModeShipment Mode = "shipment"
	// ModeReturn gives receipt weight back to the supplier.
	ModeReturn Mode = "return"
)

// ParseMode validates a mode value.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeShipment, ModeReturn:
		return m, nil
	}
	return "", apperror.NewValidation(fmt.Sprintf("unknown dispatch mode %q", s)).WithDetail("field", "mode")
}

// SourceKind is the kind of source the rows of this mode consume.
func (m Mode) SourceKind() reconcile.SourceKind {
	if m == ModeReturn {
		return reconcile.KindReceipt
	}
	return reconcile.KindBlend
}

// Row is one persisted line of a dispatch.
type Row struct {
	ID         string          `json:"id,omitempty"`
	DispatchID string          `json:"dispatchId"`
	Line       int             `json:"line"`
	SourceID   string          `json:"sourceId"`
	Weight     decimal.Decimal `json:"weight"`
	Yute       int             `json:"yute"`
	Nylon      int             `json:"nylon"`
}

// Dispatch is a shipment or a return.
type Dispatch struct {
	entity.BaseDocument

	Number string        `json:"number"`
	Date   time.Time     `json:"date"`
	Mode   Mode          `json:"mode"`
	Client string        `json:"client,omitempty"`
	Status entity.Status `json:"status"`

	// TareOverride replaces the tare computed from sacks when set
	TareOverride *decimal.Decimal `json:"tareOverride,omitempty"`
	Tare         decimal.Decimal  `json:"tare"`
	Net          decimal.Decimal  `json:"net"`
	Gross        decimal.Decimal  `json:"gross"`

	Rows []Row `json:"rows,omitempty"`
}

// Consumption is what the dispatch takes from each source.
func (d *Dispatch) Consumption() reconcile.Consumption {
	c := reconcile.Consumption{}
	kind := d.Mode.SourceKind()
	for _, r := range d.Rows {
		c.Add(reconcile.SourceRef{Kind: kind, ID: r.SourceID}, r.Weight)
	}
	return c
}

// weigh derives net, tare and gross from the rows.
func (d *Dispatch) weigh() {
	net := decimal.Zero
	yute, nylon := 0, 0
	for _, r := range d.Rows {
		net = net.Add(r.Weight)
		yute += r.Yute
		nylon += r.Nylon
	}
	d.Net = net
	d.Tare = calc.TareFromSacks(yute, nylon)
	if d.TareOverride != nil {
		d.Tare = *d.TareOverride
	}
	d.Gross = d.Net.Add(d.Tare)
}

// RowRequest is one requested line.
type RowRequest struct {
	SourceID string          `json:"sourceId"`
	Weight   decimal.Decimal `json:"weight"`
	Yute     int             `json:"yute"`
	Nylon    int             `json:"nylon"`
}

// Request is the form of a dispatch on create and edit.
type Request struct {
	Mode         Mode             `json:"mode"`
	Date         time.Time        `json:"date"`
	Client       string           `json:"client,omitempty"`
	TareOverride *decimal.Decimal `json:"tareOverride,omitempty"`
	Rows         []RowRequest     `json:"rows"`
}

// Validate checks the request shape before any store access.
func (r Request) Validate(_ context.Context) error {
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}
	if len(r.Rows) == 0 {
		return apperror.NewValidation("at least one row is required").WithDetail("field", "rows")
	}
	if r.TareOverride != nil && r.TareOverride.IsNegative() {
		return apperror.NewValidation("tare cannot be negative").WithDetail("field", "tareOverride")
	}
	for i, row := range r.Rows {
		if row.SourceID == "" {
			return apperror.NewValidation("source is required").WithDetail("row", i)
		}
		if !row.Weight.IsPositive() {
			return apperror.NewValidation("weight must be positive").WithDetail("row", i)
		}
		if row.Yute < 0 || row.Nylon < 0 {
			return apperror.NewValidation("sack counts cannot be negative").WithDetail("row", i)
		}
	}
	return nil
}

func (r Request) refs(mode Mode) []reconcile.SourceRef {
	kind := mode.SourceKind()
	refs := make([]reconcile.SourceRef, 0, len(r.Rows))
	for _, row := range r.Rows {
		refs = append(refs, reconcile.SourceRef{Kind: kind, ID: row.SourceID})
	}
	return refs
}
