// Package reports provides the integrity and stock reports.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// --- Integrity Report ---

// Rule names a balance invariant checked by the integrity report.
type Rule string

const (
	RuleReceiptConservation Rule = "receipt_conservation"
	RuleReceiptNegative     Rule = "receipt_negative_balance"
	RuleBlendConservation   Rule = "blend_conservation"
	RuleBlendStatus         Rule = "blend_status"
	RuleVignetteRange       Rule = "vignette_weight_range"
	RuleVignetteStatus      Rule = "vignette_status"
)

// Violation is one record breaking a rule.
type Violation struct {
	Entity   string `json:"entity"`
	ID       string `json:"id"`
	Number   string `json:"number,omitempty"`
	Rule     Rule   `json:"rule"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Checked counts the records inspected per entity.
type Checked struct {
	Receipts  int `json:"receipts"`
	Blends    int `json:"blends"`
	Vignettes int `json:"vignettes"`
}

// IntegrityReport is the result of one integrity run.
type IntegrityReport struct {
	GeneratedAt time.Time   `json:"generatedAt"`
	Checked     Checked     `json:"checked"`
	Violations  []Violation `json:"violations"`
}

// OK reports whether no rule was broken.
func (r *IntegrityReport) OK() bool {
	return len(r.Violations) == 0
}

// --- Stock Summary ---

// VignetteStock is the available vignette weight of one coffee type.
type VignetteStock struct {
	Type      string          `json:"type"`
	Count     int             `json:"count"`
	NetWeight decimal.Decimal `json:"netWeight"`
}

// StockSummary totals what is still in the warehouse.
type StockSummary struct {
	AsOfDate time.Time `json:"asOfDate"`

	// Receipts
	ReceiptsInWarehouse decimal.Decimal `json:"receiptsInWarehouse"`
	ReceiptsThreshed    decimal.Decimal `json:"receiptsThreshed"`
	ReceiptsReturned    decimal.Decimal `json:"receiptsReturned"`

	// Vignettes grouped by type, sorted by type
	Vignettes []VignetteStock `json:"vignettes"`

	// Blends
	BlendsRemaining  decimal.Decimal `json:"blendsRemaining"`
	BlendsDispatched decimal.Decimal `json:"blendsDispatched"`
}
