package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/pkg/logger"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Integrity checks the balance invariants of every receipt, blend and vignette.
func (s *Service) Integrity(ctx context.Context) (*IntegrityReport, error) {
	receipts, err := s.repo.Receipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity report: %w", err)
	}
	blends, err := s.repo.Blends(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity report: %w", err)
	}
	runs, err := s.repo.Runs(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity report: %w", err)
	}

	report := &IntegrityReport{
		GeneratedAt: s.now().UTC(),
		Violations:  []Violation{},
	}
	for _, rec := range receipts {
		report.Checked.Receipts++
		report.Violations = append(report.Violations, checkReceipt(rec)...)
	}
	for _, b := range blends {
		report.Checked.Blends++
		report.Violations = append(report.Violations, checkBlend(b)...)
	}
	for _, run := range runs {
		for _, v := range run.Vignettes {
			report.Checked.Vignettes++
			report.Violations = append(report.Violations, checkVignette(v)...)
		}
	}

	if !report.OK() {
		logger.Warn(ctx, "integrity check found violations", "count", len(report.Violations))
	}
	return report, nil
}

// StockSummary totals the weight still held by receipts, vignettes and blends.
func (s *Service) StockSummary(ctx context.Context) (*StockSummary, error) {
	receipts, err := s.repo.Receipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	blends, err := s.repo.Blends(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	runs, err := s.repo.Runs(ctx)
	if err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}

	sum := &StockSummary{
		AsOfDate:            s.now().UTC(),
		ReceiptsInWarehouse: decimal.Zero,
		ReceiptsThreshed:    decimal.Zero,
		ReceiptsReturned:    decimal.Zero,
		BlendsRemaining:     decimal.Zero,
		BlendsDispatched:    decimal.Zero,
	}
	for _, rec := range receipts {
		sum.ReceiptsInWarehouse = sum.ReceiptsInWarehouse.Add(rec.Available())
		sum.ReceiptsThreshed = sum.ReceiptsThreshed.Add(rec.Threshed)
		sum.ReceiptsReturned = sum.ReceiptsReturned.Add(rec.Returned)
	}
	for _, b := range blends {
		sum.BlendsRemaining = sum.BlendsRemaining.Add(b.Remaining)
		sum.BlendsDispatched = sum.BlendsDispatched.Add(b.Dispatched)
	}

	byType := make(map[string]*VignetteStock)
	for _, run := range runs {
		for _, v := range run.Vignettes {
			if !v.Pickable() {
				continue
			}
			vs, ok := byType[v.Type]
			if !ok {
				vs = &VignetteStock{Type: v.Type, NetWeight: decimal.Zero}
				byType[v.Type] = vs
			}
			vs.Count++
			vs.NetWeight = vs.NetWeight.Add(v.NetWeight)
		}
	}
	sum.Vignettes = make([]VignetteStock, 0, len(byType))
	for _, vs := range byType {
		sum.Vignettes = append(sum.Vignettes, *vs)
	}
	sort.Slice(sum.Vignettes, func(i, j int) bool { return sum.Vignettes[i].Type < sum.Vignettes[j].Type })

	return sum, nil
}

func checkReceipt(rec *receipt.Receipt) []Violation {
	var out []Violation
	if !rec.Conserved() {
		out = append(out, Violation{
			Entity:   receipt.EntityName,
			ID:       rec.ID,
			Number:   rec.Number,
			Rule:     RuleReceiptConservation,
			Expected: rec.NetWeight.String(),
			Actual:   rec.InWarehouse.Add(rec.Threshed).Add(rec.Returned).String(),
		})
	}
	if rec.InWarehouse.LessThan(calc.Epsilon.Neg()) {
		out = append(out, Violation{
			Entity:   receipt.EntityName,
			ID:       rec.ID,
			Number:   rec.Number,
			Rule:     RuleReceiptNegative,
			Expected: ">= 0",
			Actual:   rec.InWarehouse.String(),
		})
	}
	return out
}

func checkBlend(b *blend.Blend) []Violation {
	var out []Violation
	if !b.Conserved() {
		out = append(out, Violation{
			Entity:   blend.EntityName,
			ID:       b.ID,
			Number:   b.Number,
			Rule:     RuleBlendConservation,
			Expected: b.TotalInput.String(),
			Actual:   b.Dispatched.Add(b.Remaining).String(),
		})
	}
	if want := ledger.BlendStatus(b.Remaining, b.Dispatched); want != b.Status {
		out = append(out, Violation{
			Entity:   blend.EntityName,
			ID:       b.ID,
			Number:   b.Number,
			Rule:     RuleBlendStatus,
			Expected: string(want),
			Actual:   string(b.Status),
		})
	}
	return out
}

func checkVignette(v yield.Vignette) []Violation {
	var out []Violation
	if v.NetWeight.LessThan(calc.Epsilon.Neg()) || v.NetWeight.GreaterThan(v.OriginalWeight.Add(calc.Epsilon)) {
		out = append(out, Violation{
			Entity:   "vignette",
			ID:       v.ID,
			Rule:     RuleVignetteRange,
			Expected: "0.." + v.OriginalWeight.String(),
			Actual:   v.NetWeight.String(),
		})
	}

	// The terminal state depends on the consumer, so either one is accepted.
	valid := v.Status == ledger.VignetteStatus(v.NetWeight, v.OriginalWeight, ledger.ConsumerBlend) ||
		v.Status == ledger.VignetteStatus(v.NetWeight, v.OriginalWeight, ledger.ConsumerThreshing)
	if !valid {
		out = append(out, Violation{
			Entity:   "vignette",
			ID:       v.ID,
			Rule:     RuleVignetteStatus,
			Expected: string(ledger.VignetteStatus(v.NetWeight, v.OriginalWeight, ledger.ConsumerBlend)),
			Actual:   string(v.Status),
		})
	}
	return out
}
