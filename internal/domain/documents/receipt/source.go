package receipt

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/reconcile"
)

// Account is the reconciliation view of one receipt.
type Account struct {
	Receipt *Receipt
}

// Available implements reconcile.Account.
func (a Account) Available() decimal.Decimal {
	return a.Receipt.Available()
}

// YieldPercents returns the fixed first and reject percentages of the receipt.
func (a Account) YieldPercents() (first, reject decimal.Decimal) {
	return a.Receipt.FirstPercent, a.Receipt.RejectPercent
}

// Source reconciles receipt balances. Consumed weight lands in one bucket:
// threshing moves it to Threshed, returns move it to Returned.
type Source struct {
	repo   Repository
	bucket ledger.Bucket
}

// NewThreshedSource is the receipt adapter of threshing orders.
func NewThreshedSource(repo Repository) *Source {
	return &Source{repo: repo, bucket: ledger.BucketThreshed}
}

// NewReturnedSource is the receipt adapter of return dispatches.
func NewReturnedSource(repo Repository) *Source {
	return &Source{repo: repo, bucket: ledger.BucketReturned}
}

var _ reconcile.SourceAdapter = (*Source)(nil)

// Kind implements reconcile.SourceAdapter.
func (s *Source) Kind() reconcile.SourceKind {
	return reconcile.KindReceipt
}

// Load implements reconcile.SourceAdapter.
func (s *Source) Load(ctx context.Context, ids []string) (map[string]reconcile.Account, error) {
	found, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]reconcile.Account, len(found))
	for receiptID, rec := range found {
		out[receiptID] = Account{Receipt: rec}
	}
	return out, nil
}

// Apply implements reconcile.SourceAdapter.
func (s *Source) Apply(ctx context.Context, accounts map[string]reconcile.Account, deltas []reconcile.Delta) error {
	writes := make([]func(context.Context) error, 0, len(deltas))
	for _, delta := range deltas {
		acc, ok := accounts[delta.Ref.ID].(Account)
		if !ok {
			return fmt.Errorf("receipt %s not in snapshot", delta.Ref.ID)
		}
		balance := acc.Receipt.ReceiptBalance.Consume(delta.Amount, s.bucket)
		receiptID := delta.Ref.ID
		writes = append(writes, func(ctx context.Context) error {
			return s.repo.SaveBalance(ctx, receiptID, balance)
		})
	}
	return docstore.Batch(ctx, docstore.DefaultBatchLimit, writes...)
}
