package blend

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain/reconcile"
)

// Account is the reconciliation view of one blend.
type Account struct {
	Blend *Blend
}

// Available implements reconcile.Account.
func (a Account) Available() decimal.Decimal {
	return a.Blend.Remaining
}

// Source reconciles blend balances: consumption moves weight from Remaining to Dispatched.
type Source struct {
	repo Repository
}

// NewSource creates the blend adapter used by dispatches and threshing orders.
func NewSource(repo Repository) *Source {
	return &Source{repo: repo}
}

var _ reconcile.SourceAdapter = (*Source)(nil)

// Kind implements reconcile.SourceAdapter.
func (s *Source) Kind() reconcile.SourceKind {
	return reconcile.KindBlend
}

// Load implements reconcile.SourceAdapter.
func (s *Source) Load(ctx context.Context, ids []string) (map[string]reconcile.Account, error) {
	found, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]reconcile.Account, len(found))
	for blendID, b := range found {
		out[blendID] = Account{Blend: b}
	}
	return out, nil
}

// Apply implements reconcile.SourceAdapter.
func (s *Source) Apply(ctx context.Context, accounts map[string]reconcile.Account, deltas []reconcile.Delta) error {
	writes := make([]func(context.Context) error, 0, len(deltas))
	for _, delta := range deltas {
		acc, ok := accounts[delta.Ref.ID].(Account)
		if !ok {
			return fmt.Errorf("blend %s not in snapshot", delta.Ref.ID)
		}
		balance := acc.Blend.BlendBalance.Consume(delta.Amount)
		blendID := delta.Ref.ID
		writes = append(writes, func(ctx context.Context) error {
			return s.repo.SaveBalance(ctx, blendID, balance)
		})
	}
	return docstore.Batch(ctx, docstore.DefaultBatchLimit, writes...)
}
