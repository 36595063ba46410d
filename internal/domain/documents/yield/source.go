package yield

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/docstore"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/reconcile"
)

// Account is the reconciliation view of one vignette inside its run.
// Accounts of the same run share the Run pointer.
type Account struct {
	Run   *Run
	Index int
}

// Vignette returns the snapshot of the vignette.
func (a Account) Vignette() Vignette {
	return a.Run.Vignettes[a.Index]
}

// Available implements reconcile.Account.
func (a Account) Available() decimal.Decimal {
	return a.Vignette().NetWeight
}

// Source reconciles vignette weights. The consumer decides the terminal state
// reached when a vignette is used up.
type Source struct {
	repo     Repository
	index    *Index
	consumer ledger.Consumer
}

// NewBlendSource is the vignette adapter of blends.
func NewBlendSource(repo Repository, index *Index) *Source {
	return &Source{repo: repo, index: index, consumer: ledger.ConsumerBlend}
}

// NewThreshingSource is the vignette adapter of threshing orders.
func NewThreshingSource(repo Repository, index *Index) *Source {
	return &Source{repo: repo, index: index, consumer: ledger.ConsumerThreshing}
}

var _ reconcile.SourceAdapter = (*Source)(nil)

// Kind implements reconcile.SourceAdapter.
func (s *Source) Kind() reconcile.SourceKind {
	return reconcile.KindVignette
}

// Load implements reconcile.SourceAdapter. Each parent run is read once.
// A vignette whose indexed run is gone is omitted and the index is dropped.
func (s *Source) Load(ctx context.Context, ids []string) (map[string]reconcile.Account, error) {
	parents, err := s.index.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	runs := make(map[Parent]*Run)
	out := make(map[string]reconcile.Account, len(parents))
	for vid, parent := range parents {
		run, ok := runs[parent]
		if !ok {
			run, err = s.repo.GetByID(ctx, parent.Kind, parent.RunID)
			switch {
			case apperror.IsNotFound(err):
				s.index.Invalidate()
				run = nil
			case err != nil:
				return nil, fmt.Errorf("load run %s: %w", parent.RunID, err)
			}
			runs[parent] = run
		}
		if run == nil {
			continue
		}
		if i := run.VignetteIndex(vid); i >= 0 {
			out[vid] = Account{Run: run, Index: i}
		}
	}
	return out, nil
}

// Apply implements reconcile.SourceAdapter. Deltas are grouped per parent run
// so every run is written once with all of its vignette changes.
func (s *Source) Apply(ctx context.Context, accounts map[string]reconcile.Account, deltas []reconcile.Delta) error {
	type pending struct {
		run       *Run
		vignettes []Vignette
	}
	byRun := make(map[*Run]*pending)
	order := make([]*Run, 0)

	for _, delta := range deltas {
		acc, ok := accounts[delta.Ref.ID].(Account)
		if !ok {
			return fmt.Errorf("vignette %s not in snapshot", delta.Ref.ID)
		}
		p, ok := byRun[acc.Run]
		if !ok {
			p = &pending{run: acc.Run, vignettes: append([]Vignette(nil), acc.Run.Vignettes...)}
			byRun[acc.Run] = p
			order = append(order, acc.Run)
		}

		v := p.vignettes[acc.Index]
		balance, state := ledger.VignetteBalance{OriginalWeight: v.OriginalWeight, NetWeight: v.NetWeight}.
			Consume(delta.Amount, s.consumer)
		v.NetWeight = balance.NetWeight
		v.Status = state
		p.vignettes[acc.Index] = v
	}

	writes := make([]func(context.Context) error, 0, len(order))
	for _, run := range order {
		p := byRun[run]
		writes = append(writes, func(ctx context.Context) error {
			return s.repo.SaveVignettes(ctx, p.run.Kind, p.run.ID, p.vignettes)
		})
	}
	return docstore.Batch(ctx, docstore.DefaultBatchLimit, writes...)
}
