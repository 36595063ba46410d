package yield

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc   *Service
	repo  *StoreRepository
	index *Index
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	repo := NewRepository(store)
	index := NewIndex(repo, store)
	return fixture{svc: NewService(repo, index, tx.NewSerial(), nil), repo: repo, index: index}
}

func (f fixture) run(t *testing.T, kind RunKind, weights ...string) *Run {
	t.Helper()
	req := CreateRunRequest{Kind: kind}
	for _, w := range weights {
		req.Vignettes = append(req.Vignettes, VignetteSpec{Type: "Primera", Weight: d(w)})
	}
	run, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	return run
}

func vref(id string) reconcile.SourceRef {
	return reconcile.SourceRef{Kind: reconcile.KindVignette, ID: id}
}

func TestCreate_SnapshotsOriginalWeight(t *testing.T) {
	f := newFixture(t)
	run := f.run(t, RunYield, "40", "60")

	require.Len(t, run.Vignettes, 2)
	for _, v := range run.Vignettes {
		assert.NotEmpty(t, v.ID)
		assert.True(t, v.OriginalWeight.Equal(v.NetWeight))
		assert.Equal(t, ledger.VignetteInWarehouse, v.Status)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateRunRequest{Kind: RunYield})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(ctx, CreateRunRequest{Kind: "other", Vignettes: []VignetteSpec{{Type: "A", Weight: d("1")}}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(ctx, CreateRunRequest{Kind: RunYield, Vignettes: []VignetteSpec{{Type: "A", Weight: d("0")}}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestIndex_FindsVignettesAfterNewRuns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.run(t, RunYield, "10")
	got, err := f.index.Lookup(ctx, []string{first.Vignettes[0].ID})
	require.NoError(t, err)
	assert.Equal(t, Parent{Kind: RunYield, RunID: first.ID}, got[first.Vignettes[0].ID])

	// The insert notification invalidates the index.
	second := f.run(t, RunReprocess, "5")
	got, err = f.index.Lookup(ctx, []string{second.Vignettes[0].ID, "unknown"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, Parent{Kind: RunReprocess, RunID: second.ID}, got[second.Vignettes[0].ID])
}

func TestSource_GroupsWritesPerRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run := f.run(t, RunYield, "40", "60")
	a, b := run.Vignettes[0].ID, run.Vignettes[1].ID

	r := reconcile.New(reconcile.MissingSourceFail, NewBlendSource(f.repo, f.index))
	_, err := r.Reconcile(ctx, reconcile.Consumption{}, reconcile.Consumption{vref(a): d("40"), vref(b): d("20")})
	require.NoError(t, err)

	stored, err := f.repo.GetByID(ctx, RunYield, run.ID)
	require.NoError(t, err)
	assert.True(t, stored.Vignettes[0].NetWeight.IsZero())
	assert.Equal(t, ledger.VignetteMixed, stored.Vignettes[0].Status)
	assert.True(t, d("40").Equal(stored.Vignettes[1].NetWeight))
	assert.Equal(t, ledger.VignettePartiallyMixed, stored.Vignettes[1].Status)

	avail, err := f.svc.Available(ctx)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, b, avail[0].ID)

	// Restoring brings both back to En Bodega.
	_, err = r.Reconcile(ctx, reconcile.Consumption{vref(a): d("40"), vref(b): d("20")}, reconcile.Consumption{})
	require.NoError(t, err)
	stored, err = f.repo.GetByID(ctx, RunYield, run.ID)
	require.NoError(t, err)
	for _, v := range stored.Vignettes {
		assert.Equal(t, ledger.VignetteInWarehouse, v.Status)
		assert.True(t, v.OriginalWeight.Equal(v.NetWeight))
	}
}

func TestSource_ThreshingTerminalState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	run := f.run(t, RunReprocess, "15")
	vid := run.Vignettes[0].ID

	r := reconcile.New(reconcile.MissingSourceFail, NewThreshingSource(f.repo, f.index))
	_, err := r.Reconcile(ctx, reconcile.Consumption{}, reconcile.Consumption{vref(vid): d("15")})
	require.NoError(t, err)

	v, err := f.svc.GetVignette(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, ledger.VignetteThreshed, v.Status)
	assert.False(t, v.Pickable())

	_, err = f.svc.GetVignette(ctx, "missing")
	assert.True(t, apperror.IsNotFound(err))
}

func TestSource_StaleIndexEntryIsMissingSource(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := NewRepository(store)
	// The index listens to a store that never reports the removal below.
	index := NewIndex(repo, memory.New())

	run := &Run{Kind: RunYield, Vignettes: []Vignette{{
		ID: "vg-1", Type: "Primera", OriginalWeight: d("10"), NetWeight: d("10"), Status: ledger.VignetteInWarehouse,
	}}}
	require.NoError(t, repo.Create(ctx, run))
	got, err := index.Lookup(ctx, []string{"vg-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, store.Remove(ctx, CollectionYield, run.ID))

	src := NewBlendSource(repo, index)
	accounts, err := src.Load(ctx, []string{"vg-1"})
	require.NoError(t, err)
	assert.Empty(t, accounts)

	strict := reconcile.New(reconcile.MissingSourceFail, src)
	_, err = strict.Reconcile(ctx, reconcile.Consumption{vref("vg-1"): d("4")}, reconcile.Consumption{})
	assert.True(t, apperror.HasCode(err, apperror.CodeSourceNotFound))

	lenient := reconcile.New(reconcile.MissingSourceSkip, src)
	res, err := lenient.Reconcile(ctx, reconcile.Consumption{vref("vg-1"): d("4")}, reconcile.Consumption{})
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, vref("vg-1"), res.Skipped[0].Ref)
}
