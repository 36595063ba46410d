package blend

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/numerator"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc      *Service
	repo     *StoreRepository
	runs     *yield.Service
	activity *activity.Log
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	txm := tx.NewSerial()
	log, err := activity.NewLog(store)
	require.NoError(t, err)

	runRepo := yield.NewRepository(store)
	index := yield.NewIndex(runRepo, store)
	repo := NewRepository(store)

	return fixture{
		svc: NewService(ServiceConfig{
			Repo:      repo,
			Vignettes: yield.NewBlendSource(runRepo, index),
			Policy:    reconcile.MissingSourceFail,
			Numerator: &numerator.MockGenerator{},
			TxManager: txm,
			Activity:  log,
		}),
		repo:     repo,
		runs:     yield.NewService(runRepo, index, txm, log),
		activity: log,
	}
}

// vignettes creates one yield run and returns its vignette ids.
func (f fixture) vignettes(t *testing.T, weights ...string) []string {
	t.Helper()
	req := yield.CreateRunRequest{Kind: yield.RunYield}
	for _, w := range weights {
		req.Vignettes = append(req.Vignettes, yield.VignetteSpec{Type: "Primera", Weight: d(w)})
	}
	run, err := f.runs.Create(context.Background(), req)
	require.NoError(t, err)

	ids := make([]string, 0, len(run.Vignettes))
	for _, v := range run.Vignettes {
		ids = append(ids, v.ID)
	}
	return ids
}

func (f fixture) vignette(t *testing.T, id string) yield.AvailableVignette {
	t.Helper()
	v, err := f.runs.GetVignette(context.Background(), id)
	require.NoError(t, err)
	return *v
}

func request(components ...ComponentInput) Request {
	return Request{TypeLabel: "Europa", Components: components}
}

func use(id, weight string) ComponentInput {
	return ComponentInput{VignetteID: id, Weight: d(weight)}
}

func TestCreate_DecrementsVignettes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40", "60")

	b, err := f.svc.Create(ctx, request(use(ids[0], "40"), use(ids[1], "25")))
	require.NoError(t, err)
	assert.Contains(t, b.Number, "MZ-")
	assert.True(t, d("65").Equal(b.TotalInput))
	assert.True(t, d("65").Equal(b.Remaining))
	assert.True(t, b.Dispatched.IsZero())
	assert.Equal(t, ledger.BlendActive, b.Status)
	require.Len(t, b.Components, 2)
	assert.NotEmpty(t, b.Components[0].RunID)
	assert.Equal(t, "Primera", b.Components[0].Type)

	first := f.vignette(t, ids[0])
	assert.True(t, first.NetWeight.IsZero())
	assert.Equal(t, ledger.VignetteMixed, first.Status)

	second := f.vignette(t, ids[1])
	assert.True(t, d("35").Equal(second.NetWeight))
	assert.Equal(t, ledger.VignettePartiallyMixed, second.Status)

	history, err := f.activity.History(ctx, EntityName, b.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, activity.ActionCreate, history[0].Action)
}

func TestCreate_ClampsToAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40")

	// Two rows of the same vignette share one allowance.
	b, err := f.svc.Create(ctx, request(use(ids[0], "30"), use(ids[0], "30")))
	require.NoError(t, err)
	require.Len(t, b.Components, 2)
	assert.True(t, d("30").Equal(b.Components[0].Weight))
	assert.True(t, d("10").Equal(b.Components[1].Weight))
	assert.True(t, d("40").Equal(b.TotalInput))
}

func TestCreate_RefusesExhaustedVignette(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40")

	_, err := f.svc.Create(ctx, request(use(ids[0], "40")))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, request(use(ids[0], "1")))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCreate_UnknownVignette(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.vignettes(t, "40")

	_, err := f.svc.Create(ctx, request(use("missing", "10")))
	assert.True(t, apperror.HasCode(err, apperror.CodeSourceNotFound))

	list, err := f.repo.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestUpdate_AppliesOnlyTheDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40", "60")

	b, err := f.svc.Create(ctx, request(use(ids[0], "20"), use(ids[1], "30")))
	require.NoError(t, err)

	// Drop the first vignette and raise the second to all of it.
	updated, err := f.svc.Update(ctx, b.ID, request(use(ids[1], "60")))
	require.NoError(t, err)
	assert.True(t, d("60").Equal(updated.TotalInput))
	assert.True(t, d("60").Equal(updated.Remaining))

	first := f.vignette(t, ids[0])
	assert.True(t, d("40").Equal(first.NetWeight))
	assert.Equal(t, ledger.VignetteInWarehouse, first.Status)

	second := f.vignette(t, ids[1])
	assert.True(t, second.NetWeight.IsZero())
	assert.Equal(t, ledger.VignetteMixed, second.Status)
}

func TestUpdate_KeepsDispatchedWeight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "100")

	b, err := f.svc.Create(ctx, request(use(ids[0], "50")))
	require.NoError(t, err)

	dispatches := reconcile.New(reconcile.MissingSourceFail, NewSource(f.repo))
	ref := reconcile.SourceRef{Kind: reconcile.KindBlend, ID: b.ID}
	_, err = dispatches.Reconcile(ctx, reconcile.Consumption{}, reconcile.Consumption{ref: d("30")})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, b.ID, request(use(ids[0], "20")))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	updated, err := f.svc.Update(ctx, b.ID, request(use(ids[0], "80")))
	require.NoError(t, err)
	assert.True(t, d("30").Equal(updated.Dispatched))
	assert.True(t, d("50").Equal(updated.Remaining))
	assert.Equal(t, ledger.BlendPartiallyDispatched, updated.Status)
	assert.True(t, updated.Conserved())
}

func TestDelete_RestoresVignettes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40")

	b, err := f.svc.Create(ctx, request(use(ids[0], "40")))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, b.ID))

	v := f.vignette(t, ids[0])
	assert.True(t, d("40").Equal(v.NetWeight))
	assert.Equal(t, ledger.VignetteInWarehouse, v.Status)

	_, err = f.svc.GetByID(ctx, b.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDelete_RefusedWhileDispatched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40")

	b, err := f.svc.Create(ctx, request(use(ids[0], "40")))
	require.NoError(t, err)

	dispatches := reconcile.New(reconcile.MissingSourceFail, NewSource(f.repo))
	ref := reconcile.SourceRef{Kind: reconcile.KindBlend, ID: b.ID}
	_, err = dispatches.Reconcile(ctx, reconcile.Consumption{}, reconcile.Consumption{ref: d("10")})
	require.NoError(t, err)

	err = f.svc.Delete(ctx, b.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	v := f.vignette(t, ids[0])
	assert.True(t, v.NetWeight.IsZero())
}

func TestSource_ExhaustsBlend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := f.vignettes(t, "40")

	b, err := f.svc.Create(ctx, request(use(ids[0], "40")))
	require.NoError(t, err)

	r := reconcile.New(reconcile.MissingSourceFail, NewSource(f.repo))
	ref := reconcile.SourceRef{Kind: reconcile.KindBlend, ID: b.ID}
	_, err = r.Reconcile(ctx, reconcile.Consumption{}, reconcile.Consumption{ref: d("40")})
	require.NoError(t, err)

	got, err := f.repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.BlendExhausted, got.Status)
	assert.True(t, got.Remaining.IsZero())

	_, err = r.Reconcile(ctx, reconcile.Consumption{}, reconcile.Consumption{ref: d("1")})
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestRequest_Validate(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, Request{Components: []ComponentInput{use("v", "1")}}.Validate(ctx))
	assert.Error(t, request().Validate(ctx))
	assert.Error(t, request(use("", "1")).Validate(ctx))
	assert.Error(t, request(use("v", "0")).Validate(ctx))
	assert.NoError(t, request(use("v", "1")).Validate(ctx))
}
