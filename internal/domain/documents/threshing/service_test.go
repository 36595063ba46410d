package threshing

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
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/contract"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/domain/reconcile"
	"coffeetrace/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    *memory.Store
	svc      *Service
	repo     *StoreRepository
	receipts *receipt.Service
	runs     *yield.Service
	lots     *contract.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWithPolicy(t, reconcile.MissingSourceFail)
}

func newFixtureWithPolicy(t *testing.T, policy reconcile.MissingSourcePolicy) fixture {
	t.Helper()
	store := memory.New()
	txm := tx.NewSerial()
	log, err := activity.NewLog(store)
	require.NoError(t, err)
	gen := &numerator.MockGenerator{}

	receiptRepo := receipt.NewRepository(store)
	runRepo := yield.NewRepository(store)
	index := yield.NewIndex(runRepo, store)
	lots := contract.NewService(contract.NewRepository(store), txm)
	repo := NewRepository(store)

	return fixture{
		store: store,
		svc: NewService(ServiceConfig{
			Repo:   repo,
			Lots:   lots,
			Policy: policy,
			Sources: []reconcile.SourceAdapter{
				receipt.NewThreshedSource(receiptRepo),
				yield.NewThreshingSource(runRepo, index),
				blend.NewSource(blend.NewRepository(store)),
			},
			Numerator: gen,
			TxManager: txm,
			Activity:  log,
		}),
		repo:     repo,
		receipts: receipt.NewService(receiptRepo, gen, txm, log, nil),
		runs:     yield.NewService(runRepo, index, txm, log),
		lots:     lots,
	}
}

func (f fixture) receipt(t *testing.T, net string) *receipt.Receipt {
	t.Helper()
	rec, err := f.receipts.Create(context.Background(), receipt.CreateRequest{
		Supplier:      "Cooperativa San Juan",
		Bultos:        d(net),
		KgPerBulto:    d("46"),
		PriceUnit:     calc.UnitQuintal46Kg,
		Fixation:      d("180"),
		Differential:  d("5"),
		FirstPercent:  d("80"),
		RejectPercent: d("10"),
	})
	require.NoError(t, err)
	return rec
}

func (f fixture) balance(t *testing.T, receiptID string) *receipt.Receipt {
	t.Helper()
	rec, err := f.receipts.GetByID(context.Background(), receiptID)
	require.NoError(t, err)
	return rec
}

func local(rows ...InputRequest) Request {
	return Request{Kind: KindLocal, ClientName: "Tostaduría Local", SoldWeight: d("20"), Inputs: rows}
}

func fromReceipt(id, amount string) InputRequest {
	return InputRequest{SourceKind: reconcile.KindReceipt, SourceID: id, Amount: d(amount)}
}

func TestLifecycle_ReceiptConsumption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.receipt(t, "100")

	o, err := f.svc.Create(ctx, local(fromReceipt(rec.ID, "30")))
	require.NoError(t, err)
	assert.Contains(t, o.Number, "TR-")
	assert.True(t, d("24").Equal(o.Primeras))
	assert.True(t, d("3").Equal(o.Catadura))
	assert.True(t, d("4").Equal(o.Difference))
	assert.False(t, o.Shortfall)

	got := f.balance(t, rec.ID)
	assert.True(t, d("70").Equal(got.InWarehouse))
	assert.True(t, d("30").Equal(got.Threshed))

	// Edit releases the difference.
	o, err = f.svc.Update(ctx, o.ID, local(fromReceipt(rec.ID, "20")))
	require.NoError(t, err)
	require.Len(t, o.Inputs, 1)
	assert.True(t, d("16").Equal(o.Primeras))
	assert.True(t, o.Shortfall)

	got = f.balance(t, rec.ID)
	assert.True(t, d("80").Equal(got.InWarehouse))
	assert.True(t, d("20").Equal(got.Threshed))

	stored, err := f.repo.Inputs(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, d("20").Equal(stored[0].Amount))

	// Void restores everything and removes the rows.
	res, err := f.svc.Void(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, res.Applied, 1)

	got = f.balance(t, rec.ID)
	assert.True(t, d("100").Equal(got.InWarehouse))
	assert.True(t, got.Threshed.IsZero())
	assert.True(t, got.Conserved())

	_, err = f.svc.GetByID(ctx, o.ID)
	assert.True(t, apperror.IsNotFound(err))
	stored, err = f.repo.Inputs(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestUpdate_IdenticalDataLeavesBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.receipt(t, "100")

	// Consuming the whole receipt must not lock the order out of its own rows.
	o, err := f.svc.Create(ctx, local(fromReceipt(rec.ID, "100")))
	require.NoError(t, err)

	o, err = f.svc.Update(ctx, o.ID, local(fromReceipt(rec.ID, "100")))
	require.NoError(t, err)
	assert.True(t, d("100").Equal(o.Amount))

	got := f.balance(t, rec.ID)
	assert.True(t, got.InWarehouse.IsZero())
	assert.True(t, d("100").Equal(got.Threshed))
}

func TestCreate_ClampsRowsToAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.receipt(t, "100")

	o, err := f.svc.Create(ctx, local(fromReceipt(rec.ID, "70"), fromReceipt(rec.ID, "70")))
	require.NoError(t, err)
	require.Len(t, o.Inputs, 2)
	assert.True(t, d("70").Equal(o.Inputs[0].Amount))
	assert.True(t, d("30").Equal(o.Inputs[1].Amount))
	assert.True(t, f.balance(t, rec.ID).InWarehouse.IsZero())

	// Nothing left for a new order.
	_, err = f.svc.Create(ctx, local(fromReceipt(rec.ID, "1")))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCreate_FailuresLeaveNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := f.receipt(t, "100")

	_, err := f.svc.Create(ctx, local())
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(ctx, local(fromReceipt(rec.ID, "10"), fromReceipt("missing", "10")))
	assert.True(t, apperror.HasCode(err, apperror.CodeSourceNotFound))

	list, err := f.svc.List(ctx, domain.DefaultListFilter())
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	assert.True(t, d("100").Equal(f.balance(t, rec.ID).InWarehouse))
}

func TestExport_VignetteRowsAndLots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.runs.Create(ctx, yield.CreateRunRequest{
		Kind:      yield.RunReprocess,
		Vignettes: []yield.VignetteSpec{{Type: "Primera", Weight: d("50")}},
	})
	require.NoError(t, err)
	vid := run.Vignettes[0].ID

	a, err := f.lots.Create(ctx, contract.CreateRequest{Contract: "EXP-1", Client: "Nordic", WeightQQ: d("30")})
	require.NoError(t, err)
	b, err := f.lots.Create(ctx, contract.CreateRequest{Contract: "EXP-1", Client: "Nordic", WeightQQ: d("20")})
	require.NoError(t, err)

	req := Request{
		Kind:   KindExport,
		LotIDs: []string{a.ID, b.ID},
		Inputs: []InputRequest{{
			SourceKind:    reconcile.KindVignette,
			SourceID:      vid,
			Amount:        d("50"),
			FirstPercent:  d("90"),
			RejectPercent: d("20"),
		}},
	}
	o, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Nordic", o.ClientName)
	require.Len(t, o.Inputs, 1)
	assert.True(t, d("10").Equal(o.Inputs[0].RejectPercent), "reject is clamped to 100-first")
	assert.True(t, d("45").Equal(o.Primeras))
	assert.True(t, d("50").Equal(o.Needed))
	assert.True(t, o.Shortfall)

	v, err := f.runs.GetVignette(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, ledger.VignetteThreshed, v.Status)

	lot, err := f.lots.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.LotAssigned, lot.Status)
	assert.Equal(t, o.ID, lot.ThreshingOrderID)

	// A second order cannot take an assigned lot.
	req.Inputs[0].Amount = d("1")
	_, err = f.svc.Create(ctx, req)
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	settlement, err := f.svc.Settlement(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, d("-5").Equal(settlement.Difference))

	_, err = f.svc.Void(ctx, o.ID)
	require.NoError(t, err)

	lot, err = f.lots.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.LotPending, lot.Status)
	assert.Empty(t, lot.ThreshingOrderID)

	v, err = f.runs.GetVignette(ctx, vid)
	require.NoError(t, err)
	assert.Equal(t, ledger.VignetteInWarehouse, v.Status)
	assert.True(t, d("50").Equal(v.NetWeight))
}

func TestRequest_Validate(t *testing.T) {
	ctx := context.Background()
	row := fromReceipt("r", "1")

	assert.Error(t, Request{Kind: "barter", Inputs: []InputRequest{row}}.Validate(ctx))
	assert.Error(t, Request{Kind: KindExport, Inputs: []InputRequest{row}}.Validate(ctx))
	assert.Error(t, Request{Kind: KindLocal, SoldWeight: d("1"), Inputs: []InputRequest{row}}.Validate(ctx))
	assert.Error(t, Request{Kind: KindLocal, ClientName: "x", Inputs: []InputRequest{row}}.Validate(ctx))
	assert.Error(t, local(InputRequest{SourceID: "r", Amount: d("1")}).Validate(ctx))
	assert.Error(t, local(fromReceipt("r", "0")).Validate(ctx))
	assert.NoError(t, local(row).Validate(ctx))
	assert.NoError(t, Request{Kind: KindExport, LotIDs: []string{"l"}, Inputs: []InputRequest{row}}.Validate(ctx))
}

func TestSettle(t *testing.T) {
	s := Settle(d("24"), d("24.004"))
	assert.False(t, s.Shortfall)

	s = Settle(d("24"), d("23.99"))
	assert.True(t, s.Shortfall)
	assert.True(t, d("-0.01").Equal(s.Difference))
}

func TestVoid_SkipsVanishedSource(t *testing.T) {
	f := newFixtureWithPolicy(t, reconcile.MissingSourceSkip)
	ctx := context.Background()
	kept := f.receipt(t, "100")
	gone := f.receipt(t, "50")

	o, err := f.svc.Create(ctx, local(fromReceipt(kept.ID, "30"), fromReceipt(gone.ID, "20")))
	require.NoError(t, err)
	require.NoError(t, f.store.Remove(ctx, receipt.Collection, gone.ID))

	res, err := f.svc.Void(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, kept.ID, res.Applied[0].Ref.ID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, reconcile.SourceRef{Kind: reconcile.KindReceipt, ID: gone.ID}, res.Skipped[0].Ref)
	assert.True(t, d("-20").Equal(res.Skipped[0].Amount))

	got := f.balance(t, kept.ID)
	assert.True(t, d("100").Equal(got.InWarehouse))
	assert.True(t, got.Threshed.IsZero())

	_, err = f.svc.GetByID(ctx, o.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestVoid_FailsOnVanishedSourceByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := f.receipt(t, "100")
	gone := f.receipt(t, "50")

	o, err := f.svc.Create(ctx, local(fromReceipt(kept.ID, "30"), fromReceipt(gone.ID, "20")))
	require.NoError(t, err)
	require.NoError(t, f.store.Remove(ctx, receipt.Collection, gone.ID))

	_, err = f.svc.Void(ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeSourceNotFound))

	// Nothing was written: the order and the surviving balance are untouched.
	_, err = f.svc.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, d("70").Equal(f.balance(t, kept.ID).InWarehouse))
}
