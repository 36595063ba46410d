package dispatch

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/core/apperror"
	appctx "coffeetrace/internal/core/context"
	"coffeetrace/internal/core/entity"
	"coffeetrace/internal/core/numerator"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/calc"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/ledger"
	"coffeetrace/internal/infrastructure/storage/memory"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc      *Service
	repo     *StoreRepository
	blends   *blend.Service
	runs     *yield.Service
	receipts *receipt.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	txm := tx.NewSerial()
	log, err := activity.NewLog(store)
	require.NoError(t, err)
	gen := &numerator.MockGenerator{}

	runRepo := yield.NewRepository(store)
	index := yield.NewIndex(runRepo, store)
	blendRepo := blend.NewRepository(store)
	receiptRepo := receipt.NewRepository(store)
	repo := NewRepository(store)

	return fixture{
		svc: NewService(ServiceConfig{
			Repo:      repo,
			Blends:    blend.NewSource(blendRepo),
			Receipts:  receipt.NewReturnedSource(receiptRepo),
			Numerator: gen,
			TxManager: txm,
			Activity:  log,
		}),
		repo: repo,
		blends: blend.NewService(blend.ServiceConfig{
			Repo:      blendRepo,
			Vignettes: yield.NewBlendSource(runRepo, index),
			Numerator: gen,
			TxManager: txm,
			Activity:  log,
		}),
		runs:     yield.NewService(runRepo, index, txm, log),
		receipts: receipt.NewService(receiptRepo, gen, txm, log, nil),
	}
}

// blend composes a blend of 40 + 60 from two fresh vignettes.
func (f fixture) blend(t *testing.T) *blend.Blend {
	t.Helper()
	ctx := context.Background()
	run, err := f.runs.Create(ctx, yield.CreateRunRequest{
		Kind: yield.RunYield,
		Vignettes: []yield.VignetteSpec{
			{Type: "Primera", Weight: d("40")},
			{Type: "Primera", Weight: d("60")},
		},
	})
	require.NoError(t, err)

	b, err := f.blends.Create(ctx, blend.Request{
		TypeLabel: "Europa",
		Components: []blend.ComponentInput{
			{VignetteID: run.Vignettes[0].ID, Weight: d("40")},
			{VignetteID: run.Vignettes[1].ID, Weight: d("60")},
		},
	})
	require.NoError(t, err)
	return b
}

func (f fixture) blendState(t *testing.T, id string) *blend.Blend {
	t.Helper()
	b, err := f.blends.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func shipment(rows ...RowRequest) Request {
	return Request{Mode: ModeShipment, Client: "Puerto Cortés", Rows: rows}
}

func row(id, weight string, yute, nylon int) RowRequest {
	return RowRequest{SourceID: id, Weight: d(weight), Yute: yute, Nylon: nylon}
}

func TestShipment_VoidRestoresBlend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.blend(t)
	require.True(t, d("100").Equal(b.TotalInput))

	disp, err := f.svc.Create(ctx, shipment(row(b.ID, "30", 10, 5)))
	require.NoError(t, err)
	assert.Contains(t, disp.Number, "SA-")
	assert.Equal(t, entity.StatusActive, disp.Status)
	assert.True(t, d("30").Equal(disp.Net))
	assert.True(t, d("0.25").Equal(disp.Tare))
	assert.True(t, d("30.25").Equal(disp.Gross))

	got := f.blendState(t, b.ID)
	assert.True(t, d("70").Equal(got.Remaining))
	assert.True(t, d("30").Equal(got.Dispatched))
	assert.Equal(t, ledger.BlendPartiallyDispatched, got.Status)

	voided, err := f.svc.Void(ctx, disp.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusVoided, voided.Status)

	got = f.blendState(t, b.ID)
	assert.True(t, d("100").Equal(got.Remaining))
	assert.True(t, got.Dispatched.IsZero())
	assert.Equal(t, ledger.BlendActive, got.Status)
	assert.True(t, got.Conserved())

	// Rows stay for history; the document is frozen.
	rows, err := f.repo.Rows(ctx, disp.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = f.svc.Void(ctx, disp.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentVoided))
	_, err = f.svc.Update(ctx, disp.ID, shipment(row(b.ID, "10", 0, 0)))
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentVoided))
}

func TestShipment_EditCountsOwnDispatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.blend(t)

	disp, err := f.svc.Create(ctx, shipment(row(b.ID, "100", 0, 0)))
	require.NoError(t, err)
	assert.Equal(t, ledger.BlendExhausted, f.blendState(t, b.ID).Status)

	disp, err = f.svc.Update(ctx, disp.ID, shipment(row(b.ID, "60", 0, 0), row(b.ID, "60", 0, 0)))
	require.NoError(t, err)
	require.Len(t, disp.Rows, 2)
	assert.True(t, d("60").Equal(disp.Rows[0].Weight))
	assert.True(t, d("40").Equal(disp.Rows[1].Weight))

	rows, err := f.repo.Rows(ctx, disp.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	disp, err = f.svc.Update(ctx, disp.ID, shipment(row(b.ID, "25", 0, 0)))
	require.NoError(t, err)
	assert.True(t, d("25").Equal(disp.Net))

	got := f.blendState(t, b.ID)
	assert.True(t, d("75").Equal(got.Remaining))
	assert.True(t, d("25").Equal(got.Dispatched))
}

func TestTareOverride_RequiresSupervisor(t *testing.T) {
	f := newFixture(t)
	b := f.blend(t)
	tare := d("1.5")

	req := shipment(row(b.ID, "10", 4, 0))
	req.TareOverride = &tare

	operator := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "op-1"})
	_, err := f.svc.Create(operator, req)
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	assert.True(t, d("100").Equal(f.blendState(t, b.ID).Remaining))

	supervisor := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "sup-1",
		Roles:  []string{appctx.RoleSupervisor},
	})
	disp, err := f.svc.Create(supervisor, req)
	require.NoError(t, err)
	assert.True(t, d("1.5").Equal(disp.Tare))
	assert.True(t, d("11.5").Equal(disp.Gross))
	assert.Equal(t, "sup-1", disp.CreatedBy)

	// Keeping the same override does not need the role again.
	req.Rows[0].Weight = d("12")
	disp, err = f.svc.Update(operator, disp.ID, req)
	require.NoError(t, err)
	assert.True(t, d("13.5").Equal(disp.Gross))
}

func TestReturn_ConsumesReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.receipts.Create(ctx, receipt.CreateRequest{
		Supplier:   "Finca La Esperanza",
		Bultos:     d("50"),
		KgPerBulto: d("46"),
		PriceUnit:  calc.UnitQuintal46Kg,
	})
	require.NoError(t, err)

	disp, err := f.svc.Create(ctx, Request{Mode: ModeReturn, Rows: []RowRequest{row(rec.ID, "80", 0, 0)}})
	require.NoError(t, err)
	assert.True(t, d("50").Equal(disp.Net), "clamped to the receipt balance")

	got, err := f.receipts.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.InWarehouse.IsZero())
	assert.True(t, d("50").Equal(got.Returned))
	assert.True(t, got.Conserved())

	// Shipment rows cannot point at receipts.
	_, err = f.svc.Create(ctx, shipment(row(rec.ID, "1", 0, 0)))
	assert.True(t, apperror.HasCode(err, apperror.CodeSourceNotFound))

	_, err = f.svc.Void(ctx, disp.ID)
	require.NoError(t, err)
	got, err = f.receipts.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, d("50").Equal(got.InWarehouse))
	assert.True(t, got.Returned.IsZero())
}

func TestUpdate_ModeCannotChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.blend(t)

	disp, err := f.svc.Create(ctx, shipment(row(b.ID, "10", 0, 0)))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, disp.ID, Request{Mode: ModeReturn, Rows: []RowRequest{row(b.ID, "10", 0, 0)}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRequest_Validate(t *testing.T) {
	ctx := context.Background()
	negative := d("-1")

	assert.Error(t, Request{Mode: "gift", Rows: []RowRequest{row("b", "1", 0, 0)}}.Validate(ctx))
	assert.Error(t, shipment().Validate(ctx))
	assert.Error(t, shipment(row("", "1", 0, 0)).Validate(ctx))
	assert.Error(t, shipment(row("b", "0", 0, 0)).Validate(ctx))
	assert.Error(t, shipment(row("b", "1", -1, 0)).Validate(ctx))
	assert.Error(t, Request{Mode: ModeShipment, TareOverride: &negative, Rows: []RowRequest{row("b", "1", 0, 0)}}.Validate(ctx))
	assert.NoError(t, shipment(row("b", "1", 2, 3)).Validate(ctx))
}
