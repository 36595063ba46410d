package contract

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/core/apperror"
	"coffeetrace/internal/core/tx"
	"coffeetrace/internal/infrastructure/storage/memory"
)

func newTestService() *Service {
	return NewService(NewRepository(memory.New()), tx.NewSerial())
}

func lotRequest(weight string) CreateRequest {
	return CreateRequest{
		Contract:     "EXP-14",
		Client:       "Nordic Roasters",
		LotNumber:    "1",
		WeightQQ:     decimal.RequireFromString(weight),
		Fixation:     decimal.RequireFromString("190"),
		Differential: decimal.RequireFromString("12.5"),
	}
}

func TestCreate(t *testing.T) {
	svc := newTestService()
	lot, err := svc.Create(context.Background(), lotRequest("275"))
	require.NoError(t, err)
	assert.Equal(t, LotPending, lot.Status)
	assert.True(t, decimal.RequireFromString("202.5").Equal(lot.FinalPrice))

	_, err = svc.Create(context.Background(), lotRequest("0"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAssignAndResolve(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a, err := svc.Create(ctx, lotRequest("100"))
	require.NoError(t, err)
	b, err := svc.Create(ctx, lotRequest("50"))
	require.NoError(t, err)

	require.NoError(t, svc.Assign(ctx, "order-1", nil, []string{a.ID, b.ID}))

	// The owning order may resolve its lots again; another order may not.
	lots, err := svc.Resolve(ctx, "order-1", []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, lots, 2)

	_, err = svc.Resolve(ctx, "order-2", []string{a.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	// Dropping b releases it.
	require.NoError(t, svc.Assign(ctx, "order-1", []string{a.ID, b.ID}, []string{a.ID}))
	got, err := svc.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, LotPending, got.Status)
	assert.Empty(t, got.ThreshingOrderID)

	_, err = svc.Resolve(ctx, "order-2", []string{b.ID, b.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.Resolve(ctx, "order-2", []string{"missing"})
	assert.True(t, apperror.IsNotFound(err))
}
