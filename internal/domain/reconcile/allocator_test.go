package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_ClampsAcrossRows(t *testing.T) {
	ctx := context.Background()
	r := New(MissingSourceFail, newFake(KindReceipt, map[string]string{"r1": "50"}))
	snap, err := r.Snapshot(ctx, receipt("r1"))
	require.NoError(t, err)

	a := NewAllocator(snap, nil)
	assert.True(t, d("30").Equal(a.Take(receipt("r1"), d("30"))))
	assert.True(t, d("20").Equal(a.Take(receipt("r1"), d("30"))))
	assert.True(t, a.Take(receipt("r1"), d("5")).IsZero())
	assert.True(t, d("50").Equal(a.Consumption().Get(receipt("r1"))))
}

func TestAllocator_EditCountsOwnConsumption(t *testing.T) {
	ctx := context.Background()
	// 70 left after this order already took 30.
	r := New(MissingSourceFail, newFake(KindReceipt, map[string]string{"r1": "70"}))
	snap, err := r.Snapshot(ctx, receipt("r1"))
	require.NoError(t, err)

	a := NewAllocator(snap, Consumption{receipt("r1"): d("30")})
	assert.True(t, d("100").Equal(a.Max(receipt("r1"))))
	assert.True(t, d("100").Equal(a.Take(receipt("r1"), d("120"))))
}

func TestAllocator_MissingSourceGrantsNothing(t *testing.T) {
	ctx := context.Background()
	r := New(MissingSourceFail, newFake(KindReceipt, nil))
	snap, err := r.Snapshot(ctx, receipt("gone"))
	require.NoError(t, err)

	a := NewAllocator(snap, nil)
	assert.True(t, a.Take(receipt("gone"), d("1")).IsZero())
	assert.Empty(t, a.Consumption())
}
