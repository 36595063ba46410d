package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeetrace/internal/core/apperror"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeAccount struct {
	available decimal.Decimal
}

func (a fakeAccount) Available() decimal.Decimal { return a.available }

// fakeAdapter keeps balances in a map; Apply subtracts deltas from the snapshot value.
type fakeAdapter struct {
	kind     SourceKind
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	applyErr error
	applied  int
}

func newFake(kind SourceKind, balances map[string]string) *fakeAdapter {
	f := &fakeAdapter{kind: kind, balances: make(map[string]decimal.Decimal)}
	for id, v := range balances {
		f.balances[id] = d(v)
	}
	return f
}

func (f *fakeAdapter) Kind() SourceKind { return f.kind }

func (f *fakeAdapter) Load(_ context.Context, ids []string) (map[string]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Account)
	for _, id := range ids {
		if v, ok := f.balances[id]; ok {
			out[id] = fakeAccount{available: v}
		}
	}
	return out, nil
}

func (f *fakeAdapter) Apply(_ context.Context, accounts map[string]Account, deltas []Delta) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, delta := range deltas {
		f.balances[delta.Ref.ID] = accounts[delta.Ref.ID].Available().Sub(delta.Amount)
		f.applied++
	}
	return nil
}

func (f *fakeAdapter) balance(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id]
}

func receipt(id string) SourceRef { return SourceRef{Kind: KindReceipt, ID: id} }
func blend(id string) SourceRef   { return SourceRef{Kind: KindBlend, ID: id} }

func TestDiff(t *testing.T) {
	original := Consumption{receipt("r1"): d("30"), receipt("r2"): d("10"), blend("b1"): d("5")}
	updated := Consumption{receipt("r1"): d("20"), receipt("r2"): d("10.0005"), blend("b2"): d("7")}

	deltas := Diff(original, updated)
	require.Len(t, deltas, 3)

	assert.Equal(t, receipt("r1"), deltas[0].Ref)
	assert.True(t, d("-10").Equal(deltas[0].Amount))
	assert.Equal(t, blend("b1"), deltas[1].Ref)
	assert.True(t, d("-5").Equal(deltas[1].Amount))
	assert.Equal(t, blend("b2"), deltas[2].Ref)
	assert.True(t, d("7").Equal(deltas[2].Amount))
}

func TestDiff_IdenticalMapsYieldNothing(t *testing.T) {
	c := Consumption{receipt("r1"): d("30"), blend("b1"): d("12.345")}
	assert.Empty(t, Diff(c, c))
}

func TestConsumption_AddSumsRows(t *testing.T) {
	c := Consumption{}
	c.Add(receipt("r1"), d("10"))
	c.Add(receipt("r1"), d("5"))
	c.Add(blend("b1"), d("1"))
	assert.True(t, d("15").Equal(c.Get(receipt("r1"))))
	assert.Equal(t, []SourceRef{receipt("r1"), blend("b1")}, c.Refs())
}

func TestReconcile_CreateEditVoid(t *testing.T) {
	ctx := context.Background()
	receipts := newFake(KindReceipt, map[string]string{"r1": "100"})
	r := New(MissingSourceFail, receipts)

	x := Consumption{receipt("r1"): d("30")}
	y := Consumption{receipt("r1"): d("20")}

	_, err := r.Reconcile(ctx, Consumption{}, x)
	require.NoError(t, err)
	assert.True(t, d("70").Equal(receipts.balance("r1")))

	_, err = r.Reconcile(ctx, x, y)
	require.NoError(t, err)
	assert.True(t, d("80").Equal(receipts.balance("r1")))

	// Reversing the edit restores the previous balance exactly.
	_, err = r.Reconcile(ctx, y, x)
	require.NoError(t, err)
	assert.True(t, d("70").Equal(receipts.balance("r1")))

	_, err = r.Reconcile(ctx, x, Consumption{})
	require.NoError(t, err)
	assert.True(t, d("100").Equal(receipts.balance("r1")))
}

func TestPlan_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	receipts := newFake(KindReceipt, map[string]string{"r1": "10"})
	r := New(MissingSourceFail, receipts)

	snap, err := r.Snapshot(ctx, receipt("r1"))
	require.NoError(t, err)

	// Within tolerance passes.
	_, err = r.Plan(ctx, snap, Consumption{}, Consumption{receipt("r1"): d("10.004")})
	require.NoError(t, err)

	_, err = r.Plan(ctx, snap, Consumption{}, Consumption{receipt("r1"): d("10.5")})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
	assert.Zero(t, receipts.applied)
}

func TestPlan_MissingSourceFail(t *testing.T) {
	ctx := context.Background()
	receipts := newFake(KindReceipt, map[string]string{"r1": "100"})
	r := New(MissingSourceFail, receipts)

	original := Consumption{receipt("r1"): d("10"), receipt("gone"): d("5")}
	_, err := r.Reconcile(ctx, original, Consumption{})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSourceNotFound))

	// Nothing was written, including the delta for the existing source.
	assert.Zero(t, receipts.applied)
	assert.True(t, d("100").Equal(receipts.balance("r1")))
}

func TestPlan_MissingSourceSkip(t *testing.T) {
	ctx := context.Background()
	receipts := newFake(KindReceipt, map[string]string{"r1": "90"})
	r := New(MissingSourceSkip, receipts)

	original := Consumption{receipt("r1"): d("10"), receipt("gone"): d("5")}
	res, err := r.Reconcile(ctx, original, Consumption{})
	require.NoError(t, err)

	require.Len(t, res.Applied, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, receipt("gone"), res.Skipped[0].Ref)
	assert.True(t, d("100").Equal(receipts.balance("r1")))
}

func TestSnapshot_UnsupportedKind(t *testing.T) {
	r := New(MissingSourceFail, newFake(KindReceipt, nil))
	_, err := r.Snapshot(context.Background(), blend("b1"))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestExecute_AdapterFailureIsReported(t *testing.T) {
	ctx := context.Background()
	receipts := newFake(KindReceipt, map[string]string{"r1": "100"})
	receipts.applyErr = errors.New("connection reset")
	r := New(MissingSourceFail, receipts)

	_, err := r.Reconcile(ctx, Consumption{}, Consumption{receipt("r1"): d("1")})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDatabase))
}

func TestSourceKind_Text(t *testing.T) {
	for _, name := range []string{"receipt", "Recibo", "viñeta", "Mezcla"} {
		_, err := ParseSourceKind(name)
		assert.NoError(t, err, name)
	}
	_, err := ParseSourceKind("pallet")
	assert.Error(t, err)

	text, err := KindVignette.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "vignette", string(text))

	var k SourceKind
	require.NoError(t, k.UnmarshalText([]byte("blend")))
	assert.Equal(t, KindBlend, k)

	_, err = SourceKind(0).MarshalText()
	assert.Error(t, err)
}

func TestParseMissingSourcePolicy(t *testing.T) {
	p, err := ParseMissingSourcePolicy("")
	require.NoError(t, err)
	assert.Equal(t, MissingSourceFail, p)

	p, err = ParseMissingSourcePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, MissingSourceSkip, p)

	_, err = ParseMissingSourcePolicy("ignore")
	assert.Error(t, err)
}
