package reconcile

import (
	"github.com/shopspring/decimal"
)

// Allocator clamps the rows of one request to what each source can give.
// In an edit the transaction's own prior consumption counts as available,
// and rows of the same source share one allowance.
type Allocator struct {
	snap     *Snapshot
	original Consumption
	used     Consumption
}

// NewAllocator creates an allocator over a snapshot. original is empty on create.
func NewAllocator(snap *Snapshot, original Consumption) *Allocator {
	if original == nil {
		original = Consumption{}
	}
	return &Allocator{snap: snap, original: original, used: Consumption{}}
}

// Max is what ref can still give to this request.
func (a *Allocator) Max(ref SourceRef) decimal.Decimal {
	return a.snap.Available(ref).Add(a.original.Get(ref)).Sub(a.used.Get(ref))
}

// Take clamps requested to Max(ref), records it and returns the granted amount.
func (a *Allocator) Take(ref SourceRef, requested decimal.Decimal) decimal.Decimal {
	granted := requested
	if limit := a.Max(ref); granted.GreaterThan(limit) {
		granted = limit
	}
	if granted.IsNegative() {
		granted = decimal.Zero
	}
	a.used.Add(ref, granted)
	return granted
}

// Consumption returns the granted amounts per source.
func (a *Allocator) Consumption() Consumption {
	out := make(Consumption, len(a.used))
	for ref, v := range a.used {
		if v.IsPositive() {
			out[ref] = v
		}
	}
	return out
}
