package ledger

import (
	"github.com/shopspring/decimal"

	"coffeetrace/internal/domain/calc"
)

// Bucket is the receipt balance that receives consumed weight.
type Bucket int

const (
	BucketThreshed Bucket = iota
	BucketReturned
)

func (b Bucket) String() string {
	if b == BucketReturned {
		return "returned"
	}
	return "threshed"
}

// ReceiptBalance tracks where a receipt's net weight currently sits.
type ReceiptBalance struct {
	NetWeight   decimal.Decimal `json:"netWeight"`
	InWarehouse decimal.Decimal `json:"inWarehouse"`
	Threshed    decimal.Decimal `json:"threshed"`
	Returned    decimal.Decimal `json:"returned"`
}

// NewReceiptBalance starts with the whole net weight in the warehouse.
func NewReceiptBalance(net decimal.Decimal) ReceiptBalance {
	return ReceiptBalance{
		NetWeight:   net,
		InWarehouse: net,
		Threshed:    decimal.Zero,
		Returned:    decimal.Zero,
	}
}

// Consume moves delta from the warehouse into bucket. A negative delta releases weight back.
func (b ReceiptBalance) Consume(delta decimal.Decimal, bucket Bucket) ReceiptBalance {
	b.InWarehouse = b.InWarehouse.Sub(delta)
	switch bucket {
	case BucketReturned:
		b.Returned = b.Returned.Add(delta)
	default:
		b.Threshed = b.Threshed.Add(delta)
	}
	return b
}

// Untouched reports that nothing was threshed or returned.
func (b ReceiptBalance) Untouched() bool {
	return calc.IsZero(b.Threshed) && calc.IsZero(b.Returned)
}

// Conserved checks InWarehouse + Threshed + Returned == NetWeight within tolerance.
func (b ReceiptBalance) Conserved() bool {
	return calc.Equal(b.InWarehouse.Add(b.Threshed).Add(b.Returned), b.NetWeight)
}

// BlendBalance tracks a blend's dispatched and remaining weight.
type BlendBalance struct {
	TotalInput decimal.Decimal `json:"totalInput"`
	Dispatched decimal.Decimal `json:"dispatched"`
	Remaining  decimal.Decimal `json:"remaining"`
	Status     BlendState      `json:"status"`
}

// NewBlendBalance creates an undispatched balance.
func NewBlendBalance(total decimal.Decimal) BlendBalance {
	return BlendBalance{
		TotalInput: total,
		Dispatched: decimal.Zero,
		Remaining:  total,
		Status:     BlendStatus(total, decimal.Zero),
	}
}

// Consume moves delta from Remaining to Dispatched and re-derives status.
func (b BlendBalance) Consume(delta decimal.Decimal) BlendBalance {
	b.Remaining = b.Remaining.Sub(delta)
	b.Dispatched = b.Dispatched.Add(delta)
	b.Status = BlendStatus(b.Remaining, b.Dispatched)
	return b
}

// Recompose sets a new total input keeping Dispatched.
func (b BlendBalance) Recompose(total decimal.Decimal) BlendBalance {
	b.TotalInput = total
	b.Remaining = total.Sub(b.Dispatched)
	b.Status = BlendStatus(b.Remaining, b.Dispatched)
	return b
}

// Conserved checks TotalInput == Dispatched + Remaining within tolerance.
func (b BlendBalance) Conserved() bool {
	return calc.Equal(b.TotalInput, b.Dispatched.Add(b.Remaining))
}

// VignetteBalance is the weight view of one vignette.
type VignetteBalance struct {
	OriginalWeight decimal.Decimal
	NetWeight      decimal.Decimal
}

// Consume subtracts delta and returns the new balance with its derived state.
func (b VignetteBalance) Consume(delta decimal.Decimal, consumer Consumer) (VignetteBalance, VignetteState) {
	b.NetWeight = b.NetWeight.Sub(delta)
	return b, VignetteStatus(b.NetWeight, b.OriginalWeight, consumer)
}
