// Package calc holds the pure quantity formulas: net weight, prices, yield splits and tare.
// Functions never fail; non-positive inputs yield zero.
package calc

import (
	"github.com/shopspring/decimal"
)

// Price units accepted by NetWeightInUnits.
const (
	UnitCentsPerPound = "CTS/LB"
	UnitQuintal46Kg   = "46 Kg."
)

var (
	// Epsilon is the tolerance for "effectively zero" comparisons.
	Epsilon = decimal.RequireFromString("0.005")
	// NoOpThreshold is the smallest delta the reconciler applies.
	NoOpThreshold = decimal.RequireFromString("0.001")

	kgPerQuintal     = decimal.NewFromInt(46)
	poundsFactor     = decimal.RequireFromString("101.413")
	hundred          = decimal.NewFromInt(100)
	tarePerYuteSack  = decimal.RequireFromString("0.02")
	tarePerNylonSack = decimal.RequireFromString("0.01")
)

// Split is the produced output of a threshed amount.
type Split struct {
	Primeras decimal.Decimal `json:"primeras"`
	Catadura decimal.Decimal `json:"catadura"`
}

// Quintals converts bultos * kgPerBulto into 46 kg quintals.
func Quintals(bultos, kgPerBulto decimal.Decimal) decimal.Decimal {
	return NetWeightInUnits(bultos, kgPerBulto, UnitQuintal46Kg)
}

// NetWeightInUnits converts bultos * kgPerBulto into the unit the price is quoted in.
// Unknown units yield zero.
func NetWeightInUnits(bultos, kgPerBulto decimal.Decimal, unit string) decimal.Decimal {
	if !bultos.IsPositive() || !kgPerBulto.IsPositive() {
		return decimal.Zero
	}
	totalKg := bultos.Mul(kgPerBulto)

	switch unit {
	case UnitCentsPerPound:
		return totalKg.Div(kgPerQuintal).Mul(poundsFactor).Div(hundred)
	case UnitQuintal46Kg:
		return totalKg.Div(kgPerQuintal)
	default:
		return decimal.Zero
	}
}

// ChargeValue is the amount owed for a receipt.
func ChargeValue(bultos, kgPerBulto, finalPrice decimal.Decimal, unit string) decimal.Decimal {
	if !finalPrice.IsPositive() {
		return decimal.Zero
	}
	return NetWeightInUnits(bultos, kgPerBulto, unit).Mul(finalPrice)
}

// FinalPrice is fixation plus differential.
func FinalPrice(fixation, differential decimal.Decimal) decimal.Decimal {
	return fixation.Add(differential)
}

// YieldSplit computes primeras and catadura from an amount and its yield percentages.
func YieldSplit(amount, pctFirst, pctReject decimal.Decimal) Split {
	if !amount.IsPositive() {
		return Split{Primeras: decimal.Zero, Catadura: decimal.Zero}
	}
	return Split{
		Primeras: amount.Mul(nonNegative(pctFirst)).Div(hundred),
		Catadura: amount.Mul(nonNegative(pctReject)).Div(hundred),
	}
}

// TareFromSacks is the packaging weight of yute and nylon sacks.
func TareFromSacks(yute, nylon int) decimal.Decimal {
	if yute < 0 {
		yute = 0
	}
	if nylon < 0 {
		nylon = 0
	}
	return decimal.NewFromInt(int64(yute)).Mul(tarePerYuteSack).
		Add(decimal.NewFromInt(int64(nylon)).Mul(tarePerNylonSack))
}

// ClampPercents bounds both percentages to [0, 100] and lowers reject
// so that first + reject never exceeds 100.
func ClampPercents(first, reject decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	first = clamp(first, decimal.Zero, hundred)
	reject = clamp(reject, decimal.Zero, hundred)
	if first.Add(reject).GreaterThan(hundred) {
		reject = hundred.Sub(first)
	}
	return first, reject
}

// IsZero reports |d| <= Epsilon.
func IsZero(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Epsilon)
}

// Equal reports |a-b| <= Epsilon.
func Equal(a, b decimal.Decimal) bool {
	return IsZero(a.Sub(b))
}

// Round2 rounds to the displayed precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clamp(d, lo, hi decimal.Decimal) decimal.Decimal {
	if d.LessThan(lo) {
		return lo
	}
	if d.GreaterThan(hi) {
		return hi
	}
	return d
}
