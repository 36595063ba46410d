// Package ledger keeps the running balances of receipts, blends and vignettes
// and derives their status from those balances.
package ledger

import (
	"github.com/shopspring/decimal"

	"coffeetrace/internal/domain/calc"
)

// VignetteState is the derived lifecycle state of a vignette.
type VignetteState string

const (
	VignetteInWarehouse    VignetteState = "En Bodega"
	VignettePartiallyMixed VignetteState = "Mezclada Parcialmente"
	VignetteMixed          VignetteState = "Mezclada"
	VignetteThreshed       VignetteState = "Utilizada en Trilla"
)

// Pickable reports whether a vignette in this state may be selected as an input.
func (s VignetteState) Pickable() bool {
	return s == VignetteInWarehouse || s == VignettePartiallyMixed
}

// BlendState is the derived lifecycle state of a blend.
type BlendState string

const (
	BlendActive              BlendState = "Activo"
	BlendPartiallyDispatched BlendState = "Despachado Parcialmente"
	BlendExhausted           BlendState = "Agotado"
)

// Consumer identifies what consumed a vignette; it picks the terminal state.
type Consumer int

const (
	ConsumerBlend Consumer = iota
	ConsumerThreshing
)

// VignetteStatus derives the state from the current and original weight only.
func VignetteStatus(current, original decimal.Decimal, consumer Consumer) VignetteState {
	if current.LessThanOrEqual(calc.Epsilon) {
		if consumer == ConsumerThreshing {
			return VignetteThreshed
		}
		return VignetteMixed
	}
	if current.Sub(original).Abs().LessThan(calc.Epsilon) {
		return VignetteInWarehouse
	}
	return VignettePartiallyMixed
}

// BlendStatus derives the state from remaining and dispatched weight.
func BlendStatus(remaining, dispatched decimal.Decimal) BlendState {
	if remaining.LessThanOrEqual(calc.Epsilon) {
		return BlendExhausted
	}
	if dispatched.GreaterThan(calc.Epsilon) {
		return BlendPartiallyDispatched
	}
	return BlendActive
}
