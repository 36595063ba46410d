// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Weight is a coffee quantity in quintals (or kilograms where a field says so).
type Weight = decimal.Decimal

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// Percent is a percentage in [0, 100].
type Percent = decimal.Decimal

// MustDecimal creates a decimal value from a string, panics on error.
// Use only for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Sum adds up values. An empty list sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
