package money

import (
	"math"
	"strconv"
)

// Currency symbol appended to every displayed amount.
const Currency = "€"

// roundingTolerance absorbs binary representation error (2.675*100 = 267.49999999999997)
// so that display rounding behaves like decimal half-up rounding.
const roundingTolerance = 1e-9

// Round2 rounds an amount half-up to two fraction digits. Negative amounts are
// rounded symmetrically. NaN and Inf round to zero.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	cents := math.Floor(math.Abs(v)*100 + 0.5 + roundingTolerance)
	if v < 0 {
		cents = -cents
	}
	return cents / 100
}

// FormatAmount renders an amount with exactly two fraction digits, e.g. "25.50".
func FormatAmount(v float64) string {
	r := Round2(v)
	if r == 0 {
		r = 0 // avoid "-0.00"
	}
	return strconv.FormatFloat(r, 'f', 2, 64)
}

// Format renders an amount for display, e.g. "25.50 €".
func Format(v float64) string {
	return FormatAmount(v) + " " + Currency
}
