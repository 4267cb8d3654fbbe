// Package core holds the emotion ledger domain: emotion options, expenses,
// the per-emotion analytics mapping and the draft held by the entry form.
//
// This file contains amount parsing and display formatting.
package core

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a single expense may carry. Keeping
// amounts far below the float64 range keeps per-emotion totals finite.
const MaxAmount = 1e12

var maxAmount = decimal.New(1, 12)

// ParseAmount converts the amount typed in the form into a decimal.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. The value
// must be non-negative and at most MaxAmount; anything else, including "NaN"
// and "1e400", returns ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("50")    -> 50, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() || d.GreaterThan(maxAmount) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders a number the way the entry page shows it: no
// trailing zeros, no thousands separator ("50", "12.5", "0.3").
func FormatAmount(f float64) string {
	if !isFinite(f) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return decimal.NewFromFloat(f).String()
}

// AddAmounts sums two amounts in decimal to avoid binary float drift
// (0.1 + 0.2 is 0.3, not 0.30000000000000004). Non-finite inputs fall back
// to float addition.
func AddAmounts(a, b float64) float64 {
	if !isFinite(a) || !isFinite(b) {
		return a + b
	}
	sum, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()
	return sum
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
