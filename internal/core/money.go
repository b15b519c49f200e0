// Package core holds the domain model and the pure computations of the
// finance API: balance derivation, window aggregation, monthly reporting
// and input validation.
//
// Monetary amounts are decimal values. Arithmetic on them is exact;
// rounding to two decimal places happens only at presentation boundaries
// (JSON and CSV), never inside a computation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a decimal monetary amount.
type Money = decimal.Decimal

// MoneyZero is the zero amount.
var MoneyZero = decimal.Zero

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Amounts with more than two decimal places are rejected rather than
// silently rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return MoneyZero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return MoneyZero, ErrInvalidAmount
	}
	if d.Exponent() < -2 {
		return MoneyZero, ErrInvalidAmount
	}
	return d, nil
}

// MoneyFromCents converts a minor-unit integer amount to Money.
func MoneyFromCents(cents int64) Money {
	return decimal.New(cents, -2)
}

// Cents converts m to a minor-unit integer. m must carry at most two
// decimal places, which ParseMoney and amount validation guarantee for
// every amount entering the system.
func Cents(m Money) int64 {
	return m.Shift(2).IntPart()
}

// DisplayMoney rounds m to two decimal places for presentation.
func DisplayMoney(m Money) Money {
	return m.Round(2)
}

// Percentage returns part as a percentage of total, or zero when total
// is zero. The quotient keeps four decimal places internally.
func Percentage(part, total Money) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).DivRound(total, 4)
}

// PercentChange returns the percentage change from previous to current.
// When previous is zero the change is 100% if current is positive and
// 0% otherwise, never a division error.
func PercentChange(current, previous Money) decimal.Decimal {
	if previous.IsPositive() {
		return current.Sub(previous).Mul(decimal.NewFromInt(100)).DivRound(previous, 4)
	}
	if current.IsPositive() {
		return decimal.NewFromInt(100)
	}
	return decimal.Zero
}
