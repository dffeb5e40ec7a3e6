/*
Package generic provides the domain-agnostic building blocks of the leave engine.

PURPOSE:
  Leave rules, comp-off credits and the HTTP layer all speak in the same
  primitives: calendar dates, inclusive periods, day quantities with half-day
  precision, a small error taxonomy and an append-only ledger. Nothing in this
  package knows what a "PL" or a "reporting manager" is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: decimal day quantities (0.5 granularity)
  - EmployeeID: type-safe identifier shared by every package
  - Half-day rounding used by pro-rated grants

DESIGN PRINCIPLES:
  1. Precision: day counts use decimal.Decimal, never float64
  2. Type Safety: IDs are distinct named types
  3. Auditability: ledger entries carry reason, reference and idempotency key

SEE ALSO:
  - time.go: Date arithmetic
  - period.go: Inclusive date ranges and month split
  - ledger.go: Append-only ledger with expiring credits
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID int64

// =============================================================================
// DAYS - Decimal day quantities
// =============================================================================

var (
	half = decimal.NewFromFloat(0.5)
	two  = decimal.NewFromInt(2)
)

// Days builds a decimal day quantity from a float literal.
func Days(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// DaysInt builds a decimal day quantity from a whole number.
func DaysInt(v int) decimal.Decimal { return decimal.NewFromInt(int64(v)) }

// RoundToHalf rounds to the nearest 0.5, halves rounding away from zero.
func RoundToHalf(d decimal.Decimal) decimal.Decimal {
	return d.Mul(two).Round(0).Div(two)
}

// MinDays returns the smaller of a and b.
func MinDays(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// MaxDays returns the larger of a and b.
func MaxDays(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal { return MaxDays(d, decimal.Zero) }

// IsHalfDayMultiple reports whether d is a multiple of 0.5.
func IsHalfDayMultiple(d decimal.Decimal) bool {
	return d.Mod(half).IsZero()
}

// SumDays adds a map of per-key day counts.
func SumDays(m map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range m {
		total = total.Add(v)
	}
	return total
}
