/*
manmonth.go - Man-month proration engine

PURPOSE:
  Computes the fraction of a calendar month an assignment contributes:
  1.0 = the assignment covers the whole month, 0 = no overlap.

DAY-COUNTING RULE (fixed for the whole pipeline):
  fraction = overlapDays / daysInMonth

  overlapDays is the INCLUSIVE day count of assignment-period ∩ month, and
  daysInMonth is the calendar length of the target month (28-31). An
  assignment covering the full month yields exactly 1. The fraction keeps
  decimal precision; only the prorated cost is rounded to Money scale.

ZERO IS NOT AN ERROR:
  No overlap returns decimal zero. Callers must treat that as "contributes
  nothing" and skip further reference lookups for the assignment, so a
  genuinely absent salary or policy on an out-of-month assignment never
  surfaces as a spurious fatal error.
*/
package finance

import "github.com/shopspring/decimal"

// manMonthScale bounds the division precision of the fraction. Six digits
// keeps a full month at exactly 1 and a single day of a 31-day month
// representable without float drift.
const manMonthScale = 6

// ManMonth returns the fraction of month m covered by period p, in [0, 1].
func ManMonth(p Period, m Month) decimal.Decimal {
	overlap, ok := p.Intersect(m.Period())
	if !ok {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(overlap.DaysInclusive()))
	return days.DivRound(decimal.NewFromInt(int64(m.Days())), manMonthScale)
}

// ManMonth returns the fraction of m this assignment contributes, bounded by
// the assignment's own lifetime. The engine handles one assignment at a
// time; it does not police overlapping assignments of the same employee.
func (a ProjectAssignment) ManMonth(m Month) decimal.Decimal {
	return ManMonth(a.Period, m)
}

// ProratedCost multiplies a monthly unit cost by a man-month fraction,
// rounding to Money scale.
func ProratedCost(unit Money, fraction decimal.Decimal) Money {
	if fraction.Sign() <= 0 {
		return ZeroMoney()
	}
	return unit.Mul(fraction)
}
