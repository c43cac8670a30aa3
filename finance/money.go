/*
Package finance contains the monthly financial aggregation pipeline: employee
cost pricing, man-month proration, revenue aggregation and the project/company
monthly summaries, plus the batch pipeline that drives them.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: fixed-point monetary value in wons, scale 2, immutable

ROUNDING POLICY:
  Every operation rounds half-up (away from zero) to 2 fractional digits.
  The same policy applies everywhere money is computed - the cost stage and
  the summary stage must never disagree on a rounded figure.

NEGATIVE VALUES:
  Money allows negative amounts. Profit is revenue minus cost and is expected
  to go negative for unprofitable months. Call sites that require non-negative
  amounts (e.g. revenue plan entries) enforce that themselves.

SEE ALSO:
  - period.go: Month and Period calendar types
  - costing.go: Where Money is produced from salaries and rates
*/
package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the fixed number of fractional digits carried by Money.
const MoneyScale = 2

// Money is an immutable fixed-point amount of wons.
// The zero value is zero wons and ready to use.
type Money struct {
	amount decimal.Decimal
}

// Wons returns a Money of v whole wons.
func Wons(v int64) Money {
	return Money{amount: decimal.NewFromInt(v).Round(MoneyScale)}
}

// MoneyFromDecimal rounds d to the Money scale.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{amount: d.Round(MoneyScale)}
}

// ParseMoney parses a decimal string (as stored by the sqlite store).
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse money %q: %w", s, err)
	}
	return MoneyFromDecimal(d), nil
}

// ZeroMoney returns zero wons.
func ZeroMoney() Money { return Money{} }

// Arithmetic. Every operation returns a new value rounded to MoneyScale.
func (m Money) Add(o Money) Money { return MoneyFromDecimal(m.amount.Add(o.amount)) }
func (m Money) Sub(o Money) Money { return MoneyFromDecimal(m.amount.Sub(o.amount)) }
func (m Money) Neg() Money        { return MoneyFromDecimal(m.amount.Neg()) }

// Mul scales by an arbitrary decimal factor (rate, man-month fraction).
func (m Money) Mul(factor decimal.Decimal) Money {
	return MoneyFromDecimal(m.amount.Mul(factor))
}

// Div divides by an integer divisor, rounding half-up to the Money scale.
// Used for the annual-to-monthly salary split.
func (m Money) Div(divisor int64) Money {
	return Money{amount: m.amount.DivRound(decimal.NewFromInt(divisor), MoneyScale)}
}

// Comparison compares the scaled values.
func (m Money) Cmp(o Money) int          { return m.amount.Cmp(o.amount) }
func (m Money) Equal(o Money) bool       { return m.amount.Cmp(o.amount) == 0 }
func (m Money) LessThan(o Money) bool    { return m.amount.Cmp(o.amount) < 0 }
func (m Money) GreaterThan(o Money) bool { return m.amount.Cmp(o.amount) > 0 }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }

// Amount exposes the underlying decimal (already rounded to MoneyScale).
func (m Money) Amount() decimal.Decimal { return m.amount }

// String renders the fixed two-digit form, e.g. "3450000.00".
func (m Money) String() string { return m.amount.StringFixed(MoneyScale) }

// MarshalJSON renders Money as a quoted fixed-point string so the API never
// leaks float formatting.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted and bare decimal forms.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// CalculateProfit returns revenue minus cost, treating a nil side as zero.
// Negative profit is a valid result, not an error.
func CalculateProfit(revenue, cost *Money) Money {
	r, c := ZeroMoney(), ZeroMoney()
	if revenue != nil {
		r = *revenue
	}
	if cost != nil {
		c = *cost
	}
	return r.Sub(c)
}
