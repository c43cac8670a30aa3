package finance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/finance"
)

func june2026() finance.Month {
	return finance.Month{Year: 2026, Month: time.June}
}

func TestManMonth_FullMonthIsExactlyOne(t *testing.T) {
	// GIVEN: An assignment spanning well past the month on both sides
	// WHEN: Computing the June fraction
	// THEN: Exactly 1, not 0.999999

	p := mustPeriod(t, finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31))

	fraction := finance.ManMonth(p, june2026())
	if !fraction.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected exactly 1, got %s", fraction)
	}

	// An assignment matching the month boundaries exactly is also 1.
	exact := mustPeriod(t, finance.Date(2026, time.June, 1), finance.Date(2026, time.June, 30))
	if !finance.ManMonth(exact, june2026()).Equal(decimal.NewFromInt(1)) {
		t.Error("boundary-exact assignment should be a full man-month")
	}
}

func TestManMonth_NoOverlapIsZero(t *testing.T) {
	p := mustPeriod(t, finance.Date(2026, time.August, 1), finance.Date(2026, time.August, 31))

	fraction := finance.ManMonth(p, june2026())
	if !fraction.IsZero() {
		t.Errorf("expected zero, got %s", fraction)
	}
}

func TestManMonth_PartialMonth(t *testing.T) {
	// June has 30 days; the first 15 days are exactly half.
	half := mustPeriod(t, finance.Date(2026, time.June, 1), finance.Date(2026, time.June, 15))
	fraction := finance.ManMonth(half, june2026())
	if !fraction.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected 0.5, got %s", fraction)
	}

	// An assignment starting mid-month is clamped to the month.
	tail := mustPeriod(t, finance.Date(2026, time.June, 21), finance.Date(2026, time.September, 30))
	fraction = finance.ManMonth(tail, june2026())
	// 10 days of 30.
	if !fraction.Equal(decimal.RequireFromString("0.333333")) {
		t.Errorf("expected 0.333333, got %s", fraction)
	}
}

func TestManMonth_SingleDayOfLongMonth(t *testing.T) {
	july := finance.Month{Year: 2026, Month: time.July}
	oneDay := mustPeriod(t, finance.Date(2026, time.July, 31), finance.Date(2026, time.July, 31))

	fraction := finance.ManMonth(oneDay, july)
	if !fraction.Equal(decimal.RequireFromString("0.032258")) {
		t.Errorf("expected 1/31 at six digits, got %s", fraction)
	}
}

func TestAssignmentManMonth(t *testing.T) {
	a := finance.ProjectAssignment{
		ID:         "asg-1",
		EmployeeID: "emp-1",
		ProjectID:  "prj-1",
		Period:     mustPeriod(t, finance.Date(2026, time.June, 16), finance.Date(2026, time.June, 30)),
	}

	if !a.ManMonth(june2026()).Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("expected 0.5, got %s", a.ManMonth(june2026()))
	}
}

func TestProratedCost(t *testing.T) {
	unit := finance.Wons(3_450_000)

	// Full month costs the whole unit.
	full := finance.ProratedCost(unit, decimal.NewFromInt(1))
	if !full.Equal(unit) {
		t.Errorf("expected full unit cost, got %s", full)
	}

	// Half month costs half, rounded to Money scale.
	half := finance.ProratedCost(unit, decimal.RequireFromString("0.5"))
	if half.String() != "1725000.00" {
		t.Errorf("expected 1725000.00, got %s", half)
	}

	// Zero and negative fractions contribute nothing.
	if !finance.ProratedCost(unit, decimal.Zero).IsZero() {
		t.Error("zero fraction should cost zero")
	}
	if !finance.ProratedCost(unit, decimal.NewFromInt(-1)).IsZero() {
		t.Error("negative fraction should cost zero")
	}
}
