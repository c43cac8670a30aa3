package finance

import (
	"fmt"
	"time"
)

// =============================================================================
// DATES - All dates in the pipeline are day-granular UTC
// =============================================================================

// Date constructs a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// normalizeDate truncates to UTC midnight so comparisons ignore clock time.
func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetweenInclusive counts calendar days in [from, to], both ends included.
func DaysBetweenInclusive(from, to time.Time) int {
	return int(normalizeDate(to).Sub(normalizeDate(from)).Hours()/24) + 1
}

// =============================================================================
// PERIOD - Closed date interval [Start, End]
// =============================================================================

// Period is a closed date interval. Both ends are inclusive, matching the
// range predicates used for project durations, assignments and revenue dates.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod validates that end does not precede start.
func NewPeriod(start, end time.Time) (Period, error) {
	start, end = normalizeDate(start), normalizeDate(end)
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether t falls within [Start, End].
func (p Period) Contains(t time.Time) bool {
	t = normalizeDate(t)
	return !t.Before(p.Start) && !t.After(p.End)
}

// Overlaps reports whether two periods share at least one day:
// a.Start <= b.End AND a.End >= b.Start, inclusive both ends.
func (p Period) Overlaps(o Period) bool {
	return !p.Start.After(o.End) && !p.End.Before(o.Start)
}

// Intersect returns the shared sub-period, if any.
func (p Period) Intersect(o Period) (Period, bool) {
	if !p.Overlaps(o) {
		return Period{}, false
	}
	start, end := p.Start, p.End
	if o.Start.After(start) {
		start = o.Start
	}
	if o.End.Before(end) {
		end = o.End
	}
	return Period{Start: start, End: end}, true
}

// DaysInclusive counts the calendar days covered by the period.
func (p Period) DaysInclusive() int {
	return DaysBetweenInclusive(p.Start, p.End)
}

func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// =============================================================================
// MONTH - Target month for cost and summary records
// =============================================================================

// monthTokenLayout is the storage key form of a month, e.g. "202602".
const monthTokenLayout = "200601"

// Month is a calendar year-month. It keys the EmployeeMonthlyCost and
// MonthlyRevenueSummary records and drives every period predicate in a run.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYYMM" token.
func ParseMonth(token string) (Month, error) {
	t, err := time.ParseInLocation(monthTokenLayout, token, time.UTC)
	if err != nil {
		return Month{}, fmt.Errorf("parse month token %q: %w", token, err)
	}
	return MonthOf(t), nil
}

// Token returns the "YYYYMM" storage key form.
func (m Month) Token() string {
	return Date(m.Year, m.Month, 1).Format(monthTokenLayout)
}

// Start returns the first day of the month.
func (m Month) Start() time.Time { return Date(m.Year, m.Month, 1) }

// End returns the last day of the month.
func (m Month) End() time.Time {
	return Date(m.Year, m.Month, 1).AddDate(0, 1, -1)
}

// Days returns the calendar length of the month (28-31).
func (m Month) Days() int { return m.End().Day() }

// Period returns [first day, last day] of the month.
func (m Month) Period() Period { return Period{Start: m.Start(), End: m.End()} }

// Contains reports whether t falls inside the month.
func (m Month) Contains(t time.Time) bool { return m.Period().Contains(t) }

func (m Month) String() string { return m.Token() }
