/*
errors.go - Centralized error types for the pipeline

ERROR CATEGORIES:
  1. Missing reference data - no salary / no cost policy / no cost record.
     Fatal for the single employee or project being processed. Surfaced with
     enough identity (who, which month, which input) for operators to backfill
     and re-run. The two lookup failures are distinct on purpose: "no policy
     for this year/type" is a different operator action than "no payroll row".
  2. Duplicate keys - rejected at creation, never silently merged.
  3. Run coordination - concurrent runs for the same target month are refused.

Zero is not an error: "no overlap" and "no issued revenue" are valid computed
values and never travel through these types.

USAGE:
  if errors.Is(err, finance.ErrCostPolicyNotFound) { ... }

  var missing *finance.MissingReferenceError
  if errors.As(err, &missing) {
      log.Printf("backfill needed: %v", missing)
  }
*/
package finance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSalaryNotFound is returned when no payroll record is effective at
	// the target date.
	ErrSalaryNotFound = errors.New("no salary effective at date")

	// ErrCostPolicyNotFound is returned when no cost policy exists for an
	// (applyYear, employeeType) pair. The pipeline never substitutes a
	// default rate set.
	ErrCostPolicyNotFound = errors.New("no cost policy for year and employee type")

	// ErrMonthlyCostNotFound is returned by the summary stage when an
	// assigned employee has no priced cost record for the month.
	ErrMonthlyCostNotFound = errors.New("no monthly cost record")

	// ErrEmployeeNotActive is returned when a non-active employee reaches
	// the cost calculator.
	ErrEmployeeNotActive = errors.New("employee not in active status")

	// ErrDuplicateSequence is returned when a revenue plan reuses a
	// (projectID, sequence) pair.
	ErrDuplicateSequence = errors.New("duplicate revenue plan sequence")

	// ErrInvalidSequence is returned for sequence numbers below 1.
	ErrInvalidSequence = errors.New("revenue plan sequence must be positive")

	// ErrNegativeAmount is returned when a revenue plan carries a negative
	// amount.
	ErrNegativeAmount = errors.New("revenue plan amount must not be negative")

	// ErrRevenuePlanNotFound is returned when issuing/canceling a plan that
	// does not exist.
	ErrRevenuePlanNotFound = errors.New("revenue plan not found")

	// ErrEmployeeNotFound is returned for lookups of unknown employees.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrProjectNotFound is returned for lookups of unknown projects.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidPeriod is returned when a period ends before it starts.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrRunInProgress is returned when a batch run is already executing for
	// the same target month. Runs for different months proceed concurrently.
	ErrRunInProgress = errors.New("batch run already in progress for target month")
)

// =============================================================================
// STRUCTURED ERRORS - Carry record identity
// =============================================================================

// MissingReferenceError identifies exactly which input was missing for which
// employee and month. Unwraps to one of the *NotFound sentinels.
type MissingReferenceError struct {
	EmployeeID   EmployeeID
	Month        Month
	ApplyYear    int
	EmployeeType EmployeeType
	Missing      error
}

func (e *MissingReferenceError) Error() string {
	switch {
	case errors.Is(e.Missing, ErrCostPolicyNotFound):
		return fmt.Sprintf("employee %s month %s: %v (year=%d type=%s)",
			e.EmployeeID, e.Month, e.Missing, e.ApplyYear, e.EmployeeType)
	default:
		return fmt.Sprintf("employee %s month %s: %v", e.EmployeeID, e.Month, e.Missing)
	}
}

func (e *MissingReferenceError) Unwrap() error { return e.Missing }

// IsMissingReference reports whether err is a missing-reference failure that
// the skip-and-report run mode may record and continue past.
func IsMissingReference(err error) bool {
	return errors.Is(err, ErrSalaryNotFound) ||
		errors.Is(err, ErrCostPolicyNotFound) ||
		errors.Is(err, ErrMonthlyCostNotFound)
}
