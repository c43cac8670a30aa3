/*
costing.go - Employee monthly cost calculator

PURPOSE:
  Prices one active employee's fully loaded cost for one month from the
  salary effective at the target date and the cost policy for the target
  year and employee type.

FORMULA (applied uniformly across the pipeline):
  monthlySalary = annualSalary / 12     (half-up to Money scale)
  overheadCost  = monthlySalary * overheadRate
  sgaCost       = monthlySalary * sgaRate
  totalCost     = monthlySalary + overheadCost + sgaCost

  The annual figure is divided by 12 BEFORE rates apply. The summary stage
  reads the stored TotalCost instead of repricing, so the two stages cannot
  drift apart.

WHOLE-MONTH PRICING:
  Eligibility is status-based, not date-based. An active employee is priced
  for the whole month even if hired or departing mid-month; proration happens
  later, per project assignment, in the man-month engine.

IDEMPOTENCY:
  The output is keyed (employeeID, costMonth). Re-pricing replaces the money
  fields of an existing row; with unchanged inputs the row is reproduced
  byte for byte.

SEE ALSO:
  - policy.go: Rate lookup
  - summary.go: Consumer of TotalCost
*/
package finance

import (
	"context"
	"errors"
	"time"
)

// CostCalculator prices employees month by month.
type CostCalculator struct {
	Directory EmployeeDirectory
	Policies  *PolicyResolver
	Costs     CostStore
}

// NewCostCalculator wires a calculator onto a store.
func NewCostCalculator(s Store) *CostCalculator {
	return &CostCalculator{
		Directory: s,
		Policies:  &PolicyResolver{Policies: s},
		Costs:     s,
	}
}

// PriceEmployee computes and upserts the employee's cost record for the
// month containing targetDate.
//
// Missing inputs are fatal for this employee's month and come back as a
// *MissingReferenceError wrapping ErrSalaryNotFound or ErrCostPolicyNotFound
// so operators can tell the two backfills apart.
func (c *CostCalculator) PriceEmployee(ctx context.Context, emp Employee, targetDate time.Time) (EmployeeMonthlyCost, error) {
	if emp.Status != StatusActive {
		return EmployeeMonthlyCost{}, ErrEmployeeNotActive
	}

	month := MonthOf(targetDate)
	applyYear := month.Year

	annual, err := c.Directory.CurrentSalary(ctx, emp.ID, targetDate)
	if err != nil {
		if errors.Is(err, ErrSalaryNotFound) {
			return EmployeeMonthlyCost{}, &MissingReferenceError{
				EmployeeID:   emp.ID,
				Month:        month,
				ApplyYear:    applyYear,
				EmployeeType: emp.Type,
				Missing:      ErrSalaryNotFound,
			}
		}
		return EmployeeMonthlyCost{}, err
	}

	policy, err := c.Policies.Resolve(ctx, applyYear, emp.Type)
	if err != nil {
		if errors.Is(err, ErrCostPolicyNotFound) {
			return EmployeeMonthlyCost{}, &MissingReferenceError{
				EmployeeID:   emp.ID,
				Month:        month,
				ApplyYear:    applyYear,
				EmployeeType: emp.Type,
				Missing:      ErrCostPolicyNotFound,
			}
		}
		return EmployeeMonthlyCost{}, err
	}

	monthly := annual.Div(12)
	overhead := monthly.Mul(policy.OverheadRate)
	sga := monthly.Mul(policy.SGARate)

	rec := EmployeeMonthlyCost{
		EmployeeID:    emp.ID,
		CostMonth:     month,
		MonthlySalary: monthly,
		OverheadCost:  overhead,
		SGACost:       sga,
		TotalCost:     monthly.Add(overhead).Add(sga),
	}

	if err := c.Costs.SaveMonthlyCost(ctx, rec); err != nil {
		return EmployeeMonthlyCost{}, err
	}
	return rec, nil
}
