/*
Package factory builds standard cost-policy rate tables.

PURPOSE:
  Administrators normally maintain cost policies per fiscal year and employee
  type. For seeding, demos and tests this package constructs the standard
  table in one call instead of hand-writing rate rows.

RATES:
  Rates are fractional multipliers applied to the monthly salary:
  0.10 = 10% overhead loading. The standard table reflects the usual
  loading spread: heavier overhead on regulars, lighter on contractors,
  heavier SGA on executives.

USAGE:
  for _, p := range factory.PoliciesForYear(2026) {
      store.SaveCostPolicy(ctx, p)
  }
*/
package factory

import (
	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/finance"
)

// StandardRates is the default overhead/SGA pair per employee type.
var StandardRates = map[finance.EmployeeType]struct {
	Overhead string
	SGA      string
}{
	finance.EmployeeRegular:   {Overhead: "0.10", SGA: "0.05"},
	finance.EmployeeContract:  {Overhead: "0.05", SGA: "0.03"},
	finance.EmployeeExecutive: {Overhead: "0.12", SGA: "0.10"},
}

// PoliciesForYear returns the standard policy table for one fiscal year.
func PoliciesForYear(year int) []finance.CostPolicy {
	policies := make([]finance.CostPolicy, 0, len(StandardRates))
	for _, employeeType := range []finance.EmployeeType{
		finance.EmployeeRegular,
		finance.EmployeeContract,
		finance.EmployeeExecutive,
	} {
		rates := StandardRates[employeeType]
		policies = append(policies, finance.CostPolicy{
			ApplyYear:    year,
			EmployeeType: employeeType,
			OverheadRate: decimal.RequireFromString(rates.Overhead),
			SGARate:      decimal.RequireFromString(rates.SGA),
		})
	}
	return policies
}

// Policy builds a single policy row with explicit rates.
func Policy(year int, employeeType finance.EmployeeType, overhead, sga string) finance.CostPolicy {
	return finance.CostPolicy{
		ApplyYear:    year,
		EmployeeType: employeeType,
		OverheadRate: decimal.RequireFromString(overhead),
		SGARate:      decimal.RequireFromString(sga),
	}
}
