package finance

import "context"

// =============================================================================
// COST POLICY RESOLVER
// =============================================================================

// PolicyResolver looks up the rate set applicable to an employee type and
// fiscal year. Pure lookup: a miss surfaces ErrCostPolicyNotFound and is
// fatal for the calling employee's month - the pipeline never substitutes a
// default rate set, and a policy miss must stay distinguishable from a
// missing payroll row.
type PolicyResolver struct {
	Policies PolicyStore
}

// Resolve returns the policy for (applyYear, employeeType).
func (r *PolicyResolver) Resolve(ctx context.Context, applyYear int, employeeType EmployeeType) (CostPolicy, error) {
	return r.Policies.CostPolicy(ctx, applyYear, employeeType)
}
