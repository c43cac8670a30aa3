package finance

import "context"

// =============================================================================
// REVENUE AGGREGATOR
// =============================================================================

// RevenueAggregator sums issued revenue-plan entries within a period.
// Only entries with Issued = true and RevenueDate inside the period count as
// realized revenue; merely planned entries are invisible here.
type RevenueAggregator struct {
	Revenue RevenueStore
}

// SumIssued totals issued revenue for one project (or all projects when
// projectID is nil) over p. No matching rows is a valid zero, never an error.
func (ra *RevenueAggregator) SumIssued(ctx context.Context, projectID *ProjectID, p Period) (Money, error) {
	plans, err := ra.Revenue.IssuedRevenuePlans(ctx, projectID, p)
	if err != nil {
		return ZeroMoney(), err
	}

	total := ZeroMoney()
	for _, plan := range plans {
		total = total.Add(plan.Amount)
	}
	return total, nil
}
