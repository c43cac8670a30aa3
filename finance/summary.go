/*
summary.go - Monthly project and company summary calculator

PURPOSE:
  Combines aggregated issued revenue with prorated assignment cost into one
  revenue/cost/profit row per project per month, plus a company-wide roll-up
  keyed by month alone.

COST ATTRIBUTION:
  For each assignment overlapping the month:
    fraction = manMonth(assignment, month)
    cost    += fraction * EmployeeMonthlyCost.TotalCost

  A zero fraction contributes zero and skips the cost lookup entirely. A
  positive fraction with no priced cost record is a missing-reference
  failure - the cost stage should have produced the row first.

PROFIT:
  profit = revenue - cost, with no floor. Negative profit is an expected
  result for unprofitable months.

RUN MODES:
  SummarizeProject writes (projectID, month) rows; SummarizeCompany writes a
  month-keyed row whose cost is the sum of the project rows already stored for
  the month. A project skipped by the per-project pass has no row and
  contributes zero to the roll-up. The two key shapes are stored separately
  and never conflated.
*/
package finance

import "context"

// SummaryCalculator produces the terminal monthly summary rows.
type SummaryCalculator struct {
	Projects  ProjectStore
	Costs     CostStore
	Revenue   *RevenueAggregator
	Summaries SummaryStore
}

// NewSummaryCalculator wires a calculator onto a store.
func NewSummaryCalculator(s Store) *SummaryCalculator {
	return &SummaryCalculator{
		Projects:  s,
		Costs:     s,
		Revenue:   &RevenueAggregator{Revenue: s},
		Summaries: s,
	}
}

// SummarizeProject computes and upserts one project's summary for m.
func (sc *SummaryCalculator) SummarizeProject(ctx context.Context, project Project, m Month) (ProjectSummary, error) {
	pid := project.ID

	revenue, err := sc.Revenue.SumIssued(ctx, &pid, m.Period())
	if err != nil {
		return ProjectSummary{}, err
	}

	cost, err := sc.projectCost(ctx, pid, m)
	if err != nil {
		return ProjectSummary{}, err
	}

	summary := ProjectSummary{
		ProjectID:   pid,
		TargetMonth: m,
		Revenue:     revenue,
		Cost:        cost,
		Profit:      CalculateProfit(&revenue, &cost),
	}

	if err := sc.Summaries.SaveProjectSummary(ctx, summary); err != nil {
		return ProjectSummary{}, err
	}
	return summary, nil
}

// SummarizeCompany computes and upserts the company-wide roll-up for m,
// summing revenue without a project filter and cost over the project rows
// stored for the month. It never recomputes assignment cost, so a project
// the per-project pass skipped contributes zero instead of failing the
// roll-up a second time.
func (sc *SummaryCalculator) SummarizeCompany(ctx context.Context, m Month) (CompanySummary, error) {
	revenue, err := sc.Revenue.SumIssued(ctx, nil, m.Period())
	if err != nil {
		return CompanySummary{}, err
	}

	rows, err := sc.Summaries.ProjectSummaries(ctx, m)
	if err != nil {
		return CompanySummary{}, err
	}
	cost := ZeroMoney()
	for _, row := range rows {
		cost = cost.Add(row.Cost)
	}

	summary := CompanySummary{
		TargetMonth: m,
		Revenue:     revenue,
		Cost:        cost,
		Profit:      CalculateProfit(&revenue, &cost),
	}

	if err := sc.Summaries.SaveCompanySummary(ctx, summary); err != nil {
		return CompanySummary{}, err
	}
	return summary, nil
}

// projectCost accumulates prorated cost over the project's assignments
// overlapping the month.
func (sc *SummaryCalculator) projectCost(ctx context.Context, id ProjectID, m Month) (Money, error) {
	assignments, err := sc.Projects.OverlappingAssignments(ctx, id, m.Period())
	if err != nil {
		return ZeroMoney(), err
	}

	cost := ZeroMoney()
	for _, a := range assignments {
		fraction := a.ManMonth(m)
		if fraction.Sign() <= 0 {
			// Contributes nothing; do not touch cost records for it.
			continue
		}

		rec, err := sc.Costs.MonthlyCost(ctx, a.EmployeeID, m)
		if err != nil {
			return ZeroMoney(), err
		}
		if rec == nil {
			return ZeroMoney(), &MissingReferenceError{
				EmployeeID: a.EmployeeID,
				Month:      m,
				Missing:    ErrMonthlyCostNotFound,
			}
		}

		cost = cost.Add(ProratedCost(rec.TotalCost, fraction))
	}
	return cost, nil
}
