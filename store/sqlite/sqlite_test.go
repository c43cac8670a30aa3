package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/warp/costing-engine/batch"
	"github.com/warp/costing-engine/finance"
	"github.com/warp/costing-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func saveEmployee(t *testing.T, s *sqlite.Store, id string, status finance.EmployeeStatus) {
	t.Helper()
	err := s.SaveEmployee(context.Background(), finance.Employee{
		ID:      finance.EmployeeID(id),
		Name:    "Employee " + id,
		Type:    finance.EmployeeRegular,
		Status:  status,
		HiredAt: finance.Date(2024, time.March, 1),
	})
	require.NoError(t, err)
}

func saveProject(t *testing.T, s *sqlite.Store, id string, start, end time.Time, status finance.ProjectStatus) {
	t.Helper()
	period, err := finance.NewPeriod(start, end)
	require.NoError(t, err)
	err = s.SaveProject(context.Background(), finance.Project{
		ID:     finance.ProjectID(id),
		Name:   "Project " + id,
		Period: period,
		Status: status,
	})
	require.NoError(t, err)
}

func TestCurrentSalary_EffectiveDateSelection(t *testing.T) {
	// GIVEN: Two salary rows, a raise effective July 1st
	// WHEN: Looking up before, between, and before any row
	// THEN: The latest row effective at the date wins; none is a sentinel

	ctx := context.Background()
	s := newTestStore(t)
	saveEmployee(t, s, "emp-1", finance.StatusActive)

	require.NoError(t, s.SaveSalary(ctx, finance.Salary{
		EmployeeID:    "emp-1",
		Annual:        finance.Wons(36_000_000),
		EffectiveFrom: finance.Date(2025, time.January, 1),
	}))
	require.NoError(t, s.SaveSalary(ctx, finance.Salary{
		EmployeeID:    "emp-1",
		Annual:        finance.Wons(48_000_000),
		EffectiveFrom: finance.Date(2026, time.July, 1),
	}))

	old, err := s.CurrentSalary(ctx, "emp-1", finance.Date(2026, time.June, 30))
	require.NoError(t, err)
	require.Equal(t, "36000000.00", old.String())

	// The effective-from day itself counts.
	raised, err := s.CurrentSalary(ctx, "emp-1", finance.Date(2026, time.July, 1))
	require.NoError(t, err)
	require.Equal(t, "48000000.00", raised.String())

	_, err = s.CurrentSalary(ctx, "emp-1", finance.Date(2024, time.December, 31))
	require.ErrorIs(t, err, finance.ErrSalaryNotFound)
}

func TestCostPolicy_RoundTripAndMiss(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SaveCostPolicy(ctx, finance.CostPolicy{
		ApplyYear:    2026,
		EmployeeType: finance.EmployeeRegular,
		OverheadRate: decimal.RequireFromString("0.10"),
		SGARate:      decimal.RequireFromString("0.05"),
	}))

	policy, err := s.CostPolicy(ctx, 2026, finance.EmployeeRegular)
	require.NoError(t, err)
	require.True(t, policy.OverheadRate.Equal(decimal.RequireFromString("0.10")))
	require.True(t, policy.SGARate.Equal(decimal.RequireFromString("0.05")))

	_, err = s.CostPolicy(ctx, 2027, finance.EmployeeRegular)
	require.ErrorIs(t, err, finance.ErrCostPolicyNotFound)
	_, err = s.CostPolicy(ctx, 2026, finance.EmployeeContract)
	require.ErrorIs(t, err, finance.ErrCostPolicyNotFound)
}

func TestActiveEmployees_StableOrderAndPaging(t *testing.T) {
	// GIVEN: Five active employees inserted out of order, one resigned
	// WHEN: Paging with size 2
	// THEN: Pages come back ordered by id with no gaps or repeats

	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"emp-3", "emp-1", "emp-5", "emp-2", "emp-4"} {
		saveEmployee(t, s, id, finance.StatusActive)
	}
	saveEmployee(t, s, "emp-0", finance.StatusResigned)

	var seen []string
	for pageNum := 0; ; pageNum++ {
		page, err := s.ActiveEmployees(ctx, batch.Page{Number: pageNum, Size: 2})
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		for _, emp := range page {
			seen = append(seen, string(emp.ID))
		}
	}

	require.Equal(t, []string{"emp-1", "emp-2", "emp-3", "emp-4", "emp-5"}, seen)
}

func TestSaveMonthlyCost_Upsert(t *testing.T) {
	// GIVEN: A cost row for (emp-1, 202606)
	// WHEN: Saving the same key again with new figures
	// THEN: The row is replaced, not duplicated

	ctx := context.Background()
	s := newTestStore(t)
	m := finance.Month{Year: 2026, Month: time.June}

	rec := finance.EmployeeMonthlyCost{
		EmployeeID:    "emp-1",
		CostMonth:     m,
		MonthlySalary: finance.Wons(3_000_000),
		OverheadCost:  finance.Wons(300_000),
		SGACost:       finance.Wons(150_000),
		TotalCost:     finance.Wons(3_450_000),
	}
	require.NoError(t, s.SaveMonthlyCost(ctx, rec))

	rec.TotalCost = finance.Wons(3_500_000)
	require.NoError(t, s.SaveMonthlyCost(ctx, rec))

	stored, err := s.MonthlyCost(ctx, "emp-1", m)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "3500000.00", stored.TotalCost.String())

	all, err := s.MonthlyCosts(ctx, m)
	require.NoError(t, err)
	require.Len(t, all, 1)

	// An unknown key is nil, not an error.
	none, err := s.MonthlyCost(ctx, "emp-unknown", m)
	require.NoError(t, err)
	require.Nil(t, none)
}

func TestCreateRevenuePlan_DuplicateSequence(t *testing.T) {
	// GIVEN: An existing (project, sequence) entry
	// WHEN: Creating the same key again
	// THEN: ErrDuplicateSequence from the primary key constraint

	ctx := context.Background()
	s := newTestStore(t)
	saveProject(t, s, "prj-1", finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31), finance.ProjectActive)

	plan := finance.ProjectRevenuePlan{
		ProjectID:   "prj-1",
		Sequence:    1,
		RevenueDate: finance.Date(2026, time.June, 10),
		Type:        finance.RevenueContract,
		Amount:      finance.Wons(1_000_000),
	}
	require.NoError(t, s.CreateRevenuePlan(ctx, plan))

	err := s.CreateRevenuePlan(ctx, plan)
	require.ErrorIs(t, err, finance.ErrDuplicateSequence)

	// Validation failures surface before the database is touched.
	bad := plan
	bad.Sequence = 0
	require.ErrorIs(t, s.CreateRevenuePlan(ctx, bad), finance.ErrInvalidSequence)
}

func TestIssuedRevenuePlans_FilterAndToggle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	saveProject(t, s, "prj-1", finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31), finance.ProjectActive)
	saveProject(t, s, "prj-2", finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31), finance.ProjectActive)

	mkPlan := func(project string, seq int, date time.Time, amount int64) finance.ProjectRevenuePlan {
		return finance.ProjectRevenuePlan{
			ProjectID:   finance.ProjectID(project),
			Sequence:    seq,
			RevenueDate: date,
			Type:        finance.RevenueContract,
			Amount:      finance.Wons(amount),
		}
	}
	require.NoError(t, s.CreateRevenuePlan(ctx, mkPlan("prj-1", 1, finance.Date(2026, time.June, 5), 1000)))
	require.NoError(t, s.CreateRevenuePlan(ctx, mkPlan("prj-1", 2, finance.Date(2026, time.July, 5), 2000)))
	require.NoError(t, s.CreateRevenuePlan(ctx, mkPlan("prj-2", 1, finance.Date(2026, time.June, 8), 4000)))

	june, err := finance.NewPeriod(finance.Date(2026, time.June, 1), finance.Date(2026, time.June, 30))
	require.NoError(t, err)

	// Nothing issued yet.
	plans, err := s.IssuedRevenuePlans(ctx, nil, june)
	require.NoError(t, err)
	require.Empty(t, plans)

	require.NoError(t, s.SetRevenuePlanIssued(ctx, "prj-1", 1, true))
	require.NoError(t, s.SetRevenuePlanIssued(ctx, "prj-1", 2, true))
	require.NoError(t, s.SetRevenuePlanIssued(ctx, "prj-2", 1, true))

	// All projects, June only: the July entry is out of period.
	plans, err = s.IssuedRevenuePlans(ctx, nil, june)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	// One project.
	pid := finance.ProjectID("prj-1")
	plans, err = s.IssuedRevenuePlans(ctx, &pid, june)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "1000.00", plans[0].Amount.String())

	// Cancel removes it from the issued view.
	require.NoError(t, s.SetRevenuePlanIssued(ctx, "prj-1", 1, false))
	plans, err = s.IssuedRevenuePlans(ctx, &pid, june)
	require.NoError(t, err)
	require.Empty(t, plans)

	// Unknown keys are a sentinel.
	require.ErrorIs(t, s.SetRevenuePlanIssued(ctx, "prj-1", 99, true), finance.ErrRevenuePlanNotFound)
}

func TestActiveProjects_OverlapFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saveProject(t, s, "prj-in", finance.Date(2026, time.May, 1), finance.Date(2026, time.August, 31), finance.ProjectActive)
	saveProject(t, s, "prj-out", finance.Date(2026, time.August, 1), finance.Date(2026, time.December, 31), finance.ProjectActive)
	saveProject(t, s, "prj-closed", finance.Date(2026, time.May, 1), finance.Date(2026, time.August, 31), finance.ProjectClosed)

	june, err := finance.NewPeriod(finance.Date(2026, time.June, 1), finance.Date(2026, time.June, 30))
	require.NoError(t, err)

	projects, err := s.ActiveProjects(ctx, june, batch.Page{Number: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Equal(t, finance.ProjectID("prj-in"), projects[0].ID)
}

func TestOverlappingAssignments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	saveEmployee(t, s, "emp-1", finance.StatusActive)
	saveProject(t, s, "prj-1", finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31), finance.ProjectActive)

	mkAssignment := func(id string, start, end time.Time) finance.ProjectAssignment {
		period, err := finance.NewPeriod(start, end)
		require.NoError(t, err)
		return finance.ProjectAssignment{
			ID: id, EmployeeID: "emp-1", ProjectID: "prj-1", Period: period,
		}
	}
	require.NoError(t, s.SaveAssignment(ctx, mkAssignment("asg-june", finance.Date(2026, time.June, 10), finance.Date(2026, time.June, 20))))
	require.NoError(t, s.SaveAssignment(ctx, mkAssignment("asg-august", finance.Date(2026, time.August, 1), finance.Date(2026, time.August, 31))))

	june, err := finance.NewPeriod(finance.Date(2026, time.June, 1), finance.Date(2026, time.June, 30))
	require.NoError(t, err)

	assignments, err := s.OverlappingAssignments(ctx, "prj-1", june)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, "asg-june", assignments[0].ID)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that writes a cost row then fails
	// WHEN: WithTx returns the error
	// THEN: The write is invisible afterwards

	ctx := context.Background()
	s := newTestStore(t)
	m := finance.Month{Year: 2026, Month: time.June}
	boom := errors.New("chunk failed")

	err := s.WithTx(ctx, func(tx finance.Store) error {
		if err := tx.SaveMonthlyCost(ctx, finance.EmployeeMonthlyCost{
			EmployeeID: "emp-1",
			CostMonth:  m,
			TotalCost:  finance.Wons(1),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := s.MonthlyCost(ctx, "emp-1", m)
	require.NoError(t, err)
	require.Nil(t, stored)

	// A committed transaction's writes stay.
	err = s.WithTx(ctx, func(tx finance.Store) error {
		return tx.SaveMonthlyCost(ctx, finance.EmployeeMonthlyCost{
			EmployeeID: "emp-1",
			CostMonth:  m,
			TotalCost:  finance.Wons(2),
		})
	})
	require.NoError(t, err)

	stored, err = s.MonthlyCost(ctx, "emp-1", m)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestSummaries_SeparateKeyShapes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	m := finance.Month{Year: 2026, Month: time.June}

	require.NoError(t, s.SaveProjectSummary(ctx, finance.ProjectSummary{
		ProjectID:   "prj-1",
		TargetMonth: m,
		Revenue:     finance.Wons(3_000_000),
		Cost:        finance.Wons(3_450_000),
		Profit:      finance.Wons(-450_000),
	}))
	require.NoError(t, s.SaveCompanySummary(ctx, finance.CompanySummary{
		TargetMonth: m,
		Revenue:     finance.Wons(3_000_000),
		Cost:        finance.Wons(3_450_000),
		Profit:      finance.Wons(-450_000),
	}))

	projectRows, err := s.ProjectSummaries(ctx, m)
	require.NoError(t, err)
	require.Len(t, projectRows, 1)
	require.Equal(t, "-450000.00", projectRows[0].Profit.String())

	company, err := s.CompanySummaryFor(ctx, m)
	require.NoError(t, err)
	require.NotNil(t, company)
	require.Equal(t, "-450000.00", company.Profit.String())

	// Upserting the same keys replaces in place.
	require.NoError(t, s.SaveProjectSummary(ctx, finance.ProjectSummary{
		ProjectID:   "prj-1",
		TargetMonth: m,
		Revenue:     finance.Wons(5_000_000),
		Cost:        finance.Wons(3_450_000),
		Profit:      finance.Wons(1_550_000),
	}))
	projectRows, err = s.ProjectSummaries(ctx, m)
	require.NoError(t, err)
	require.Len(t, projectRows, 1)
	require.Equal(t, "1550000.00", projectRows[0].Profit.String())

	// An absent company month is nil, not an error.
	missing, err := s.CompanySummaryFor(ctx, finance.Month{Year: 2026, Month: time.July})
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestBatchRuns_Bookkeeping(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	target := finance.Date(2026, time.June, 30)

	run := finance.BatchRun{
		ID:          "run-1",
		TargetDate:  target,
		TargetMonth: finance.Month{Year: 2026, Month: time.June},
		Status:      finance.RunRunning,
		StartedAt:   time.Date(2026, time.July, 1, 6, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveBatchRun(ctx, run))

	done, err := s.CompletedRunExists(ctx, target)
	require.NoError(t, err)
	require.False(t, done, "a running run does not count as completed")

	completed := time.Date(2026, time.July, 1, 6, 5, 0, 0, time.UTC)
	run.Status = finance.RunCompleted
	run.EmployeesProcessed = 12
	run.ProjectsProcessed = 3
	run.CompletedAt = &completed
	require.NoError(t, s.SaveBatchRun(ctx, run))

	done, err = s.CompletedRunExists(ctx, target)
	require.NoError(t, err)
	require.True(t, done)

	runs, err := s.ListBatchRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, finance.RunCompleted, runs[0].Status)
	require.Equal(t, 12, runs[0].EmployeesProcessed)
	require.NotNil(t, runs[0].CompletedAt)
}

func TestPipeline_EndToEndOnSQLite(t *testing.T) {
	// GIVEN: The standard scenario persisted in SQLite
	// WHEN: Running the pipeline
	// THEN: Cost rows, project summary and company roll-up land in their
	//       tables and a second run reproduces them

	ctx := context.Background()
	s := newTestStore(t)
	m := finance.Month{Year: 2026, Month: time.June}

	saveEmployee(t, s, "emp-1", finance.StatusActive)
	require.NoError(t, s.SaveSalary(ctx, finance.Salary{
		EmployeeID:    "emp-1",
		Annual:        finance.Wons(36_000_000),
		EffectiveFrom: finance.Date(2025, time.January, 1),
	}))
	require.NoError(t, s.SaveCostPolicy(ctx, finance.CostPolicy{
		ApplyYear:    2026,
		EmployeeType: finance.EmployeeRegular,
		OverheadRate: decimal.RequireFromString("0.10"),
		SGARate:      decimal.RequireFromString("0.05"),
	}))
	saveProject(t, s, "prj-1", finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31), finance.ProjectActive)

	period, err := finance.NewPeriod(finance.Date(2026, time.January, 1), finance.Date(2026, time.December, 31))
	require.NoError(t, err)
	require.NoError(t, s.SaveAssignment(ctx, finance.ProjectAssignment{
		ID: "asg-1", EmployeeID: "emp-1", ProjectID: "prj-1", Period: period,
	}))

	require.NoError(t, s.CreateRevenuePlan(ctx, finance.ProjectRevenuePlan{
		ProjectID:   "prj-1",
		Sequence:    1,
		RevenueDate: finance.Date(2026, time.June, 10),
		Type:        finance.RevenueContract,
		Amount:      finance.Wons(3_000_000),
	}))
	require.NoError(t, s.SetRevenuePlanIssued(ctx, "prj-1", 1, true))

	pipeline := finance.NewPipeline(s)
	target := finance.Date(2026, time.June, 30)

	_, err = pipeline.Run(ctx, &target)
	require.NoError(t, err)

	cost, err := s.MonthlyCost(ctx, "emp-1", m)
	require.NoError(t, err)
	require.NotNil(t, cost)
	require.Equal(t, "3450000.00", cost.TotalCost.String())

	summaries, err := s.ProjectSummaries(ctx, m)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "-450000.00", summaries[0].Profit.String())

	company, err := s.CompanySummaryFor(ctx, m)
	require.NoError(t, err)
	require.NotNil(t, company)

	// Re-run converges on the same rows.
	_, err = pipeline.Run(ctx, &target)
	require.NoError(t, err)

	again, err := s.ProjectSummaries(ctx, m)
	require.NoError(t, err)
	require.Len(t, again, 1)
	require.Equal(t, summaries[0].Profit.String(), again[0].Profit.String())
}
