package finance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/costing-engine/finance"
	"github.com/warp/costing-engine/finance/store"
)

func addPlan(t *testing.T, mem *store.Memory, projectID string, seq int, date time.Time, amount int64, issued bool) {
	t.Helper()
	plan := finance.ProjectRevenuePlan{
		ProjectID:   finance.ProjectID(projectID),
		Sequence:    seq,
		RevenueDate: date,
		Type:        finance.RevenueContract,
		Amount:      finance.Wons(amount),
		Issued:      issued,
	}
	if err := mem.CreateRevenuePlan(context.Background(), plan); err != nil {
		t.Fatalf("create plan: %v", err)
	}
}

func TestSumIssued_OnlyIssuedEntriesInPeriod(t *testing.T) {
	// GIVEN: Issued entries of 1,000 and 2,000 in June, a planned 5,000 and
	//        an issued entry outside the month
	// WHEN: Summing June revenue for the project
	// THEN: 3,000

	ctx := context.Background()
	mem := store.NewMemory()

	addPlan(t, mem, "prj-1", 1, finance.Date(2026, time.June, 5), 1000, true)
	addPlan(t, mem, "prj-1", 2, finance.Date(2026, time.June, 20), 2000, true)
	addPlan(t, mem, "prj-1", 3, finance.Date(2026, time.June, 25), 5000, false)
	addPlan(t, mem, "prj-1", 4, finance.Date(2026, time.July, 1), 9000, true)

	agg := &finance.RevenueAggregator{Revenue: mem}
	pid := finance.ProjectID("prj-1")

	total, err := agg.SumIssued(ctx, &pid, june2026().Period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.String() != "3000.00" {
		t.Errorf("expected 3000.00, got %s", total)
	}
}

func TestSumIssued_NoEntriesIsZeroNotError(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	agg := &finance.RevenueAggregator{Revenue: mem}
	pid := finance.ProjectID("prj-none")

	total, err := agg.SumIssued(ctx, &pid, june2026().Period())
	if err != nil {
		t.Fatalf("no entries must not be an error, got %v", err)
	}
	if !total.IsZero() {
		t.Errorf("expected zero, got %s", total)
	}
}

func TestSumIssued_NilProjectSumsAllProjects(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	addPlan(t, mem, "prj-1", 1, finance.Date(2026, time.June, 5), 1000, true)
	addPlan(t, mem, "prj-2", 1, finance.Date(2026, time.June, 10), 2500, true)

	agg := &finance.RevenueAggregator{Revenue: mem}
	total, err := agg.SumIssued(ctx, nil, june2026().Period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.String() != "3500.00" {
		t.Errorf("expected 3500.00, got %s", total)
	}
}

func TestSumIssued_PeriodBoundariesInclusive(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	addPlan(t, mem, "prj-1", 1, finance.Date(2026, time.June, 1), 100, true)
	addPlan(t, mem, "prj-1", 2, finance.Date(2026, time.June, 30), 200, true)
	addPlan(t, mem, "prj-1", 3, finance.Date(2026, time.May, 31), 400, true)

	agg := &finance.RevenueAggregator{Revenue: mem}
	pid := finance.ProjectID("prj-1")

	total, err := agg.SumIssued(ctx, &pid, june2026().Period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.String() != "300.00" {
		t.Errorf("both June boundary days should count, got %s", total)
	}
}

func TestCreateRevenuePlan_Validation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	base := finance.ProjectRevenuePlan{
		ProjectID:   "prj-1",
		Sequence:    1,
		RevenueDate: finance.Date(2026, time.June, 5),
		Type:        finance.RevenueContract,
		Amount:      finance.Wons(1000),
	}

	if err := mem.CreateRevenuePlan(ctx, base); err != nil {
		t.Fatalf("valid plan rejected: %v", err)
	}

	// Duplicate (project, sequence) is rejected, never merged.
	if err := mem.CreateRevenuePlan(ctx, base); !errors.Is(err, finance.ErrDuplicateSequence) {
		t.Errorf("expected ErrDuplicateSequence, got %v", err)
	}

	// The same sequence on another project is fine.
	other := base
	other.ProjectID = "prj-2"
	if err := mem.CreateRevenuePlan(ctx, other); err != nil {
		t.Errorf("same sequence on another project should be allowed: %v", err)
	}

	invalid := base
	invalid.Sequence = 0
	if err := mem.CreateRevenuePlan(ctx, invalid); !errors.Is(err, finance.ErrInvalidSequence) {
		t.Errorf("expected ErrInvalidSequence, got %v", err)
	}

	negative := base
	negative.Sequence = 9
	negative.Amount = finance.Wons(-1)
	if err := mem.CreateRevenuePlan(ctx, negative); !errors.Is(err, finance.ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestSetRevenuePlanIssued_Toggles(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	addPlan(t, mem, "prj-1", 1, finance.Date(2026, time.June, 5), 1000, false)

	agg := &finance.RevenueAggregator{Revenue: mem}
	pid := finance.ProjectID("prj-1")

	// Planned entries are invisible to the aggregator.
	total, _ := agg.SumIssued(ctx, &pid, june2026().Period())
	if !total.IsZero() {
		t.Fatalf("planned entry must not count, got %s", total)
	}

	if err := mem.SetRevenuePlanIssued(ctx, pid, 1, true); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	total, _ = agg.SumIssued(ctx, &pid, june2026().Period())
	if total.String() != "1000.00" {
		t.Errorf("issued entry should count, got %s", total)
	}

	// Cancel reverts it.
	if err := mem.SetRevenuePlanIssued(ctx, pid, 1, false); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	total, _ = agg.SumIssued(ctx, &pid, june2026().Period())
	if !total.IsZero() {
		t.Errorf("canceled entry must not count, got %s", total)
	}

	if err := mem.SetRevenuePlanIssued(ctx, pid, 99, true); !errors.Is(err, finance.ErrRevenuePlanNotFound) {
		t.Errorf("expected ErrRevenuePlanNotFound, got %v", err)
	}
}
