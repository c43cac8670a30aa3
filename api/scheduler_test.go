package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/warp/costing-engine/finance"
	"github.com/warp/costing-engine/store/sqlite"
)

func newTestScheduler(t *testing.T) (*sqlite.Store, *BatchScheduler) {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "scheduler_test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	pipeline := finance.NewPipeline(store)
	scheduler := NewBatchScheduler(store, pipeline)
	scheduler.Clock = func() time.Time {
		return time.Date(2026, time.July, 1, 6, 0, 0, 0, time.UTC)
	}
	pipeline.Clock = scheduler.Clock
	return store, scheduler
}

func TestScheduler_TriggersForYesterdayOnce(t *testing.T) {
	// GIVEN: A pinned clock on the morning of July 1st and no run history
	// WHEN: Checking twice
	// THEN: The first check runs June 30th; the second is a no-op

	store, scheduler := newTestScheduler(t)
	ctx := context.Background()

	scheduler.RunNow()

	runs, err := store.ListBatchRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if !runs[0].TargetDate.Equal(finance.Date(2026, time.June, 30)) {
		t.Errorf("expected target 2026-06-30, got %s", runs[0].TargetDate)
	}
	if runs[0].Status != finance.RunCompleted {
		t.Errorf("expected completed run, got %s (%s)", runs[0].Status, runs[0].Error)
	}

	// Already processed: the trigger is idempotent.
	scheduler.RunNow()

	runs, err = store.ListBatchRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("second check should not start another run, got %d", len(runs))
	}
}

func TestScheduler_DisabledDoesNotStart(t *testing.T) {
	_, scheduler := newTestScheduler(t)
	scheduler.Enabled = false

	// Start is a no-op; Stop must be safe without a ticker.
	scheduler.Start()
	scheduler.Stop()
}
