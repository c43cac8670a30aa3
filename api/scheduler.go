/*
scheduler.go - Nightly batch trigger

PURPOSE:
  Periodically checks whether the prior calendar day has been processed and
  triggers a pipeline run when it has not. This implements the "run the
  morning after" convention without an external cron.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Resolves yesterday through the same injectable clock as the pipeline
  - Skips the trigger when a completed run already covers the date, so
    restarts and overlapping instances stay idempotent
  - A run already holding the month lock is treated as a skip, not an error

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewBatchScheduler(store, pipeline)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRun endpoint (manual trigger)
  - finance/pipeline.go: The run itself
*/
package api

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/warp/costing-engine/finance"
	"github.com/warp/costing-engine/store/sqlite"
)

// BatchScheduler triggers the nightly pipeline run.
type BatchScheduler struct {
	Store         *sqlite.Store
	Pipeline      *finance.Pipeline
	CheckInterval time.Duration
	Enabled       bool

	// Clock supplies "now" for resolving yesterday. Tests pin it.
	Clock func() time.Time

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewBatchScheduler creates a new scheduler.
func NewBatchScheduler(store *sqlite.Store, pipeline *finance.Pipeline) *BatchScheduler {
	return &BatchScheduler{
		Store:         store,
		Pipeline:      pipeline,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		Clock:         time.Now,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (bs *BatchScheduler) Start() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if !bs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	bs.ticker = time.NewTicker(bs.CheckInterval)
	bs.wg.Add(1)

	go bs.run()

	log.Printf("[Scheduler] Started with check interval: %v", bs.CheckInterval)
}

// Stop stops the scheduler.
func (bs *BatchScheduler) Stop() {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.ticker != nil {
		bs.ticker.Stop()
		close(bs.stop)
		bs.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (bs *BatchScheduler) run() {
	defer bs.wg.Done()

	// Run immediately on start
	bs.checkAndProcess()

	for {
		select {
		case <-bs.ticker.C:
			bs.checkAndProcess()
		case <-bs.stop:
			return
		}
	}
}

func (bs *BatchScheduler) checkAndProcess() {
	ctx := context.Background()
	target := yesterday(bs.Clock())

	done, err := bs.Store.CompletedRunExists(ctx, target)
	if err != nil {
		log.Printf("[Scheduler] Error checking run history: %v", err)
		return
	}
	if done {
		return
	}

	log.Printf("[Scheduler] Triggering run for %s", target.Format("2006-01-02"))

	report, err := bs.Pipeline.Run(ctx, &target)
	if err != nil {
		if errors.Is(err, finance.ErrRunInProgress) {
			log.Printf("[Scheduler] Run for %s already in progress, skipping", target.Format("2006-01-02"))
			return
		}
		log.Printf("[Scheduler] Run for %s failed: %v", target.Format("2006-01-02"), err)
		return
	}

	log.Printf("[Scheduler] Run %s completed: employees=%d projects=%d",
		report.RunID, report.Cost.Processed, report.Summary.Processed)
}

// RunNow triggers an immediate check (for testing/admin).
func (bs *BatchScheduler) RunNow() {
	bs.checkAndProcess()
}

// NextRunTime returns when the next scheduled check will occur.
func (bs *BatchScheduler) NextRunTime() time.Time {
	return bs.Clock().Add(bs.CheckInterval)
}

func yesterday(now time.Time) time.Time {
	y := now.AddDate(0, 0, -1)
	return time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, time.UTC)
}
