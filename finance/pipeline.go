/*
pipeline.go - The two-stage monthly batch pipeline

PURPOSE:
  Orchestrates one run over a target date:

    Stage 1 (cost):    page active employees -> price each into an
                       EmployeeMonthlyCost upsert, chunk by chunk.
    Stage 2 (summary): page active projects overlapping the month -> prorate
                       assignment cost, combine with issued revenue, upsert
                       one summary row per project, then the company roll-up.

  Stage 2 reads the rows stage 1 just wrote, so it never starts until every
  stage-1 chunk has committed.

TARGET DATE:
  Run(ctx, nil) resolves to the prior calendar day through the injected
  Clock ("run the morning after" convention). Tests pin the clock.

FAILURE POLICY:
  Default: the first record error aborts the run. The failing chunk rolls
  back; chunks committed earlier stay visible, and re-running the month after
  the backfill converges (every write is a key-exclusive upsert).
  SkipMissingReference: missing salary/policy/cost-record failures are
  recorded per record and skipped; unexpected errors still abort.

MUTUAL EXCLUSION:
  One run per target month at a time, enforced by a keyed lock. Runs for
  different months share no upsert keys and proceed concurrently.

SEE ALSO:
  - batch/runner.go: The paging/chunking harness
  - api/scheduler.go: The nightly trigger
*/
package finance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/warp/costing-engine/batch"
)

// Pipeline drives the cost and summary stages over a TxStore.
type Pipeline struct {
	Store TxStore

	// ChunkSize is records per atomic chunk (batch.DefaultChunkSize if 0).
	ChunkSize int

	// SkipMissingReference records and skips missing-reference failures
	// instead of aborting the run.
	SkipMissingReference bool

	// CompanyRollup controls whether stage 2 also writes the month-keyed
	// company summary.
	CompanyRollup bool

	// Clock supplies "now" for default target resolution.
	Clock func() time.Time

	locks *batch.KeyedLock
}

// NewPipeline returns a pipeline with the default abort-on-error policy and
// company roll-up enabled.
func NewPipeline(store TxStore) *Pipeline {
	return &Pipeline{
		Store:         store,
		CompanyRollup: true,
		Clock:         time.Now,
		locks:         batch.NewKeyedLock(),
	}
}

// RunReport is the structured outcome of one pipeline run.
type RunReport struct {
	RunID       string
	TargetDate  time.Time
	TargetMonth Month

	Cost    *batch.Report
	Summary *batch.Report
}

// Run executes both stages for the month containing target. A nil target
// resolves to yesterday. Returns ErrRunInProgress when a run for the same
// month is already executing.
func (p *Pipeline) Run(ctx context.Context, target *time.Time) (*RunReport, error) {
	date := p.resolveTarget(target)
	month := MonthOf(date)

	if !p.locks.TryAcquire(month.Token()) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, month)
	}
	defer p.locks.Release(month.Token())

	run := BatchRun{
		ID:          uuid.NewString(),
		TargetDate:  date,
		TargetMonth: month,
		Status:      RunRunning,
		StartedAt:   p.Clock(),
	}
	if err := p.Store.SaveBatchRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run record: %w", err)
	}

	report := &RunReport{RunID: run.ID, TargetDate: date, TargetMonth: month}
	log.Printf("[Pipeline] Run %s started: target=%s month=%s", run.ID, date.Format("2006-01-02"), month)

	costReport, err := p.runCostStage(ctx, date, month)
	report.Cost = costReport
	p.recordCostStage(&run, costReport)
	if err != nil {
		return report, p.failRun(run, fmt.Errorf("cost stage: %w", err))
	}

	summaryReport, err := p.runSummaryStage(ctx, month)
	report.Summary = summaryReport
	p.recordSummaryStage(&run, summaryReport)
	if err != nil {
		return report, p.failRun(run, fmt.Errorf("summary stage: %w", err))
	}

	completed := p.Clock()
	run.Status = RunCompleted
	run.CompletedAt = &completed
	if err := p.Store.SaveBatchRun(ctx, run); err != nil {
		return report, fmt.Errorf("save run record: %w", err)
	}

	log.Printf("[Pipeline] Run %s completed: employees=%d/%d projects=%d/%d",
		run.ID, run.EmployeesProcessed-run.EmployeesFailed, run.EmployeesProcessed,
		run.ProjectsProcessed-run.ProjectsFailed, run.ProjectsProcessed)
	return report, nil
}

// resolveTarget applies the prior-calendar-day default.
func (p *Pipeline) resolveTarget(target *time.Time) time.Time {
	if target != nil {
		return normalizeDate(*target)
	}
	return normalizeDate(p.Clock().AddDate(0, 0, -1))
}

// =============================================================================
// STAGE 1 - COST
// =============================================================================

func (p *Pipeline) runCostStage(ctx context.Context, date time.Time, month Month) (*batch.Report, error) {
	src := func(ctx context.Context, page batch.Page) ([]Employee, error) {
		return p.Store.ActiveEmployees(ctx, page)
	}

	process := func(ctx context.Context, chunk []Employee) ([]batch.Result, error) {
		results := make([]batch.Result, 0, len(chunk))
		err := p.Store.WithTx(ctx, func(s Store) error {
			calc := NewCostCalculator(s)
			for _, emp := range chunk {
				if _, err := calc.PriceEmployee(ctx, emp, date); err != nil {
					if p.SkipMissingReference && IsMissingReference(err) {
						log.Printf("[Pipeline] Skipping employee %s for %s: %v", emp.ID, month, err)
						results = append(results, batch.Result{Key: string(emp.ID), Err: err})
						continue
					}
					return fmt.Errorf("employee %s: %w", emp.ID, err)
				}
				results = append(results, batch.Result{Key: string(emp.ID)})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return results, nil
	}

	return batch.Run(ctx, batch.Config{ChunkSize: p.ChunkSize}, src, process)
}

// =============================================================================
// STAGE 2 - SUMMARY
// =============================================================================

func (p *Pipeline) runSummaryStage(ctx context.Context, month Month) (*batch.Report, error) {
	src := func(ctx context.Context, page batch.Page) ([]Project, error) {
		return p.Store.ActiveProjects(ctx, month.Period(), page)
	}

	process := func(ctx context.Context, chunk []Project) ([]batch.Result, error) {
		results := make([]batch.Result, 0, len(chunk))
		err := p.Store.WithTx(ctx, func(s Store) error {
			calc := NewSummaryCalculator(s)
			for _, project := range chunk {
				if _, err := calc.SummarizeProject(ctx, project, month); err != nil {
					if p.SkipMissingReference && IsMissingReference(err) {
						log.Printf("[Pipeline] Skipping project %s for %s: %v", project.ID, month, err)
						results = append(results, batch.Result{Key: string(project.ID), Err: err})
						continue
					}
					return fmt.Errorf("project %s: %w", project.ID, err)
				}
				results = append(results, batch.Result{Key: string(project.ID)})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return results, nil
	}

	report, err := batch.Run(ctx, batch.Config{ChunkSize: p.ChunkSize}, src, process)
	if err != nil {
		return report, err
	}

	if p.CompanyRollup {
		err = p.Store.WithTx(ctx, func(s Store) error {
			_, err := NewSummaryCalculator(s).SummarizeCompany(ctx, month)
			return err
		})
		if err != nil {
			return report, fmt.Errorf("company rollup: %w", err)
		}
	}
	return report, nil
}

// =============================================================================
// RUN BOOKKEEPING
// =============================================================================

func (p *Pipeline) recordCostStage(run *BatchRun, report *batch.Report) {
	if report == nil {
		return
	}
	run.EmployeesProcessed = report.Processed
	run.EmployeesFailed = report.Failed
}

func (p *Pipeline) recordSummaryStage(run *BatchRun, report *batch.Report) {
	if report == nil {
		return
	}
	run.ProjectsProcessed = report.Processed
	run.ProjectsFailed = report.Failed
}

// failRun marks the run record failed and returns err. The save runs on a
// fresh short-lived context: the run's own context may already be cancelled,
// and the terminal status still has to land or the row stays running. The row
// is best-effort bookkeeping; a secondary save failure is logged, not raised
// over the original error.
func (p *Pipeline) failRun(run BatchRun, err error) error {
	completed := p.Clock()
	run.Status = RunFailed
	run.Error = err.Error()
	run.CompletedAt = &completed

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if saveErr := p.Store.SaveBatchRun(saveCtx, run); saveErr != nil {
		log.Printf("[Pipeline] Failed to save failed run %s: %v", run.ID, saveErr)
	}
	log.Printf("[Pipeline] Run %s failed: %v", run.ID, err)
	return err
}
