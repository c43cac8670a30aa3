/*
store.go - Collaborator interfaces between the pipeline and persistence

PURPOSE:
  The pipeline owns the computation; these interfaces own the rows. Entity
  persistence mechanics (SQL, caching, CRUD services) live behind them.

STABLE ORDERING CONTRACT:
  Every paged method MUST return records in a stable total order (by ID).
  The batch runner walks pages by offset; an unstable order can skip or
  double-process records if the dataset shifts mid-run. This is a correctness
  requirement on implementations, regardless of storage engine.

UPSERT CONTRACT:
  SaveMonthlyCost, SaveProjectSummary and SaveCompanySummary replace any
  existing row under the same key. Re-running a month must converge, never
  duplicate.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - finance/store (memory): In-memory store for tests and dev

SEE ALSO:
  - pipeline.go: The only writer of cost and summary rows
*/
package finance

import (
	"context"
	"time"

	"github.com/warp/costing-engine/batch"
)

// =============================================================================
// READ SIDE - Reference data, read-only to the pipeline
// =============================================================================

// EmployeeDirectory exposes active employees and their effective salaries.
type EmployeeDirectory interface {
	// ActiveEmployees returns one stable-ordered page of employees in
	// StatusActive.
	ActiveEmployees(ctx context.Context, page batch.Page) ([]Employee, error)

	// CurrentSalary returns the annual salary effective at asOf
	// (latest EffectiveFrom <= asOf). Returns ErrSalaryNotFound when the
	// employee has no effective payroll row.
	CurrentSalary(ctx context.Context, id EmployeeID, asOf time.Time) (Money, error)
}

// PolicyStore looks up cost policies. Pure lookup, no defaulting: a miss is
// ErrCostPolicyNotFound.
type PolicyStore interface {
	CostPolicy(ctx context.Context, applyYear int, employeeType EmployeeType) (CostPolicy, error)
}

// ProjectStore exposes projects and assignments overlapping a period.
type ProjectStore interface {
	// ActiveProjects returns one stable-ordered page of active projects
	// whose period overlaps p.
	ActiveProjects(ctx context.Context, p Period, page batch.Page) ([]Project, error)

	// OverlappingAssignments returns all assignments of a project whose
	// period overlaps p.
	OverlappingAssignments(ctx context.Context, id ProjectID, p Period) ([]ProjectAssignment, error)
}

// RevenueStore persists revenue plans and answers the issued-revenue query.
type RevenueStore interface {
	// CreateRevenuePlan rejects a duplicate (projectID, sequence) with
	// ErrDuplicateSequence.
	CreateRevenuePlan(ctx context.Context, plan ProjectRevenuePlan) error

	// SetRevenuePlanIssued toggles the issued flag, the only state
	// transition on a plan. Returns ErrRevenuePlanNotFound for unknown keys.
	SetRevenuePlanIssued(ctx context.Context, id ProjectID, sequence int, issued bool) error

	// IssuedRevenuePlans returns issued entries with RevenueDate inside p,
	// optionally filtered to one project (nil = all projects).
	IssuedRevenuePlans(ctx context.Context, projectID *ProjectID, p Period) ([]ProjectRevenuePlan, error)
}

// =============================================================================
// WRITE SIDE - The pipeline's two output tables plus run bookkeeping
// =============================================================================

// CostStore persists the cost stage output.
type CostStore interface {
	// MonthlyCost returns the existing row for (id, m), or nil when absent.
	// Absence is not an error here; the summary stage decides whether it is.
	MonthlyCost(ctx context.Context, id EmployeeID, m Month) (*EmployeeMonthlyCost, error)

	// SaveMonthlyCost upserts by (EmployeeID, CostMonth).
	SaveMonthlyCost(ctx context.Context, rec EmployeeMonthlyCost) error
}

// SummaryStore persists the summary stage output. Project and company rows
// have different key shapes and must not share a table.
type SummaryStore interface {
	SaveProjectSummary(ctx context.Context, s ProjectSummary) error
	SaveCompanySummary(ctx context.Context, s CompanySummary) error

	// ProjectSummaries returns all stored project rows for m. The company
	// roll-up sums these instead of recomputing assignment cost.
	ProjectSummaries(ctx context.Context, m Month) ([]ProjectSummary, error)
}

// RunStore persists batch run bookkeeping.
type RunStore interface {
	// SaveBatchRun upserts by run ID.
	SaveBatchRun(ctx context.Context, run BatchRun) error

	// CompletedRunExists reports whether a completed run already covers
	// targetDate. Used by the scheduler to make the nightly trigger
	// idempotent.
	CompletedRunExists(ctx context.Context, targetDate time.Time) (bool, error)
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store is everything the pipeline needs from persistence.
type Store interface {
	EmployeeDirectory
	PolicyStore
	ProjectStore
	RevenueStore
	CostStore
	SummaryStore
	RunStore
}

// TxStore adds chunk-level atomicity. Writes performed through the Store
// passed to fn become visible only when fn returns nil; an error rolls the
// whole chunk back. An aborted run therefore leaves only fully committed
// chunks visible.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
