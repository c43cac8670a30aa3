/*
Package sqlite provides the SQLite-backed implementation of the finance
storage interfaces.

PURPOSE:
  Implements finance.TxStore (reference data reads, idempotent cost/summary
  upserts, chunk transactions, run bookkeeping) plus the admin CRUD the API
  surface needs. In production the same patterns apply to PostgreSQL - only
  minor dialect differences.

KEY TABLES:
  employees              Reference data, status gates cost-stage eligibility
  salaries               Annual salary rows, effective-from dated
  cost_policies          (apply_year, employee_type) -> overhead/SGA rates
  employee_monthly_costs Cost stage output, keyed (employee_id, cost_month)
  projects, assignments  Project durations and employee assignments
  revenue_plans          Billing entries, keyed (project_id, sequence)
  project_summaries      Summary stage output, keyed (project_id, target_month)
  company_summaries      Month-keyed roll-up (separate key shape on purpose)
  batch_runs             One row per pipeline run

IDEMPOTENT KEYS:
  Every pipeline output table carries a primary key on its upsert key and is
  written with INSERT ... ON CONFLICT DO UPDATE. Re-running a month replaces
  rows in place; it can never duplicate them. The revenue_plans key is the
  enforcement point for duplicate-sequence rejection.

STABLE PAGING:
  Every paged query carries an explicit ORDER BY id. The batch runner's
  offset paging is only correct over a stable total order.

DECIMALS:
  Money and rates are stored as TEXT decimal strings, never floats.

WAL MODE:
  Opened with WAL so the API's reads do not block the pipeline's chunk
  commits.

SEE ALSO:
  - finance/store.go: Interface contracts
  - finance/store/memory.go: In-memory twin for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/batch"
	"github.com/warp/costing-engine/finance"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

// queryable is satisfied by both *sql.DB and *sql.Tx, so every query method
// works unchanged inside a chunk transaction.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements finance.TxStore using SQLite.
type Store struct {
	db *sql.DB
	q  queryable
}

var _ finance.TxStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, q: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		employee_type TEXT NOT NULL,
		status TEXT NOT NULL,
		hired_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_status ON employees(status, id);

	CREATE TABLE IF NOT EXISTS salaries (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		annual_amount TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		PRIMARY KEY (employee_id, effective_from)
	);

	CREATE TABLE IF NOT EXISTS cost_policies (
		apply_year INTEGER NOT NULL,
		employee_type TEXT NOT NULL,
		overhead_rate TEXT NOT NULL,
		sga_rate TEXT NOT NULL,
		PRIMARY KEY (apply_year, employee_type)
	);

	-- Cost stage output. The key makes re-runs replace, not duplicate.
	CREATE TABLE IF NOT EXISTS employee_monthly_costs (
		employee_id TEXT NOT NULL,
		cost_month TEXT NOT NULL,
		monthly_salary TEXT NOT NULL,
		overhead_cost TEXT NOT NULL,
		sga_cost TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		PRIMARY KEY (employee_id, cost_month)
	);

	CREATE INDEX IF NOT EXISTS idx_monthly_costs_month
		ON employee_monthly_costs(cost_month);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_period
		ON projects(status, start_date, end_date);

	CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		project_id TEXT NOT NULL REFERENCES projects(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_project
		ON assignments(project_id, start_date, end_date);

	-- Billing entries. The composite key rejects duplicate sequences.
	CREATE TABLE IF NOT EXISTS revenue_plans (
		project_id TEXT NOT NULL REFERENCES projects(id),
		sequence INTEGER NOT NULL,
		revenue_date TEXT NOT NULL,
		plan_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		issued INTEGER NOT NULL DEFAULT 0,
		memo TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (project_id, sequence)
	);

	CREATE INDEX IF NOT EXISTS idx_revenue_plans_issued_date
		ON revenue_plans(issued, revenue_date);

	-- Summary stage output. Project and company rows keep separate key
	-- shapes; they never share a table.
	CREATE TABLE IF NOT EXISTS project_summaries (
		project_id TEXT NOT NULL,
		target_month TEXT NOT NULL,
		revenue TEXT NOT NULL,
		cost TEXT NOT NULL,
		profit TEXT NOT NULL,
		PRIMARY KEY (project_id, target_month)
	);

	CREATE TABLE IF NOT EXISTS company_summaries (
		target_month TEXT PRIMARY KEY,
		revenue TEXT NOT NULL,
		cost TEXT NOT NULL,
		profit TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		target_date TEXT NOT NULL,
		target_month TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		employees_processed INTEGER NOT NULL DEFAULT 0,
		employees_failed INTEGER NOT NULL DEFAULT 0,
		projects_processed INTEGER NOT NULL DEFAULT 0,
		projects_failed INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_batch_runs_target
		ON batch_runs(target_date, status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a transaction-bound view of the store. Used by the
// pipeline to commit each chunk as one atomic unit.
func (s *Store) WithTx(ctx context.Context, fn func(finance.Store) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		// Already inside a transaction; join it.
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	view := &Store{db: s.db, q: tx}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, emp finance.Employee) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO employees (id, name, employee_type, status, hired_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			employee_type = excluded.employee_type,
			status = excluded.status,
			hired_at = excluded.hired_at`,
		string(emp.ID), emp.Name, string(emp.Type), string(emp.Status),
		emp.HiredAt.Format(dateLayout))
	return err
}

func (s *Store) ActiveEmployees(ctx context.Context, page batch.Page) ([]finance.Employee, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, employee_type, status, hired_at
		FROM employees
		WHERE status = ?
		ORDER BY id
		LIMIT ? OFFSET ?`,
		string(finance.StatusActive), page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmployees(rows)
}

// ListEmployees returns all employees regardless of status (admin surface).
func (s *Store) ListEmployees(ctx context.Context) ([]finance.Employee, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, employee_type, status, hired_at
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEmployees(rows)
}

func scanEmployees(rows *sql.Rows) ([]finance.Employee, error) {
	var out []finance.Employee
	for rows.Next() {
		var emp finance.Employee
		var id, empType, status, hiredAt string
		if err := rows.Scan(&id, &emp.Name, &empType, &status, &hiredAt); err != nil {
			return nil, err
		}
		hired, err := time.ParseInLocation(dateLayout, hiredAt, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("employee %s: bad hired_at: %w", id, err)
		}
		emp.ID = finance.EmployeeID(id)
		emp.Type = finance.EmployeeType(empType)
		emp.Status = finance.EmployeeStatus(status)
		emp.HiredAt = hired
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) SaveSalary(ctx context.Context, salary finance.Salary) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO salaries (employee_id, annual_amount, effective_from)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id, effective_from) DO UPDATE SET
			annual_amount = excluded.annual_amount`,
		string(salary.EmployeeID), salary.Annual.String(),
		salary.EffectiveFrom.Format(dateLayout))
	return err
}

func (s *Store) CurrentSalary(ctx context.Context, id finance.EmployeeID, asOf time.Time) (finance.Money, error) {
	var amount string
	err := s.q.QueryRowContext(ctx, `
		SELECT annual_amount FROM salaries
		WHERE employee_id = ? AND effective_from <= ?
		ORDER BY effective_from DESC
		LIMIT 1`,
		string(id), asOf.Format(dateLayout)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.ZeroMoney(), finance.ErrSalaryNotFound
	}
	if err != nil {
		return finance.ZeroMoney(), err
	}
	return finance.ParseMoney(amount)
}

// =============================================================================
// COST POLICIES
// =============================================================================

func (s *Store) SaveCostPolicy(ctx context.Context, policy finance.CostPolicy) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cost_policies (apply_year, employee_type, overhead_rate, sga_rate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(apply_year, employee_type) DO UPDATE SET
			overhead_rate = excluded.overhead_rate,
			sga_rate = excluded.sga_rate`,
		policy.ApplyYear, string(policy.EmployeeType),
		policy.OverheadRate.String(), policy.SGARate.String())
	return err
}

func (s *Store) CostPolicy(ctx context.Context, applyYear int, employeeType finance.EmployeeType) (finance.CostPolicy, error) {
	var overhead, sga string
	err := s.q.QueryRowContext(ctx, `
		SELECT overhead_rate, sga_rate FROM cost_policies
		WHERE apply_year = ? AND employee_type = ?`,
		applyYear, string(employeeType)).Scan(&overhead, &sga)
	if errors.Is(err, sql.ErrNoRows) {
		return finance.CostPolicy{}, finance.ErrCostPolicyNotFound
	}
	if err != nil {
		return finance.CostPolicy{}, err
	}

	overheadRate, err := decimal.NewFromString(overhead)
	if err != nil {
		return finance.CostPolicy{}, fmt.Errorf("bad overhead rate %q: %w", overhead, err)
	}
	sgaRate, err := decimal.NewFromString(sga)
	if err != nil {
		return finance.CostPolicy{}, fmt.Errorf("bad sga rate %q: %w", sga, err)
	}

	return finance.CostPolicy{
		ApplyYear:    applyYear,
		EmployeeType: employeeType,
		OverheadRate: overheadRate,
		SGARate:      sgaRate,
	}, nil
}

// ListCostPolicies returns all policies (admin surface).
func (s *Store) ListCostPolicies(ctx context.Context) ([]finance.CostPolicy, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT apply_year, employee_type, overhead_rate, sga_rate
		FROM cost_policies ORDER BY apply_year, employee_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.CostPolicy
	for rows.Next() {
		var policy finance.CostPolicy
		var empType, overhead, sga string
		if err := rows.Scan(&policy.ApplyYear, &empType, &overhead, &sga); err != nil {
			return nil, err
		}
		policy.EmployeeType = finance.EmployeeType(empType)
		if policy.OverheadRate, err = decimal.NewFromString(overhead); err != nil {
			return nil, err
		}
		if policy.SGARate, err = decimal.NewFromString(sga); err != nil {
			return nil, err
		}
		out = append(out, policy)
	}
	return out, rows.Err()
}

// =============================================================================
// MONTHLY COSTS
// =============================================================================

func (s *Store) MonthlyCost(ctx context.Context, id finance.EmployeeID, month finance.Month) (*finance.EmployeeMonthlyCost, error) {
	var monthly, overhead, sga, total string
	err := s.q.QueryRowContext(ctx, `
		SELECT monthly_salary, overhead_cost, sga_cost, total_cost
		FROM employee_monthly_costs
		WHERE employee_id = ? AND cost_month = ?`,
		string(id), month.Token()).Scan(&monthly, &overhead, &sga, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return buildCostRecord(id, month, monthly, overhead, sga, total)
}

func (s *Store) SaveMonthlyCost(ctx context.Context, rec finance.EmployeeMonthlyCost) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO employee_monthly_costs
			(employee_id, cost_month, monthly_salary, overhead_cost, sga_cost, total_cost)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, cost_month) DO UPDATE SET
			monthly_salary = excluded.monthly_salary,
			overhead_cost = excluded.overhead_cost,
			sga_cost = excluded.sga_cost,
			total_cost = excluded.total_cost`,
		string(rec.EmployeeID), rec.CostMonth.Token(),
		rec.MonthlySalary.String(), rec.OverheadCost.String(),
		rec.SGACost.String(), rec.TotalCost.String())
	return err
}

// MonthlyCosts lists all cost rows for a month (read surface).
func (s *Store) MonthlyCosts(ctx context.Context, month finance.Month) ([]finance.EmployeeMonthlyCost, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT employee_id, monthly_salary, overhead_cost, sga_cost, total_cost
		FROM employee_monthly_costs
		WHERE cost_month = ?
		ORDER BY employee_id`, month.Token())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.EmployeeMonthlyCost
	for rows.Next() {
		var id, monthly, overhead, sga, total string
		if err := rows.Scan(&id, &monthly, &overhead, &sga, &total); err != nil {
			return nil, err
		}
		rec, err := buildCostRecord(finance.EmployeeID(id), month, monthly, overhead, sga, total)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func buildCostRecord(id finance.EmployeeID, month finance.Month, monthly, overhead, sga, total string) (*finance.EmployeeMonthlyCost, error) {
	rec := finance.EmployeeMonthlyCost{EmployeeID: id, CostMonth: month}
	var err error
	if rec.MonthlySalary, err = finance.ParseMoney(monthly); err != nil {
		return nil, err
	}
	if rec.OverheadCost, err = finance.ParseMoney(overhead); err != nil {
		return nil, err
	}
	if rec.SGACost, err = finance.ParseMoney(sga); err != nil {
		return nil, err
	}
	if rec.TotalCost, err = finance.ParseMoney(total); err != nil {
		return nil, err
	}
	return &rec, nil
}

// =============================================================================
// PROJECTS AND ASSIGNMENTS
// =============================================================================

func (s *Store) SaveProject(ctx context.Context, project finance.Project) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO projects (id, name, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			status = excluded.status`,
		string(project.ID), project.Name,
		project.Period.Start.Format(dateLayout), project.Period.End.Format(dateLayout),
		string(project.Status))
	return err
}

func (s *Store) ActiveProjects(ctx context.Context, p finance.Period, page batch.Page) ([]finance.Project, error) {
	// Inclusive overlap: start <= p.End AND end >= p.Start.
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, status
		FROM projects
		WHERE status = ? AND start_date <= ? AND end_date >= ?
		ORDER BY id
		LIMIT ? OFFSET ?`,
		string(finance.ProjectActive),
		p.End.Format(dateLayout), p.Start.Format(dateLayout),
		page.Size, page.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

// ListProjects returns all projects (admin surface).
func (s *Store) ListProjects(ctx context.Context) ([]finance.Project, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, status
		FROM projects ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows *sql.Rows) ([]finance.Project, error) {
	var out []finance.Project
	for rows.Next() {
		var id, name, start, end, status string
		if err := rows.Scan(&id, &name, &start, &end, &status); err != nil {
			return nil, err
		}
		period, err := parsePeriod(start, end)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", id, err)
		}
		out = append(out, finance.Project{
			ID:     finance.ProjectID(id),
			Name:   name,
			Period: period,
			Status: finance.ProjectStatus(status),
		})
	}
	return out, rows.Err()
}

func (s *Store) SaveAssignment(ctx context.Context, a finance.ProjectAssignment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO assignments (id, employee_id, project_id, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			employee_id = excluded.employee_id,
			project_id = excluded.project_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date`,
		a.ID, string(a.EmployeeID), string(a.ProjectID),
		a.Period.Start.Format(dateLayout), a.Period.End.Format(dateLayout))
	return err
}

func (s *Store) OverlappingAssignments(ctx context.Context, id finance.ProjectID, p finance.Period) ([]finance.ProjectAssignment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, employee_id, project_id, start_date, end_date
		FROM assignments
		WHERE project_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY id`,
		string(id), p.End.Format(dateLayout), p.Start.Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.ProjectAssignment
	for rows.Next() {
		var aid, empID, projID, start, end string
		if err := rows.Scan(&aid, &empID, &projID, &start, &end); err != nil {
			return nil, err
		}
		period, err := parsePeriod(start, end)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", aid, err)
		}
		out = append(out, finance.ProjectAssignment{
			ID:         aid,
			EmployeeID: finance.EmployeeID(empID),
			ProjectID:  finance.ProjectID(projID),
			Period:     period,
		})
	}
	return out, rows.Err()
}

// =============================================================================
// REVENUE PLANS
// =============================================================================

func (s *Store) CreateRevenuePlan(ctx context.Context, plan finance.ProjectRevenuePlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO revenue_plans (project_id, sequence, revenue_date, plan_type, amount, issued, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(plan.ProjectID), plan.Sequence,
		plan.RevenueDate.Format(dateLayout), string(plan.Type),
		plan.Amount.String(), boolToInt(plan.Issued), plan.Memo)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return finance.ErrDuplicateSequence
		}
		return err
	}
	return nil
}

func (s *Store) SetRevenuePlanIssued(ctx context.Context, id finance.ProjectID, sequence int, issued bool) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE revenue_plans SET issued = ?
		WHERE project_id = ? AND sequence = ?`,
		boolToInt(issued), string(id), sequence)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return finance.ErrRevenuePlanNotFound
	}
	return nil
}

func (s *Store) IssuedRevenuePlans(ctx context.Context, projectID *finance.ProjectID, p finance.Period) ([]finance.ProjectRevenuePlan, error) {
	query := `
		SELECT project_id, sequence, revenue_date, plan_type, amount, issued, memo
		FROM revenue_plans
		WHERE issued = 1 AND revenue_date >= ? AND revenue_date <= ?`
	args := []any{p.Start.Format(dateLayout), p.End.Format(dateLayout)}
	if projectID != nil {
		query += ` AND project_id = ?`
		args = append(args, string(*projectID))
	}
	query += ` ORDER BY project_id, sequence`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRevenuePlans(rows)
}

// ListRevenuePlans returns every plan of a project, issued or not (admin
// surface).
func (s *Store) ListRevenuePlans(ctx context.Context, id finance.ProjectID) ([]finance.ProjectRevenuePlan, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT project_id, sequence, revenue_date, plan_type, amount, issued, memo
		FROM revenue_plans
		WHERE project_id = ?
		ORDER BY sequence`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRevenuePlans(rows)
}

func scanRevenuePlans(rows *sql.Rows) ([]finance.ProjectRevenuePlan, error) {
	var out []finance.ProjectRevenuePlan
	for rows.Next() {
		var projID, date, planType, amount, memo string
		var seq, issued int
		if err := rows.Scan(&projID, &seq, &date, &planType, &amount, &issued, &memo); err != nil {
			return nil, err
		}
		revenueDate, err := time.ParseInLocation(dateLayout, date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("plan %s/%d: bad revenue_date: %w", projID, seq, err)
		}
		money, err := finance.ParseMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("plan %s/%d: %w", projID, seq, err)
		}
		out = append(out, finance.ProjectRevenuePlan{
			ProjectID:   finance.ProjectID(projID),
			Sequence:    seq,
			RevenueDate: revenueDate,
			Type:        finance.RevenueType(planType),
			Amount:      money,
			Issued:      issued != 0,
			Memo:        memo,
		})
	}
	return out, rows.Err()
}

// =============================================================================
// SUMMARIES
// =============================================================================

func (s *Store) SaveProjectSummary(ctx context.Context, sum finance.ProjectSummary) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO project_summaries (project_id, target_month, revenue, cost, profit)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, target_month) DO UPDATE SET
			revenue = excluded.revenue,
			cost = excluded.cost,
			profit = excluded.profit`,
		string(sum.ProjectID), sum.TargetMonth.Token(),
		sum.Revenue.String(), sum.Cost.String(), sum.Profit.String())
	return err
}

func (s *Store) SaveCompanySummary(ctx context.Context, sum finance.CompanySummary) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO company_summaries (target_month, revenue, cost, profit)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(target_month) DO UPDATE SET
			revenue = excluded.revenue,
			cost = excluded.cost,
			profit = excluded.profit`,
		sum.TargetMonth.Token(),
		sum.Revenue.String(), sum.Cost.String(), sum.Profit.String())
	return err
}

// ProjectSummaries lists all project rows for a month (read surface).
func (s *Store) ProjectSummaries(ctx context.Context, month finance.Month) ([]finance.ProjectSummary, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT project_id, revenue, cost, profit
		FROM project_summaries
		WHERE target_month = ?
		ORDER BY project_id`, month.Token())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.ProjectSummary
	for rows.Next() {
		var id, revenue, cost, profit string
		if err := rows.Scan(&id, &revenue, &cost, &profit); err != nil {
			return nil, err
		}
		sum := finance.ProjectSummary{ProjectID: finance.ProjectID(id), TargetMonth: month}
		if sum.Revenue, err = finance.ParseMoney(revenue); err != nil {
			return nil, err
		}
		if sum.Cost, err = finance.ParseMoney(cost); err != nil {
			return nil, err
		}
		if sum.Profit, err = finance.ParseMoney(profit); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// CompanySummaryFor returns the month roll-up, or nil when the month has not
// been processed.
func (s *Store) CompanySummaryFor(ctx context.Context, month finance.Month) (*finance.CompanySummary, error) {
	var revenue, cost, profit string
	err := s.q.QueryRowContext(ctx, `
		SELECT revenue, cost, profit FROM company_summaries
		WHERE target_month = ?`, month.Token()).Scan(&revenue, &cost, &profit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sum := finance.CompanySummary{TargetMonth: month}
	if sum.Revenue, err = finance.ParseMoney(revenue); err != nil {
		return nil, err
	}
	if sum.Cost, err = finance.ParseMoney(cost); err != nil {
		return nil, err
	}
	if sum.Profit, err = finance.ParseMoney(profit); err != nil {
		return nil, err
	}
	return &sum, nil
}

// =============================================================================
// BATCH RUNS
// =============================================================================

func (s *Store) SaveBatchRun(ctx context.Context, run finance.BatchRun) error {
	var completedAt any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Format(timeLayout)
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO batch_runs
			(id, target_date, target_month, status, error,
			 employees_processed, employees_failed, projects_processed, projects_failed,
			 started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			employees_processed = excluded.employees_processed,
			employees_failed = excluded.employees_failed,
			projects_processed = excluded.projects_processed,
			projects_failed = excluded.projects_failed,
			completed_at = excluded.completed_at`,
		run.ID, run.TargetDate.Format(dateLayout), run.TargetMonth.Token(),
		string(run.Status), run.Error,
		run.EmployeesProcessed, run.EmployeesFailed,
		run.ProjectsProcessed, run.ProjectsFailed,
		run.StartedAt.Format(timeLayout), completedAt)
	return err
}

func (s *Store) CompletedRunExists(ctx context.Context, targetDate time.Time) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM batch_runs
		WHERE target_date = ? AND status = ?`,
		targetDate.Format(dateLayout), string(finance.RunCompleted)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListBatchRuns returns the most recent runs, newest first.
func (s *Store) ListBatchRuns(ctx context.Context, limit int) ([]finance.BatchRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, target_date, target_month, status, error,
		       employees_processed, employees_failed, projects_processed, projects_failed,
		       started_at, completed_at
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.BatchRun
	for rows.Next() {
		var run finance.BatchRun
		var targetDate, targetMonth, status, startedAt string
		var completedAt sql.NullString
		if err := rows.Scan(&run.ID, &targetDate, &targetMonth, &status, &run.Error,
			&run.EmployeesProcessed, &run.EmployeesFailed,
			&run.ProjectsProcessed, &run.ProjectsFailed,
			&startedAt, &completedAt); err != nil {
			return nil, err
		}
		if run.TargetDate, err = time.ParseInLocation(dateLayout, targetDate, time.UTC); err != nil {
			return nil, fmt.Errorf("run %s: bad target_date: %w", run.ID, err)
		}
		if run.TargetMonth, err = finance.ParseMonth(targetMonth); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", run.ID, err)
		}
		if completedAt.Valid {
			t, err := time.Parse(timeLayout, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad completed_at: %w", run.ID, err)
			}
			run.CompletedAt = &t
		}
		run.Status = finance.RunStatus(status)
		out = append(out, run)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePeriod(start, end string) (finance.Period, error) {
	s, err := time.ParseInLocation(dateLayout, start, time.UTC)
	if err != nil {
		return finance.Period{}, fmt.Errorf("bad start_date: %w", err)
	}
	e, err := time.ParseInLocation(dateLayout, end, time.UTC)
	if err != nil {
		return finance.Period{}, fmt.Errorf("bad end_date: %w", err)
	}
	return finance.NewPeriod(s, e)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
