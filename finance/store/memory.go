// Package store provides an in-memory implementation of the finance storage
// interfaces, used by tests and dev setups.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/costing-engine/batch"
	"github.com/warp/costing-engine/finance"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type policyKey struct {
	Year int
	Type finance.EmployeeType
}

type costKey struct {
	Employee finance.EmployeeID
	Month    string
}

type summaryKey struct {
	Project finance.ProjectID
	Month   string
}

type planKey struct {
	Project  finance.ProjectID
	Sequence int
}

// Memory implements finance.TxStore with plain maps.
//
// WithTx simulates chunk atomicity with a snapshot + rollback, which assumes
// the single sequential writer the pipeline actually is. Concurrent readers
// are safe; concurrent writers are not a supported mode here.
type Memory struct {
	mu sync.RWMutex

	employees   map[finance.EmployeeID]finance.Employee
	salaries    map[finance.EmployeeID][]finance.Salary // sorted by EffectiveFrom
	policies    map[policyKey]finance.CostPolicy
	costs       map[costKey]finance.EmployeeMonthlyCost
	projects    map[finance.ProjectID]finance.Project
	assignments map[finance.ProjectID][]finance.ProjectAssignment
	plans       map[planKey]finance.ProjectRevenuePlan
	projectSums map[summaryKey]finance.ProjectSummary
	companySums map[string]finance.CompanySummary
	runs        map[string]finance.BatchRun
}

var _ finance.TxStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		employees:   make(map[finance.EmployeeID]finance.Employee),
		salaries:    make(map[finance.EmployeeID][]finance.Salary),
		policies:    make(map[policyKey]finance.CostPolicy),
		costs:       make(map[costKey]finance.EmployeeMonthlyCost),
		projects:    make(map[finance.ProjectID]finance.Project),
		assignments: make(map[finance.ProjectID][]finance.ProjectAssignment),
		plans:       make(map[planKey]finance.ProjectRevenuePlan),
		projectSums: make(map[summaryKey]finance.ProjectSummary),
		companySums: make(map[string]finance.CompanySummary),
		runs:        make(map[string]finance.BatchRun),
	}
}

// =============================================================================
// REFERENCE DATA SETUP
// =============================================================================

func (m *Memory) AddEmployee(emp finance.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[emp.ID] = emp
}

func (m *Memory) AddSalary(s finance.Salary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := append(m.salaries[s.EmployeeID], s)
	sort.Slice(rows, func(i, j int) bool { return rows[i].EffectiveFrom.Before(rows[j].EffectiveFrom) })
	m.salaries[s.EmployeeID] = rows
}

func (m *Memory) AddCostPolicy(p finance.CostPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[policyKey{Year: p.ApplyYear, Type: p.EmployeeType}] = p
}

func (m *Memory) AddProject(p finance.Project) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
}

func (m *Memory) AddAssignment(a finance.ProjectAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[a.ProjectID] = append(m.assignments[a.ProjectID], a)
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (m *Memory) ActiveEmployees(_ context.Context, page batch.Page) ([]finance.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []finance.Employee
	for _, emp := range m.employees {
		if emp.Status == finance.StatusActive {
			active = append(active, emp)
		}
	}
	// Stable order by ID: the paging contract.
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return slicePage(active, page), nil
}

func (m *Memory) CurrentSalary(_ context.Context, id finance.EmployeeID, asOf time.Time) (finance.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := m.salaries[id]
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].EffectiveFrom.After(asOf) {
			return rows[i].Annual, nil
		}
	}
	return finance.ZeroMoney(), finance.ErrSalaryNotFound
}

// =============================================================================
// POLICY STORE
// =============================================================================

func (m *Memory) CostPolicy(_ context.Context, applyYear int, employeeType finance.EmployeeType) (finance.CostPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	policy, ok := m.policies[policyKey{Year: applyYear, Type: employeeType}]
	if !ok {
		return finance.CostPolicy{}, finance.ErrCostPolicyNotFound
	}
	return policy, nil
}

// =============================================================================
// PROJECT STORE
// =============================================================================

func (m *Memory) ActiveProjects(_ context.Context, p finance.Period, page batch.Page) ([]finance.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var active []finance.Project
	for _, project := range m.projects {
		if project.Status == finance.ProjectActive && project.Period.Overlaps(p) {
			active = append(active, project)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return slicePage(active, page), nil
}

func (m *Memory) OverlappingAssignments(_ context.Context, id finance.ProjectID, p finance.Period) ([]finance.ProjectAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []finance.ProjectAssignment
	for _, a := range m.assignments[id] {
		if a.Period.Overlaps(p) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// REVENUE STORE
// =============================================================================

func (m *Memory) CreateRevenuePlan(_ context.Context, plan finance.ProjectRevenuePlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	k := planKey{Project: plan.ProjectID, Sequence: plan.Sequence}
	if _, exists := m.plans[k]; exists {
		return finance.ErrDuplicateSequence
	}
	m.plans[k] = plan
	return nil
}

func (m *Memory) SetRevenuePlanIssued(_ context.Context, id finance.ProjectID, sequence int, issued bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := planKey{Project: id, Sequence: sequence}
	plan, ok := m.plans[k]
	if !ok {
		return finance.ErrRevenuePlanNotFound
	}
	plan.Issued = issued
	m.plans[k] = plan
	return nil
}

func (m *Memory) IssuedRevenuePlans(_ context.Context, projectID *finance.ProjectID, p finance.Period) ([]finance.ProjectRevenuePlan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []finance.ProjectRevenuePlan
	for _, plan := range m.plans {
		if !plan.Issued {
			continue
		}
		if projectID != nil && plan.ProjectID != *projectID {
			continue
		}
		if !p.Contains(plan.RevenueDate) {
			continue
		}
		out = append(out, plan)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectID != out[j].ProjectID {
			return out[i].ProjectID < out[j].ProjectID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

// =============================================================================
// COST STORE
// =============================================================================

func (m *Memory) MonthlyCost(_ context.Context, id finance.EmployeeID, month finance.Month) (*finance.EmployeeMonthlyCost, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.costs[costKey{Employee: id, Month: month.Token()}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) SaveMonthlyCost(_ context.Context, rec finance.EmployeeMonthlyCost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costs[costKey{Employee: rec.EmployeeID, Month: rec.CostMonth.Token()}] = rec
	return nil
}

// =============================================================================
// SUMMARY STORE
// =============================================================================

func (m *Memory) SaveProjectSummary(_ context.Context, s finance.ProjectSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projectSums[summaryKey{Project: s.ProjectID, Month: s.TargetMonth.Token()}] = s
	return nil
}

func (m *Memory) SaveCompanySummary(_ context.Context, s finance.CompanySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companySums[s.TargetMonth.Token()] = s
	return nil
}

func (m *Memory) ProjectSummaries(_ context.Context, month finance.Month) ([]finance.ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []finance.ProjectSummary
	for k, s := range m.projectSums {
		if k.Month == month.Token() {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

// ProjectSummaryFor reads a stored summary back (tests, dev handlers).
func (m *Memory) ProjectSummaryFor(id finance.ProjectID, month finance.Month) (*finance.ProjectSummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.projectSums[summaryKey{Project: id, Month: month.Token()}]
	if !ok {
		return nil, false
	}
	return &s, true
}

// CompanySummaryFor reads the month roll-up back.
func (m *Memory) CompanySummaryFor(month finance.Month) (*finance.CompanySummary, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.companySums[month.Token()]
	if !ok {
		return nil, false
	}
	return &s, true
}

// =============================================================================
// RUN STORE
// =============================================================================

func (m *Memory) SaveBatchRun(_ context.Context, run finance.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *Memory) CompletedRunExists(_ context.Context, targetDate time.Time) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, run := range m.runs {
		if run.Status == finance.RunCompleted && run.TargetDate.Equal(targetDate) {
			return true, nil
		}
	}
	return false, nil
}

// Runs returns all run records (tests).
func (m *Memory) Runs() []finance.BatchRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]finance.BatchRun, 0, len(m.runs))
	for _, run := range m.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback
// =============================================================================

// WithTx runs fn against the store, restoring the pre-call state if fn
// returns an error. Mirrors the all-or-nothing chunk commit of the sqlite
// store for the single-writer pipeline.
func (m *Memory) WithTx(_ context.Context, fn func(finance.Store) error) error {
	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	costs       map[costKey]finance.EmployeeMonthlyCost
	plans       map[planKey]finance.ProjectRevenuePlan
	projectSums map[summaryKey]finance.ProjectSummary
	companySums map[string]finance.CompanySummary
	runs        map[string]finance.BatchRun
}

// snapshot copies the tables the pipeline writes. Reference data is
// read-only inside a chunk and does not need copying.
func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := memorySnapshot{
		costs:       make(map[costKey]finance.EmployeeMonthlyCost, len(m.costs)),
		plans:       make(map[planKey]finance.ProjectRevenuePlan, len(m.plans)),
		projectSums: make(map[summaryKey]finance.ProjectSummary, len(m.projectSums)),
		companySums: make(map[string]finance.CompanySummary, len(m.companySums)),
		runs:        make(map[string]finance.BatchRun, len(m.runs)),
	}
	for k, v := range m.costs {
		snap.costs[k] = v
	}
	for k, v := range m.plans {
		snap.plans[k] = v
	}
	for k, v := range m.projectSums {
		snap.projectSums[k] = v
	}
	for k, v := range m.companySums {
		snap.companySums[k] = v
	}
	for k, v := range m.runs {
		snap.runs[k] = v
	}
	return snap
}

func (m *Memory) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.costs = snap.costs
	m.plans = snap.plans
	m.projectSums = snap.projectSums
	m.companySums = snap.companySums
	m.runs = snap.runs
}

// =============================================================================
// HELPERS
// =============================================================================

func slicePage[T any](items []T, page batch.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Size
	if page.Size <= 0 || end > len(items) {
		end = len(items)
	}
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}
