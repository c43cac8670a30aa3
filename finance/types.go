/*
types.go - Domain records flowing through the pipeline

KEY CONCEPTS:
  Employee / Project / ProjectAssignment: Reference data read by the pipeline.
  CostPolicy:           Overhead/SGA rate pair keyed by (applyYear, employeeType).
  Salary:               An employee's annual salary effective from a date.
  EmployeeMonthlyCost:  Output of the cost stage, keyed (employeeID, costMonth).
  ProjectRevenuePlan:   A planned billing entry; only issued entries count.
  ProjectSummary /
  CompanySummary:       Output of the summary stage. Two key shapes, stored
                        separately - a company row is NOT a project row with an
                        empty project ID.
  BatchRun:             Persisted bookkeeping for one pipeline run.

DESIGN PRINCIPLES:
  1. Type-safe IDs: EmployeeID and ProjectID cannot be mixed up.
  2. Value records: cost and summary rows carry only their key and money
     fields, so re-running a month with unchanged inputs reproduces the rows
     byte for byte.
*/
package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ProjectID string

// =============================================================================
// EMPLOYEES AND PAYROLL
// =============================================================================

// EmployeeType selects which cost policy row applies to an employee.
type EmployeeType string

const (
	EmployeeRegular   EmployeeType = "regular"
	EmployeeContract  EmployeeType = "contract"
	EmployeeExecutive EmployeeType = "executive"
)

// EmployeeStatus gates eligibility for the cost stage. Only active employees
// are priced; leave and resignation do not prorate the month - an eligible
// employee is priced for the whole month regardless of partial-month
// employment.
type EmployeeStatus string

const (
	StatusActive   EmployeeStatus = "active"
	StatusLeave    EmployeeStatus = "leave"
	StatusResigned EmployeeStatus = "resigned"
)

type Employee struct {
	ID      EmployeeID
	Name    string
	Type    EmployeeType
	Status  EmployeeStatus
	HiredAt time.Time
}

// Salary is an annual salary effective from a date. The pipeline reads the
// row effective at the target date (latest EffectiveFrom <= asOf).
type Salary struct {
	EmployeeID    EmployeeID
	Annual        Money
	EffectiveFrom time.Time
}

// =============================================================================
// COST POLICY - Reference data, read-only to the pipeline
// =============================================================================

// CostPolicy is the overhead/SGA rate pair for one employee type in one
// fiscal year. Rates are fractional multipliers (0.1 = 10%).
type CostPolicy struct {
	ApplyYear    int
	EmployeeType EmployeeType
	OverheadRate decimal.Decimal
	SGARate      decimal.Decimal
}

// =============================================================================
// EMPLOYEE MONTHLY COST - Cost stage output
// =============================================================================

// EmployeeMonthlyCost prices one employee for one month. Unique on
// (EmployeeID, CostMonth); re-computation replaces the money fields in place.
type EmployeeMonthlyCost struct {
	EmployeeID EmployeeID
	CostMonth  Month

	MonthlySalary Money // annual / 12
	OverheadCost  Money // monthly * overheadRate
	SGACost       Money // monthly * sgaRate
	TotalCost     Money // monthly + overhead + sga
}

// =============================================================================
// PROJECTS AND ASSIGNMENTS
// =============================================================================

type ProjectStatus string

const (
	ProjectActive ProjectStatus = "active"
	ProjectClosed ProjectStatus = "closed"
)

type Project struct {
	ID     ProjectID
	Name   string
	Period Period
	Status ProjectStatus
}

// ProjectAssignment links an employee to a project for a date range.
// The range may start or end mid-month; proration handles the clamping.
type ProjectAssignment struct {
	ID         string
	EmployeeID EmployeeID
	ProjectID  ProjectID
	Period     Period
}

// =============================================================================
// REVENUE PLANS
// =============================================================================

type RevenueType string

const (
	RevenueContract    RevenueType = "contract"
	RevenueMaintenance RevenueType = "maintenance"
	RevenueExtra       RevenueType = "extra"
)

// ProjectRevenuePlan is a planned billing entry. Sequence is unique per
// project; a duplicate is rejected at creation, never merged. Issue/Cancel
// toggling Issued is the only state transition on this record.
type ProjectRevenuePlan struct {
	ProjectID   ProjectID
	Sequence    int
	RevenueDate time.Time
	Type        RevenueType
	Amount      Money
	Issued      bool
	Memo        string
}

// Validate enforces creation-time invariants. Money itself allows negatives;
// planned billing amounts are one call site that does not.
func (rp ProjectRevenuePlan) Validate() error {
	if rp.ProjectID == "" {
		return ErrProjectNotFound
	}
	if rp.Sequence < 1 {
		return ErrInvalidSequence
	}
	if rp.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Issue marks the entry as actually billed.
func (rp *ProjectRevenuePlan) Issue() { rp.Issued = true }

// Cancel reverts the entry to merely planned.
func (rp *ProjectRevenuePlan) Cancel() { rp.Issued = false }

// =============================================================================
// MONTHLY SUMMARIES - Summary stage output
// =============================================================================

// ProjectSummary is one project's revenue/cost/profit for one month.
// Unique on (ProjectID, TargetMonth).
type ProjectSummary struct {
	ProjectID   ProjectID
	TargetMonth Month

	Revenue Money
	Cost    Money
	Profit  Money // Revenue - Cost, may be negative
}

// CompanySummary is the company-wide roll-up for one month, keyed by month
// alone. Stored separately from project summaries.
type CompanySummary struct {
	TargetMonth Month

	Revenue Money
	Cost    Money
	Profit  Money
}

// =============================================================================
// BATCH RUNS - Operational bookkeeping
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// BatchRun records one execution of the pipeline for operator visibility and
// for the scheduler's skip-if-already-processed check.
type BatchRun struct {
	ID          string
	TargetDate  time.Time
	TargetMonth Month
	Status      RunStatus
	Error       string

	EmployeesProcessed int
	EmployeesFailed    int
	ProjectsProcessed  int
	ProjectsFailed     int

	StartedAt   time.Time
	CompletedAt *time.Time
}
