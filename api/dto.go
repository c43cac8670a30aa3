/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FORMAT:
  Money travels as a quoted decimal string with two fraction digits
  ("3450000.00"), never as a float. Rates travel as fractional decimal
  strings ("0.10").

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/costing-engine/finance"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	HiredAt string `json:"hired_at"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	HiredAt string `json:"hired_at"`
}

// CreateSalaryRequest records an annual salary effective from a date.
type CreateSalaryRequest struct {
	Annual        string `json:"annual"`
	EffectiveFrom string `json:"effective_from"`
}

// PolicyDTO represents a cost policy row.
type PolicyDTO struct {
	ApplyYear    int    `json:"apply_year"`
	EmployeeType string `json:"employee_type"`
	OverheadRate string `json:"overhead_rate"`
	SGARate      string `json:"sga_rate"`
}

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

// CreateProjectRequest is the request to create or update a project.
type CreateProjectRequest struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

// CreateAssignmentRequest staffs an employee on a project for a date range.
type CreateAssignmentRequest struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

// RevenuePlanDTO represents a planned billing entry.
type RevenuePlanDTO struct {
	ProjectID   string `json:"project_id"`
	Sequence    int    `json:"sequence"`
	RevenueDate string `json:"revenue_date"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Issued      bool   `json:"issued"`
	Memo        string `json:"memo,omitempty"`
}

// CreateRevenuePlanRequest is the request to create a billing entry.
type CreateRevenuePlanRequest struct {
	Sequence    int    `json:"sequence"`
	RevenueDate string `json:"revenue_date"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Memo        string `json:"memo,omitempty"`
}

// MonthlyCostDTO represents one priced employee month.
type MonthlyCostDTO struct {
	EmployeeID    string `json:"employee_id"`
	CostMonth     string `json:"cost_month"`
	MonthlySalary string `json:"monthly_salary"`
	OverheadCost  string `json:"overhead_cost"`
	SGACost       string `json:"sga_cost"`
	TotalCost     string `json:"total_cost"`
}

// ProjectSummaryDTO represents one project's monthly summary.
type ProjectSummaryDTO struct {
	ProjectID   string `json:"project_id"`
	TargetMonth string `json:"target_month"`
	Revenue     string `json:"revenue"`
	Cost        string `json:"cost"`
	Profit      string `json:"profit"`
}

// CompanySummaryDTO represents the company-wide monthly roll-up.
type CompanySummaryDTO struct {
	TargetMonth string `json:"target_month"`
	Revenue     string `json:"revenue"`
	Cost        string `json:"cost"`
	Profit      string `json:"profit"`
}

// TriggerRunRequest starts a pipeline run. A missing target_date defaults to
// yesterday.
type TriggerRunRequest struct {
	TargetDate *string `json:"target_date,omitempty"`
}

// RunDTO represents one recorded pipeline run.
type RunDTO struct {
	ID          string `json:"id"`
	TargetDate  string `json:"target_date"`
	TargetMonth string `json:"target_month"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`

	EmployeesProcessed int `json:"employees_processed"`
	EmployeesFailed    int `json:"employees_failed"`
	ProjectsProcessed  int `json:"projects_processed"`
	ProjectsFailed     int `json:"projects_failed"`

	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e finance.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:      string(e.ID),
		Name:    e.Name,
		Type:    string(e.Type),
		Status:  string(e.Status),
		HiredAt: e.HiredAt.Format("2006-01-02"),
	}
}

func toProjectDTO(p finance.Project) ProjectDTO {
	return ProjectDTO{
		ID:     string(p.ID),
		Name:   p.Name,
		Start:  p.Period.Start.Format("2006-01-02"),
		End:    p.Period.End.Format("2006-01-02"),
		Status: string(p.Status),
	}
}

func toRevenuePlanDTO(rp finance.ProjectRevenuePlan) RevenuePlanDTO {
	return RevenuePlanDTO{
		ProjectID:   string(rp.ProjectID),
		Sequence:    rp.Sequence,
		RevenueDate: rp.RevenueDate.Format("2006-01-02"),
		Type:        string(rp.Type),
		Amount:      rp.Amount.String(),
		Issued:      rp.Issued,
		Memo:        rp.Memo,
	}
}

func toRunDTO(run finance.BatchRun) RunDTO {
	dto := RunDTO{
		ID:          run.ID,
		TargetDate:  run.TargetDate.Format("2006-01-02"),
		TargetMonth: run.TargetMonth.String(),
		Status:      string(run.Status),
		Error:       run.Error,

		EmployeesProcessed: run.EmployeesProcessed,
		EmployeesFailed:    run.EmployeesFailed,
		ProjectsProcessed:  run.ProjectsProcessed,
		ProjectsFailed:     run.ProjectsFailed,

		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		completed := run.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &completed
	}
	return dto
}
