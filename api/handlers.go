/*
handlers.go - HTTP API handlers for the costing engine

PURPOSE:
  Exposes reference-data administration and the batch pipeline via REST.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List all employees
    POST   /api/employees                 Create/update employee
    POST   /api/employees/{id}/salaries   Record an annual salary

  Policies:
    GET    /api/policies                  List cost policies
    POST   /api/policies                  Create/update a policy row

  Projects:
    GET    /api/projects                  List all projects
    POST   /api/projects                  Create/update project
    POST   /api/projects/{id}/assignments Staff an employee
    GET    /api/projects/{id}/revenue-plans           List billing entries
    POST   /api/projects/{id}/revenue-plans           Create billing entry
    POST   /api/projects/{id}/revenue-plans/{seq}/issue   Mark issued
    POST   /api/projects/{id}/revenue-plans/{seq}/cancel  Revert to planned

  Results:
    GET    /api/costs?month=YYYYMM              Priced employee months
    GET    /api/summaries/projects?month=YYYYMM Project summaries
    GET    /api/summaries/company?month=YYYYMM  Company roll-up

  Runs:
    POST   /api/runs                      Trigger a pipeline run
    GET    /api/runs                      Recent run history

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate sequence, run already in progress)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/finance"
	"github.com/warp/costing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Pipeline *finance.Pipeline
}

// NewHandler creates a new handler over the store and pipeline.
func NewHandler(store *sqlite.Store, pipeline *finance.Pipeline) *Handler {
	return &Handler{Store: store, Pipeline: pipeline}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hiredAt, err := time.Parse("2006-01-02", req.HiredAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hired_at format (use YYYY-MM-DD)", err)
		return
	}

	status := finance.EmployeeStatus(req.Status)
	if status == "" {
		status = finance.StatusActive
	}

	emp := finance.Employee{
		ID:      finance.EmployeeID(req.ID),
		Name:    req.Name,
		Type:    finance.EmployeeType(req.Type),
		Status:  status,
		HiredAt: hiredAt,
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// CreateSalary records an annual salary for an employee.
func (h *Handler) CreateSalary(w http.ResponseWriter, r *http.Request) {
	id := finance.EmployeeID(chi.URLParam(r, "id"))

	var req CreateSalaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	annual, err := finance.ParseMoney(req.Annual)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid annual amount", err)
		return
	}
	effectiveFrom, err := time.Parse("2006-01-02", req.EffectiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_from format (use YYYY-MM-DD)", err)
		return
	}

	salary := finance.Salary{
		EmployeeID:    id,
		Annual:        annual,
		EffectiveFrom: effectiveFrom,
	}
	if err := h.Store.SaveSalary(r.Context(), salary); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save salary", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"employee_id":    string(id),
		"annual":         annual.String(),
		"effective_from": effectiveFrom.Format("2006-01-02"),
	})
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all cost policy rows.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListCostPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = PolicyDTO{
			ApplyYear:    p.ApplyYear,
			EmployeeType: string(p.EmployeeType),
			OverheadRate: p.OverheadRate.String(),
			SGARate:      p.SGARate.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy creates or updates one cost policy row.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req PolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	overhead, err := decimal.NewFromString(req.OverheadRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid overhead_rate", err)
		return
	}
	sga, err := decimal.NewFromString(req.SGARate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sga_rate", err)
		return
	}

	policy := finance.CostPolicy{
		ApplyYear:    req.ApplyYear,
		EmployeeType: finance.EmployeeType(req.EmployeeType),
		OverheadRate: overhead,
		SGARate:      sga,
	}
	if err := h.Store.SaveCostPolicy(r.Context(), policy); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProject creates or updates a project.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required", nil)
		return
	}

	period, err := parsePeriodFields(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project period", err)
		return
	}

	status := finance.ProjectStatus(req.Status)
	if status == "" {
		status = finance.ProjectActive
	}

	project := finance.Project{
		ID:     finance.ProjectID(req.ID),
		Name:   req.Name,
		Period: period,
		Status: status,
	}
	if err := h.Store.SaveProject(r.Context(), project); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save project", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

// CreateAssignment staffs an employee on a project for a date range.
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))

	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "id and employee_id are required", nil)
		return
	}

	period, err := parsePeriodFields(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid assignment period", err)
		return
	}

	assignment := finance.ProjectAssignment{
		ID:         req.ID,
		EmployeeID: finance.EmployeeID(req.EmployeeID),
		ProjectID:  projectID,
		Period:     period,
	}
	if err := h.Store.SaveAssignment(r.Context(), assignment); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// REVENUE PLAN HANDLERS
// =============================================================================

// ListRevenuePlans returns all billing entries of a project.
func (h *Handler) ListRevenuePlans(w http.ResponseWriter, r *http.Request) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))

	plans, err := h.Store.ListRevenuePlans(r.Context(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list revenue plans", err)
		return
	}

	dtos := make([]RevenuePlanDTO, len(plans))
	for i, p := range plans {
		dtos[i] = toRevenuePlanDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRevenuePlan creates a billing entry. A duplicate (project, sequence)
// is a 409, never a merge.
func (h *Handler) CreateRevenuePlan(w http.ResponseWriter, r *http.Request) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))

	var req CreateRevenuePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := finance.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	revenueDate, err := time.Parse("2006-01-02", req.RevenueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid revenue_date format (use YYYY-MM-DD)", err)
		return
	}

	plan := finance.ProjectRevenuePlan{
		ProjectID:   projectID,
		Sequence:    req.Sequence,
		RevenueDate: revenueDate,
		Type:        finance.RevenueType(req.Type),
		Amount:      amount,
		Memo:        req.Memo,
	}

	if err := h.Store.CreateRevenuePlan(r.Context(), plan); err != nil {
		switch {
		case errors.Is(err, finance.ErrDuplicateSequence):
			writeError(w, http.StatusConflict, "Revenue plan sequence already exists", err)
		case errors.Is(err, finance.ErrInvalidSequence),
			errors.Is(err, finance.ErrNegativeAmount),
			errors.Is(err, finance.ErrProjectNotFound):
			writeError(w, http.StatusBadRequest, "Invalid revenue plan", err)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create revenue plan", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toRevenuePlanDTO(plan))
}

// IssueRevenuePlan marks a billing entry as issued.
func (h *Handler) IssueRevenuePlan(w http.ResponseWriter, r *http.Request) {
	h.setRevenuePlanIssued(w, r, true)
}

// CancelRevenuePlan reverts a billing entry to merely planned.
func (h *Handler) CancelRevenuePlan(w http.ResponseWriter, r *http.Request) {
	h.setRevenuePlanIssued(w, r, false)
}

func (h *Handler) setRevenuePlanIssued(w http.ResponseWriter, r *http.Request, issued bool) {
	projectID := finance.ProjectID(chi.URLParam(r, "id"))
	sequence, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sequence", err)
		return
	}

	if err := h.Store.SetRevenuePlanIssued(r.Context(), projectID, sequence, issued); err != nil {
		if errors.Is(err, finance.ErrRevenuePlanNotFound) {
			writeError(w, http.StatusNotFound, "Revenue plan not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update revenue plan", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": string(projectID),
		"sequence":   sequence,
		"issued":     issued,
	})
}

// =============================================================================
// RESULT HANDLERS - Pipeline output, read-only
// =============================================================================

// GetMonthlyCosts returns all priced employee months for ?month=YYYYMM.
func (h *Handler) GetMonthlyCosts(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	costs, err := h.Store.MonthlyCosts(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list monthly costs", err)
		return
	}

	dtos := make([]MonthlyCostDTO, len(costs))
	for i, c := range costs {
		dtos[i] = MonthlyCostDTO{
			EmployeeID:    string(c.EmployeeID),
			CostMonth:     c.CostMonth.String(),
			MonthlySalary: c.MonthlySalary.String(),
			OverheadCost:  c.OverheadCost.String(),
			SGACost:       c.SGACost.String(),
			TotalCost:     c.TotalCost.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProjectSummaries returns all project summaries for ?month=YYYYMM.
func (h *Handler) GetProjectSummaries(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	summaries, err := h.Store.ProjectSummaries(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list project summaries", err)
		return
	}

	dtos := make([]ProjectSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = ProjectSummaryDTO{
			ProjectID:   string(s.ProjectID),
			TargetMonth: s.TargetMonth.String(),
			Revenue:     s.Revenue.String(),
			Cost:        s.Cost.String(),
			Profit:      s.Profit.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCompanySummary returns the company roll-up for ?month=YYYYMM.
func (h *Handler) GetCompanySummary(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(w, r)
	if !ok {
		return
	}

	summary, err := h.Store.CompanySummaryFor(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load company summary", err)
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "No company summary for month", nil)
		return
	}

	writeJSON(w, http.StatusOK, CompanySummaryDTO{
		TargetMonth: summary.TargetMonth.String(),
		Revenue:     summary.Revenue.String(),
		Cost:        summary.Cost.String(),
		Profit:      summary.Profit.String(),
	})
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// TriggerRun starts a pipeline run. A missing target_date defaults to
// yesterday. Returns 409 when a run for the same month is in progress.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	var req TriggerRunRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	var target *time.Time
	if req.TargetDate != nil {
		parsed, err := time.Parse("2006-01-02", *req.TargetDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid target_date format (use YYYY-MM-DD)", err)
			return
		}
		target = &parsed
	}

	report, err := h.Pipeline.Run(r.Context(), target)
	if err != nil {
		if errors.Is(err, finance.ErrRunInProgress) {
			writeError(w, http.StatusConflict, "A run for this month is already in progress", err)
			return
		}
		// A partial report still names the run for follow-up.
		if report != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":  err.Error(),
				"run_id": report.RunID,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Run failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       report.RunID,
		"target_date":  report.TargetDate.Format("2006-01-02"),
		"target_month": report.TargetMonth.String(),
		"employees": map[string]int{
			"processed": report.Cost.Processed,
			"failed":    report.Cost.Failed,
		},
		"projects": map[string]int{
			"processed": report.Summary.Processed,
			"failed":    report.Summary.Failed,
		},
	})
}

// ListRuns returns recent pipeline runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	runs, err := h.Store.ListBatchRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// monthParam parses the required ?month=YYYYMM query parameter, writing the
// 400 itself on failure.
func monthParam(w http.ResponseWriter, r *http.Request) (finance.Month, bool) {
	token := r.URL.Query().Get("month")
	if token == "" {
		writeError(w, http.StatusBadRequest, "month query parameter is required (YYYYMM)", nil)
		return finance.Month{}, false
	}
	month, err := finance.ParseMonth(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month format (use YYYYMM)", err)
		return finance.Month{}, false
	}
	return month, true
}

func parsePeriodFields(start, end string) (finance.Period, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return finance.Period{}, err
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return finance.Period{}, err
	}
	return finance.NewPeriod(from, to)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
