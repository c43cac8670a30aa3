/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for ops tooling

ROUTE GROUPS:
  /api/employees/*   Employee and salary administration
  /api/policies/*    Cost policy administration
  /api/projects/*    Projects, assignments, revenue plans
  /api/costs         Priced employee months (read-only)
  /api/summaries/*   Monthly summaries (read-only)
  /api/runs/*        Pipeline runs

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public; deploy
  behind an internal gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Post("/{id}/salaries", h.CreateSalary)
		})

		// Policy routes
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Post("/{id}/assignments", h.CreateAssignment)

			r.Route("/{id}/revenue-plans", func(r chi.Router) {
				r.Get("/", h.ListRevenuePlans)
				r.Post("/", h.CreateRevenuePlan)
				r.Post("/{seq}/issue", h.IssueRevenuePlan)
				r.Post("/{seq}/cancel", h.CancelRevenuePlan)
			})
		})

		// Result routes
		r.Get("/costs", h.GetMonthlyCosts)
		r.Route("/summaries", func(r chi.Router) {
			r.Get("/projects", h.GetProjectSummaries)
			r.Get("/company", h.GetCompanySummary)
		})

		// Run routes
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.TriggerRun)
		})
	})

	return r
}
