/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/templates/*       Rate card template management + sync
  /api/cards/*           Rate card management
  /api/assignments/*     Subcontractor/client rate bindings
  /api/subcontractors/*  Display names for reporting
  /api/time-logs/*       Priced work entries
  /api/expenses/*        Billed expenses
  /api/entries/submit    Batch submission
  /api/projects/*        Cost tracking reports + export
  /api/scenarios/*       Demo scenarios
  /metrics               Prometheus exposition (optional)
  /healthz               Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	// AllowedOrigins for CORS; defaults to * when empty.
	AllowedOrigins []string
	// ServeMetrics mounts /metrics when true.
	ServeMetrics bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Template routes
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Post("/", h.CreateTemplate)
			r.Get("/{id}", h.GetTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
			r.Post("/{id}/default", h.SetDefaultTemplate)
			r.Post("/{id}/sync", h.SyncTemplate)
		})

		// Card routes
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", h.ListCards)
			r.Post("/", h.CreateCard)
			r.Get("/{id}", h.GetCard)
			r.Delete("/{id}", h.DeleteCard)
		})

		// Assignment routes
		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
			r.Delete("/{id}", h.DeleteAssignment)
		})

		// Subcontractor routes
		r.Route("/subcontractors", func(r chi.Router) {
			r.Get("/", h.ListSubcontractors)
			r.Post("/", h.CreateSubcontractor)
		})

		// Time log routes
		r.Route("/time-logs", func(r chi.Router) {
			r.Get("/", h.ListTimeLogs)
			r.Post("/", h.CreateTimeLog)
			r.Get("/{id}", h.GetTimeLog)
			r.Post("/{id}/transition", h.TransitionTimeLog)
		})

		// Expense routes
		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
			r.Get("/{id}", h.GetExpense)
			r.Post("/{id}/transition", h.TransitionExpense)
		})

		// Batch submission
		r.Post("/entries/submit", h.SubmitBatch)

		// Tracking routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/{id}/tracking", h.GetProjectTracking)
			r.Get("/{id}/tracking/export", h.ExportProjectTracking)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	if opts.ServeMetrics {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
