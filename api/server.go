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
  4. CORS:       Cross-origin requests for the mobile app and admin UI

ROUTE GROUPS:
  /api/attendance/*     Clock-in / clock-out
  /api/roster/*         Bulk shift assignment
  /api/employees/*      Per-employee shift and attendance views
  /api/payroll/*        Period lifecycle and payslips
  /api/adjustments/*    Penalties, bonuses, deductions

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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

	r.Route("/api", func(r chi.Router) {
		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/clock-in", h.ClockIn)
			r.Post("/clock-out", h.ClockOut)
		})

		// Roster routes
		r.Route("/roster", func(r chi.Router) {
			r.Post("/bulk-assign", h.BulkAssign)
		})

		// Per-employee views
		r.Route("/employees", func(r chi.Router) {
			r.Get("/{id}/shifts", h.ListShifts)
			r.Get("/{id}/attendance", h.ListAttendance)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Route("/periods", func(r chi.Router) {
				r.Get("/", h.ListPeriods)
				r.Post("/", h.CreatePeriod)
				r.Delete("/{id}", h.DeletePeriod)
				r.Post("/{id}/generate", h.GeneratePayroll)
				r.Post("/{id}/approve", h.ApprovePeriod)
				r.Get("/{id}/payslips", h.ListPayslips)
			})
		})

		// Adjustment routes
		r.Route("/adjustments", func(r chi.Router) {
			r.Post("/", h.CreateAdjustment)
			r.Delete("/{id}", h.CancelAdjustment)
		})
	})

	return r
}
