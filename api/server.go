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
  /api/punches/*    Punch ingestion and validation workflow
  /api/subjects/*   Trainee management and summaries
  /api/config/*     Schedule configuration layers
  /api/admin/*      Ledger repair
  /api/scenarios/*  Demo scenarios

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
		// Punch routes
		r.Route("/punches", func(r chi.Router) {
			r.Post("/", h.RecordPunch)
			r.Get("/{id}", h.GetPunch)
			r.Post("/{id}/validate", h.ValidatePunch)
			r.Post("/{id}/reject", h.RejectPunch)
			r.Post("/{id}/adjust", h.AdjustPunch)
		})

		// Subject routes
		r.Route("/subjects", func(r chi.Router) {
			r.Get("/", h.ListSubjects)
			r.Post("/", h.CreateSubject)
			r.Get("/{id}", h.GetSubject)
			r.Get("/{id}/days/{date}", h.GetDaySummary)
			r.Get("/{id}/summary", h.GetRangeSummary)
		})

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/global", h.GetGlobalConfig)
			r.Put("/global", h.PutGlobalConfig)
			r.Put("/supervisors/{id}", h.PutSupervisorConfig)
			r.Put("/dates/{date}", h.PutDateOverride)
			r.Post("/document", h.ApplyConfigDocument)
			r.Post("/overtime-grants", h.CreateOvertimeGrant)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/repair", h.RepairLedger)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Attendance Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Attendance Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/subjects">/api/subjects</a> - List trainees</li>
<li><a href="/api/config/global">/api/config/global</a> - Global schedule</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
