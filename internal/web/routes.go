package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/argus/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	punchHandler := handlers.NewPunchHandler(s.deps.Recognition)
	employeesHandler := handlers.NewEmployeesHandler(s.deps.Recognition, s.deps.Employees, s.deps.Punches)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Ledger, s.deps.Employees, s.deps.Punches)
	regularizeHandler := handlers.NewRegularizeHandler(s.deps.Ledger, s.deps.Employees, s.deps.Punches)
	statsHandler := handlers.NewStatsHandler(s.deps.Ledger, s.deps.Employees, s.deps.Punches)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Kiosk
		r.Post("/punch", punchHandler.Punch)

		// Employees and enrollment
		r.Post("/employees", employeesHandler.Enroll)
		r.Get("/employees", employeesHandler.List)
		r.Get("/employees/{id}", employeesHandler.Get)
		r.Put("/employees/{id}/face", employeesHandler.UpdateFace)
		r.Delete("/employees/{id}", employeesHandler.Delete)

		// Attendance
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/employees/{id}/attendance", attendanceHandler.History)
		r.Get("/employees/{id}/attendance/today", attendanceHandler.Today)

		// Regularization
		r.Post("/employees/{id}/regularize", regularizeHandler.Create)
		r.Get("/regularizations", regularizeHandler.List)

		// Dashboard
		r.Get("/stats", statsHandler.Get)
	})
}
