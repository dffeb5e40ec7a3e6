/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:      Unique ID per request for tracing
  2. RealIP:         Client address behind a proxy
  3. RequestLogger:  One logrus entry per request (logging package)
  4. Recoverer:      Panic recovery (500 instead of crash)
  5. CORS:           Cross-origin requests for the frontend
  6. Authenticate:   Bearer token to auth.Actor, on /api except login

ROUTE GROUPS:
  /health               Liveness, unauthenticated
  /api/auth/login       Unauthenticated
  /api/auth/me
  /api/employees/*      Employee management, balances, wallet trail
  /api/leaves/*         Apply, decide, lists
  /api/hr/actions/*     Cancellation, PL penalty, action log
  /api/accrual/*        Monthly accrual
  /api/policy/*         Settings, year-close
  /api/balances/*       Own balances
  /api/calendar/*       Holidays, restricted holidays, events
  /api/compoff/*        Comp-off earn workflow
  /api/wfh/*            Work from home
  /api/attendance/*     Punch-in / punch-out sessions
  /api/departments/*    Department master data
  /api/managers/*       Manager department assignments
  /api/reports/*        CSV / XLSX / PDF exports
  /api/scenarios/*      Demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authentication
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/leave-engine/logging"
)

// NewRouter creates a new router with all routes configured. allowedOrigins
// feeds CORS; an empty list allows none.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Get("/auth/me", h.Me)

			// Employee routes
			r.Route("/employees", func(r chi.Router) {
				r.Get("/", h.ListEmployees)
				r.Post("/", h.CreateEmployee)
				r.Get("/{id}", h.GetEmployee)
				r.Put("/{id}/manager", h.SetReportingManager)
				r.Put("/{id}/department", h.SetEmployeeDepartment)
				r.Get("/{id}/balances", h.EmployeeBalances)
				r.Get("/{id}/transactions", h.EmployeeTransactions)
			})

			// Leave routes
			r.Route("/leaves", func(r chi.Router) {
				r.Post("/apply", h.ApplyLeave)
				r.Get("/my", h.MyLeaves)
				r.Get("/list", h.ListLeaves)
				r.Get("/pending", h.PendingLeaves)
				r.Get("/{id}", h.GetLeave)
				r.Get("/{id}/approvals", h.LeaveApprovals)
				r.Post("/{id}/approve", h.ApproveLeave)
				r.Post("/{id}/reject", h.RejectLeave)
			})

			// HR action routes
			r.Route("/hr/actions", func(r chi.Router) {
				r.Get("/", h.ListHRActions)
				r.Post("/cancel-leave/{id}", h.CancelLeave)
				r.Post("/deduct-pl/{employee_id}", h.DeductPL)
				r.Post("/company-event-cancel", h.CompanyEventCancel)
			})

			// Job routes
			r.Post("/accrual/run", h.RunAccrual)
			r.Get("/accrual/status", h.AccrualStatus)
			r.Route("/policy", func(r chi.Router) {
				r.Get("/settings", h.GetSettings)
				r.Put("/settings", h.UpdateSettings)
				r.Post("/year-close", h.YearClose)
			})

			r.Get("/balances/my", h.MyBalances)

			// Calendar routes
			r.Route("/calendar/{kind}", func(r chi.Router) {
				r.Get("/", h.ListCalendar)
				r.Post("/", h.AddCalendarEntry)
			})

			// Comp-off routes
			r.Route("/compoff", func(r chi.Router) {
				r.Post("/request", h.RequestCompOff)
				r.Get("/my", h.MyCompOffs)
				r.Get("/pending", h.PendingCompOffs)
				r.Get("/all", h.AllCompOffs)
				r.Get("/balance", h.CompOffBalance)
				r.Post("/{id}/approve", h.ApproveCompOff)
				r.Post("/{id}/reject", h.RejectCompOff)
			})

			// WFH routes
			r.Route("/wfh", func(r chi.Router) {
				r.Post("/apply", h.ApplyWFH)
				r.Get("/my", h.MyWFH)
				r.Get("/pending", h.PendingWFH)
				r.Get("/balance", h.WFHBalance)
				r.Post("/{id}/approve", h.ApproveWFH)
				r.Post("/{id}/reject", h.RejectWFH)
			})

			// Attendance routes
			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", h.ListAttendance)
				r.Post("/punch-in", h.PunchIn)
				r.Post("/punch-out", h.PunchOut)
				r.Get("/today", h.TodayAttendance)
				r.Get("/my", h.MyAttendance)
				r.Post("/{id}/force-close", h.ForceCloseAttendance)
			})

			// Department routes
			r.Route("/departments", func(r chi.Router) {
				r.Get("/", h.ListDepartments)
				r.Post("/", h.CreateDepartment)
				r.Get("/{id}", h.GetDepartment)
				r.Patch("/{id}", h.UpdateDepartment)
			})
			r.Get("/managers/{id}/departments", h.ManagerDepartments)
			r.Put("/managers/{id}/departments", h.AssignManagerDepartments)

			// Report routes
			r.Route("/reports", func(r chi.Router) {
				r.Get("/leaves", h.LeavesReport)
				r.Get("/compoff", h.CompOffReport)
				r.Get("/statement/{employee_id}", h.StatementReport)
			})

			// Scenario routes
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no route for " + r.URL.Path, Reason: "not_found"})
	})

	return r
}
