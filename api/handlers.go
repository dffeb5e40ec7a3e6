/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave, comp-off and WFH services via REST API. Handles HTTP
  request/response, JSON serialization, and delegates every decision to
  the services. Handlers never compare roles themselves.

ENDPOINTS (this file):
  Auth:
    POST   /api/auth/login             Email + password, returns a bearer token
    GET    /api/auth/me                The authenticated employee

  Employees:
    GET    /api/employees              List employees (HR/ADMIN)
    POST   /api/employees              Create employee (HR/ADMIN)
    GET    /api/employees/{id}         Employee details (scoped)
    PUT    /api/employees/{id}/manager Set reporting manager (HR/ADMIN)
    (department routes live in attendance.go)

  Leaves:
    POST   /api/leaves/apply           Apply (optionally on behalf, HR only)
    GET    /api/leaves/my              Own requests
    GET    /api/leaves/list            Role-scoped requests
    GET    /api/leaves/pending         Requests the caller may decide
    GET    /api/leaves/{id}            One request (scoped)
    GET    /api/leaves/{id}/approvals  Decision history
    POST   /api/leaves/{id}/approve    Approve
    POST   /api/leaves/{id}/reject     Reject

ERROR HANDLING:
  Errors are returned as {"error", "reason", "details"} with the status
  of their kind:
  - 401: Missing or invalid bearer token
  - 400: Policy violation
  - 403: Authorization
  - 404: Not found
  - 409: Conflict (overlap, duplicate, quota)
  - 422: Validation
  - 500: Internal errors (cause hidden in prod)

SEE ALSO:
  - admin.go: HR actions, batch jobs, settings, balances, calendars
  - workflows.go: Comp-off and WFH
  - attendance.go: Attendance sessions and departments
  - reports.go: CSV/XLSX/PDF exports
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlite"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Leaves   *timeoff.Service
	CompOffs *compoff.Service
	Tokens   *auth.TokenIssuer
	Factory  *factory.PolicyFactory
	Logger   logrus.FieldLogger

	// HideInternalErrors drops the cause from 500 bodies.
	HideInternalErrors bool
}

// NewHandler wires the services over one store.
func NewHandler(store *sqlite.Store, tokens *auth.TokenIssuer, logger logrus.FieldLogger) *Handler {
	return &Handler{
		Store:    store,
		Leaves:   timeoff.NewService(store, logger),
		CompOffs: compoff.NewService(store, logger),
		Tokens:   tokens,
		Factory:  factory.NewPolicyFactory(),
		Logger:   logger,
	}
}

// SetClock pins "today" for both services.
func (h *Handler) SetClock(c generic.Clock) {
	h.Leaves.Clock = c
	h.CompOffs.Clock = c
}

// Health pings the database. Unauthenticated.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	emp, err := h.Leaves.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, generic.ErrUnauthenticated) {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:  "invalid email or password",
			Reason: generic.ReasonInvalidCredential,
		})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.Tokens.Issue(emp.Actor())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, TokenType: "bearer", Employee: toEmployeeDTO(emp)})
}

// Me returns the authenticated employee.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	emp, err := h.Leaves.GetEmployee(r.Context(), actor, actor.EmployeeID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Leaves.ListEmployees(r.Context(), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = toEmployeeDTO(&employees[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	emp, err := h.Leaves.CreateEmployee(r.Context(), actorFrom(r), timeoff.NewEmployee{
		EmpCode:            req.EmpCode,
		Name:               req.Name,
		Email:              req.Email,
		Password:           req.Password,
		Role:               auth.Role(req.Role),
		DepartmentID:       req.DepartmentID,
		JoinDate:           req.JoinDate,
		ReportingManagerID: generic.EmployeeID(req.ReportingManagerID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	emp, err := h.Leaves.GetEmployee(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

func (h *Handler) SetReportingManager(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req SetManagerRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	emp, err := h.Leaves.SetReportingManager(r.Context(), actorFrom(r), id, generic.EmployeeID(req.ReportingManagerID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// ApplyLeave stores a PENDING request. The response carries the computed
// days and, when the request was backdated past the limit, the LWP
// conversion.
func (h *Handler) ApplyLeave(w http.ResponseWriter, r *http.Request) {
	var req ApplyLeaveRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	typ, ok := timeoff.ParseLeaveType(req.LeaveType)
	if !ok {
		h.writeError(w, r, generic.Validation(generic.ReasonInvalidInput, "unknown leave type %q", req.LeaveType).
			WithDetail("fields", map[string]string{"leave_type": "must be one of CL PL SL RH COMPOFF LWP"}))
		return
	}
	leave, err := h.Leaves.Apply(r.Context(), actorFrom(r), timeoff.ApplyInput{
		EmployeeID:     generic.EmployeeID(req.EmployeeID),
		LeaveType:      typ,
		FromDate:       req.FromDate,
		ToDate:         req.ToDate,
		Reason:         req.Reason,
		OverridePolicy: req.OverridePolicy,
		OverrideRemark: req.OverrideRemark,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(leave))
}

func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, h.Leaves.Approve)
}

func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.decideLeave(w, r, h.Leaves.Reject)
}

type leaveDecision func(ctx context.Context, actor auth.Actor, id int64, remarks string) (*timeoff.LeaveRequest, error)

func (h *Handler) decideLeave(w http.ResponseWriter, r *http.Request, decide leaveDecision) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req DecisionRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	leave, err := decide(r.Context(), actorFrom(r), id, req.Remarks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

func (h *Handler) MyLeaves(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	leaves, err := h.Leaves.ListMine(r.Context(), actorFrom(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

// ListLeaves returns what the caller may see: HR everything, managers
// their subtree and themselves, employees their own.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	f, err := listFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	leaves, err := h.Leaves.List(r.Context(), actorFrom(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

func (h *Handler) PendingLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Leaves.ListPending(r.Context(), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTOs(leaves))
}

func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	leave, err := h.Leaves.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(leave))
}

func (h *Handler) LeaveApprovals(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	history, err := h.Leaves.Approvals(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	dtos := make([]ApprovalDTO, len(history))
	for i, a := range history {
		dtos[i] = ApprovalDTO{ID: a.ID, Action: string(a.Action), ActorID: int64(a.ActorID), Remarks: a.Remarks, CreatedAt: a.CreatedAt}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status and the standard error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var gerr *generic.Error
	switch {
	case errors.As(err, &gerr):
		resp := ErrorResponse{Error: gerr.Message, Reason: gerr.Reason}
		if len(gerr.Details) > 0 {
			resp.Details = gerr.Details
		}
		writeJSON(w, gerr.Status(), resp)
	case errors.Is(err, generic.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required", Reason: "unauthenticated"})
	default:
		h.Logger.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).Error("request failed")
		resp := ErrorResponse{Error: "internal error"}
		if !h.HideInternalErrors {
			resp.Details = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// decode reads a JSON body into dst and checks its validate tags. An empty
// body decodes to the zero value.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return generic.Validation(generic.ReasonInvalidInput, "invalid request body: %v", err)
	}
	return h.Factory.Validate(dst)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, generic.Validation(generic.ReasonInvalidInput, "%s must be a positive integer", name)
	}
	return id, nil
}

func employeeParam(r *http.Request, name string) (generic.EmployeeID, error) {
	id, err := idParam(r, name)
	return generic.EmployeeID(id), err
}

// queryEmployee reads ?employee_id=, 0 when absent.
func queryEmployee(r *http.Request) (generic.EmployeeID, error) {
	raw := r.URL.Query().Get("employee_id")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, generic.Validation(generic.ReasonInvalidInput, "employee_id must be a positive integer")
	}
	return generic.EmployeeID(id), nil
}

// yearParam reads ?year=, defaulting to the current year.
func (h *Handler) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return h.Leaves.Clock.Today().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		return 0, generic.Validation(generic.ReasonInvalidInput, "year must be YYYY, got %q", raw)
	}
	return year, nil
}

// listFilter reads ?status=a,b&year=&employee_id=&from=&to=.
func listFilter(r *http.Request) (timeoff.ListFilter, error) {
	q := r.URL.Query()
	var f timeoff.ListFilter
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := timeoff.ParseStatus(part)
			if !ok {
				return f, generic.Validation(generic.ReasonInvalidInput, "unknown status %q", part)
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return f, generic.Validation(generic.ReasonInvalidInput, "year must be YYYY, got %q", raw)
		}
		f.Year = year
	}
	id, err := queryEmployee(r)
	if err != nil {
		return f, err
	}
	f.EmployeeID = id
	for key, dst := range map[string]*generic.Date{"from": &f.From, "to": &f.To} {
		if raw := q.Get(key); raw != "" {
			d, err := generic.ParseDate(raw)
			if err != nil {
				return f, generic.Validation(generic.ReasonInvalidInput, "%s must be YYYY-MM-DD", key)
			}
			*dst = d
		}
	}
	return f, nil
}
