/*
attendance.go - Attendance punches and department master data

ENDPOINTS:
  Attendance:
    POST   /api/attendance/punch-in             Open today's session
    POST   /api/attendance/punch-out            Close the open session
    GET    /api/attendance/today                Today's session, null before punch-in
    GET    /api/attendance/my?from=&to=         Own sessions
    GET    /api/attendance?employee_id=&from=&to=&status=   Role-scoped sessions
    POST   /api/attendance/{id}/force-close     Close on the employee's behalf (HR/ADMIN)

  Departments:
    GET    /api/departments?include_inactive=true
    POST   /api/departments                     HR/ADMIN
    GET    /api/departments/{id}
    PATCH  /api/departments/{id}                Rename or (de)activate (HR/ADMIN)
    GET    /api/managers/{id}/departments       HR or the manager
    PUT    /api/managers/{id}/departments       Replace assignments (HR/ADMIN)
    PUT    /api/employees/{id}/department       Move an employee (HR/ADMIN)
*/
package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

func (h *Handler) PunchIn(w http.ResponseWriter, r *http.Request) {
	p, err := h.punch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.Leaves.PunchIn(r.Context(), actorFrom(r), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAttendanceDTO(session))
}

func (h *Handler) PunchOut(w http.ResponseWriter, r *http.Request) {
	p, err := h.punch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	session, err := h.Leaves.PunchOut(r.Context(), actorFrom(r), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(session))
}

func (h *Handler) TodayAttendance(w http.ResponseWriter, r *http.Request) {
	session, err := h.Leaves.TodaySession(r.Context(), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := TodayAttendanceDTO{WorkDate: h.Leaves.WorkDate()}
	if session != nil {
		dto := toAttendanceDTO(session)
		out.Session = &dto
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) MyAttendance(w http.ResponseWriter, r *http.Request) {
	f, err := attendanceFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	actor := actorFrom(r)
	f.EmployeeIDs = []generic.EmployeeID{actor.EmployeeID}
	sessions, err := h.Leaves.ListAttendance(r.Context(), actor, f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(sessions))
}

func (h *Handler) ListAttendance(w http.ResponseWriter, r *http.Request) {
	f, err := attendanceFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sessions, err := h.Leaves.ListAttendance(r.Context(), actorFrom(r), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTOs(sessions))
}

func (h *Handler) ForceCloseAttendance(w http.ResponseWriter, r *http.Request) {
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
	session, err := h.Leaves.ForceClose(r.Context(), actorFrom(r), id, req.Remarks)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(session))
}

// punch decodes the body and stamps the client address.
func (h *Handler) punch(r *http.Request) (timeoff.Punch, error) {
	var req PunchRequest
	if err := h.decode(r, &req); err != nil {
		return timeoff.Punch{}, err
	}
	p := timeoff.Punch{Source: req.Source, DeviceID: req.DeviceID, Remarks: req.Remarks, IP: clientIP(r)}
	if req.Geo != nil {
		p.Geo = &timeoff.Geo{Lat: req.Geo.Lat, Lng: req.Geo.Lng, Accuracy: req.Geo.Accuracy, Address: req.Geo.Address}
	}
	return p, nil
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// attendanceFilter reads ?employee_id=&from=&to=&status=a,b.
func attendanceFilter(r *http.Request) (timeoff.AttendanceFilter, error) {
	q := r.URL.Query()
	var f timeoff.AttendanceFilter
	id, err := queryEmployee(r)
	if err != nil {
		return f, err
	}
	if id != 0 {
		f.EmployeeIDs = []generic.EmployeeID{id}
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, ok := timeoff.ParseSessionStatus(part)
			if !ok {
				return f, generic.Validation(generic.ReasonInvalidInput, "unknown session status %q", part)
			}
			f.Statuses = append(f.Statuses, st)
		}
	}
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

// =============================================================================
// DEPARTMENTS
// =============================================================================

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("include_inactive") == "true"
	depts, err := h.Leaves.ListDepartments(r.Context(), actorFrom(r), all)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTOs(depts))
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req DepartmentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.Leaves.CreateDepartment(r.Context(), actorFrom(r), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDepartmentDTO(d))
}

func (h *Handler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.Leaves.GetDepartment(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(d))
}

func (h *Handler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req DepartmentPatchRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	d, err := h.Leaves.UpdateDepartment(r.Context(), actorFrom(r), id, timeoff.DepartmentPatch{Name: req.Name, Active: req.Active})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTO(d))
}

func (h *Handler) ManagerDepartments(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	depts, err := h.Leaves.ManagerDepartments(r.Context(), actorFrom(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTOs(depts))
}

func (h *Handler) AssignManagerDepartments(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req ManagerDepartmentsRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	depts, err := h.Leaves.AssignManagerDepartments(r.Context(), actorFrom(r), id, req.DepartmentIDs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDepartmentDTOs(depts))
}

func (h *Handler) SetEmployeeDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := employeeParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req SetDepartmentRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	emp, err := h.Leaves.SetEmployeeDepartment(r.Context(), actorFrom(r), id, req.DepartmentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}
