package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendance_PunchInAndOut(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@example.com")

	// GIVEN a punch-in with an impossible latitude
	rec := s.do(http.MethodPost, "/api/attendance/punch-in", alice, map[string]any{
		"geo": map[string]any{"lat": 120, "lng": 77.6, "accuracy": 10},
	})
	// THEN it is a validation error
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodGet, "/api/attendance/today", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	today := decode[api.TodayAttendanceDTO](t, rec)
	assert.Equal(t, "2025-03-10", today.WorkDate.String())
	assert.Nil(t, today.Session)

	// WHEN she punches in from the office
	rec = s.do(http.MethodPost, "/api/attendance/punch-in", alice, map[string]any{
		"source": "mobile", "geo": map[string]any{"lat": 12.97, "lng": 77.59, "accuracy": 15},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decode[api.AttendanceDTO](t, rec)
	assert.Equal(t, "OPEN", session.Status)
	assert.Equal(t, "MOBILE", session.PunchInSource)
	require.NotNil(t, session.PunchInGeo)
	assert.Equal(t, 12.97, session.PunchInGeo.Lat)

	// THEN a second punch-in the same day conflicts
	rec = s.do(http.MethodPost, "/api/attendance/punch-in", alice, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, generic.ReasonAlreadyPunchedIn, decode[api.ErrorResponse](t, rec).Reason)

	// WHEN she punches out
	rec = s.do(http.MethodPost, "/api/attendance/punch-out", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "CLOSED", decode[api.AttendanceDTO](t, rec).Status)

	// THEN there is nothing left to close
	rec = s.do(http.MethodPost, "/api/attendance/punch-out", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, generic.ReasonSessionNotOpen, decode[api.ErrorResponse](t, rec).Reason)

	rec = s.do(http.MethodGet, "/api/attendance/my?from=2025-03-01&to=2025-03-31", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.AttendanceDTO](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/attendance/my?from=2025-03-31&to=2025-03-01", alice, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, generic.ReasonInvalidDateRange, decode[api.ErrorResponse](t, rec).Reason)
}

func TestAttendance_ListIsScoped(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@example.com")
	bob := s.login("bob@example.com")
	mgr := s.login("manager@example.com")
	hr := s.login("hr@example.com")

	// GIVEN an Engineering hire who reports to HR, outside the manager's tree
	rec := s.do(http.MethodGet, "/api/departments", hr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var engineering int64
	for _, d := range decode[[]api.DepartmentDTO](t, rec) {
		if d.Name == "Engineering" {
			engineering = d.ID
		}
	}
	require.NotZero(t, engineering)
	rec = s.do(http.MethodPost, "/api/employees", hr, map[string]any{
		"name": "Chitra Das", "email": "chitra@example.com", "password": api.DemoPassword,
		"role": "EMPLOYEE", "join_date": "2024-06-01", "department_id": engineering,
		"reporting_manager_id": s.ids["hr@example.com"],
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	chitra := s.login("chitra@example.com")

	// AND three people worked today
	for _, token := range []string{alice, bob, chitra} {
		rec = s.do(http.MethodPost, "/api/attendance/punch-in", token, nil)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"employee sees self", alice, 1},
		{"manager sees tree and department", mgr, 3},
		{"hr sees everyone", hr, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/attendance", tt.token, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Len(t, decode[[]api.AttendanceDTO](t, rec), tt.want)
		})
	}

	// an employee filtering on a colleague gets nothing back
	rec = s.do(http.MethodGet, "/api/attendance?employee_id="+itoa(s.ids["bob@example.com"]), alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]api.AttendanceDTO](t, rec))
}

func TestAttendance_ForceCloseIsHR(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@example.com")
	hr := s.login("hr@example.com")

	rec := s.do(http.MethodPost, "/api/attendance/punch-in", alice, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/attendance/" + itoa(decode[api.AttendanceDTO](t, rec).ID) + "/force-close"

	rec = s.do(http.MethodPost, path, alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, path, hr, api.DecisionRequest{Remarks: "forgot to punch out"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	closed := decode[api.AttendanceDTO](t, rec)
	assert.Equal(t, "AUTO_CLOSED", closed.Status)
	assert.Equal(t, "ADMIN", closed.PunchOutSource)

	rec = s.do(http.MethodPost, path, hr, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func TestDepartments_MasterData(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@example.com")
	mgr := s.login("manager@example.com")
	hr := s.login("hr@example.com")

	rec := s.do(http.MethodPost, "/api/departments", alice, api.DepartmentRequest{Name: "Finance"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/departments", hr, api.DepartmentRequest{Name: "Finance"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	finance := decode[api.DepartmentDTO](t, rec)
	assert.True(t, finance.Active)

	// names are unique regardless of case
	rec = s.do(http.MethodPost, "/api/departments", hr, api.DepartmentRequest{Name: "finance"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	path := "/api/departments/" + itoa(finance.ID)
	rec = s.do(http.MethodPatch, path, hr, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, decode[api.DepartmentDTO](t, rec).Active)

	rec = s.do(http.MethodGet, "/api/departments", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.DepartmentDTO](t, rec), 3)
	rec = s.do(http.MethodGet, "/api/departments?include_inactive=true", hr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]api.DepartmentDTO](t, rec), 4)
	rec = s.do(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// inactive departments can't be assigned
	mgrPath := "/api/managers/" + itoa(s.ids["manager@example.com"]) + "/departments"
	rec = s.do(http.MethodPut, mgrPath, hr, api.ManagerDepartmentsRequest{DepartmentIDs: []int64{finance.ID}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, generic.ReasonInactiveDept, decode[api.ErrorResponse](t, rec).Reason)

	// and only managers oversee departments
	rec = s.do(http.MethodPut, "/api/managers/"+itoa(s.ids["alice@example.com"])+"/departments", hr,
		api.ManagerDepartmentsRequest{DepartmentIDs: []int64{}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, generic.ReasonNotAManager, decode[api.ErrorResponse](t, rec).Reason)

	rec = s.do(http.MethodGet, mgrPath, mgr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assigned := decode[[]api.DepartmentDTO](t, rec)
	require.Len(t, assigned, 1)
	assert.Equal(t, "Engineering", assigned[0].Name)
	rec = s.do(http.MethodGet, mgrPath, alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// moving an employee needs an existing, active department
	empPath := "/api/employees/" + itoa(s.ids["alice@example.com"]) + "/department"
	rec = s.do(http.MethodPut, empPath, hr, api.SetDepartmentRequest{DepartmentID: 9999})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodPut, empPath, hr, api.SetDepartmentRequest{DepartmentID: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, decode[api.EmployeeDTO](t, rec).DepartmentID)
}

// =============================================================================
// COMPANY EVENTS
// =============================================================================

func TestHRActions_CompanyEventCancel(t *testing.T) {
	s := newServer(t)
	alice := s.login("alice@example.com")
	bob := s.login("bob@example.com")
	mgr := s.login("manager@example.com")
	hr := s.login("hr@example.com")

	// GIVEN an approved CL for alice and a pending one for bob on the same day
	rec := s.do(http.MethodPost, "/api/leaves/apply", alice, map[string]any{
		"leave_type": "CL", "from_date": "2025-03-20", "to_date": "2025-03-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	approved := decode[api.LeaveDTO](t, rec)
	rec = s.do(http.MethodPost, "/api/leaves/"+itoa(approved.ID)+"/approve", mgr, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/leaves/apply", bob, map[string]any{
		"leave_type": "CL", "from_date": "2025-03-20", "to_date": "2025-03-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := api.CompanyEventCancelRequest{Date: generic.MustParseDate("2025-03-20"), Remarks: "town hall"}

	// WHEN the day is not yet an event
	rec = s.do(http.MethodPost, "/api/hr/actions/company-event-cancel", hr, body)
	// THEN nothing is cancelled
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, generic.ReasonNoCompanyEvent, decode[api.ErrorResponse](t, rec).Reason)

	// WHEN HR declares the event and cancels
	rec = s.do(http.MethodPost, "/api/calendar/events", hr, map[string]any{"date": "2025-03-20", "name": "Town Hall"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/hr/actions/company-event-cancel", alice, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodPost, "/api/hr/actions/company-event-cancel", hr, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN both requests are cancelled by the company and only the approved one is re-credited
	cancelled := decode[[]api.LeaveDTO](t, rec)
	require.Len(t, cancelled, 2)
	for _, l := range cancelled {
		assert.Equal(t, "CANCELLED_BY_COMPANY", l.Status)
		assert.Equal(t, "town hall", l.CancelRemark)
		assert.Equal(t, l.ID == approved.ID, l.Recredited)
	}
}
