package timeoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// at points the fixture clock at an RFC 3339 instant.
func (f *fixture) at(t *testing.T, instant string) {
	t.Helper()
	now, err := time.Parse(time.RFC3339, instant)
	require.NoError(t, err)
	f.svc.Clock = func() time.Time { return now }
}

// =============================================================================
// PUNCHES
// =============================================================================

func TestPunchIn_WorkDateFollowsLocation(t *testing.T) {
	f := newFixture(t)
	f.svc.Location = time.FixedZone("IST", 5*3600+1800)

	// GIVEN 20:00 UTC on the 9th, which is 01:30 on the 10th in IST
	f.at(t, "2025-03-09T20:00:00Z")

	// WHEN the employee punches in
	a, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{Source: "mobile", DeviceID: "pixel-7"})
	require.NoError(t, err)

	// THEN the session belongs to the local day
	assert.Equal(t, "2025-03-10", a.WorkDate.String())
	assert.Equal(t, timeoff.SessionOpen, a.Status)
	assert.Equal(t, "MOBILE", a.PunchInSource)
	assert.Equal(t, "2025-03-10", f.svc.WorkDate().String())

	today, err := f.svc.TodaySession(f.ctx, f.emp.Actor())
	require.NoError(t, err)
	require.NotNil(t, today)
	assert.Equal(t, a.ID, today.ID)
}

func TestPunchIn_OneOpenSessionPerDay(t *testing.T) {
	f := newFixture(t)
	f.at(t, "2025-03-10T09:00:00Z")
	_, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)

	_, err = f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{})
	assert.Equal(t, generic.ReasonAlreadyPunchedIn, generic.ReasonOf(err))

	// A closed session does not block a second shift on the same day.
	f.at(t, "2025-03-10T13:00:00Z")
	out, err := f.svc.PunchOut(f.ctx, f.emp.Actor(), timeoff.Punch{Remarks: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, timeoff.SessionClosed, out.Status)
	assert.Equal(t, 4*time.Hour, out.Worked())
	assert.Equal(t, "WEB", out.PunchOutSource)

	f.at(t, "2025-03-10T14:00:00Z")
	second, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)
	assert.NotEqual(t, out.ID, second.ID)

	today, err := f.svc.TodaySession(f.ctx, f.emp.Actor())
	require.NoError(t, err)
	assert.Equal(t, second.ID, today.ID)
}

func TestPunchOut_ClosesSessionAcrossMidnight(t *testing.T) {
	f := newFixture(t)
	f.at(t, "2025-03-10T22:00:00Z")
	in, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)

	f.at(t, "2025-03-11T02:00:00Z")
	out, err := f.svc.PunchOut(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, "2025-03-10", out.WorkDate.String())

	_, err = f.svc.PunchOut(f.ctx, f.emp.Actor(), timeoff.Punch{})
	assert.Equal(t, generic.ReasonSessionNotOpen, generic.ReasonOf(err))

	today, err := f.svc.TodaySession(f.ctx, f.emp.Actor())
	require.NoError(t, err)
	assert.Nil(t, today)
}

func TestPunchIn_RejectsBadGeoAndInactiveEmployee(t *testing.T) {
	f := newFixture(t)
	f.at(t, "2025-03-10T09:00:00Z")

	for _, g := range []timeoff.Geo{
		{Lat: 91, Lng: 77, Accuracy: 10},
		{Lat: 12.9, Lng: 181, Accuracy: 10},
		{Lat: 12.9, Lng: 77.6, Accuracy: 0},
	} {
		g := g
		_, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{Geo: &g})
		assert.Equal(t, generic.KindValidation, generic.KindOf(err), "%+v", g)
	}

	a, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{Geo: &timeoff.Geo{Lat: 12.9716, Lng: 77.5946, Accuracy: 8, Address: "MG Road"}})
	require.NoError(t, err)
	stored, err := f.store.GetSession(f.ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PunchInGeo)
	assert.Equal(t, "MG Road", stored.PunchInGeo.Address)

	gone := f.seed(t, "gone", auth.RoleEmployee, f.mgr.ID, "2024-01-10")
	gone.Active = false
	require.NoError(t, f.store.UpdateEmployee(f.ctx, gone))
	_, err = f.svc.PunchIn(f.ctx, gone.Actor(), timeoff.Punch{})
	assert.Equal(t, generic.ReasonInactiveEmployee, generic.ReasonOf(err))
}

func TestForceClose_IsHROnlyAndNeedsOpenSession(t *testing.T) {
	f := newFixture(t)
	f.at(t, "2025-03-10T09:00:00Z")
	a, err := f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)

	_, err = f.svc.ForceClose(f.ctx, f.mgr.Actor(), a.ID, "forgot")
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))

	f.at(t, "2025-03-10T19:00:00Z")
	got, err := f.svc.ForceClose(f.ctx, f.hr.Actor(), a.ID, "forgot to punch out")
	require.NoError(t, err)
	assert.Equal(t, timeoff.SessionAutoClosed, got.Status)
	assert.Equal(t, "ADMIN", got.PunchOutSource)
	assert.Equal(t, 10*time.Hour, got.Worked())

	_, err = f.svc.ForceClose(f.ctx, f.hr.Actor(), a.ID, "again")
	assert.Equal(t, generic.ReasonSessionNotOpen, generic.ReasonOf(err))
	_, err = f.svc.ForceClose(f.ctx, f.hr.Actor(), 999, "")
	assert.Equal(t, generic.KindNotFound, generic.KindOf(err))

	trail, err := f.store.ListAudit(f.ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditForceClose}})
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestCheckWorked(t *testing.T) {
	f := newFixture(t)
	day := d("2025-03-09")

	// GIVEN no session at all
	err := timeoff.CheckWorked(f.ctx, f.store, f.emp.ID, day)
	assert.Equal(t, generic.ReasonNoAttendance, generic.ReasonOf(err))

	// GIVEN a session still open
	f.at(t, "2025-03-09T09:00:00Z")
	_, err = f.svc.PunchIn(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)
	err = timeoff.CheckWorked(f.ctx, f.store, f.emp.ID, day)
	assert.Equal(t, generic.ReasonAttendanceOpen, generic.ReasonOf(err))

	// GIVEN the session closed
	f.at(t, "2025-03-09T17:00:00Z")
	_, err = f.svc.PunchOut(f.ctx, f.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)
	assert.NoError(t, timeoff.CheckWorked(f.ctx, f.store, f.emp.ID, day))
}

// =============================================================================
// LISTING
// =============================================================================

func TestListAttendance_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	eng, err := f.svc.CreateDepartment(f.ctx, f.hr.Actor(), "Engineering")
	require.NoError(t, err)
	// other reports to hr but sits in a department mgr oversees
	other := f.seed(t, "other", auth.RoleEmployee, f.hr.ID, "2024-01-10")
	_, err = f.svc.SetEmployeeDepartment(f.ctx, f.hr.Actor(), other.ID, eng.ID)
	require.NoError(t, err)

	f.at(t, "2025-03-10T09:00:00Z")
	for _, e := range []*timeoff.Employee{f.admin, f.hr, f.mgr, f.emp, other} {
		_, err := f.svc.PunchIn(f.ctx, e.Actor(), timeoff.Punch{})
		require.NoError(t, err)
	}

	count := func(actor auth.Actor, filter timeoff.AttendanceFilter) int {
		t.Helper()
		got, err := f.svc.ListAttendance(f.ctx, actor, filter)
		require.NoError(t, err)
		return len(got)
	}

	assert.Equal(t, 5, count(f.hr.Actor(), timeoff.AttendanceFilter{}))
	assert.Equal(t, 1, count(f.emp.Actor(), timeoff.AttendanceFilter{}))
	assert.Equal(t, 2, count(f.mgr.Actor(), timeoff.AttendanceFilter{}))

	_, err = f.svc.AssignManagerDepartments(f.ctx, f.hr.Actor(), f.mgr.ID, []int64{eng.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, count(f.mgr.Actor(), timeoff.AttendanceFilter{}))

	// Asking for someone out of scope yields nothing rather than an error.
	assert.Equal(t, 0, count(f.emp.Actor(), timeoff.AttendanceFilter{EmployeeIDs: []generic.EmployeeID{f.admin.ID}}))
	assert.Equal(t, 1, count(f.mgr.Actor(), timeoff.AttendanceFilter{EmployeeIDs: []generic.EmployeeID{other.ID, f.admin.ID}}))

	_, err = f.svc.ListAttendance(f.ctx, f.hr.Actor(), timeoff.AttendanceFilter{From: d("2025-03-11"), To: d("2025-03-10")})
	assert.Equal(t, generic.ReasonInvalidDateRange, generic.ReasonOf(err))
}

// =============================================================================
// DEPARTMENTS
// =============================================================================

func TestDepartments_CreateRenameDeactivate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateDepartment(f.ctx, f.mgr.Actor(), "Sales")
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))
	_, err = f.svc.CreateDepartment(f.ctx, f.hr.Actor(), "  ")
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))

	sales, err := f.svc.CreateDepartment(f.ctx, f.hr.Actor(), " Sales ")
	require.NoError(t, err)
	assert.Equal(t, "Sales", sales.Name)
	assert.True(t, sales.Active)

	_, err = f.svc.CreateDepartment(f.ctx, f.hr.Actor(), "sales")
	assert.Equal(t, generic.ReasonDuplicate, generic.ReasonOf(err))

	name, off := "Revenue", false
	got, err := f.svc.UpdateDepartment(f.ctx, f.hr.Actor(), sales.ID, timeoff.DepartmentPatch{Name: &name, Active: &off})
	require.NoError(t, err)
	assert.Equal(t, "Revenue", got.Name)
	assert.False(t, got.Active)

	// Inactive departments are hidden from everyone but HR.
	_, err = f.svc.GetDepartment(f.ctx, f.emp.Actor(), sales.ID)
	assert.Equal(t, generic.KindNotFound, generic.KindOf(err))
	_, err = f.svc.GetDepartment(f.ctx, f.hr.Actor(), sales.ID)
	assert.NoError(t, err)

	list, err := f.svc.ListDepartments(f.ctx, f.emp.Actor(), true)
	require.NoError(t, err)
	assert.Empty(t, list)
	list, err = f.svc.ListDepartments(f.ctx, f.hr.Actor(), true)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	// New hires cannot join an inactive department.
	_, err = f.svc.CreateEmployee(f.ctx, f.hr.Actor(), timeoff.NewEmployee{
		Name: "new", Email: "new@example.com", Password: "s3cret-pass", Role: auth.RoleEmployee,
		DepartmentID: sales.ID, JoinDate: d("2025-02-20"), ReportingManagerID: f.mgr.ID,
	})
	assert.Equal(t, generic.ReasonInactiveDept, generic.ReasonOf(err))
	_, err = f.svc.SetEmployeeDepartment(f.ctx, f.hr.Actor(), f.emp.ID, sales.ID)
	assert.Equal(t, generic.ReasonInactiveDept, generic.ReasonOf(err))
}

func TestAssignManagerDepartments(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.CreateDepartment(f.ctx, f.hr.Actor(), "Alpha")
	require.NoError(t, err)
	b, err := f.svc.CreateDepartment(f.ctx, f.hr.Actor(), "Beta")
	require.NoError(t, err)

	// GIVEN duplicates in the request
	got, err := f.svc.AssignManagerDepartments(f.ctx, f.hr.Actor(), f.mgr.ID, []int64{b.ID, a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// WHEN the set is replaced
	_, err = f.svc.AssignManagerDepartments(f.ctx, f.hr.Actor(), f.mgr.ID, []int64{a.ID})
	require.NoError(t, err)

	// THEN only the new set remains
	mine, err := f.svc.ManagerDepartments(f.ctx, f.mgr.Actor(), f.mgr.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Alpha", mine[0].Name)

	_, err = f.svc.ManagerDepartments(f.ctx, f.emp.Actor(), f.mgr.ID)
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))
	_, err = f.svc.AssignManagerDepartments(f.ctx, f.hr.Actor(), f.emp.ID, []int64{a.ID})
	assert.Equal(t, generic.ReasonNotAManager, generic.ReasonOf(err))
	_, err = f.svc.AssignManagerDepartments(f.ctx, f.hr.Actor(), f.mgr.ID, []int64{404})
	assert.Equal(t, generic.KindNotFound, generic.KindOf(err))
	_, err = f.svc.AssignManagerDepartments(f.ctx, f.mgr.Actor(), f.mgr.ID, nil)
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))

	// An empty list clears the assignment.
	_, err = f.svc.AssignManagerDepartments(f.ctx, f.hr.Actor(), f.mgr.ID, nil)
	require.NoError(t, err)
	mine, err = f.svc.ManagerDepartments(f.ctx, f.hr.Actor(), f.mgr.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

// =============================================================================
// COMPANY EVENTS
// =============================================================================

func TestCancelForCompanyEvent(t *testing.T) {
	f := newFixture(t)
	f.fund(t, f.emp, timeoff.LeaveCL, 2)
	f.fund(t, f.mgr, timeoff.LeaveCL, 2)

	// GIVEN an approved two-day CL and a pending one-day CL touching 2025-03-04
	approved := f.apply(t, f.emp, timeoff.LeaveCL, "2025-03-03", "2025-03-04")
	_, err := f.svc.Approve(f.ctx, f.mgr.Actor(), approved.ID, "")
	require.NoError(t, err)
	pending := f.apply(t, f.mgr, timeoff.LeaveCL, "2025-03-04", "2025-03-04")
	untouched := f.apply(t, f.mgr, timeoff.LeaveCL, "2025-03-06", "2025-03-06")

	// WHEN the day is not an event
	_, err = f.svc.CancelForCompanyEvent(f.ctx, f.hr.Actor(), d("2025-03-04"), "offsite")
	assert.Equal(t, generic.ReasonNoCompanyEvent, generic.ReasonOf(err))

	_, err = f.svc.AddCalendarEntry(f.ctx, f.hr.Actor(), timeoff.CalendarEntry{Kind: timeoff.KindCompanyEvent, Date: d("2025-03-04"), Name: "Offsite"})
	require.NoError(t, err)

	_, err = f.svc.CancelForCompanyEvent(f.ctx, f.mgr.Actor(), d("2025-03-04"), "offsite")
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))
	_, err = f.svc.CancelForCompanyEvent(f.ctx, f.hr.Actor(), generic.Date{}, "offsite")
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))

	// WHEN HR cancels for the event
	got, err := f.svc.CancelForCompanyEvent(f.ctx, f.hr.Actor(), d("2025-03-04"), "offsite")
	require.NoError(t, err)

	// THEN both overlapping requests are cancelled by the company
	require.Len(t, got, 2)
	byID := map[int64]timeoff.LeaveRequest{}
	for _, r := range got {
		assert.Equal(t, timeoff.StatusCancelledByCompany, r.Status)
		assert.Equal(t, "offsite", r.CancelRemark)
		byID[r.ID] = r
	}
	assert.True(t, byID[approved.ID].Recredited)
	assert.False(t, byID[pending.ID].Recredited)

	// AND the approved days are back while the pending request never moved a balance
	assert.True(t, f.balance(t, f.emp, 2025, timeoff.LeaveCL).Remaining.Equal(days(2)))
	assert.True(t, f.balance(t, f.mgr, 2025, timeoff.LeaveCL).Remaining.Equal(days(2)))

	still, err := f.store.GetLeave(f.ctx, untouched.ID)
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusPending, still.Status)

	actions, err := f.svc.ListHRActions(f.ctx, f.hr.Actor(), f.emp.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "CANCELLED_BY_COMPANY", actions[0].Meta["status"])

	trail, err := f.store.ListAudit(f.ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditCompanyCancel}})
	require.NoError(t, err)
	assert.Len(t, trail, 2)

	// Running it again finds nothing left to cancel.
	again, err := f.svc.CancelForCompanyEvent(f.ctx, f.hr.Actor(), d("2025-03-04"), "offsite")
	require.NoError(t, err)
	assert.Empty(t, again)
}
