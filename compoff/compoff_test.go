package compoff_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/logging"
	"github.com/warp/leave-engine/store/sqlite"
	"github.com/warp/leave-engine/timeoff"
)

type env struct {
	ctx      context.Context
	store    *sqlite.Store
	compoffs *compoff.Service
	leaves   *timeoff.Service
	now      time.Time

	hr, mgr, emp *timeoff.Employee
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := &env{ctx: context.Background(), store: store, now: generic.MustParseDate("2025-03-10").Time()}
	clock := generic.Clock(func() time.Time { return e.now })
	e.compoffs = compoff.NewService(store, logging.Discard())
	e.compoffs.Clock = clock
	e.leaves = timeoff.NewService(store, logging.Discard())
	e.leaves.Clock = clock

	e.hr = e.add(t, "hr", auth.RoleHR, 0)
	e.mgr = e.add(t, "mgr", auth.RoleManager, e.hr.ID)
	e.emp = e.add(t, "emp", auth.RoleEmployee, e.mgr.ID)
	return e
}

func (e *env) add(t *testing.T, name string, role auth.Role, manager generic.EmployeeID) *timeoff.Employee {
	t.Helper()
	emp := &timeoff.Employee{
		Name: name, Email: name + "@example.com", Role: role,
		JoinDate: generic.MustParseDate("2024-01-01"), ReportingManagerID: manager, Active: true,
	}
	require.NoError(t, e.store.CreateEmployee(e.ctx, emp))
	return emp
}

// attend records a 09:00 punch-in on day and, when out is set, an 18:00
// punch-out. The clock is restored afterwards.
func (e *env) attend(t *testing.T, day string, out bool) {
	t.Helper()
	saved := e.now
	defer func() { e.now = saved }()

	start := generic.MustParseDate(day).Time()
	e.now = start.Add(9 * time.Hour)
	_, err := e.leaves.PunchIn(e.ctx, e.emp.Actor(), timeoff.Punch{Source: "mobile"})
	require.NoError(t, err)
	if out {
		e.now = start.Add(18 * time.Hour)
		_, err = e.leaves.PunchOut(e.ctx, e.emp.Actor(), timeoff.Punch{Source: "mobile"})
		require.NoError(t, err)
	}
}

func (e *env) earn(t *testing.T, worked string) *compoff.Request {
	t.Helper()
	e.attend(t, worked, true)
	r, err := e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate(worked), "release weekend")
	require.NoError(t, err)
	_, err = e.compoffs.Approve(e.ctx, e.mgr.Actor(), r.ID, "thanks")
	require.NoError(t, err)
	return r
}

func (e *env) available(t *testing.T) float64 {
	t.Helper()
	bal, err := e.compoffs.Balance(e.ctx, e.emp.Actor(), e.emp.ID)
	require.NoError(t, err)
	f, _ := bal.Available.Float64()
	return f
}

func TestRequest_OnlyForOffDays(t *testing.T) {
	e := newEnv(t)

	_, err := e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-03"), "monday")
	assert.Equal(t, generic.ReasonCompOffDate, generic.ReasonOf(err))

	e.attend(t, "2025-03-02", true)
	_, err = e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-02"), "sunday")
	require.NoError(t, err)

	_, err = e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-02"), "sunday again")
	assert.Equal(t, generic.KindConflict, generic.KindOf(err))
}

func TestRequest_HolidayCounts(t *testing.T) {
	e := newEnv(t)
	_, err := e.leaves.AddCalendarEntry(e.ctx, e.hr.Actor(), timeoff.CalendarEntry{
		Kind: timeoff.KindHoliday, Date: generic.MustParseDate("2025-03-05"), Name: "Founders Day",
	})
	require.NoError(t, err)

	e.attend(t, "2025-03-05", true)
	_, err = e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-05"), "deploy")
	assert.NoError(t, err)
}

func TestRequest_RequiresCompleteAttendance(t *testing.T) {
	e := newEnv(t)
	sunday := generic.MustParseDate("2025-03-09")

	// GIVEN no session on the Sunday
	_, err := e.compoffs.Request(e.ctx, e.emp.Actor(), sunday, "hotfix")
	assert.Equal(t, generic.ReasonNoAttendance, generic.ReasonOf(err))

	// WHEN the employee punched in but never out
	e.attend(t, "2025-03-09", false)
	_, err = e.compoffs.Request(e.ctx, e.emp.Actor(), sunday, "hotfix")
	assert.Equal(t, generic.ReasonAttendanceOpen, generic.ReasonOf(err))

	// THEN closing the session makes the day eligible
	e.now = sunday.Time().Add(20 * time.Hour)
	_, err = e.leaves.PunchOut(e.ctx, e.emp.Actor(), timeoff.Punch{})
	require.NoError(t, err)
	e.now = generic.MustParseDate("2025-03-10").Time()

	r, err := e.compoffs.Request(e.ctx, e.emp.Actor(), sunday, "hotfix")
	require.NoError(t, err)
	assert.Equal(t, compoff.StatusPending, r.Status)
}

func TestRequest_WorkingDayCheckedBeforeAttendance(t *testing.T) {
	e := newEnv(t)
	e.attend(t, "2025-03-04", true)

	_, err := e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-04"), "tuesday")
	assert.Equal(t, generic.ReasonCompOffDate, generic.ReasonOf(err))
}

func TestApprove_CreditsOneDayWithExpiry(t *testing.T) {
	e := newEnv(t)

	e.attend(t, "2025-03-02", true)
	r, err := e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-02"), "on call")
	require.NoError(t, err)

	_, err = e.compoffs.Approve(e.ctx, e.emp.Actor(), r.ID, "")
	assert.Equal(t, generic.ReasonSelfApproval, generic.ReasonOf(err))

	got, err := e.compoffs.Approve(e.ctx, e.mgr.Actor(), r.ID, "ok")
	require.NoError(t, err)
	assert.Equal(t, compoff.StatusApproved, got.Status)
	assert.Equal(t, e.mgr.ID, got.DecidedBy)

	entries, err := e.store.ListEntries(e.ctx, e.emp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-05-01", entries[0].ExpiresOn.String())
	assert.Equal(t, 1.0, e.available(t))

	_, err = e.compoffs.Reject(e.ctx, e.mgr.Actor(), r.ID, "")
	assert.Equal(t, generic.ReasonNotPending, generic.ReasonOf(err))

	// valid on the expiry day, gone the day after
	e.now = generic.MustParseDate("2025-05-01").Time()
	assert.Equal(t, 1.0, e.available(t))
	e.now = generic.MustParseDate("2025-05-02").Time()
	assert.Equal(t, 0.0, e.available(t))
}

func TestCompOffLeave_DebitsAndReverses(t *testing.T) {
	e := newEnv(t)
	e.earn(t, "2025-03-02")

	// GIVEN one credited day and a 2 day comp-off leave
	r, err := e.leaves.Apply(e.ctx, e.emp.Actor(), timeoff.ApplyInput{
		LeaveType: timeoff.LeaveCompOff,
		FromDate:  generic.MustParseDate("2025-03-11"),
		ToDate:    generic.MustParseDate("2025-03-12"),
	})
	require.NoError(t, err)

	// WHEN approved
	got, err := e.leaves.Approve(e.ctx, e.mgr.Actor(), r.ID, "")
	require.NoError(t, err)

	// THEN the ledger pays one day and the rest is LWP
	assert.True(t, got.PaidDays.Equal(generic.DaysInt(1)))
	assert.True(t, got.LWPDays.Equal(generic.DaysInt(1)))
	assert.Equal(t, 0.0, e.available(t))

	// AND a re-credited cancellation reverses the debit
	_, err = e.leaves.Cancel(e.ctx, e.hr.Actor(), r.ID, true, "project slipped")
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.available(t))

	entries, err := e.store.ListEntries(e.ctx, e.emp.ID)
	require.NoError(t, err)
	kinds := make([]generic.EntryKind, 0, len(entries))
	for _, en := range entries {
		kinds = append(kinds, en.Kind)
	}
	assert.ElementsMatch(t, []generic.EntryKind{generic.EntryCredit, generic.EntryDebit, generic.EntryReversal}, kinds)
}

func TestQueues(t *testing.T) {
	e := newEnv(t)
	e.attend(t, "2025-03-02", true)
	_, err := e.compoffs.Request(e.ctx, e.emp.Actor(), generic.MustParseDate("2025-03-02"), "")
	require.NoError(t, err)

	_, err = e.compoffs.Pending(e.ctx, e.emp.Actor())
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))

	pending, err := e.compoffs.Pending(e.ctx, e.mgr.Actor())
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	mine, err := e.compoffs.Mine(e.ctx, e.mgr.Actor())
	require.NoError(t, err)
	assert.Empty(t, mine)

	all, err := e.compoffs.All(e.ctx, e.hr.Actor())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = e.compoffs.Balance(e.ctx, e.mgr.Actor(), e.hr.ID)
	assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))
}
