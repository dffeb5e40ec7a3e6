package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/store/sqlite"
	"github.com/warp/leave-engine/timeoff"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func addEmployee(t *testing.T, store *sqlite.Store, email string, manager generic.EmployeeID) *timeoff.Employee {
	t.Helper()
	e := &timeoff.Employee{
		Name:               email,
		Email:              email,
		Role:               auth.RoleEmployee,
		JoinDate:           generic.MustParseDate("2024-01-10"),
		ReportingManagerID: manager,
		Active:             true,
		CreatedAt:          time.Now(),
	}
	require.NoError(t, store.CreateEmployee(context.Background(), e))
	return e
}

func TestEmployees_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	mgr := addEmployee(t, store, "mgr@example.com", 0)
	emp := addEmployee(t, store, "emp@example.com", mgr.ID)

	got, err := store.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "emp@example.com", got.Email)
	assert.Equal(t, mgr.ID, got.ReportingManagerID)
	assert.Equal(t, "2024-01-10", got.JoinDate.String())
	assert.True(t, got.Active)

	byEmail, err := store.GetEmployeeByEmail(ctx, "mgr@example.com")
	require.NoError(t, err)
	assert.Equal(t, mgr.ID, byEmail.ID)

	missing, err := store.GetEmployee(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// duplicate email is a conflict
	err = store.CreateEmployee(ctx, &timeoff.Employee{Name: "x", Email: "emp@example.com", Role: auth.RoleEmployee,
		JoinDate: generic.MustParseDate("2024-01-01"), Active: true})
	assert.Equal(t, generic.KindConflict, generic.KindOf(err))

	got.Active = false
	got.LastAccrualMonth = "2025-03"
	require.NoError(t, store.UpdateEmployee(ctx, got))
	active, err := store.ListEmployees(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
	all, err := store.ListEmployees(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSettings_UpsertRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	none, err := store.GetSettings(ctx, 2025)
	require.NoError(t, err)
	assert.Nil(t, none)

	s := timeoff.DefaultSettings(2025)
	require.NoError(t, store.SaveSettings(ctx, s))

	s.CarryForwardPLMax = generic.Days(5.5)
	s.EnforceMonthlyCap = true
	require.NoError(t, store.SaveSettings(ctx, s))

	got, err := store.GetSettings(ctx, 2025)
	require.NoError(t, err)
	assert.True(t, got.CarryForwardPLMax.Equal(generic.Days(5.5)))
	assert.True(t, got.EnforceMonthlyCap)
	assert.True(t, got.WFHDayValue.Equal(generic.Days(0.5)))
	assert.Equal(t, 7, got.WeeklyOffDay)
	assert.True(t, got.SandwichEnabled)
	assert.False(t, got.SandwichIncludeRH)
}

func TestBalances_UniquePerEmployeeYearType(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "a@example.com", 0)

	b := timeoff.NewBalance(emp.ID, 2025, timeoff.LeavePL)
	b.Accrued = generic.DaysInt(3)
	b.Recompute()
	require.NoError(t, store.SaveBalance(ctx, b))
	require.NotZero(t, b.ID)

	b.Used = generic.Days(1.5)
	b.Recompute()
	require.NoError(t, store.SaveBalance(ctx, b))

	got, err := store.GetBalance(ctx, emp.ID, 2025, timeoff.LeavePL)
	require.NoError(t, err)
	assert.True(t, got.Remaining.Equal(generic.Days(1.5)))

	list, err := store.ListBalances(ctx, emp.ID, 2025)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	missing, err := store.GetBalance(ctx, emp.ID, 2025, timeoff.LeaveCL)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactions_IdempotencyKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "a@example.com", 0)

	tx := timeoff.Transaction{
		ID: "t1", EmployeeID: emp.ID, Year: 2025, LeaveType: timeoff.LeavePL,
		Delta: generic.DaysInt(1), Action: timeoff.ActionAccrual, IdempotencyKey: "accrual:1:2025-01:PL",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.AppendTransaction(ctx, tx))

	tx.ID = "t2"
	err := store.AppendTransaction(ctx, tx)
	assert.True(t, errors.Is(err, generic.ErrDuplicateIdempotencyKey))

	trail, err := store.ListTransactions(ctx, emp.ID, 2025)
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestLeaves_FilterOverlapAndExclude(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "a@example.com", 0)

	mk := func(from, to string, status timeoff.Status) *timeoff.LeaveRequest {
		l := &timeoff.LeaveRequest{
			EmployeeID: emp.ID, LeaveType: timeoff.LeaveCL, OriginalLeaveType: timeoff.LeaveCL,
			FromDate: generic.MustParseDate(from), ToDate: generic.MustParseDate(to), Status: status,
			ComputedDays: generic.DaysInt(1), AppliedAt: time.Now(), UpdatedAt: time.Now(),
		}
		require.NoError(t, store.CreateLeave(ctx, l))
		return l
	}
	a := mk("2025-03-10", "2025-03-12", timeoff.StatusApproved)
	mk("2025-03-20", "2025-03-20", timeoff.StatusRejected)
	mk("2025-04-01", "2025-04-02", timeoff.StatusPending)

	window, _ := generic.NewPeriod(generic.MustParseDate("2025-03-12"), generic.MustParseDate("2025-04-01"))
	got, err := store.ListLeaves(ctx, timeoff.LeaveFilter{
		EmployeeIDs: []generic.EmployeeID{emp.ID},
		Statuses:    []timeoff.Status{timeoff.StatusPending, timeoff.StatusApproved},
		Overlapping: &window,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.ListLeaves(ctx, timeoff.LeaveFilter{Overlapping: &window, ExcludeID: a.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2) // rejected + pending

	got, err = store.ListLeaves(ctx, timeoff.LeaveFilter{Year: 2026})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLeaves_UpdateKeepsCancelMetadata(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "a@example.com", 0)

	l := &timeoff.LeaveRequest{
		EmployeeID: emp.ID, LeaveType: timeoff.LeavePL, FromDate: generic.MustParseDate("2025-05-05"),
		ToDate: generic.MustParseDate("2025-05-06"), Status: timeoff.StatusApproved,
		ComputedDays: generic.DaysInt(2), PaidDays: generic.DaysInt(2), LWPDays: generic.DaysInt(0),
		AppliedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, store.CreateLeave(ctx, l))

	now := time.Now()
	l.Status = timeoff.StatusCancelled
	l.CancelledAt = &now
	l.CancelRemark = "company shutdown"
	l.Recredited = true
	require.NoError(t, store.UpdateLeave(ctx, l))

	got, err := store.GetLeave(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, timeoff.StatusCancelled, got.Status)
	assert.Equal(t, "company shutdown", got.CancelRemark)
	assert.True(t, got.Recredited)
	require.NotNil(t, got.CancelledAt)
	assert.Nil(t, got.ApprovedAt)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "a@example.com", 0)

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx timeoff.Store) error {
		b := timeoff.NewBalance(emp.ID, 2025, timeoff.LeaveCL)
		if err := tx.SaveBalance(ctx, b); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.GetBalance(ctx, emp.ID, 2025, timeoff.LeaveCL)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCompOffLedger_AppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "a@example.com", 0)

	worked := generic.MustParseDate("2025-03-02")
	credit := generic.Entry{
		ID: "c1", EmployeeID: emp.ID, Kind: generic.EntryCredit, Days: generic.DaysInt(1),
		WorkedDate: worked, ExpiresOn: worked.AddDays(60), IdempotencyKey: "compoff-credit:1",
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.AppendEntry(ctx, credit))
	credit.ID = "c2"
	assert.ErrorIs(t, store.AppendEntry(ctx, credit), generic.ErrDuplicateIdempotencyKey)

	entries, err := store.ListEntries(ctx, emp.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2025-05-01", entries[0].ExpiresOn.String())

	err = store.WithCompOffTx(ctx, func(tx compoff.Store) error {
		return tx.CreateCompOff(ctx, &compoff.Request{EmployeeID: emp.ID, WorkedDate: worked,
			Status: compoff.StatusPending, CreatedAt: time.Now()})
	})
	require.NoError(t, err)
	reqs, err := store.ListCompOff(ctx, compoff.Filter{Statuses: []compoff.Status{compoff.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestAudit_ListFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, action := range []generic.AuditAction{generic.AuditLeaveApplied, generic.AuditLeaveApproved} {
		require.NoError(t, store.AppendAudit(ctx, generic.AuditEntry{
			ID: string(rune('a' + i)), Timestamp: time.Now(), ActorID: 7, Action: action,
			EntityType: "leave_request", EntityID: "1", Payload: map[string]any{"n": i},
		}))
	}
	got, err := store.ListAudit(ctx, generic.AuditFilter{Actions: []generic.AuditAction{generic.AuditLeaveApproved}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, generic.EmployeeID(7), got[0].ActorID)

	got, err = store.ListAudit(ctx, generic.AuditFilter{EntityType: "leave_request", EntityID: "1", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestAttendance_OneOpenSessionPerWorkDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	emp := addEmployee(t, store, "emp@example.com", 0)

	in := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	open := func() *timeoff.AttendanceSession {
		return &timeoff.AttendanceSession{
			EmployeeID: emp.ID,
			WorkDate:   generic.MustParseDate("2025-03-10"),
			PunchInAt:  &in,
			Status:     timeoff.SessionOpen,
			PunchInGeo: &timeoff.Geo{Lat: 12.97, Lng: 77.59, Accuracy: 15, Address: "Indiranagar"},
			CreatedAt:  in,
			UpdatedAt:  in,
		}
	}

	first := open()
	require.NoError(t, store.CreateSession(ctx, first))

	// a second OPEN row for the same date violates the partial index
	err := store.CreateSession(ctx, open())
	assert.Equal(t, generic.ReasonAlreadyPunchedIn, generic.ReasonOf(err))

	out := in.Add(8 * time.Hour)
	first.PunchOutAt = &out
	first.Status = timeoff.SessionClosed
	first.PunchOutGeo = &timeoff.Geo{Lat: 12.98, Lng: 77.60, Accuracy: 30}
	require.NoError(t, store.UpdateSession(ctx, first))
	require.NoError(t, store.CreateSession(ctx, open()))

	got, err := store.GetSession(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, timeoff.SessionClosed, got.Status)
	assert.True(t, got.PunchOutAt.Equal(out))
	require.NotNil(t, got.PunchInGeo)
	assert.Equal(t, "Indiranagar", got.PunchInGeo.Address)
	assert.InDelta(t, 77.60, got.PunchOutGeo.Lng, 1e-9)

	openOnly, err := store.ListSessions(ctx, timeoff.AttendanceFilter{Statuses: []timeoff.SessionStatus{timeoff.SessionOpen}})
	require.NoError(t, err)
	assert.Len(t, openOnly, 1)
	all, err := store.ListSessions(ctx, timeoff.AttendanceFilter{
		EmployeeIDs: []generic.EmployeeID{emp.ID},
		From:        generic.MustParseDate("2025-03-10"),
		To:          generic.MustParseDate("2025-03-10"),
	})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := store.GetSession(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDepartments_NamesAndManagerAssignments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	eng := &timeoff.Department{Name: "Engineering", Active: true, CreatedAt: now, UpdatedAt: now}
	ops := &timeoff.Department{Name: "Ops", Active: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateDepartment(ctx, eng))
	require.NoError(t, store.CreateDepartment(ctx, ops))

	// names are unique regardless of case
	err := store.CreateDepartment(ctx, &timeoff.Department{Name: "ENGINEERING", Active: true, CreatedAt: now, UpdatedAt: now})
	assert.Equal(t, generic.ReasonDuplicate, generic.ReasonOf(err))

	ops.Active = false
	require.NoError(t, store.UpdateDepartment(ctx, ops))
	active, err := store.ListDepartments(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Engineering", active[0].Name)
	all, err := store.ListDepartments(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	emp := addEmployee(t, store, "emp@example.com", 0)
	emp.DepartmentID = eng.ID
	require.NoError(t, store.UpdateEmployee(ctx, emp))
	got, err := store.GetEmployee(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, eng.ID, got.DepartmentID)

	mgr := addEmployee(t, store, "mgr@example.com", 0)
	require.NoError(t, store.SetManagerDepartments(ctx, mgr.ID, []int64{eng.ID, ops.ID}))
	require.NoError(t, store.SetManagerDepartments(ctx, mgr.ID, []int64{ops.ID}))
	ids, err := store.ListManagerDepartments(ctx, mgr.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{ops.ID}, ids)
}
