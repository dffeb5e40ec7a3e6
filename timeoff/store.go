/*
store.go - Persistence contracts for the leave engine

PURPOSE:
  Small interfaces per concern, composed into Store. Workflows that mutate
  state run inside Store.WithTx and use ONLY the Store handed to fn; the
  outer store must not be touched from inside a transaction.

NOT FOUND:
  Getters return (nil, nil) when the row doesn't exist.

SEE ALSO:
  - store/sqlite: Concrete implementation
*/
package timeoff

import (
	"context"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

type EmployeeStore interface {
	CreateEmployee(ctx context.Context, e *Employee) error
	UpdateEmployee(ctx context.Context, e *Employee) error
	GetEmployee(ctx context.Context, id generic.EmployeeID) (*Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (*Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]Employee, error)
}

type SettingsStore interface {
	GetSettings(ctx context.Context, year int) (*PolicySettings, error)
	SaveSettings(ctx context.Context, s *PolicySettings) error
}

type CalendarStore interface {
	AddCalendarEntry(ctx context.Context, e *CalendarEntry) error
	ListCalendar(ctx context.Context, kind CalendarKind, year int) ([]CalendarEntry, error)
}

type BalanceStore interface {
	GetBalance(ctx context.Context, emp generic.EmployeeID, year int, t LeaveType) (*Balance, error)
	// SaveBalance inserts or updates by (employee, year, leave type).
	SaveBalance(ctx context.Context, b *Balance) error
	ListBalances(ctx context.Context, emp generic.EmployeeID, year int) ([]Balance, error)
	ListBalancesByYear(ctx context.Context, year int) ([]Balance, error)
	// AppendTransaction fails with generic.ErrDuplicateIdempotencyKey on a reused key.
	AppendTransaction(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, emp generic.EmployeeID, year int) ([]Transaction, error)
}

// LeaveFilter selects leave requests. Zero fields are ignored.
type LeaveFilter struct {
	EmployeeIDs []generic.EmployeeID
	Statuses    []Status
	LeaveTypes  []LeaveType
	Year        int
	// Overlapping keeps requests whose range shares a day with it.
	Overlapping *generic.Period
	ExcludeID   int64
}

type LeaveStore interface {
	CreateLeave(ctx context.Context, r *LeaveRequest) error
	UpdateLeave(ctx context.Context, r *LeaveRequest) error
	GetLeave(ctx context.Context, id int64) (*LeaveRequest, error)
	ListLeaves(ctx context.Context, f LeaveFilter) ([]LeaveRequest, error)
	AppendApproval(ctx context.Context, a Approval) error
	ListApprovals(ctx context.Context, leaveID int64) ([]Approval, error)
}

type HRActionFilter struct {
	EmployeeIDs []generic.EmployeeID
	ActionType  HRActionType
}

type HRActionStore interface {
	AppendHRAction(ctx context.Context, a HRAction) error
	ListHRActions(ctx context.Context, f HRActionFilter) ([]HRAction, error)
}

type WFHFilter struct {
	EmployeeIDs []generic.EmployeeID
	Statuses    []Status
	Year        int
}

type WFHStore interface {
	CreateWFH(ctx context.Context, w *WFHRequest) error
	UpdateWFH(ctx context.Context, w *WFHRequest) error
	GetWFH(ctx context.Context, id int64) (*WFHRequest, error)
	ListWFH(ctx context.Context, f WFHFilter) ([]WFHRequest, error)
}

type DepartmentStore interface {
	// CreateDepartment fails with a generic.Conflict on a duplicate name (case-insensitive).
	CreateDepartment(ctx context.Context, d *Department) error
	UpdateDepartment(ctx context.Context, d *Department) error
	GetDepartment(ctx context.Context, id int64) (*Department, error)
	ListDepartments(ctx context.Context, activeOnly bool) ([]Department, error)
	// SetManagerDepartments replaces the manager's whole assignment set.
	SetManagerDepartments(ctx context.Context, manager generic.EmployeeID, departmentIDs []int64) error
	ListManagerDepartments(ctx context.Context, manager generic.EmployeeID) ([]int64, error)
}

// AttendanceFilter selects sessions. Zero fields are ignored; From/To are inclusive.
type AttendanceFilter struct {
	EmployeeIDs []generic.EmployeeID
	Statuses    []SessionStatus
	From        generic.Date
	To          generic.Date
}

type AttendanceStore interface {
	// CreateSession fails with a generic.Conflict when the employee already
	// has an OPEN session for the work date.
	CreateSession(ctx context.Context, a *AttendanceSession) error
	UpdateSession(ctx context.Context, a *AttendanceSession) error
	GetSession(ctx context.Context, id int64) (*AttendanceSession, error)
	ListSessions(ctx context.Context, f AttendanceFilter) ([]AttendanceSession, error)
}

// Store is everything the leave engine persists.
type Store interface {
	EmployeeStore
	SettingsStore
	CalendarStore
	BalanceStore
	LeaveStore
	HRActionStore
	WFHStore
	DepartmentStore
	AttendanceStore
	generic.EntryStore
	generic.AuditLog

	// WithTx runs fn in one transaction. fn's error rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
