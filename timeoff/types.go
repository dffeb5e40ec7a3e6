/*
Package timeoff implements the leave policy and balance engine.

PURPOSE:
  Decides whether a leave request is permitted, how many days it consumes,
  how approval splits those days between a paid bucket and unpaid leave
  (LWP), and how monthly accrual and year-close move balances over time.

KEY CONCEPTS:
  - Wallet: one mutable Balance row per (employee, year, CL/PL/SL/RH),
    updated only inside approval, cancellation, accrual, year-close and
    HR adjustment transactions. Every mutation also appends a Transaction.
  - COMPOFF spends from the append-only generic.Ledger instead of a wallet.
  - LWP has no balance; it is always fully unpaid.

FILES:
  types.go        Domain types
  settings.go     Per-year policy settings and defaults
  calendar.go     Holidays, restricted holidays, company events
  daycount.go     Chargeable-day engine with the sandwich rule
  policies.go     Policy evaluator (apply- and approval-time rules)
  wallet.go       Balance arithmetic and wallet transactions
  request.go      Apply / approve / reject / cancel workflows
  accrual.go      Monthly accrual job
  yearclose.go    Year-end carry-forward and encashment
  hractions.go    HR penalties and action log
  wfh.go          Work-from-home requests
  departments.go  Department master data and manager assignments
  attendance.go   Punch-in / punch-out sessions
  store.go        Persistence contracts
*/
package timeoff

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// LEAVE TYPES
// =============================================================================

type LeaveType string

const (
	LeaveCL      LeaveType = "CL"
	LeavePL      LeaveType = "PL"
	LeaveSL      LeaveType = "SL"
	LeaveRH      LeaveType = "RH"
	LeaveCompOff LeaveType = "COMPOFF"
	LeaveLWP     LeaveType = "LWP"
)

// WalletTypes are the buckets with a Balance row.
var WalletTypes = []LeaveType{LeaveCL, LeavePL, LeaveSL, LeaveRH}

func ParseLeaveType(s string) (LeaveType, bool) {
	t := LeaveType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case LeaveCL, LeavePL, LeaveSL, LeaveRH, LeaveCompOff, LeaveLWP:
		return t, true
	}
	return "", false
}

// HasWallet reports whether the type is backed by a Balance row.
func (t LeaveType) HasWallet() bool {
	switch t {
	case LeaveCL, LeavePL, LeaveSL, LeaveRH:
		return true
	}
	return false
}

// Sandwiched reports whether the sandwich rule applies to the type.
func (t LeaveType) Sandwiched() bool {
	return t == LeaveCL || t == LeavePL || t == LeaveSL
}

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusPending            Status = "PENDING"
	StatusApproved           Status = "APPROVED"
	StatusRejected           Status = "REJECTED"
	StatusCancelled          Status = "CANCELLED"
	StatusCancelledByCompany Status = "CANCELLED_BY_COMPANY"
)

// Blocking statuses take part in the overlap check.
func (s Status) Blocking() bool { return s == StatusPending || s == StatusApproved }

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled, StatusCancelledByCompany:
		return st, true
	}
	return "", false
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID                 generic.EmployeeID
	EmpCode            string
	Name               string
	Email              string
	PasswordHash       string
	Role               auth.Role
	DepartmentID       int64 // 0 when unset
	JoinDate           generic.Date
	ReportingManagerID generic.EmployeeID // 0 when unset
	Active             bool
	LastAccrualMonth   string // "YYYY-MM", "" before the first run
	CreatedAt          time.Time
}

func (e *Employee) Actor() auth.Actor { return auth.Actor{EmployeeID: e.ID, Role: e.Role} }

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type LeaveRequest struct {
	ID                  int64
	EmployeeID          generic.EmployeeID
	LeaveType           LeaveType
	OriginalLeaveType   LeaveType // differs from LeaveType only after auto-conversion
	FromDate            generic.Date
	ToDate              generic.Date
	Reason              string
	Status              Status
	ComputedDays        decimal.Decimal
	ComputedDaysByMonth map[string]decimal.Decimal
	PaidDays            decimal.Decimal
	LWPDays             decimal.Decimal
	OverridePolicy      bool
	OverrideRemark      string
	AutoConvertedToLWP  bool
	AutoLWPReason       string
	AppliedBy           generic.EmployeeID

	ApprovedBy     generic.EmployeeID
	ApprovedAt     *time.Time
	ApprovedRemark string
	RejectedBy     generic.EmployeeID
	RejectedAt     *time.Time
	RejectedRemark string
	CancelledBy    generic.EmployeeID
	CancelledAt    *time.Time
	CancelRemark   string
	Recredited     bool

	AppliedAt time.Time
	UpdatedAt time.Time
}

func (r *LeaveRequest) Period() generic.Period {
	return generic.Period{Start: r.FromDate, End: r.ToDate}
}

func (r *LeaveRequest) Year() int { return r.FromDate.Year() }

// Approval is one row of a request's decision history.
type Approval struct {
	ID             int64
	LeaveRequestID int64
	Action         ApprovalAction
	ActorID        generic.EmployeeID
	Remarks        string
	CreatedAt      time.Time
}

type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "APPROVE"
	ApprovalReject  ApprovalAction = "REJECT"
	ApprovalCancel  ApprovalAction = "CANCEL"
)

// =============================================================================
// WALLET
// =============================================================================

// Balance is the mutable per-year bucket for one leave type.
type Balance struct {
	ID               int64
	EmployeeID       generic.EmployeeID
	Year             int
	LeaveType        LeaveType
	Opening          decimal.Decimal
	Accrued          decimal.Decimal
	Used             decimal.Decimal
	Remaining        decimal.Decimal
	CarryForward     decimal.Decimal
	RHUsed           decimal.Decimal
	PLCarriedForward decimal.Decimal
	PLEncashDays     decimal.Decimal
	UpdatedAt        time.Time
}

type WalletAction string

const (
	ActionAccrual        WalletAction = "ACCRUAL"
	ActionApproveDeduct  WalletAction = "APPROVE_DEDUCT"
	ActionCancelRecredit WalletAction = "CANCEL_RECREDIT"
	ActionManualAdjust   WalletAction = "MANUAL_ADJUST"
	ActionYearClose      WalletAction = "YEAR_CLOSE"
)

// Transaction is the append-only audit trail of wallet mutations.
type Transaction struct {
	ID             string
	EmployeeID     generic.EmployeeID
	LeaveRequestID int64 // 0 when not tied to a request
	Year           int
	LeaveType      LeaveType
	Delta          decimal.Decimal // + credit, - deduction
	Action         WalletAction
	Remarks        string
	ActorID        generic.EmployeeID
	IdempotencyKey string
	CreatedAt      time.Time
}

// =============================================================================
// HR ACTIONS
// =============================================================================

type HRActionType string

const (
	HRDeductPL            HRActionType = "DEDUCT_PL_3"
	HRMarkAbsconded       HRActionType = "MARK_ABSCONDED"
	HRMedicalCertMissing  HRActionType = "MEDICAL_CERT_MISSING_PENALTY"
	HRCancelApprovedLeave HRActionType = "CANCEL_APPROVED_LEAVE"
	HRPLEncashment        HRActionType = "PL_ENCASHMENT"
	HROther               HRActionType = "OTHER"
)

type HRAction struct {
	ID              string
	EmployeeID      generic.EmployeeID
	ActionType      HRActionType
	ReferenceEntity string
	ReferenceID     string
	Meta            map[string]any
	ActionBy        generic.EmployeeID
	Remarks         string
	CreatedAt       time.Time
}

// =============================================================================
// WORK FROM HOME
// =============================================================================

type WFHRequest struct {
	ID         int64
	EmployeeID generic.EmployeeID
	Date       generic.Date
	Reason     string
	DayValue   decimal.Decimal
	Status     Status
	DecidedBy  generic.EmployeeID
	DecidedAt  *time.Time
	Remarks    string
	CreatedAt  time.Time
}
