/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types never
  reach the wire directly: day quantities become float64, IDs plain
  integers, dates "YYYY-MM-DD".

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry `validate` tags checked by factory.PolicyFactory
  before the handler calls the service. Business rules (date ranges,
  balances, roles) stay in the services.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/settings.go: Settings document and validator
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateEmployeeRequest struct {
	EmpCode            string       `json:"emp_code" validate:"max=32"`
	Name               string       `json:"name" validate:"required,max=200"`
	Email              string       `json:"email" validate:"required,email"`
	Password           string       `json:"password" validate:"required,min=8"`
	Role               string       `json:"role" validate:"required,oneof=EMPLOYEE MANAGER HR ADMIN"`
	DepartmentID       int64        `json:"department_id" validate:"gte=0"`
	JoinDate           generic.Date `json:"join_date"`
	ReportingManagerID int64        `json:"reporting_manager_id" validate:"gte=0"`
}

type SetManagerRequest struct {
	ReportingManagerID int64 `json:"reporting_manager_id" validate:"gte=0"`
}

type ApplyLeaveRequest struct {
	EmployeeID     int64        `json:"employee_id" validate:"gte=0"`
	LeaveType      string       `json:"leave_type" validate:"required"`
	FromDate       generic.Date `json:"from_date"`
	ToDate         generic.Date `json:"to_date"`
	Reason         string       `json:"reason" validate:"max=1000"`
	OverridePolicy bool         `json:"override_policy"`
	OverrideRemark string       `json:"override_remark" validate:"max=1000"`
}

type DecisionRequest struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

type CancelLeaveRequest struct {
	Recredit bool   `json:"recredit"`
	Remarks  string `json:"remarks" validate:"max=1000"`
}

type DeductPLRequest struct {
	Days    *float64 `json:"days" validate:"omitempty,gt=0"`
	Remarks string   `json:"remarks" validate:"max=1000"`
}

type CalendarEntryRequest struct {
	Date generic.Date `json:"date"`
	Name string       `json:"name" validate:"required,max=200"`
}

type CompOffRequestBody struct {
	WorkedDate generic.Date `json:"worked_date"`
	Reason     string       `json:"reason" validate:"max=1000"`
}

type WFHApplyRequest struct {
	Date   generic.Date `json:"date"`
	Reason string       `json:"reason" validate:"max=1000"`
}

type CompanyEventCancelRequest struct {
	Date    generic.Date `json:"date"`
	Remarks string       `json:"remarks" validate:"max=1000"`
}

type GeoBody struct {
	Lat      float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng      float64 `json:"lng" validate:"gte=-180,lte=180"`
	Accuracy float64 `json:"accuracy" validate:"gt=0"`
	Address  string  `json:"address" validate:"max=500"`
}

type PunchRequest struct {
	Source   string   `json:"source" validate:"max=32"`
	DeviceID string   `json:"device_id" validate:"max=128"`
	Geo      *GeoBody `json:"geo"`
	Remarks  string   `json:"remarks" validate:"max=1000"`
}

type DepartmentRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type DepartmentPatchRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=100"`
	Active *bool   `json:"active"`
}

type ManagerDepartmentsRequest struct {
	DepartmentIDs []int64 `json:"department_ids" validate:"dive,gt=0"`
}

type SetDepartmentRequest struct {
	DepartmentID int64 `json:"department_id" validate:"gte=0"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Details any    `json:"details,omitempty"`
}

type LoginResponse struct {
	Token     string      `json:"access_token"`
	TokenType string      `json:"token_type"`
	Employee  EmployeeDTO `json:"employee"`
}

type EmployeeDTO struct {
	ID                 int64        `json:"id"`
	EmpCode            string       `json:"emp_code,omitempty"`
	Name               string       `json:"name"`
	Email              string       `json:"email"`
	Role               string       `json:"role"`
	DepartmentID       *int64       `json:"department_id"`
	JoinDate           generic.Date `json:"join_date"`
	ReportingManagerID *int64       `json:"reporting_manager_id"`
	Active             bool         `json:"active"`
	LastAccrualMonth   string       `json:"last_accrual_month,omitempty"`
}

type LeaveDTO struct {
	ID                  int64              `json:"id"`
	EmployeeID          int64              `json:"employee_id"`
	LeaveType           string             `json:"leave_type"`
	OriginalLeaveType   string             `json:"original_leave_type"`
	FromDate            generic.Date       `json:"from_date"`
	ToDate              generic.Date       `json:"to_date"`
	Reason              string             `json:"reason"`
	Status              string             `json:"status"`
	ComputedDays        float64            `json:"computed_days"`
	ComputedDaysByMonth map[string]float64 `json:"computed_days_by_month"`
	PaidDays            float64            `json:"paid_days"`
	LWPDays             float64            `json:"lwp_days"`
	OverridePolicy      bool               `json:"override_policy"`
	OverrideRemark      string             `json:"override_remark,omitempty"`
	AutoConvertedToLWP  bool               `json:"auto_converted_to_lwp"`
	AutoLWPReason       string             `json:"auto_lwp_reason,omitempty"`
	AppliedBy           int64              `json:"applied_by"`
	ApprovedBy          *int64             `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time         `json:"approved_at,omitempty"`
	ApprovedRemark      string             `json:"approved_remark,omitempty"`
	RejectedBy          *int64             `json:"rejected_by,omitempty"`
	RejectedAt          *time.Time         `json:"rejected_at,omitempty"`
	RejectedRemark      string             `json:"rejected_remark,omitempty"`
	CancelledBy         *int64             `json:"cancelled_by,omitempty"`
	CancelledAt         *time.Time         `json:"cancelled_at,omitempty"`
	CancelRemark        string             `json:"cancel_remark,omitempty"`
	CancelledRemark     string             `json:"cancelled_remark,omitempty"`
	Recredited          bool               `json:"recredited"`
	AppliedAt           time.Time          `json:"applied_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

type ApprovalDTO struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	ActorID   int64     `json:"actor_id"`
	Remarks   string    `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type BalanceDTO struct {
	Year             int     `json:"year"`
	LeaveType        string  `json:"leave_type"`
	Opening          float64 `json:"opening"`
	Accrued          float64 `json:"accrued"`
	Used             float64 `json:"used"`
	Remaining        float64 `json:"remaining"`
	CarryForward     float64 `json:"carry_forward"`
	RHUsed           float64 `json:"rh_used,omitempty"`
	PLCarriedForward float64 `json:"pl_carried_forward,omitempty"`
	PLEncashDays     float64 `json:"pl_encash_days,omitempty"`
}

// BalancesResponse groups the wallet rows with the comp-off ledger view.
type BalancesResponse struct {
	EmployeeID int64             `json:"employee_id"`
	Year       int               `json:"year"`
	Balances   []BalanceDTO      `json:"balances"`
	CompOff    *LedgerBalanceDTO `json:"compoff,omitempty"`
}

type TransactionDTO struct {
	ID             string    `json:"id"`
	LeaveRequestID *int64    `json:"leave_request_id,omitempty"`
	Year           int       `json:"year"`
	LeaveType      string    `json:"leave_type"`
	Delta          float64   `json:"delta"`
	Action         string    `json:"action"`
	Remarks        string    `json:"remarks,omitempty"`
	ActorID        int64     `json:"actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type HRActionDTO struct {
	ID              string         `json:"id"`
	EmployeeID      int64          `json:"employee_id"`
	ActionType      string         `json:"action_type"`
	ReferenceEntity string         `json:"reference_entity,omitempty"`
	ReferenceID     string         `json:"reference_id,omitempty"`
	Meta            map[string]any `json:"meta,omitempty"`
	ActionBy        int64          `json:"action_by"`
	Remarks         string         `json:"remarks,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

type CalendarEntryDTO struct {
	ID     int64        `json:"id"`
	Kind   string       `json:"kind"`
	Year   int          `json:"year"`
	Date   generic.Date `json:"date"`
	Name   string       `json:"name"`
	Active bool         `json:"active"`
}

type AccrualStatusDTO struct {
	EmployeeID       int64                 `json:"employee_id"`
	Name             string                `json:"name"`
	LastAccrualMonth string                `json:"last_accrual_month"`
	Balances         map[string]BalanceDTO `json:"balances"`
}

type YearCloseEmployeeDTO struct {
	EmployeeID    int64   `json:"employee_id"`
	UnusedPL      float64 `json:"unused_pl"`
	CarryForward  float64 `json:"carry_forward"`
	Encash        float64 `json:"encash"`
	AlreadyClosed bool    `json:"already_closed"`
	Error         string  `json:"error,omitempty"`
}

type YearCloseDTO struct {
	Year              int                    `json:"year"`
	Processed         int                    `json:"processed"`
	Closed            int                    `json:"closed"`
	SkippedAlreadyRun int                    `json:"skipped_already_run"`
	Failed            int                    `json:"failed"`
	TotalCarryForward float64                `json:"total_carry_forward"`
	TotalEncash       float64                `json:"total_encash"`
	Employees         []YearCloseEmployeeDTO `json:"employees"`
}

type CompOffDTO struct {
	ID         int64        `json:"id"`
	EmployeeID int64        `json:"employee_id"`
	WorkedDate generic.Date `json:"worked_date"`
	ExpiresOn  generic.Date `json:"expires_on"`
	Reason     string       `json:"reason,omitempty"`
	Status     string       `json:"status"`
	DecidedBy  *int64       `json:"decided_by,omitempty"`
	DecidedAt  *time.Time   `json:"decided_at,omitempty"`
	Remarks    string       `json:"remarks,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

type LedgerBalanceDTO struct {
	Credits   float64 `json:"credits"`
	Expired   float64 `json:"expired"`
	Debits    float64 `json:"debits"`
	Reversals float64 `json:"reversals"`
	Available float64 `json:"available"`
}

type WFHDTO struct {
	ID         int64        `json:"id"`
	EmployeeID int64        `json:"employee_id"`
	Date       generic.Date `json:"date"`
	Reason     string       `json:"reason,omitempty"`
	DayValue   float64      `json:"day_value"`
	Status     string       `json:"status"`
	DecidedBy  *int64       `json:"decided_by,omitempty"`
	DecidedAt  *time.Time   `json:"decided_at,omitempty"`
	Remarks    string       `json:"remarks,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

type WFHBalanceDTO struct {
	Year         int     `json:"year"`
	MaxDays      int     `json:"max_days"`
	ApprovedDays int     `json:"approved_days"`
	PendingDays  int     `json:"pending_days"`
	Remaining    int     `json:"remaining"`
	DayValue     float64 `json:"day_value"`
	ValueUsed    float64 `json:"value_used"`
}

type DepartmentDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AttendanceDTO struct {
	ID             int64        `json:"id"`
	EmployeeID     int64        `json:"employee_id"`
	WorkDate       generic.Date `json:"work_date"`
	PunchInAt      *time.Time   `json:"punch_in_at"`
	PunchOutAt     *time.Time   `json:"punch_out_at"`
	Status         string       `json:"status"`
	PunchInSource  string       `json:"punch_in_source,omitempty"`
	PunchOutSource string       `json:"punch_out_source,omitempty"`
	PunchInGeo     *timeoff.Geo `json:"punch_in_geo,omitempty"`
	PunchOutGeo    *timeoff.Geo `json:"punch_out_geo,omitempty"`
	WorkedMinutes  int          `json:"worked_minutes"`
	Remarks        string       `json:"remarks,omitempty"`
}

type TodayAttendanceDTO struct {
	WorkDate generic.Date   `json:"work_date"`
	Session  *AttendanceDTO `json:"session"`
}

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func days(d decimal.Decimal) float64 { return d.InexactFloat64() }

// optID maps the zero id to null.
func optID(id generic.EmployeeID) *int64 {
	if id == 0 {
		return nil
	}
	v := int64(id)
	return &v
}

func optDepartment(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func toDepartmentDTO(d *timeoff.Department) DepartmentDTO {
	return DepartmentDTO{ID: d.ID, Name: d.Name, Active: d.Active, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

func toDepartmentDTOs(ds []timeoff.Department) []DepartmentDTO {
	out := make([]DepartmentDTO, len(ds))
	for i := range ds {
		out[i] = toDepartmentDTO(&ds[i])
	}
	return out
}

func toAttendanceDTO(a *timeoff.AttendanceSession) AttendanceDTO {
	return AttendanceDTO{
		ID:             a.ID,
		EmployeeID:     int64(a.EmployeeID),
		WorkDate:       a.WorkDate,
		PunchInAt:      a.PunchInAt,
		PunchOutAt:     a.PunchOutAt,
		Status:         string(a.Status),
		PunchInSource:  a.PunchInSource,
		PunchOutSource: a.PunchOutSource,
		PunchInGeo:     a.PunchInGeo,
		PunchOutGeo:    a.PunchOutGeo,
		WorkedMinutes:  int(a.Worked().Minutes()),
		Remarks:        a.Remarks,
	}
}

func toAttendanceDTOs(as []timeoff.AttendanceSession) []AttendanceDTO {
	out := make([]AttendanceDTO, len(as))
	for i := range as {
		out[i] = toAttendanceDTO(&as[i])
	}
	return out
}

func toEmployeeDTO(e *timeoff.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:                 int64(e.ID),
		EmpCode:            e.EmpCode,
		Name:               e.Name,
		Email:              e.Email,
		Role:               string(e.Role),
		DepartmentID:       optDepartment(e.DepartmentID),
		JoinDate:           e.JoinDate,
		ReportingManagerID: optID(e.ReportingManagerID),
		Active:             e.Active,
		LastAccrualMonth:   e.LastAccrualMonth,
	}
}

func toLeaveDTO(r *timeoff.LeaveRequest) LeaveDTO {
	byMonth := make(map[string]float64, len(r.ComputedDaysByMonth))
	for k, v := range r.ComputedDaysByMonth {
		byMonth[k] = days(v)
	}
	return LeaveDTO{
		ID:                  r.ID,
		EmployeeID:          int64(r.EmployeeID),
		LeaveType:           string(r.LeaveType),
		OriginalLeaveType:   string(r.OriginalLeaveType),
		FromDate:            r.FromDate,
		ToDate:              r.ToDate,
		Reason:              r.Reason,
		Status:              string(r.Status),
		ComputedDays:        days(r.ComputedDays),
		ComputedDaysByMonth: byMonth,
		PaidDays:            days(r.PaidDays),
		LWPDays:             days(r.LWPDays),
		OverridePolicy:      r.OverridePolicy,
		OverrideRemark:      r.OverrideRemark,
		AutoConvertedToLWP:  r.AutoConvertedToLWP,
		AutoLWPReason:       r.AutoLWPReason,
		AppliedBy:           int64(r.AppliedBy),
		ApprovedBy:          optID(r.ApprovedBy),
		ApprovedAt:          r.ApprovedAt,
		ApprovedRemark:      r.ApprovedRemark,
		RejectedBy:          optID(r.RejectedBy),
		RejectedAt:          r.RejectedAt,
		RejectedRemark:      r.RejectedRemark,
		CancelledBy:         optID(r.CancelledBy),
		CancelledAt:         r.CancelledAt,
		CancelRemark:        r.CancelRemark,
		CancelledRemark:     r.CancelRemark,
		Recredited:          r.Recredited,
		AppliedAt:           r.AppliedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func toLeaveDTOs(rs []timeoff.LeaveRequest) []LeaveDTO {
	out := make([]LeaveDTO, len(rs))
	for i := range rs {
		out[i] = toLeaveDTO(&rs[i])
	}
	return out
}

func toBalanceDTO(b timeoff.Balance) BalanceDTO {
	return BalanceDTO{
		Year:             b.Year,
		LeaveType:        string(b.LeaveType),
		Opening:          days(b.Opening),
		Accrued:          days(b.Accrued),
		Used:             days(b.Used),
		Remaining:        days(b.Remaining),
		CarryForward:     days(b.CarryForward),
		RHUsed:           days(b.RHUsed),
		PLCarriedForward: days(b.PLCarriedForward),
		PLEncashDays:     days(b.PLEncashDays),
	}
}

func toBalanceDTOs(bs []timeoff.Balance) []BalanceDTO {
	out := make([]BalanceDTO, len(bs))
	for i, b := range bs {
		out[i] = toBalanceDTO(b)
	}
	return out
}

func toTransactionDTOs(txs []timeoff.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dto := TransactionDTO{
			ID:        tx.ID,
			Year:      tx.Year,
			LeaveType: string(tx.LeaveType),
			Delta:     days(tx.Delta),
			Action:    string(tx.Action),
			Remarks:   tx.Remarks,
			ActorID:   int64(tx.ActorID),
			CreatedAt: tx.CreatedAt,
		}
		if tx.LeaveRequestID != 0 {
			id := tx.LeaveRequestID
			dto.LeaveRequestID = &id
		}
		out[i] = dto
	}
	return out
}

func toHRActionDTOs(as []timeoff.HRAction) []HRActionDTO {
	out := make([]HRActionDTO, len(as))
	for i, a := range as {
		out[i] = HRActionDTO{
			ID:              a.ID,
			EmployeeID:      int64(a.EmployeeID),
			ActionType:      string(a.ActionType),
			ReferenceEntity: a.ReferenceEntity,
			ReferenceID:     a.ReferenceID,
			Meta:            a.Meta,
			ActionBy:        int64(a.ActionBy),
			Remarks:         a.Remarks,
			CreatedAt:       a.CreatedAt,
		}
	}
	return out
}

func toCalendarDTO(e timeoff.CalendarEntry) CalendarEntryDTO {
	return CalendarEntryDTO{ID: e.ID, Kind: string(e.Kind), Year: e.Year, Date: e.Date, Name: e.Name, Active: e.Active}
}

func toYearCloseDTO(s *timeoff.YearCloseSummary) YearCloseDTO {
	dto := YearCloseDTO{
		Year:              s.Year,
		Processed:         s.Processed,
		Closed:            s.Closed,
		SkippedAlreadyRun: s.SkippedAlreadyRun,
		Failed:            s.Failed,
		TotalCarryForward: days(s.TotalCarryForward),
		TotalEncash:       days(s.TotalEncash),
		Employees:         make([]YearCloseEmployeeDTO, len(s.Employees)),
	}
	for i, e := range s.Employees {
		dto.Employees[i] = YearCloseEmployeeDTO{
			EmployeeID:    int64(e.EmployeeID),
			UnusedPL:      days(e.UnusedPL),
			CarryForward:  days(e.CarryForward),
			Encash:        days(e.Encash),
			AlreadyClosed: e.AlreadyClosed,
			Error:         e.Error,
		}
	}
	return dto
}

func toCompOffDTO(r *compoff.Request) CompOffDTO {
	return CompOffDTO{
		ID:         r.ID,
		EmployeeID: int64(r.EmployeeID),
		WorkedDate: r.WorkedDate,
		ExpiresOn:  r.WorkedDate.AddDays(compoff.CreditValidityDays),
		Reason:     r.Reason,
		Status:     string(r.Status),
		DecidedBy:  optID(r.DecidedBy),
		DecidedAt:  r.DecidedAt,
		Remarks:    r.Remarks,
		CreatedAt:  r.CreatedAt,
	}
}

func toCompOffDTOs(rs []compoff.Request) []CompOffDTO {
	out := make([]CompOffDTO, len(rs))
	for i := range rs {
		out[i] = toCompOffDTO(&rs[i])
	}
	return out
}

func toLedgerBalanceDTO(b generic.LedgerBalance) LedgerBalanceDTO {
	return LedgerBalanceDTO{
		Credits:   days(b.Credits),
		Expired:   days(b.Expired),
		Debits:    days(b.Debits),
		Reversals: days(b.Reversals),
		Available: days(b.Available),
	}
}

func toWFHDTO(w *timeoff.WFHRequest) WFHDTO {
	return WFHDTO{
		ID:         w.ID,
		EmployeeID: int64(w.EmployeeID),
		Date:       w.Date,
		Reason:     w.Reason,
		DayValue:   days(w.DayValue),
		Status:     string(w.Status),
		DecidedBy:  optID(w.DecidedBy),
		DecidedAt:  w.DecidedAt,
		Remarks:    w.Remarks,
		CreatedAt:  w.CreatedAt,
	}
}

func toWFHDTOs(ws []timeoff.WFHRequest) []WFHDTO {
	out := make([]WFHDTO, len(ws))
	for i := range ws {
		out[i] = toWFHDTO(&ws[i])
	}
	return out
}
