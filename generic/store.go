/*
store.go - Audit log contract

PURPOSE:
  Every state change made through a workflow (apply, approve, reject,
  cancel, accrual, year-close, manual adjustment) writes one audit entry.
  The audit log is separate from the balance ledgers and is append-only.

SEE ALSO:
  - ledger.go: Append-only entries for comp-off
  - store/sqlite/audit.go: Concrete implementation
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Separate from ledger, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string
	Timestamp  time.Time
	ActorID    EmployeeID // 0 for system jobs
	Action     AuditAction
	EntityType string
	EntityID   string
	Payload    map[string]any
}

type AuditAction string

const (
	AuditLeaveApplied     AuditAction = "LEAVE_APPLIED"
	AuditLeaveApproved    AuditAction = "LEAVE_APPROVED"
	AuditLeaveRejected    AuditAction = "LEAVE_REJECTED"
	AuditLeaveCancelled   AuditAction = "LEAVE_CANCELLED"
	AuditAccrualRun       AuditAction = "ACCRUAL_RUN"
	AuditYearClose        AuditAction = "YEAR_CLOSE"
	AuditManualAdjust     AuditAction = "MANUAL_ADJUST"
	AuditPolicyChanged    AuditAction = "POLICY_SETTINGS_UPDATED"
	AuditCompOffRequested AuditAction = "COMPOFF_REQUESTED"
	AuditCompOffDecided   AuditAction = "COMPOFF_DECIDED"
	AuditWFHApplied       AuditAction = "WFH_APPLIED"
	AuditWFHDecided       AuditAction = "WFH_DECIDED"
	AuditEmployeeCreated  AuditAction = "EMPLOYEE_CREATED"
	AuditCalendarChanged  AuditAction = "CALENDAR_CHANGED"
	AuditEmployeeUpdated  AuditAction = "EMPLOYEE_UPDATED"
	AuditDepartment       AuditAction = "DEPARTMENT_CHANGED"
	AuditPunchIn          AuditAction = "ATTENDANCE_PUNCH_IN"
	AuditPunchOut         AuditAction = "ATTENDANCE_PUNCH_OUT"
	AuditForceClose       AuditAction = "ATTENDANCE_FORCE_CLOSE"
	AuditCompanyCancel    AuditAction = "LEAVE_CANCELLED_BY_COMPANY"
)

// AuditLog stores audit entries. Also append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

type AuditFilter struct {
	ActorID    *EmployeeID
	EntityType string
	EntityID   string
	Actions    []AuditAction
	Limit      int
}
