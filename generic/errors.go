/*
errors.go - Error taxonomy shared by every layer

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages return *Error values; the HTTP layer maps Kind to a
  status code without inspecting messages.

ERROR KINDS:
  Validation       malformed input                               → 422
  PolicyViolation  eligibility, notice, cap, cross-year, status  → 400
  Conflict         overlap, RH quota, duplicates, monthly cap    → 409
  Authorization    wrong role, not the manager, self-approval    → 403
  NotFound         no such request, employee, record             → 404

REASONS:
  Every *Error carries a machine-readable Reason (e.g. "pl_not_eligible",
  "overlap") so clients can branch without parsing Message.

USAGE:
    if err := evaluator.Evaluate(c); err != nil {
        var e *generic.Error
        if errors.As(err, &e) && e.Reason == generic.ReasonOverlap { ... }
    }

SEE ALSO:
  - api/handlers.go: writeDomainError maps Kind → HTTP status
  - timeoff/policies.go: Produces most PolicyViolation errors
*/
package generic

import (
	"errors"
	"fmt"
	"net/http"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when a ledger entry with the same
	// idempotency key already exists. Expected for retried batch jobs.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrEntityNotFound is returned by stores when a referenced row doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrUnauthenticated is returned when no valid bearer token is present.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

type Kind string

const (
	KindValidation      Kind = "validation"
	KindPolicyViolation Kind = "policy_violation"
	KindConflict        Kind = "conflict"
	KindAuthorization   Kind = "authorization"
	KindNotFound        Kind = "not_found"
)

// Reasons used across packages.
const (
	ReasonInvalidInput      = "invalid_input"
	ReasonInvalidDateRange  = "invalid_date_range"
	ReasonCrossYear         = "cross_year"
	ReasonOverlap           = "overlap"
	ReasonRHSingleDay       = "rh_single_day"
	ReasonRHInvalidDate     = "rh_invalid_date"
	ReasonRHQuotaUsed       = "rh_quota_used"
	ReasonPLNotEligible     = "pl_not_eligible"
	ReasonCompanyEvent      = "company_event"
	ReasonNoticePeriod      = "notice_period"
	ReasonMonthlyCap        = "monthly_cap"
	ReasonNoChargeableDays  = "no_chargeable_days"
	ReasonNotPending        = "not_pending"
	ReasonNotApproved       = "not_approved"
	ReasonOverrideRemark    = "override_remark_required"
	ReasonOverrideDisabled  = "override_disabled"
	ReasonOverrideNotHR     = "override_requires_hr"
	ReasonNoManager         = "reporting_manager_not_set"
	ReasonSelfApproval      = "self_approval"
	ReasonNotManager        = "not_reporting_manager"
	ReasonRoleRequired      = "role_required"
	ReasonDuplicate         = "duplicate"
	ReasonCompOffDate       = "compoff_not_off_day"
	ReasonWFHCap            = "wfh_cap_exceeded"
	ReasonWFHOffDay         = "wfh_on_off_day"
	ReasonInactiveEmployee  = "employee_inactive"
	ReasonManagerCycle      = "manager_cycle"
	ReasonNotFound          = "not_found"
	ReasonInvalidCredential = "invalid_credentials"
	ReasonAlreadyPunchedIn  = "already_punched_in"
	ReasonSessionNotOpen    = "session_not_open"
	ReasonNoAttendance      = "compoff_no_attendance"
	ReasonAttendanceOpen    = "compoff_attendance_incomplete"
	ReasonNotAManager       = "not_a_manager"
	ReasonInactiveDept      = "department_inactive"
	ReasonNoCompanyEvent    = "no_company_event"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value for the response body.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindPolicyViolation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, reason, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(reason, format string, args ...any) *Error {
	return newError(KindValidation, reason, format, args...)
}

// Violation reports a broken business rule the caller may be able to override.
func Violation(reason, format string, args ...any) *Error {
	return newError(KindPolicyViolation, reason, format, args...)
}

// Conflict reports a clash with existing state.
func Conflict(reason, format string, args ...any) *Error {
	return newError(KindConflict, reason, format, args...)
}

// Forbidden reports an authorization failure.
func Forbidden(reason, format string, args ...any) *Error {
	return newError(KindAuthorization, reason, format, args...)
}

// NotFound reports a missing resource.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: ReasonNotFound, Message: fmt.Sprintf(format, args...), Err: ErrEntityNotFound}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the reason of a classified error, or "".
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// IsClientError returns true if the error is due to caller input or state.
func IsClientError(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindNotFound
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound || errors.Is(err, ErrEntityNotFound)
}
