/*
Package auth decides who may do what.

PURPOSE:
  Role-based branching lives in one pure function, Authorize, keyed by the
  actor (id + role), the action, and the target resource (the employee it
  belongs to and that employee's reporting chain). Handlers and services
  never compare roles inline.

RULES:
  View*        self, HR/ADMIN, or anyone in the target's reporting chain
  Approve*     HR/ADMIN for anyone, direct reporting manager for reportees,
               never self
  Admin-only   cancellation, overrides, calendars, settings, batch jobs,
               reports, employee management: HR/ADMIN
  Scenario     ADMIN only

SEE ALSO:
  - token.go: Bearer tokens carrying employee id + role
  - api/middleware.go: Resolves the actor from the request
*/
package auth

import (
	"strings"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ROLES AND ACTORS
// =============================================================================

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleHR       Role = "HR"
	RoleAdmin    Role = "ADMIN"
)

// ParseRole normalises a role string. Unknown roles fail.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleEmployee, RoleManager, RoleHR, RoleAdmin:
		return r, true
	}
	return "", false
}

// Actor is the authenticated caller.
type Actor struct {
	EmployeeID generic.EmployeeID
	Role       Role
}

// IsHR is true for HR and ADMIN. ADMIN holds every HR permission.
func (a Actor) IsHR() bool { return a.Role == RoleHR || a.Role == RoleAdmin }

// =============================================================================
// ACTIONS AND RESOURCES
// =============================================================================

type Action string

const (
	ActionViewEmployee     Action = "employee.view"
	ActionManageEmployees  Action = "employee.manage"
	ActionApplyOnBehalf    Action = "leave.apply_on_behalf"
	ActionOverridePolicy   Action = "leave.override"
	ActionViewLeaves       Action = "leave.view"
	ActionApproveLeave     Action = "leave.approve"
	ActionCancelLeave      Action = "leave.cancel"
	ActionDeductPL         Action = "hr.deduct_pl"
	ActionViewHRActions    Action = "hr.actions.view"
	ActionManageCalendar   Action = "calendar.manage"
	ActionManageSettings   Action = "settings.manage"
	ActionRunAccrual       Action = "accrual.run"
	ActionYearClose        Action = "policy.year_close"
	ActionViewReports      Action = "reports.view"
	ActionViewStatement    Action = "reports.statement"
	ActionApproveCompOff   Action = "compoff.approve"
	ActionViewCompOffQueue Action = "compoff.queue"
	ActionApproveWFH       Action = "wfh.approve"
	ActionLoadScenario     Action = "scenario.load"
	ActionManageDepartment Action = "department.manage"
	ActionManageAttendance Action = "attendance.manage"
)

// Resource is what an action targets. Chain[0] is the target's direct
// reporting manager, Chain[1] that manager's manager, and so on.
type Resource struct {
	EmployeeID generic.EmployeeID
	Chain      []generic.EmployeeID
}

// DirectManager returns the first link of the chain, or 0.
func (r Resource) DirectManager() generic.EmployeeID {
	if len(r.Chain) == 0 {
		return 0
	}
	return r.Chain[0]
}

func (r Resource) inChain(id generic.EmployeeID) bool {
	for _, m := range r.Chain {
		if m == id {
			return true
		}
	}
	return false
}

// =============================================================================
// AUTHORIZE - Pure decision function
// =============================================================================

// Authorize returns nil when actor may perform action on res, otherwise an
// Authorization error with a machine-readable reason.
func Authorize(actor Actor, action Action, res Resource) error {
	switch action {
	case ActionViewEmployee, ActionViewLeaves, ActionViewStatement:
		if actor.EmployeeID == res.EmployeeID || actor.IsHR() || res.inChain(actor.EmployeeID) {
			return nil
		}
		return generic.Forbidden(generic.ReasonNotManager, "employee %d is outside your reporting chain", res.EmployeeID)

	case ActionApproveLeave, ActionApproveCompOff, ActionApproveWFH:
		if actor.EmployeeID == res.EmployeeID {
			return generic.Forbidden(generic.ReasonSelfApproval, "you cannot approve your own request")
		}
		if actor.IsHR() {
			return nil
		}
		if res.DirectManager() == actor.EmployeeID && actor.EmployeeID != 0 {
			return nil
		}
		return generic.Forbidden(generic.ReasonNotManager, "only HR or the direct reporting manager can decide this request")

	case ActionApplyOnBehalf:
		if actor.EmployeeID == res.EmployeeID || actor.IsHR() {
			return nil
		}
		return requireRole(actor, "HR or ADMIN")

	case ActionViewHRActions:
		if actor.EmployeeID == res.EmployeeID || actor.IsHR() || res.DirectManager() == actor.EmployeeID {
			return nil
		}
		return generic.Forbidden(generic.ReasonNotManager, "HR actions are visible to HR, the employee and the direct manager")

	case ActionViewCompOffQueue:
		if actor.IsHR() || actor.Role == RoleManager {
			return nil
		}
		return requireRole(actor, "MANAGER, HR or ADMIN")

	case ActionLoadScenario:
		if actor.Role == RoleAdmin {
			return nil
		}
		return requireRole(actor, "ADMIN")

	case ActionOverridePolicy, ActionCancelLeave, ActionDeductPL, ActionManageCalendar,
		ActionManageSettings, ActionRunAccrual, ActionYearClose, ActionViewReports,
		ActionManageEmployees, ActionManageDepartment, ActionManageAttendance:
		if actor.IsHR() {
			return nil
		}
		return requireRole(actor, "HR or ADMIN")
	}
	return generic.Forbidden(generic.ReasonRoleRequired, "unknown action %q", action)
}

// Can is Authorize as a boolean.
func Can(actor Actor, action Action, res Resource) bool {
	return Authorize(actor, action, res) == nil
}

func requireRole(actor Actor, need string) error {
	return generic.Forbidden(generic.ReasonRoleRequired, "role %s cannot perform this action (requires %s)", actor.Role, need).
		WithDetail("role", string(actor.Role))
}
