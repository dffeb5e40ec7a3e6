/*
policies.go - Policy evaluator

PURPOSE:
  Decides ALLOW / DENY / ALLOW-WITH-AUTO-CONVERSION for a candidate leave,
  at apply time and again at approval time (unless the request carries a
  valid HR override).

RULE ORDER:
  1. Same calendar year                              PolicyViolation
  2. No overlap with PENDING/APPROVED leave          Conflict
  3. RH: single day, a restricted holiday, quota     PolicyViolation/Conflict
  -  Override validity, at least one chargeable day
  6. Backdated beyond backdated_max_days → LWP       (apply time only)
  4. PL eligibility: join + N months <= from         PolicyViolation
  5. Company-event block                             PolicyViolation
  7. Notice period, monthly cap (each gated, OFF)    PolicyViolation/Conflict

  Rule 6 is evaluated before 4, 5 and 7 because it changes the effective
  type, and LWP is exempt from those rules. COMPOFF is exempt from 4 and 7.
  A valid HR override skips 4, 5 and 7. Rules 1-3 are never skipped.

SEE ALSO:
  - daycount.go: Produces Candidate.Count
  - request.go: Builds candidates inside the mutating transaction
*/
package timeoff

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CANDIDATE AND DECISION
// =============================================================================

// Override is what the caller asked for, plus whether the caller is HR.
type Override struct {
	Requested bool
	Remark    string
	ByHR      bool
}

// Candidate is everything the evaluator needs; it performs no I/O.
type Candidate struct {
	Employee  *Employee
	LeaveType LeaveType
	Period    generic.Period
	Count     DayCount
	Settings  *PolicySettings
	Calendar  *Calendar
	Today     generic.Date
	Override  Override

	// Overlapping holds the employee's other PENDING/APPROVED requests
	// sharing at least one day with Period.
	Overlapping []LeaveRequest
	// ApprovedRH is true when another RH is already approved this year.
	ApprovedRH bool
	// ApprovedByMonth sums approved CL/PL/RH days per "YYYY-MM", self excluded.
	ApprovedByMonth map[string]decimal.Decimal
	// AtApproval disables the backdated conversion, which is an apply-time rule.
	AtApproval bool
}

// Decision is the outcome of a successful evaluation.
type Decision struct {
	LeaveType          LeaveType
	AutoConvertedToLWP bool
	AutoLWPReason      string
	OverrideApplied    bool
}

// =============================================================================
// EVALUATE
// =============================================================================

// Evaluate applies the rules in order and stops at the first failure.
func Evaluate(c Candidate) (Decision, error) {
	d := Decision{LeaveType: c.LeaveType}

	// 1. same year
	if !c.Period.SameYear() {
		return d, generic.Violation(generic.ReasonCrossYear,
			"leave must start and end in the same calendar year (%s)", c.Period)
	}

	// 2. overlap
	if len(c.Overlapping) > 0 {
		ids := make([]int64, 0, len(c.Overlapping))
		for _, o := range c.Overlapping {
			ids = append(ids, o.ID)
		}
		return d, generic.Conflict(generic.ReasonOverlap,
			"leave %s overlaps an existing pending or approved request", c.Period).
			WithDetail("conflicting_request_ids", ids)
	}

	// 3. restricted holiday
	if c.LeaveType == LeaveRH {
		if !c.Period.IsSingleDay() {
			return d, generic.Violation(generic.ReasonRHSingleDay, "restricted holiday must be a single day")
		}
		if !c.Calendar.IsRestrictedHoliday(c.Period.Start) {
			return d, generic.Violation(generic.ReasonRHInvalidDate,
				"%s is not a restricted holiday for %d", c.Period.Start, c.Period.Start.Year())
		}
		if c.ApprovedRH {
			return d, generic.Conflict(generic.ReasonRHQuotaUsed,
				"restricted holiday quota for %d is already used", c.Period.Start.Year())
		}
	}

	override, err := validOverride(c.Override, c.Settings)
	if err != nil {
		return d, err
	}
	d.OverrideApplied = override

	if !c.Count.Total.IsPositive() {
		return d, generic.Violation(generic.ReasonNoChargeableDays,
			"leave %s has no chargeable days (weekly offs and holidays only)", c.Period)
	}

	// 6. backdated → LWP
	if !c.AtApproval && c.LeaveType != LeaveLWP {
		if back := generic.DaysBetween(c.Period.Start, c.Today); back > c.Settings.BackdatedMaxDays {
			d.LeaveType = LeaveLWP
			d.AutoConvertedToLWP = true
			d.AutoLWPReason = fmt.Sprintf("backdated_over_limit_%d_days_max_%d", back, c.Settings.BackdatedMaxDays)
		}
	}
	if override || d.LeaveType == LeaveLWP {
		return d, nil
	}

	// 4. PL eligibility
	if d.LeaveType == LeavePL {
		eligible := c.Settings.PLEligibleFrom(c.Employee.JoinDate)
		if c.Period.Start.Before(eligible) {
			return d, generic.Violation(generic.ReasonPLNotEligible,
				"PL is allowed only after %d months from join date; join %s, eligible from %s, requested %s",
				c.Settings.PLEligibilityMonths, c.Employee.JoinDate, eligible, c.Period.Start).
				WithDetail("eligible_from", eligible.String())
		}
	}

	// 5. company events
	if c.Settings.BlockLeaveOnEvents {
		if events := c.Calendar.EventsIn(c.Period); len(events) > 0 {
			names := make([]string, 0, len(events))
			for _, e := range events {
				names = append(names, e.String())
			}
			return d, generic.Violation(generic.ReasonCompanyEvent,
				"leave is blocked on company event days: %s", strings.Join(names, ", "))
		}
	}

	if d.LeaveType == LeaveCompOff {
		return d, nil
	}

	// 7a. notice
	if err := checkNotice(c, d.LeaveType); err != nil {
		return d, err
	}
	// 7b. monthly cap
	if err := checkMonthlyCap(c, d.LeaveType); err != nil {
		return d, err
	}
	return d, nil
}

func validOverride(o Override, s *PolicySettings) (bool, error) {
	if !o.Requested {
		return false, nil
	}
	if !o.ByHR {
		return false, generic.Forbidden(generic.ReasonOverrideNotHR, "only HR can override policy rules")
	}
	if strings.TrimSpace(o.Remark) == "" {
		return false, generic.Violation(generic.ReasonOverrideRemark, "override_remark is required when override_policy is true")
	}
	if !s.AllowHROverride {
		return false, generic.Violation(generic.ReasonOverrideDisabled, "HR override is disabled for %d", s.Year)
	}
	return true, nil
}

// checkNotice enforces advance notice for CL/PL. Backdated leave is never
// blocked here; the backdated rule owns it.
func checkNotice(c Candidate, t LeaveType) error {
	if !c.Settings.EnforceNoticeDays || (t != LeaveCL && t != LeavePL) {
		return nil
	}
	if c.Period.Start.Before(c.Today) {
		return nil
	}
	if notice := generic.DaysBetween(c.Today, c.Period.Start); notice < c.Settings.NoticeDaysCLPL {
		return generic.Violation(generic.ReasonNoticePeriod,
			"%s must be applied at least %d days before the start date (notice given: %d)",
			t, c.Settings.NoticeDaysCLPL, notice)
	}
	return nil
}

// checkMonthlyCap limits approved CL/PL/RH days per month. RH counts as PL.
func checkMonthlyCap(c Candidate, t LeaveType) error {
	if !c.Settings.EnforceMonthlyCap || (t != LeaveCL && t != LeavePL && t != LeaveRH) {
		return nil
	}
	for _, month := range generic.SortedKeys(c.Count.ByMonth) {
		existing := c.ApprovedByMonth[month]
		total := existing.Add(c.Count.ByMonth[month])
		if total.GreaterThan(c.Settings.MonthlyCapCLPL) {
			return generic.Conflict(generic.ReasonMonthlyCap,
				"monthly cap exceeded for %s: approved %s + requested %s > cap %s",
				month, existing, c.Count.ByMonth[month], c.Settings.MonthlyCapCLPL).
				WithDetail("month", month)
		}
	}
	return nil
}

// approvedByMonth sums the month split of approved CL/PL/RH requests.
func approvedByMonth(reqs []LeaveRequest) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range reqs {
		if r.Status != StatusApproved {
			continue
		}
		if r.LeaveType != LeaveCL && r.LeaveType != LeavePL && r.LeaveType != LeaveRH {
			continue
		}
		for k, v := range r.ComputedDaysByMonth {
			out[k] = out[k].Add(v)
		}
	}
	return out
}
