/*
accrual.go - Monthly accrual batch

PURPOSE:
  Credits each active employee's wallet once per month. Runs per employee
  in its own transaction so one failure never blocks the rest.

RULES:
  PL/CL:  +monthly credit, capped so accrued never exceeds the annual
          entitlement.
  SL:     monthly when MonthlyCreditSL > 0; otherwise a one-time
          pro-rated lump on the first run of the year:
          annual × (12 - join_month + 1) / 12, rounded to the nearest 0.5,
          where join_month moves one month later for a join after the
          15th. Employees who joined in an earlier year get the full
          annual amount.
  RH:     accrued is set to the annual RH entitlement.

SKIPS:
  - last_accrual_month >= month        already credited (no-op)
  - joined after the end of the month  not eligible
  - joined in the month, after the 15th  credited from next month

EXAMPLE:
  Join 2025-03-20, run 2025-03: skipped (after 15th)
  Run 2025-04: PL +1, CL +1, SL lump 6 × 9/12 = 4.5, RH = 1
  Join 2025-01-06, first run 2025-06: SL lump 6 × 12/12 = 6

SEE ALSO:
  - wallet.go: recordTx writes the ACCRUAL trail
*/
package timeoff

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

const joinCutoffDay = 15

// AccrualSummary counts outcomes of one run.
type AccrualSummary struct {
	Month                  string `json:"month"`
	Processed              int    `json:"processed"`
	Credited               int    `json:"credited"`
	SkippedAlreadyCredited int    `json:"skipped_already_credited"`
	SkippedNotEligible     int    `json:"skipped_not_eligible"`
	SkippedJoinedAfter15th int    `json:"skipped_joined_after_15th"`
	Failed                 int    `json:"failed"`
}

type accrualOutcome int

const (
	accrualCredited accrualOutcome = iota
	accrualAlreadyCredited
	accrualNotEligible
	accrualJoinedLate
)

// RunAccrual credits month ("YYYY-MM"). HR/ADMIN only.
func (s *Service) RunAccrual(ctx context.Context, actor auth.Actor, month string) (*AccrualSummary, error) {
	if err := auth.Authorize(actor, auth.ActionRunAccrual, auth.Resource{}); err != nil {
		return nil, err
	}
	year, m, err := generic.ParseMonthKey(month)
	if err != nil {
		return nil, generic.Validation(generic.ReasonInvalidInput, "month must be YYYY-MM, got %q", month)
	}
	month = generic.MonthKey(year, m)

	if _, err := EnsureSettings(ctx, s.Store, year); err != nil {
		return nil, err
	}
	employees, err := s.Store.ListEmployees(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "list employees for accrual")
	}

	sum := &AccrualSummary{Month: month}
	for i := range employees {
		emp := employees[i]
		sum.Processed++

		var outcome accrualOutcome
		err := s.Store.WithTx(ctx, func(tx Store) error {
			var err error
			outcome, err = s.accrueEmployee(ctx, tx, actor, emp.ID, year, m)
			return err
		})
		if err != nil {
			sum.Failed++
			s.Logger.WithError(err).WithField("employee_id", emp.ID).Error("accrual failed")
			continue
		}
		switch outcome {
		case accrualCredited:
			sum.Credited++
		case accrualAlreadyCredited:
			sum.SkippedAlreadyCredited++
		case accrualNotEligible:
			sum.SkippedNotEligible++
		case accrualJoinedLate:
			sum.SkippedJoinedAfter15th++
		}
	}

	s.Logger.WithFields(logrus.Fields{
		"month":     month,
		"processed": sum.Processed,
		"credited":  sum.Credited,
		"failed":    sum.Failed,
	}).Info("accrual run complete")
	return sum, nil
}

func (s *Service) accrueEmployee(ctx context.Context, tx Store, actor auth.Actor, id generic.EmployeeID, year int, m time.Month) (accrualOutcome, error) {
	month := generic.MonthKey(year, m)

	// re-read inside the transaction
	emp, err := tx.GetEmployee(ctx, id)
	if err != nil {
		return 0, err
	}
	if emp == nil || !emp.Active {
		return accrualNotEligible, nil
	}
	if emp.LastAccrualMonth != "" && emp.LastAccrualMonth >= month {
		return accrualAlreadyCredited, nil
	}
	monthEnd := generic.EndOfMonth(year, m)
	if emp.JoinDate.After(monthEnd) {
		return accrualNotEligible, nil
	}
	if emp.JoinDate.Year() == year && emp.JoinDate.Month() == m && emp.JoinDate.Day() > joinCutoffDay {
		return accrualJoinedLate, nil
	}

	settings, err := EnsureSettings(ctx, tx, year)
	if err != nil {
		return 0, err
	}
	w, err := EnsureWallet(ctx, tx, emp.ID, year)
	if err != nil {
		return 0, err
	}

	credited := map[string]string{}
	credit := func(t LeaveType, days decimal.Decimal, remarks string) error {
		if !days.IsPositive() {
			return nil
		}
		b := w[t]
		b.Accrued = b.Accrued.Add(days)
		credited[string(t)] = days.String()
		return recordTx(ctx, tx, s.Clock, walletTx{
			Balance: b, Delta: days, Action: ActionAccrual,
			Actor: actor.EmployeeID, Remarks: remarks,
			IdemKey: idemKey("accrual", emp.ID, month, t),
		})
	}

	for _, t := range []LeaveType{LeavePL, LeaveCL} {
		monthly := settings.MonthlyCreditPL
		if t == LeaveCL {
			monthly = settings.MonthlyCreditCL
		}
		room := generic.NonNegative(settings.Annual(t).Sub(w[t].Accrued))
		if err := credit(t, generic.MinDays(monthly, room), "monthly accrual "+month); err != nil {
			return 0, err
		}
	}

	sl := w[LeaveSL]
	switch {
	case settings.MonthlyCreditSL.IsPositive():
		room := generic.NonNegative(settings.AnnualSL.Sub(sl.Accrued))
		if err := credit(LeaveSL, generic.MinDays(settings.MonthlyCreditSL, room), "monthly accrual "+month); err != nil {
			return 0, err
		}
	case sl.Accrued.IsZero():
		if err := credit(LeaveSL, sickLump(settings.AnnualSL, emp.JoinDate, year), "annual SL grant"); err != nil {
			return 0, err
		}
	}

	rh := w[LeaveRH]
	if !rh.Accrued.Equal(settings.AnnualRH) {
		delta := settings.AnnualRH.Sub(rh.Accrued)
		rh.Accrued = settings.AnnualRH
		credited[string(LeaveRH)] = settings.AnnualRH.String()
		if err := recordTx(ctx, tx, s.Clock, walletTx{
			Balance: rh, Delta: delta, Action: ActionAccrual,
			Actor: actor.EmployeeID, Remarks: "restricted holiday entitlement",
			IdemKey: idemKey("accrual", emp.ID, month, LeaveRH),
		}); err != nil {
			return 0, err
		}
	}

	emp.LastAccrualMonth = month
	if err := tx.UpdateEmployee(ctx, emp); err != nil {
		return 0, err
	}
	if err := s.audit(ctx, tx, actor.EmployeeID, generic.AuditAccrualRun, "employee", emp.ID, map[string]any{
		"month": month, "credited": credited,
	}); err != nil {
		return 0, err
	}
	return accrualCredited, nil
}

// sickLump is the one-time SL grant for the first accrual run in a year,
// sized by the months left from the first month the employee is credited.
func sickLump(annual decimal.Decimal, join generic.Date, year int) decimal.Decimal {
	if join.Year() < year {
		return annual
	}
	first := int(join.Month())
	if join.Day() > joinCutoffDay {
		first++
	}
	if first > 12 {
		return decimal.Zero
	}
	remaining := decimal.NewFromInt(int64(12 - first + 1))
	return generic.RoundToHalf(annual.Mul(remaining).Div(decimal.NewFromInt(12)))
}

// =============================================================================
// STATUS
// =============================================================================

// AccrualStatusRow is one employee's position for a year.
type AccrualStatusRow struct {
	EmployeeID       generic.EmployeeID
	Name             string
	LastAccrualMonth string
	Balances         map[LeaveType]Balance
}

// AccrualStatus reports each active employee's wallet. HR/ADMIN only.
func (s *Service) AccrualStatus(ctx context.Context, actor auth.Actor, year int) ([]AccrualStatusRow, error) {
	if err := auth.Authorize(actor, auth.ActionRunAccrual, auth.Resource{}); err != nil {
		return nil, err
	}
	employees, err := s.Store.ListEmployees(ctx, true)
	if err != nil {
		return nil, err
	}
	all, err := s.Store.ListBalancesByYear(ctx, year)
	if err != nil {
		return nil, err
	}
	byEmp := make(map[generic.EmployeeID]map[LeaveType]Balance)
	for _, b := range all {
		if byEmp[b.EmployeeID] == nil {
			byEmp[b.EmployeeID] = make(map[LeaveType]Balance)
		}
		byEmp[b.EmployeeID][b.LeaveType] = b
	}
	rows := make([]AccrualStatusRow, 0, len(employees))
	for _, e := range employees {
		bals := byEmp[e.ID]
		if bals == nil {
			bals = map[LeaveType]Balance{}
		}
		rows = append(rows, AccrualStatusRow{
			EmployeeID:       e.ID,
			Name:             e.Name,
			LastAccrualMonth: e.LastAccrualMonth,
			Balances:         bals,
		})
	}
	return rows, nil
}
