/*
yearclose.go - Year-end carry-forward and encashment

PURPOSE:
  Closes a year for every active employee:
    unused      = max(0, PL remaining)
    carry       = min(unused, carry_forward_pl_max)
    encash      = unused - carry
  Next year's PL opening = carry. CL, SL and RH lapse (next-year openings
  stay 0). Encashment is never dropped: a PL_ENCASHMENT HR action records it.

IDEMPOTENCY:
  A YEAR_CLOSE wallet transaction keyed year-close:{employee}:{year} is
  written first. A duplicate key means the employee was already closed and
  is reported as skipped.

EXAMPLE:
  PL remaining 6, cap 4 → carry 4, encash 2, next opening PL 4.
*/
package timeoff

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

type YearCloseEmployee struct {
	EmployeeID    generic.EmployeeID
	UnusedPL      decimal.Decimal
	CarryForward  decimal.Decimal
	Encash        decimal.Decimal
	AlreadyClosed bool
	Error         string
}

type YearCloseSummary struct {
	Year              int
	Processed         int
	Closed            int
	SkippedAlreadyRun int
	Failed            int
	TotalCarryForward decimal.Decimal
	TotalEncash       decimal.Decimal
	Employees         []YearCloseEmployee
}

// CloseYear runs the year-end close. HR/ADMIN only.
func (s *Service) CloseYear(ctx context.Context, actor auth.Actor, year int) (*YearCloseSummary, error) {
	if err := auth.Authorize(actor, auth.ActionYearClose, auth.Resource{}); err != nil {
		return nil, err
	}
	if year < 1900 || year > 9998 {
		return nil, generic.Validation(generic.ReasonInvalidInput, "invalid year %d", year)
	}
	if _, err := EnsureSettings(ctx, s.Store, year); err != nil {
		return nil, err
	}
	employees, err := s.Store.ListEmployees(ctx, true)
	if err != nil {
		return nil, errors.Wrap(err, "list employees for year close")
	}

	sum := &YearCloseSummary{
		Year:              year,
		TotalCarryForward: decimal.Zero,
		TotalEncash:       decimal.Zero,
		Employees:         make([]YearCloseEmployee, 0, len(employees)),
	}
	for _, e := range employees {
		sum.Processed++
		var res YearCloseEmployee
		err := s.Store.WithTx(ctx, func(tx Store) error {
			var err error
			res, err = s.closeEmployee(ctx, tx, actor, e.ID, year)
			return err
		})
		switch {
		case err != nil:
			sum.Failed++
			res = YearCloseEmployee{EmployeeID: e.ID, Error: err.Error()}
			s.Logger.WithError(err).WithField("employee_id", e.ID).Error("year close failed")
		case res.AlreadyClosed:
			sum.SkippedAlreadyRun++
		default:
			sum.Closed++
			sum.TotalCarryForward = sum.TotalCarryForward.Add(res.CarryForward)
			sum.TotalEncash = sum.TotalEncash.Add(res.Encash)
		}
		sum.Employees = append(sum.Employees, res)
	}

	s.Logger.WithFields(logrus.Fields{
		"year":          year,
		"closed":        sum.Closed,
		"carry_forward": sum.TotalCarryForward.String(),
		"encash":        sum.TotalEncash.String(),
	}).Info("year close complete")
	return sum, nil
}

func (s *Service) closeEmployee(ctx context.Context, tx Store, actor auth.Actor, id generic.EmployeeID, year int) (YearCloseEmployee, error) {
	res := YearCloseEmployee{EmployeeID: id, UnusedPL: decimal.Zero, CarryForward: decimal.Zero, Encash: decimal.Zero}

	settings, err := EnsureSettings(ctx, tx, year)
	if err != nil {
		return res, err
	}
	w, err := EnsureWallet(ctx, tx, id, year)
	if err != nil {
		return res, err
	}
	pl := w[LeavePL]
	unused := generic.NonNegative(pl.Remaining)
	carry := generic.MinDays(unused, settings.CarryForwardPLMax)
	encash := unused.Sub(carry)

	err = tx.AppendTransaction(ctx, Transaction{
		ID:             uuid.NewString(),
		EmployeeID:     id,
		Year:           year,
		LeaveType:      LeavePL,
		Delta:          unused.Neg(),
		Action:         ActionYearClose,
		Remarks:        "year close: carry " + carry.String() + ", encash " + encash.String(),
		ActorID:        actor.EmployeeID,
		IdempotencyKey: idemKey("year-close", id, year),
		CreatedAt:      s.Clock.Now(),
	})
	if errors.Is(err, generic.ErrDuplicateIdempotencyKey) {
		res.AlreadyClosed = true
		return res, nil
	}
	if err != nil {
		return res, err
	}

	pl.PLCarriedForward = carry
	pl.PLEncashDays = encash
	if err := tx.SaveBalance(ctx, pl); err != nil {
		return res, errors.Wrap(err, "save closing PL")
	}

	next, err := EnsureWallet(ctx, tx, id, year+1)
	if err != nil {
		return res, err
	}
	nextPL := next[LeavePL]
	nextPL.Opening = carry
	nextPL.CarryForward = decimal.Zero
	nextPL.Recompute()
	if err := tx.SaveBalance(ctx, nextPL); err != nil {
		return res, errors.Wrap(err, "save next-year PL")
	}

	if encash.IsPositive() {
		if err := s.appendHRAction(ctx, tx, HRAction{
			EmployeeID:      id,
			ActionType:      HRPLEncashment,
			ReferenceEntity: "leave_balance",
			ReferenceID:     idemKey(year),
			Meta: map[string]any{
				"year":          year,
				"unused_pl":     unused.String(),
				"carry_forward": carry.String(),
				"encash_days":   encash.String(),
			},
			ActionBy: actor.EmployeeID,
			Remarks:  "year close encashment",
		}); err != nil {
			return res, err
		}
	}
	if err := s.audit(ctx, tx, actor.EmployeeID, generic.AuditYearClose, "employee", id, map[string]any{
		"year": year, "carry_forward": carry.String(), "encash": encash.String(),
	}); err != nil {
		return res, err
	}

	res.UnusedPL, res.CarryForward, res.Encash = unused, carry, encash
	return res, nil
}
