package timeoff

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// DefaultPLPenalty is the PL deducted by a DEDUCT_PL_3 action when no
// amount is given.
var DefaultPLPenalty = decimal.NewFromInt(3)

func (s *Service) appendHRAction(ctx context.Context, store HRActionStore, a HRAction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.Clock.Now()
	}
	return store.AppendHRAction(ctx, a)
}

// DeductPL increments PL used as a penalty. HR/ADMIN only.
// A zero days value means DefaultPLPenalty.
func (s *Service) DeductPL(ctx context.Context, actor auth.Actor, empID generic.EmployeeID, days decimal.Decimal, remarks string) (*Balance, error) {
	if err := auth.Authorize(actor, auth.ActionDeductPL, auth.Resource{EmployeeID: empID}); err != nil {
		return nil, err
	}
	if days.IsZero() {
		days = DefaultPLPenalty
	}
	if days.IsNegative() || !generic.IsHalfDayMultiple(days) {
		return nil, generic.Validation(generic.ReasonInvalidInput, "days must be a positive multiple of 0.5, got %s", days)
	}

	var out *Balance
	err := s.Store.WithTx(ctx, func(tx Store) error {
		emp, err := tx.GetEmployee(ctx, empID)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.NotFound("employee %d", empID)
		}
		year := s.Clock.Today().Year()
		w, err := EnsureWallet(ctx, tx, emp.ID, year)
		if err != nil {
			return err
		}
		pl := w[LeavePL]
		pl.Used = pl.Used.Add(days)
		if err := recordTx(ctx, tx, s.Clock, walletTx{
			Balance: pl, Delta: days.Neg(), Action: ActionManualAdjust,
			Actor: actor.EmployeeID, Remarks: remarks,
			IdemKey: idemKey("hr-deduct-pl", emp.ID, uuid.NewString()),
		}); err != nil {
			return err
		}
		if err := s.appendHRAction(ctx, tx, HRAction{
			EmployeeID:      emp.ID,
			ActionType:      HRDeductPL,
			ReferenceEntity: "leave_balance",
			ReferenceID:     idemKey(year),
			Meta:            map[string]any{"days": days.String(), "year": year},
			ActionBy:        actor.EmployeeID,
			Remarks:         remarks,
		}); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor.EmployeeID, generic.AuditManualAdjust, "leave_balance", emp.ID, map[string]any{
			"leave_type": string(LeavePL), "days": days.Neg().String(), "remarks": remarks,
		}); err != nil {
			return err
		}
		out = pl
		return nil
	})
	return out, err
}

// ListHRActions is scoped: HR sees all, managers their direct reports and
// themselves, employees their own.
func (s *Service) ListHRActions(ctx context.Context, actor auth.Actor, empID generic.EmployeeID) ([]HRAction, error) {
	var f HRActionFilter
	switch {
	case actor.IsHR():
		if empID != 0 {
			f.EmployeeIDs = []generic.EmployeeID{empID}
		}
	default:
		visible := []generic.EmployeeID{actor.EmployeeID}
		if actor.Role == auth.RoleManager {
			all, err := s.Store.ListEmployees(ctx, false)
			if err != nil {
				return nil, err
			}
			visible = append(visible, DirectReports(all, actor.EmployeeID)...)
		}
		if empID != 0 {
			if !containsID(visible, empID) {
				return nil, generic.Forbidden(generic.ReasonNotManager, "not allowed to view HR actions of employee %d", empID)
			}
			visible = []generic.EmployeeID{empID}
		}
		f.EmployeeIDs = visible
	}
	out, err := s.Store.ListHRActions(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []HRAction{}
	}
	return out, nil
}
