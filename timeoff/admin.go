package timeoff

import (
	"context"
	"strings"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// POLICY SETTINGS
// =============================================================================

// GetSettings returns the year's settings, creating defaults lazily.
func (s *Service) GetSettings(ctx context.Context, year int) (*PolicySettings, error) {
	var out *PolicySettings
	err := s.Store.WithTx(ctx, func(tx Store) error {
		var err error
		out, err = EnsureSettings(ctx, tx, year)
		return err
	})
	return out, err
}

// UpdateSettings loads the year's settings, lets mutate change them and
// saves the result. HR/ADMIN only.
func (s *Service) UpdateSettings(ctx context.Context, actor auth.Actor, year int, mutate func(*PolicySettings) error) (*PolicySettings, error) {
	if err := auth.Authorize(actor, auth.ActionManageSettings, auth.Resource{}); err != nil {
		return nil, err
	}
	var out *PolicySettings
	err := s.Store.WithTx(ctx, func(tx Store) error {
		cur, err := EnsureSettings(ctx, tx, year)
		if err != nil {
			return err
		}
		if err := mutate(cur); err != nil {
			return err
		}
		cur.Year = year
		cur.UpdatedAt = s.Clock.Now()
		if err := tx.SaveSettings(ctx, cur); err != nil {
			return err
		}
		out = cur
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditPolicyChanged, "policy_settings", year, nil)
	})
	return out, err
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Service) viewable(ctx context.Context, actor auth.Actor, empID generic.EmployeeID) (*Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, empID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, generic.NotFound("employee %d", empID)
	}
	res, err := ResourceFor(ctx, s.Store, emp)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionViewEmployee, res); err != nil {
		return nil, err
	}
	return emp, nil
}

// Balances returns the CL/PL/SL/RH rows for a year, creating missing ones.
func (s *Service) Balances(ctx context.Context, actor auth.Actor, empID generic.EmployeeID, year int) ([]Balance, error) {
	if _, err := s.viewable(ctx, actor, empID); err != nil {
		return nil, err
	}
	var out []Balance
	err := s.Store.WithTx(ctx, func(tx Store) error {
		w, err := EnsureWallet(ctx, tx, empID, year)
		if err != nil {
			return err
		}
		for _, t := range WalletTypes {
			out = append(out, *w[t])
		}
		return nil
	})
	return out, err
}

// Transactions returns the wallet trail for a year.
func (s *Service) Transactions(ctx context.Context, actor auth.Actor, empID generic.EmployeeID, year int) ([]Transaction, error) {
	if _, err := s.viewable(ctx, actor, empID); err != nil {
		return nil, err
	}
	out, err := s.Store.ListTransactions(ctx, empID, year)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Transaction{}
	}
	return out, nil
}

// Approvals returns the decision history of a request the actor can view.
func (s *Service) Approvals(ctx context.Context, actor auth.Actor, leaveID int64) ([]Approval, error) {
	if _, err := s.Get(ctx, actor, leaveID); err != nil {
		return nil, err
	}
	return s.Store.ListApprovals(ctx, leaveID)
}

// =============================================================================
// CALENDARS
// =============================================================================

// AddCalendarEntry creates a holiday, restricted holiday or company event.
func (s *Service) AddCalendarEntry(ctx context.Context, actor auth.Actor, e CalendarEntry) (*CalendarEntry, error) {
	if err := auth.Authorize(actor, auth.ActionManageCalendar, auth.Resource{}); err != nil {
		return nil, err
	}
	switch e.Kind {
	case KindHoliday, KindRestrictedHoliday, KindCompanyEvent:
	default:
		return nil, generic.Validation(generic.ReasonInvalidInput, "unknown calendar kind %q", e.Kind)
	}
	if e.Date.IsZero() || strings.TrimSpace(e.Name) == "" {
		return nil, generic.Validation(generic.ReasonInvalidInput, "date and name are required")
	}
	e.Year = e.Date.Year()
	e.Active = true
	err := s.Store.WithTx(ctx, func(tx Store) error {
		existing, err := tx.ListCalendar(ctx, e.Kind, e.Year)
		if err != nil {
			return err
		}
		for _, x := range existing {
			if x.Date.Equal(e.Date) {
				return generic.Conflict(generic.ReasonDuplicate, "%s already defined for %s", e.Kind, e.Date)
			}
		}
		if err := tx.AddCalendarEntry(ctx, &e); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditCalendarChanged, strings.ToLower(string(e.Kind)), e.ID, map[string]any{
			"date": e.Date.String(), "name": e.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListCalendar is open to any authenticated user.
func (s *Service) ListCalendar(ctx context.Context, kind CalendarKind, year int) ([]CalendarEntry, error) {
	out, err := s.Store.ListCalendar(ctx, kind, year)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []CalendarEntry{}
	}
	return out, nil
}

// =============================================================================
// STATEMENT - Everything a yearly leave statement shows
// =============================================================================

type Statement struct {
	Employee     Employee
	Year         int
	Balances     []Balance
	Leaves       []LeaveRequest
	Transactions []Transaction
}

// Statement collects an employee's year. Visible to HR, self and the
// manager chain.
func (s *Service) Statement(ctx context.Context, actor auth.Actor, empID generic.EmployeeID, year int) (*Statement, error) {
	emp, err := s.viewable(ctx, actor, empID)
	if err != nil {
		return nil, err
	}
	bals, err := s.Balances(ctx, actor, empID, year)
	if err != nil {
		return nil, err
	}
	leaves, err := s.Store.ListLeaves(ctx, LeaveFilter{EmployeeIDs: []generic.EmployeeID{empID}, Year: year})
	if err != nil {
		return nil, err
	}
	txs, err := s.Store.ListTransactions(ctx, empID, year)
	if err != nil {
		return nil, err
	}
	return &Statement{Employee: *emp, Year: year, Balances: bals, Leaves: leaves, Transactions: txs}, nil
}

// LeavesForYear returns every request starting in year. HR/ADMIN only.
func (s *Service) LeavesForYear(ctx context.Context, actor auth.Actor, year int) ([]LeaveRequest, error) {
	if err := auth.Authorize(actor, auth.ActionViewReports, auth.Resource{}); err != nil {
		return nil, err
	}
	return s.Store.ListLeaves(ctx, LeaveFilter{Year: year})
}
