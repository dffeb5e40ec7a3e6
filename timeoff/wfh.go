package timeoff

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// WORK FROM HOME - One day per request, yearly cap on approved days
// =============================================================================

// ApplyWFH records a PENDING WFH day for the actor.
func (s *Service) ApplyWFH(ctx context.Context, actor auth.Actor, date generic.Date, reason string) (*WFHRequest, error) {
	if date.IsZero() {
		return nil, generic.Validation(generic.ReasonInvalidInput, "date is required")
	}
	var out *WFHRequest
	err := s.Store.WithTx(ctx, func(tx Store) error {
		settings, err := EnsureSettings(ctx, tx, date.Year())
		if err != nil {
			return err
		}
		cal, err := LoadCalendar(ctx, tx, date.Year())
		if err != nil {
			return err
		}
		if settings.IsWeeklyOff(date) || cal.IsHoliday(date) {
			return generic.Violation(generic.ReasonWFHOffDay, "%s is a weekly off or holiday", date)
		}
		existing, err := tx.ListWFH(ctx, WFHFilter{
			EmployeeIDs: []generic.EmployeeID{actor.EmployeeID},
			Year:        date.Year(),
		})
		if err != nil {
			return err
		}
		for _, w := range existing {
			if w.Date.Equal(date) {
				return generic.Conflict(generic.ReasonDuplicate, "WFH already requested for %s", date)
			}
		}
		if err := checkWFHCap(existing, settings); err != nil {
			return err
		}

		w := &WFHRequest{
			EmployeeID: actor.EmployeeID,
			Date:       date,
			Reason:     reason,
			DayValue:   settings.WFHDayValue,
			Status:     StatusPending,
			CreatedAt:  s.Clock.Now(),
		}
		if err := tx.CreateWFH(ctx, w); err != nil {
			return err
		}
		out = w
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditWFHApplied, "wfh_request", w.ID, map[string]any{"date": date.String()})
	})
	return out, err
}

func checkWFHCap(reqs []WFHRequest, settings *PolicySettings) error {
	approved := 0
	for _, w := range reqs {
		if w.Status == StatusApproved {
			approved++
		}
	}
	if approved >= settings.WFHMaxDays {
		return generic.Conflict(generic.ReasonWFHCap, "WFH limit of %d days for %d reached", settings.WFHMaxDays, settings.Year)
	}
	return nil
}

// DecideWFH approves or rejects a PENDING WFH day. HR or the direct manager.
func (s *Service) DecideWFH(ctx context.Context, actor auth.Actor, id int64, approve bool, remarks string) (*WFHRequest, error) {
	var out *WFHRequest
	err := s.Store.WithTx(ctx, func(tx Store) error {
		w, err := tx.GetWFH(ctx, id)
		if err != nil {
			return err
		}
		if w == nil {
			return generic.NotFound("wfh request %d", id)
		}
		emp, err := tx.GetEmployee(ctx, w.EmployeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.NotFound("employee %d", w.EmployeeID)
		}
		res, err := ResourceFor(ctx, tx, emp)
		if err != nil {
			return err
		}
		if err := auth.Authorize(actor, auth.ActionApproveWFH, res); err != nil {
			return err
		}
		if w.Status != StatusPending {
			return generic.Violation(generic.ReasonNotPending, "wfh request %d is %s, not PENDING", w.ID, w.Status)
		}
		if approve {
			settings, err := EnsureSettings(ctx, tx, w.Date.Year())
			if err != nil {
				return err
			}
			existing, err := tx.ListWFH(ctx, WFHFilter{
				EmployeeIDs: []generic.EmployeeID{w.EmployeeID},
				Statuses:    []Status{StatusApproved},
				Year:        w.Date.Year(),
			})
			if err != nil {
				return err
			}
			if err := checkWFHCap(existing, settings); err != nil {
				return err
			}
			w.Status = StatusApproved
		} else {
			w.Status = StatusRejected
		}
		now := s.Clock.Now()
		w.DecidedBy = actor.EmployeeID
		w.DecidedAt = &now
		w.Remarks = remarks
		if err := tx.UpdateWFH(ctx, w); err != nil {
			return err
		}
		out = w
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditWFHDecided, "wfh_request", w.ID, map[string]any{
			"status": string(w.Status), "remarks": remarks,
		})
	})
	return out, err
}

// WFHBalance summarises approved WFH usage for a year.
type WFHBalance struct {
	Year         int
	MaxDays      int
	ApprovedDays int
	PendingDays  int
	Remaining    int
	DayValue     decimal.Decimal
	ValueUsed    decimal.Decimal
}

func (s *Service) WFHBalance(ctx context.Context, actor auth.Actor, year int) (*WFHBalance, error) {
	settings, err := EnsureSettings(ctx, s.Store, year)
	if err != nil {
		return nil, err
	}
	reqs, err := s.Store.ListWFH(ctx, WFHFilter{EmployeeIDs: []generic.EmployeeID{actor.EmployeeID}, Year: year})
	if err != nil {
		return nil, err
	}
	b := &WFHBalance{Year: year, MaxDays: settings.WFHMaxDays, DayValue: settings.WFHDayValue, ValueUsed: decimal.Zero}
	for _, w := range reqs {
		switch w.Status {
		case StatusApproved:
			b.ApprovedDays++
			b.ValueUsed = b.ValueUsed.Add(w.DayValue)
		case StatusPending:
			b.PendingDays++
		}
	}
	b.Remaining = settings.WFHMaxDays - b.ApprovedDays
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	return b, nil
}

// ListWFH returns the actor's WFH requests, or pending ones they can decide.
func (s *Service) ListWFH(ctx context.Context, actor auth.Actor, pendingQueue bool) ([]WFHRequest, error) {
	f := WFHFilter{EmployeeIDs: []generic.EmployeeID{actor.EmployeeID}}
	if pendingQueue {
		f = WFHFilter{Statuses: []Status{StatusPending}}
		if !actor.IsHR() {
			all, err := s.Store.ListEmployees(ctx, false)
			if err != nil {
				return nil, err
			}
			f.EmployeeIDs = DirectReports(all, actor.EmployeeID)
			if len(f.EmployeeIDs) == 0 {
				return []WFHRequest{}, nil
			}
		}
	}
	out, err := s.Store.ListWFH(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []WFHRequest{}
	}
	return out, nil
}
