package compoff

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

type Service struct {
	Store  Store
	Clock  generic.Clock
	Logger logrus.FieldLogger
}

func NewService(store Store, logger logrus.FieldLogger) *Service {
	return &Service{Store: store, Clock: generic.SystemClock, Logger: logger}
}

// =============================================================================
// EARN
// =============================================================================

// Request files a PENDING comp-off request for the actor.
func (s *Service) Request(ctx context.Context, actor auth.Actor, worked generic.Date, reason string) (*Request, error) {
	if worked.IsZero() {
		return nil, generic.Validation(generic.ReasonInvalidInput, "worked_date is required")
	}
	var out *Request
	err := s.Store.WithCompOffTx(ctx, func(tx Store) error {
		settings, err := timeoff.EnsureSettings(ctx, tx, worked.Year())
		if err != nil {
			return err
		}
		cal, err := timeoff.LoadCalendar(ctx, tx, worked.Year())
		if err != nil {
			return err
		}
		if !settings.IsWeeklyOff(worked) && !cal.IsHoliday(worked) {
			return generic.Violation(generic.ReasonCompOffDate,
				"comp-off can only be earned for the weekly off or a holiday; %s is a working day", worked)
		}
		if err := timeoff.CheckWorked(ctx, tx, actor.EmployeeID, worked); err != nil {
			return err
		}

		existing, err := tx.ListCompOff(ctx, Filter{EmployeeIDs: []generic.EmployeeID{actor.EmployeeID}})
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.WorkedDate.Equal(worked) {
				return generic.Conflict(generic.ReasonDuplicate, "comp-off already requested for %s", worked).
					WithDetail("request_id", r.ID)
			}
		}

		r := &Request{
			EmployeeID: actor.EmployeeID,
			WorkedDate: worked,
			Reason:     reason,
			Status:     StatusPending,
			CreatedAt:  s.Clock.Now(),
		}
		if err := tx.CreateCompOff(ctx, r); err != nil {
			return err
		}
		out = r
		return s.audit(ctx, tx, actor, generic.AuditCompOffRequested, r, map[string]any{"worked_date": worked.String()})
	})
	return out, err
}

// =============================================================================
// DECIDE
// =============================================================================

// Approve credits one day, expiring CreditValidityDays after the worked date.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, id int64, remarks string) (*Request, error) {
	return s.decide(ctx, actor, id, true, remarks)
}

// Reject closes the request without touching the ledger.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id int64, remarks string) (*Request, error) {
	return s.decide(ctx, actor, id, false, remarks)
}

func (s *Service) decide(ctx context.Context, actor auth.Actor, id int64, approve bool, remarks string) (*Request, error) {
	var out *Request
	err := s.Store.WithCompOffTx(ctx, func(tx Store) error {
		r, err := tx.GetCompOff(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return generic.NotFound("comp-off request %d", id)
		}
		emp, err := tx.GetEmployee(ctx, r.EmployeeID)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.NotFound("employee %d", r.EmployeeID)
		}
		res, err := timeoff.ResourceFor(ctx, tx, emp)
		if err != nil {
			return err
		}
		if err := auth.Authorize(actor, auth.ActionApproveCompOff, res); err != nil {
			return err
		}
		if r.Status != StatusPending {
			return generic.Violation(generic.ReasonNotPending, "comp-off request %d is %s, not PENDING", r.ID, r.Status)
		}

		now := s.Clock.Now()
		if approve {
			key := "compoff-credit:" + strconv.FormatInt(r.ID, 10)
			if err := generic.NewLedger(tx).Append(ctx, generic.Entry{
				ID:             uuid.NewString(),
				EmployeeID:     r.EmployeeID,
				Kind:           generic.EntryCredit,
				Days:           generic.DaysInt(1),
				WorkedDate:     r.WorkedDate,
				ExpiresOn:      r.WorkedDate.AddDays(CreditValidityDays),
				ReferenceID:    strconv.FormatInt(r.ID, 10),
				IdempotencyKey: key,
				CreatedAt:      now,
			}); err != nil {
				return err
			}
			r.Status = StatusApproved
		} else {
			r.Status = StatusRejected
		}
		r.DecidedBy = actor.EmployeeID
		r.DecidedAt = &now
		r.Remarks = remarks
		if err := tx.UpdateCompOff(ctx, r); err != nil {
			return err
		}
		out = r
		return s.audit(ctx, tx, actor, generic.AuditCompOffDecided, r, map[string]any{
			"status": string(r.Status), "remarks": remarks,
		})
	})
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{
		"compoff_request_id": out.ID,
		"employee_id":        out.EmployeeID,
		"status":             string(out.Status),
	}).Info("comp-off decided")
	return out, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Balance returns the ledger position of empID as of today.
func (s *Service) Balance(ctx context.Context, actor auth.Actor, empID generic.EmployeeID) (generic.LedgerBalance, error) {
	if empID != actor.EmployeeID {
		emp, err := s.Store.GetEmployee(ctx, empID)
		if err != nil {
			return generic.LedgerBalance{}, err
		}
		if emp == nil {
			return generic.LedgerBalance{}, generic.NotFound("employee %d", empID)
		}
		res, err := timeoff.ResourceFor(ctx, s.Store, emp)
		if err != nil {
			return generic.LedgerBalance{}, err
		}
		if err := auth.Authorize(actor, auth.ActionViewEmployee, res); err != nil {
			return generic.LedgerBalance{}, err
		}
	}
	return generic.NewLedger(s.Store).BalanceAt(ctx, empID, s.Clock.Today())
}

// Mine lists the actor's own requests.
func (s *Service) Mine(ctx context.Context, actor auth.Actor) ([]Request, error) {
	return s.list(ctx, Filter{EmployeeIDs: []generic.EmployeeID{actor.EmployeeID}})
}

// Pending lists PENDING requests the actor may decide: all for HR, direct
// reports for managers.
func (s *Service) Pending(ctx context.Context, actor auth.Actor) ([]Request, error) {
	if err := auth.Authorize(actor, auth.ActionViewCompOffQueue, auth.Resource{}); err != nil {
		return nil, err
	}
	f := Filter{Statuses: []Status{StatusPending}}
	if !actor.IsHR() {
		all, err := s.Store.ListEmployees(ctx, false)
		if err != nil {
			return nil, err
		}
		f.EmployeeIDs = timeoff.DirectReports(all, actor.EmployeeID)
		if len(f.EmployeeIDs) == 0 {
			return []Request{}, nil
		}
	}
	return s.list(ctx, f)
}

// All lists every request. HR/ADMIN only.
func (s *Service) All(ctx context.Context, actor auth.Actor) ([]Request, error) {
	if err := auth.Authorize(actor, auth.ActionViewReports, auth.Resource{}); err != nil {
		return nil, err
	}
	return s.list(ctx, Filter{})
}

func (s *Service) list(ctx context.Context, f Filter) ([]Request, error) {
	out, err := s.Store.ListCompOff(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Request{}
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, log generic.AuditLog, actor auth.Actor, action generic.AuditAction, r *Request, payload map[string]any) error {
	return log.AppendAudit(ctx, generic.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  s.Clock.Now(),
		ActorID:    actor.EmployeeID,
		Action:     action,
		EntityType: "compoff_request",
		EntityID:   strconv.FormatInt(r.ID, 10),
		Payload:    payload,
	})
}
