package timeoff

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// SERVICE - Leave workflows with transactional guarantees
// =============================================================================

type Service struct {
	Store    Store
	Clock    generic.Clock
	Logger   logrus.FieldLogger
	// Location decides attendance work dates. nil means UTC.
	Location *time.Location
}

func NewService(store Store, logger logrus.FieldLogger) *Service {
	return &Service{Store: store, Clock: generic.SystemClock, Logger: logger}
}

func (s *Service) transition(r *LeaveRequest, before Status, action string) {
	s.Logger.WithFields(logrus.Fields{
		"leave_request_id": r.ID,
		"employee_id":      r.EmployeeID,
		"before":           string(before),
		"after":            string(r.Status),
		"action":           action,
	}).Info("leave status transition")
}

// =============================================================================
// APPLY
// =============================================================================

type ApplyInput struct {
	EmployeeID     generic.EmployeeID // 0 = the actor
	LeaveType      LeaveType
	FromDate       generic.Date
	ToDate         generic.Date
	Reason         string
	OverridePolicy bool
	OverrideRemark string
}

// Apply evaluates and stores a PENDING request.
func (s *Service) Apply(ctx context.Context, actor auth.Actor, in ApplyInput) (*LeaveRequest, error) {
	target := in.EmployeeID
	if target == 0 {
		target = actor.EmployeeID
	}
	if target != actor.EmployeeID {
		if err := auth.Authorize(actor, auth.ActionApplyOnBehalf, auth.Resource{EmployeeID: target}); err != nil {
			return nil, err
		}
	}
	if _, ok := ParseLeaveType(string(in.LeaveType)); !ok {
		return nil, generic.Validation(generic.ReasonInvalidInput, "unknown leave type %q", in.LeaveType)
	}
	if in.FromDate.IsZero() || in.ToDate.IsZero() {
		return nil, generic.Validation(generic.ReasonInvalidInput, "from_date and to_date are required")
	}
	period, err := generic.NewPeriod(in.FromDate, in.ToDate)
	if err != nil {
		return nil, generic.Validation(generic.ReasonInvalidDateRange, "from_date must be on or before to_date")
	}

	var out *LeaveRequest
	err = s.Store.WithTx(ctx, func(tx Store) error {
		emp, err := tx.GetEmployee(ctx, target)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.NotFound("employee %d", target)
		}
		if !emp.Active {
			return generic.Violation(generic.ReasonInactiveEmployee, "employee %d is inactive", emp.ID)
		}
		if !period.SameYear() {
			return generic.Violation(generic.ReasonCrossYear,
				"leave must start and end in the same calendar year (%s)", period)
		}

		year := period.Start.Year()
		if _, err := EnsureWallet(ctx, tx, emp.ID, year); err != nil {
			return err
		}
		if emp.Role != auth.RoleAdmin && emp.ReportingManagerID == 0 {
			return generic.Violation(generic.ReasonNoManager, "reporting manager not set for employee %d", emp.ID)
		}

		c, err := s.candidate(ctx, tx, emp, in.LeaveType, period, 0)
		if err != nil {
			return err
		}
		c.Count = CountDays(period, in.LeaveType, c.Settings, c.Calendar)
		c.Override = Override{Requested: in.OverridePolicy, Remark: in.OverrideRemark, ByHR: actor.IsHR()}

		decision, err := Evaluate(c)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		r := &LeaveRequest{
			EmployeeID:          emp.ID,
			LeaveType:           decision.LeaveType,
			OriginalLeaveType:   in.LeaveType,
			FromDate:            period.Start,
			ToDate:              period.End,
			Reason:              in.Reason,
			Status:              StatusPending,
			ComputedDays:        c.Count.Total,
			ComputedDaysByMonth: c.Count.ByMonth,
			PaidDays:            decimal.Zero,
			LWPDays:             decimal.Zero,
			OverridePolicy:      decision.OverrideApplied,
			AutoConvertedToLWP:  decision.AutoConvertedToLWP,
			AutoLWPReason:       decision.AutoLWPReason,
			AppliedBy:           actor.EmployeeID,
			AppliedAt:           now,
			UpdatedAt:           now,
		}
		if decision.OverrideApplied {
			r.OverrideRemark = strings.TrimSpace(in.OverrideRemark)
		}
		if err := tx.CreateLeave(ctx, r); err != nil {
			return err
		}

		payload := map[string]any{
			"leave_type":    string(r.LeaveType),
			"from_date":     r.FromDate.String(),
			"to_date":       r.ToDate.String(),
			"computed_days": r.ComputedDays.String(),
		}
		if r.OverridePolicy {
			payload["override_policy"] = true
			payload["override_remark"] = r.OverrideRemark
			payload["override_by"] = actor.EmployeeID
		}
		if r.AutoConvertedToLWP {
			payload["auto_lwp_reason"] = r.AutoLWPReason
		}
		if err := s.audit(ctx, tx, actor.EmployeeID, generic.AuditLeaveApplied, "leave_request", r.ID, payload); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.transition(out, "", "apply")
	return out, nil
}

// candidate loads the state the evaluator needs, excluding request selfID.
func (s *Service) candidate(ctx context.Context, tx Store, emp *Employee, t LeaveType, p generic.Period, selfID int64) (Candidate, error) {
	year := p.Start.Year()
	settings, err := EnsureSettings(ctx, tx, year)
	if err != nil {
		return Candidate{}, err
	}
	cal, err := LoadCalendar(ctx, tx, year)
	if err != nil {
		return Candidate{}, err
	}
	overlapping, err := tx.ListLeaves(ctx, LeaveFilter{
		EmployeeIDs: []generic.EmployeeID{emp.ID},
		Statuses:    []Status{StatusPending, StatusApproved},
		Overlapping: &p,
		ExcludeID:   selfID,
	})
	if err != nil {
		return Candidate{}, errors.Wrap(err, "load overlapping leave")
	}
	approved, err := tx.ListLeaves(ctx, LeaveFilter{
		EmployeeIDs: []generic.EmployeeID{emp.ID},
		Statuses:    []Status{StatusApproved},
		LeaveTypes:  []LeaveType{LeaveCL, LeavePL, LeaveRH},
		Year:        year,
		ExcludeID:   selfID,
	})
	if err != nil {
		return Candidate{}, errors.Wrap(err, "load approved leave")
	}
	approvedRH := false
	for _, r := range approved {
		if r.LeaveType == LeaveRH {
			approvedRH = true
		}
	}
	return Candidate{
		Employee:        emp,
		LeaveType:       t,
		Period:          p,
		Settings:        settings,
		Calendar:        cal,
		Today:           s.Clock.Today(),
		Overlapping:     overlapping,
		ApprovedRH:      approvedRH,
		ApprovedByMonth: approvedByMonth(approved),
	}, nil
}

// =============================================================================
// APPROVE - Deducts the wallet, overflow becomes LWP
// =============================================================================

// Approve re-validates (unless overridden) and splits computed days into
// paid and LWP. paid + lwp == computed always holds.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, id int64, remarks string) (*LeaveRequest, error) {
	var out *LeaveRequest
	err := s.Store.WithTx(ctx, func(tx Store) error {
		r, emp, err := s.loadForDecision(ctx, tx, actor, id)
		if err != nil {
			return err
		}

		if r.OverridePolicy {
			if !actor.IsHR() {
				return generic.Forbidden(generic.ReasonOverrideNotHR, "only HR can approve a request with override_policy")
			}
			if strings.TrimSpace(r.OverrideRemark) == "" {
				return generic.Violation(generic.ReasonOverrideRemark, "override_remark is required when override_policy is true")
			}
		} else {
			c, err := s.candidate(ctx, tx, emp, r.LeaveType, r.Period(), r.ID)
			if err != nil {
				return err
			}
			c.Count = DayCount{Total: r.ComputedDays, ByMonth: r.ComputedDaysByMonth}
			c.AtApproval = true
			if _, err := Evaluate(c); err != nil {
				return err
			}
		}

		paid, err := s.deduct(ctx, tx, actor, r)
		if err != nil {
			return err
		}

		now := s.Clock.Now()
		r.PaidDays = paid
		r.LWPDays = r.ComputedDays.Sub(paid)
		r.Status = StatusApproved
		r.ApprovedBy = actor.EmployeeID
		r.ApprovedAt = &now
		r.ApprovedRemark = remarks
		r.UpdatedAt = now
		if err := tx.UpdateLeave(ctx, r); err != nil {
			return err
		}
		if err := tx.AppendApproval(ctx, Approval{LeaveRequestID: r.ID, Action: ApprovalApprove, ActorID: actor.EmployeeID, Remarks: remarks, CreatedAt: now}); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor.EmployeeID, generic.AuditLeaveApproved, "leave_request", r.ID, map[string]any{
			"leave_type": string(r.LeaveType),
			"paid_days":  r.PaidDays.String(),
			"lwp_days":   r.LWPDays.String(),
		}); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.transition(out, StatusPending, "approve")
	return out, nil
}

// deduct mutates the relevant balance and returns the paid portion.
func (s *Service) deduct(ctx context.Context, tx Store, actor auth.Actor, r *LeaveRequest) (decimal.Decimal, error) {
	switch r.LeaveType {
	case LeaveLWP:
		return decimal.Zero, nil

	case LeaveCompOff:
		ledger := generic.NewLedger(tx)
		bal, err := ledger.BalanceAt(ctx, r.EmployeeID, s.Clock.Today())
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "comp-off balance")
		}
		paid := generic.MinDays(r.ComputedDays, bal.Available)
		if paid.IsPositive() {
			err := ledger.Append(ctx, generic.Entry{
				ID:             idemKey("compoff-debit", r.ID),
				EmployeeID:     r.EmployeeID,
				Kind:           generic.EntryDebit,
				Days:           paid,
				LeaveRequestID: r.ID,
				IdempotencyKey: idemKey("compoff-debit", r.ID),
				CreatedAt:      s.Clock.Now(),
			})
			if err != nil {
				return decimal.Zero, err
			}
		}
		return paid, nil

	case LeaveRH:
		w, err := EnsureWallet(ctx, tx, r.EmployeeID, r.Year())
		if err != nil {
			return decimal.Zero, err
		}
		rh, pl := w[LeaveRH], w[LeavePL]
		if rh.RHUsed.GreaterThanOrEqual(generic.DaysInt(1)) {
			return decimal.Zero, generic.Conflict(generic.ReasonRHQuotaUsed, "restricted holiday already used for %d", r.Year())
		}
		paid := generic.MinDays(generic.MinDays(generic.DaysInt(1), r.ComputedDays), pl.Available())
		pl.Used = pl.Used.Add(paid)
		if err := recordTx(ctx, tx, s.Clock, walletTx{
			Balance: pl, Delta: paid.Neg(), Action: ActionApproveDeduct, LeaveID: r.ID,
			Actor: actor.EmployeeID, Remarks: "restricted holiday " + r.FromDate.String(),
			IdemKey: idemKey("approve", r.ID, LeavePL),
		}); err != nil {
			return decimal.Zero, err
		}
		// the quota row is never driven below zero, even before the first accrual run
		quota := generic.MinDays(r.ComputedDays, rh.Available())
		rh.RHUsed = generic.DaysInt(1)
		rh.Used = rh.Used.Add(quota)
		if err := recordTx(ctx, tx, s.Clock, walletTx{
			Balance: rh, Delta: quota.Neg(), Action: ActionApproveDeduct, LeaveID: r.ID,
			Actor: actor.EmployeeID, Remarks: "restricted holiday quota",
			IdemKey: idemKey("approve", r.ID, LeaveRH),
		}); err != nil {
			return decimal.Zero, err
		}
		return paid, nil

	default:
		b, err := tx.GetBalance(ctx, r.EmployeeID, r.Year(), r.LeaveType)
		if err != nil {
			return decimal.Zero, err
		}
		if b == nil {
			w, err := EnsureWallet(ctx, tx, r.EmployeeID, r.Year())
			if err != nil {
				return decimal.Zero, err
			}
			b = w[r.LeaveType]
		}
		paid := generic.MinDays(r.ComputedDays, b.Available())
		b.Used = b.Used.Add(paid)
		err = recordTx(ctx, tx, s.Clock, walletTx{
			Balance: b, Delta: paid.Neg(), Action: ActionApproveDeduct, LeaveID: r.ID,
			Actor: actor.EmployeeID, Remarks: "leave approved",
			IdemKey: idemKey("approve", r.ID, r.LeaveType),
		})
		return paid, err
	}
}

// loadForDecision fetches a PENDING request and checks approval authority.
func (s *Service) loadForDecision(ctx context.Context, tx Store, actor auth.Actor, id int64) (*LeaveRequest, *Employee, error) {
	r, err := tx.GetLeave(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if r == nil {
		return nil, nil, generic.NotFound("leave request %d", id)
	}
	emp, err := tx.GetEmployee(ctx, r.EmployeeID)
	if err != nil {
		return nil, nil, err
	}
	if emp == nil {
		return nil, nil, generic.NotFound("employee %d", r.EmployeeID)
	}
	res, err := ResourceFor(ctx, tx, emp)
	if err != nil {
		return nil, nil, err
	}
	if err := auth.Authorize(actor, auth.ActionApproveLeave, res); err != nil {
		return nil, nil, err
	}
	if r.Status != StatusPending {
		return nil, nil, generic.Violation(generic.ReasonNotPending, "leave request %d is %s, not PENDING", r.ID, r.Status).
			WithDetail("status", string(r.Status))
	}
	return r, emp, nil
}

// =============================================================================
// REJECT
// =============================================================================

// Reject sets REJECTED. No balance is touched.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, id int64, remarks string) (*LeaveRequest, error) {
	var out *LeaveRequest
	err := s.Store.WithTx(ctx, func(tx Store) error {
		r, _, err := s.loadForDecision(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		now := s.Clock.Now()
		r.Status = StatusRejected
		r.RejectedBy = actor.EmployeeID
		r.RejectedAt = &now
		r.RejectedRemark = remarks
		r.UpdatedAt = now
		if err := tx.UpdateLeave(ctx, r); err != nil {
			return err
		}
		if err := tx.AppendApproval(ctx, Approval{LeaveRequestID: r.ID, Action: ApprovalReject, ActorID: actor.EmployeeID, Remarks: remarks, CreatedAt: now}); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, actor.EmployeeID, generic.AuditLeaveRejected, "leave_request", r.ID, map[string]any{"remarks": remarks}); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.transition(out, StatusPending, "reject")
	return out, nil
}

// =============================================================================
// CANCEL - HR only, approved requests, optional re-credit
// =============================================================================

// Cancel moves an APPROVED request to CANCELLED and verifies the write.
func (s *Service) Cancel(ctx context.Context, actor auth.Actor, id int64, recredit bool, remarks string) (*LeaveRequest, error) {
	if err := auth.Authorize(actor, auth.ActionCancelLeave, auth.Resource{}); err != nil {
		return nil, err
	}
	var out *LeaveRequest
	err := s.Store.WithTx(ctx, func(tx Store) error {
		r, err := tx.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if r == nil {
			return generic.NotFound("leave request %d", id)
		}
		if r.Status != StatusApproved {
			return generic.Violation(generic.ReasonNotApproved, "only APPROVED leave can be cancelled; request %d is %s", r.ID, r.Status).
				WithDetail("status", string(r.Status))
		}
		out, err = s.cancelLeave(ctx, tx, actor, r, StatusCancelled, recredit, remarks)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.transition(out, StatusApproved, "cancel")
	return out, nil
}

// CancelForCompanyEvent cancels every PENDING or APPROVED request that
// covers date, which must be an active company event. Approved requests
// get their paid days back. HR only.
func (s *Service) CancelForCompanyEvent(ctx context.Context, actor auth.Actor, date generic.Date, remarks string) ([]LeaveRequest, error) {
	if err := auth.Authorize(actor, auth.ActionCancelLeave, auth.Resource{}); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, generic.Validation(generic.ReasonInvalidInput, "date is required")
	}
	out := []LeaveRequest{}
	var before []Status
	err := s.Store.WithTx(ctx, func(tx Store) error {
		cal, err := LoadCalendar(ctx, tx, date.Year())
		if err != nil {
			return err
		}
		if !cal.IsCompanyEvent(date) {
			return generic.Violation(generic.ReasonNoCompanyEvent, "%s is not an active company event", date)
		}
		day := generic.Period{Start: date, End: date}
		reqs, err := tx.ListLeaves(ctx, LeaveFilter{
			Statuses:    []Status{StatusPending, StatusApproved},
			Overlapping: &day,
		})
		if err != nil {
			return err
		}
		for i := range reqs {
			r := &reqs[i]
			was := r.Status
			done, err := s.cancelLeave(ctx, tx, actor, r, StatusCancelledByCompany, true, remarks)
			if err != nil {
				return err
			}
			out = append(out, *done)
			before = append(before, was)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		s.transition(&out[i], before[i], "company_event_cancel")
	}
	return out, nil
}

// cancelLeave writes a cancellation inside tx and returns the stored row.
// Only an APPROVED request can be re-credited; a PENDING one never moved a balance.
func (s *Service) cancelLeave(ctx context.Context, tx Store, actor auth.Actor, r *LeaveRequest, status Status, recredit bool, remarks string) (*LeaveRequest, error) {
	wasApproved := r.Status == StatusApproved
	recredited := false
	if recredit && wasApproved {
		var err error
		recredited, err = s.recredit(ctx, tx, actor, r)
		if err != nil {
			return nil, err
		}
	}

	now := s.Clock.Now()
	r.Status = status
	r.CancelledBy = actor.EmployeeID
	r.CancelledAt = &now
	r.CancelRemark = remarks
	r.Recredited = recredited
	r.UpdatedAt = now
	if err := tx.UpdateLeave(ctx, r); err != nil {
		return nil, err
	}

	stored, err := tx.GetLeave(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.Status != status {
		return nil, errors.Errorf("leave request %d not cancelled after update", r.ID)
	}

	if err := tx.AppendApproval(ctx, Approval{LeaveRequestID: r.ID, Action: ApprovalCancel, ActorID: actor.EmployeeID, Remarks: remarks, CreatedAt: now}); err != nil {
		return nil, err
	}
	if wasApproved {
		if err := s.appendHRAction(ctx, tx, HRAction{
			EmployeeID:      r.EmployeeID,
			ActionType:      HRCancelApprovedLeave,
			ReferenceEntity: "leave_request",
			ReferenceID:     idemKey(r.ID),
			Meta: map[string]any{
				"leave_type": string(r.LeaveType),
				"paid_days":  r.PaidDays.String(),
				"recredit":   recredited,
				"status":     string(status),
			},
			ActionBy: actor.EmployeeID,
			Remarks:  remarks,
		}); err != nil {
			return nil, err
		}
	}
	action := generic.AuditLeaveCancelled
	if status == StatusCancelledByCompany {
		action = generic.AuditCompanyCancel
	}
	if err := s.audit(ctx, tx, actor.EmployeeID, action, "leave_request", r.ID, map[string]any{
		"recredit": recredited, "remarks": remarks,
	}); err != nil {
		return nil, err
	}
	return stored, nil
}

// recredit returns the paid portion to its source. It reports whether
// anything was returned.
func (s *Service) recredit(ctx context.Context, tx Store, actor auth.Actor, r *LeaveRequest) (bool, error) {
	switch r.LeaveType {
	case LeaveLWP:
		return false, nil

	case LeaveCompOff:
		ledger := generic.NewLedger(tx)
		net, err := ledger.DebitedFor(ctx, r.EmployeeID, r.ID)
		if err != nil {
			return false, err
		}
		if !net.IsPositive() {
			return false, nil
		}
		return true, ledger.Append(ctx, generic.Entry{
			ID:             idemKey("compoff-reversal", r.ID),
			EmployeeID:     r.EmployeeID,
			Kind:           generic.EntryReversal,
			Days:           net,
			LeaveRequestID: r.ID,
			IdempotencyKey: idemKey("compoff-reversal", r.ID),
			CreatedAt:      s.Clock.Now(),
		})

	case LeaveRH:
		w, err := EnsureWallet(ctx, tx, r.EmployeeID, r.Year())
		if err != nil {
			return false, err
		}
		pl, rh := w[LeavePL], w[LeaveRH]
		pl.Used = generic.NonNegative(pl.Used.Sub(r.PaidDays))
		if err := recordTx(ctx, tx, s.Clock, walletTx{
			Balance: pl, Delta: r.PaidDays, Action: ActionCancelRecredit, LeaveID: r.ID,
			Actor: actor.EmployeeID, Remarks: "restricted holiday cancelled",
			IdemKey: idemKey("cancel-recredit", r.ID, LeavePL),
		}); err != nil {
			return false, err
		}
		// one RH per year, so whatever the row has used came from this request
		restored := generic.MinDays(r.ComputedDays, rh.Used)
		rh.RHUsed = decimal.Zero
		rh.Used = rh.Used.Sub(restored)
		if err := recordTx(ctx, tx, s.Clock, walletTx{
			Balance: rh, Delta: restored, Action: ActionCancelRecredit, LeaveID: r.ID,
			Actor: actor.EmployeeID, Remarks: "restricted holiday quota restored",
			IdemKey: idemKey("cancel-recredit", r.ID, LeaveRH),
		}); err != nil {
			return false, err
		}
		return true, nil

	default:
		if !r.PaidDays.IsPositive() {
			return false, nil
		}
		w, err := EnsureWallet(ctx, tx, r.EmployeeID, r.Year())
		if err != nil {
			return false, err
		}
		b := w[r.LeaveType]
		b.Used = generic.NonNegative(b.Used.Sub(r.PaidDays))
		return true, recordTx(ctx, tx, s.Clock, walletTx{
			Balance: b, Delta: r.PaidDays, Action: ActionCancelRecredit, LeaveID: r.ID,
			Actor: actor.EmployeeID, Remarks: "leave cancelled",
			IdemKey: idemKey("cancel-recredit", r.ID, r.LeaveType),
		})
	}
}

// =============================================================================
// LISTS - Role-scoped
// =============================================================================

type ListFilter struct {
	EmployeeID generic.EmployeeID // 0 = everyone visible
	Statuses   []Status
	Year       int
	From, To   generic.Date // optional overlap window
}

// ListMine returns the actor's own requests.
func (s *Service) ListMine(ctx context.Context, actor auth.Actor, f ListFilter) ([]LeaveRequest, error) {
	f.EmployeeID = actor.EmployeeID
	return s.list(ctx, []generic.EmployeeID{actor.EmployeeID}, f)
}

// List returns requests visible to the actor: HR sees all, managers see
// themselves and their whole subtree, employees see their own.
func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter) ([]LeaveRequest, error) {
	if actor.IsHR() {
		var ids []generic.EmployeeID
		if f.EmployeeID != 0 {
			ids = []generic.EmployeeID{f.EmployeeID}
		}
		return s.list(ctx, ids, f)
	}
	all, err := s.Store.ListEmployees(ctx, false)
	if err != nil {
		return nil, err
	}
	visible := append([]generic.EmployeeID{actor.EmployeeID}, Subordinates(all, actor.EmployeeID)...)
	if f.EmployeeID != 0 {
		if !containsID(visible, f.EmployeeID) {
			return []LeaveRequest{}, nil
		}
		visible = []generic.EmployeeID{f.EmployeeID}
	}
	return s.list(ctx, visible, f)
}

// ListPending returns PENDING requests the actor can decide.
func (s *Service) ListPending(ctx context.Context, actor auth.Actor) ([]LeaveRequest, error) {
	f := ListFilter{Statuses: []Status{StatusPending}}
	if actor.IsHR() {
		reqs, err := s.list(ctx, nil, f)
		if err != nil {
			return nil, err
		}
		out := reqs[:0]
		for _, r := range reqs {
			if r.EmployeeID != actor.EmployeeID {
				out = append(out, r)
			}
		}
		return out, nil
	}
	all, err := s.Store.ListEmployees(ctx, false)
	if err != nil {
		return nil, err
	}
	reports := DirectReports(all, actor.EmployeeID)
	if len(reports) == 0 {
		return []LeaveRequest{}, nil
	}
	return s.list(ctx, reports, f)
}

// Get returns one request if the actor may view it.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id int64) (*LeaveRequest, error) {
	r, err := s.Store.GetLeave(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, generic.NotFound("leave request %d", id)
	}
	emp, err := s.Store.GetEmployee(ctx, r.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, generic.NotFound("employee %d", r.EmployeeID)
	}
	res, err := ResourceFor(ctx, s.Store, emp)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionViewLeaves, res); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) list(ctx context.Context, ids []generic.EmployeeID, f ListFilter) ([]LeaveRequest, error) {
	lf := LeaveFilter{EmployeeIDs: ids, Statuses: f.Statuses, Year: f.Year}
	if !f.From.IsZero() || !f.To.IsZero() {
		window := generic.Period{Start: f.From, End: f.To}
		if f.From.IsZero() {
			window.Start = generic.StartOfYear(1900)
		}
		if f.To.IsZero() {
			window.End = generic.EndOfYear(9999)
		}
		lf.Overlapping = &window
	}
	reqs, err := s.Store.ListLeaves(ctx, lf)
	if err != nil {
		return nil, err
	}
	if reqs == nil {
		reqs = []LeaveRequest{}
	}
	return reqs, nil
}

func containsID(ids []generic.EmployeeID, id generic.EmployeeID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
