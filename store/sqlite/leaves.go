package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// BALANCES
// =============================================================================

const balanceColumns = `id, employee_id, year, leave_type, opening, accrued, used, remaining,
	carry_forward, rh_used, pl_carried_forward, pl_encash_days, updated_at`

func (r *repo) GetBalance(ctx context.Context, emp generic.EmployeeID, year int, t timeoff.LeaveType) (*timeoff.Balance, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+balanceColumns+`
		FROM leave_balances WHERE employee_id = ? AND year = ? AND leave_type = ?`,
		int64(emp), year, string(t))
	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func (r *repo) SaveBalance(ctx context.Context, b *timeoff.Balance) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO leave_balances (employee_id, year, leave_type, opening, accrued, used, remaining,
			carry_forward, rh_used, pl_carried_forward, pl_encash_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (employee_id, year, leave_type) DO UPDATE SET
			opening = excluded.opening, accrued = excluded.accrued, used = excluded.used,
			remaining = excluded.remaining, carry_forward = excluded.carry_forward,
			rh_used = excluded.rh_used, pl_carried_forward = excluded.pl_carried_forward,
			pl_encash_days = excluded.pl_encash_days, updated_at = excluded.updated_at`,
		int64(b.EmployeeID), b.Year, string(b.LeaveType),
		b.Opening.String(), b.Accrued.String(), b.Used.String(), b.Remaining.String(),
		b.CarryForward.String(), b.RHUsed.String(), b.PLCarriedForward.String(), b.PLEncashDays.String(),
		fmtTime(b.UpdatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "save balance")
	}
	if b.ID == 0 {
		err := r.q.QueryRowContext(ctx,
			"SELECT id FROM leave_balances WHERE employee_id = ? AND year = ? AND leave_type = ?",
			int64(b.EmployeeID), b.Year, string(b.LeaveType)).Scan(&b.ID)
		return errors.Wrap(err, "balance id")
	}
	return nil
}

func (r *repo) ListBalances(ctx context.Context, emp generic.EmployeeID, year int) ([]timeoff.Balance, error) {
	return r.queryBalances(ctx, "SELECT "+balanceColumns+`
		FROM leave_balances WHERE employee_id = ? AND year = ? ORDER BY leave_type`, int64(emp), year)
}

func (r *repo) ListBalancesByYear(ctx context.Context, year int) ([]timeoff.Balance, error) {
	return r.queryBalances(ctx, "SELECT "+balanceColumns+`
		FROM leave_balances WHERE year = ? ORDER BY employee_id, leave_type`, year)
}

func (r *repo) queryBalances(ctx context.Context, query string, args ...any) ([]timeoff.Balance, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query balances")
	}
	defer rows.Close()

	var out []timeoff.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scanBalance(s scanner) (*timeoff.Balance, error) {
	var (
		b                                             timeoff.Balance
		emp                                           int64
		lt                                            string
		opening, accrued, used, remaining, cf, rhUsed string
		plCF, plEncash, updatedAt                     string
	)
	err := s.Scan(&b.ID, &emp, &b.Year, &lt, &opening, &accrued, &used, &remaining,
		&cf, &rhUsed, &plCF, &plEncash, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan balance")
	}
	b.EmployeeID = generic.EmployeeID(emp)
	b.LeaveType = timeoff.LeaveType(lt)
	b.Opening, b.Accrued, b.Used, b.Remaining = days(opening), days(accrued), days(used), days(remaining)
	b.CarryForward, b.RHUsed = days(cf), days(rhUsed)
	b.PLCarriedForward, b.PLEncashDays = days(plCF), days(plEncash)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

// =============================================================================
// WALLET TRANSACTIONS (append-only)
// =============================================================================

func (r *repo) AppendTransaction(ctx context.Context, tx timeoff.Transaction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO leave_transactions (id, employee_id, leave_request_id, year, leave_type, delta_days,
			action, remarks, actor_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, int64(tx.EmployeeID), nullID(tx.LeaveRequestID), tx.Year, string(tx.LeaveType), tx.Delta.String(),
		string(tx.Action), tx.Remarks, int64(tx.ActorID), nullString(tx.IdempotencyKey), fmtTime(tx.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return errors.Wrap(err, "append leave transaction")
	}
	return nil
}

func (r *repo) ListTransactions(ctx context.Context, emp generic.EmployeeID, year int) ([]timeoff.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, employee_id, leave_request_id, year, leave_type, delta_days, action, remarks,
			actor_id, idempotency_key, created_at
		FROM leave_transactions WHERE employee_id = ? AND year = ?
		ORDER BY created_at, rowid`, int64(emp), year)
	if err != nil {
		return nil, errors.Wrap(err, "list leave transactions")
	}
	defer rows.Close()

	var out []timeoff.Transaction
	for rows.Next() {
		var (
			t                     timeoff.Transaction
			empID, actor          int64
			leaveID               sql.NullInt64
			lt, delta, action, at string
			key                   sql.NullString
		)
		if err := rows.Scan(&t.ID, &empID, &leaveID, &t.Year, &lt, &delta, &action, &t.Remarks,
			&actor, &key, &at); err != nil {
			return nil, errors.Wrap(err, "scan leave transaction")
		}
		t.EmployeeID = generic.EmployeeID(empID)
		t.LeaveRequestID = leaveID.Int64
		t.LeaveType = timeoff.LeaveType(lt)
		t.Delta = days(delta)
		t.Action = timeoff.WalletAction(action)
		t.ActorID = generic.EmployeeID(actor)
		t.IdempotencyKey = key.String
		t.CreatedAt = parseTime(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

const leaveColumns = `id, employee_id, leave_type, original_leave_type, from_date, to_date, reason, status,
	computed_days, computed_days_by_month, paid_days, lwp_days, override_policy, override_remark,
	auto_converted_to_lwp, auto_lwp_reason, applied_by, approved_by, approved_at, approved_remark,
	rejected_by, rejected_at, rejected_remark, cancelled_by, cancelled_at, cancel_remark, recredited,
	applied_at, updated_at`

func (r *repo) CreateLeave(ctx context.Context, l *timeoff.LeaveRequest) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO leave_requests (employee_id, leave_type, original_leave_type, from_date, to_date,
			reason, status, computed_days, computed_days_by_month, paid_days, lwp_days, override_policy,
			override_remark, auto_converted_to_lwp, auto_lwp_reason, applied_by, applied_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(l.EmployeeID), string(l.LeaveType), string(l.OriginalLeaveType), l.FromDate.String(), l.ToDate.String(),
		l.Reason, string(l.Status), l.ComputedDays.String(), byMonthText(l.ComputedDaysByMonth),
		l.PaidDays.String(), l.LWPDays.String(), boolInt(l.OverridePolicy),
		l.OverrideRemark, boolInt(l.AutoConvertedToLWP), l.AutoLWPReason, int64(l.AppliedBy),
		fmtTime(l.AppliedAt), fmtTime(l.UpdatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "insert leave request")
	}
	l.ID, err = res.LastInsertId()
	return errors.Wrap(err, "leave request id")
}

func (r *repo) UpdateLeave(ctx context.Context, l *timeoff.LeaveRequest) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE leave_requests SET leave_type = ?, status = ?, computed_days = ?, computed_days_by_month = ?,
			paid_days = ?, lwp_days = ?, override_policy = ?, override_remark = ?,
			auto_converted_to_lwp = ?, auto_lwp_reason = ?,
			approved_by = ?, approved_at = ?, approved_remark = ?,
			rejected_by = ?, rejected_at = ?, rejected_remark = ?,
			cancelled_by = ?, cancelled_at = ?, cancel_remark = ?, recredited = ?, updated_at = ?
		WHERE id = ?`,
		string(l.LeaveType), string(l.Status), l.ComputedDays.String(), byMonthText(l.ComputedDaysByMonth),
		l.PaidDays.String(), l.LWPDays.String(), boolInt(l.OverridePolicy), l.OverrideRemark,
		boolInt(l.AutoConvertedToLWP), l.AutoLWPReason,
		int64(l.ApprovedBy), nullTime(l.ApprovedAt), l.ApprovedRemark,
		int64(l.RejectedBy), nullTime(l.RejectedAt), l.RejectedRemark,
		int64(l.CancelledBy), nullTime(l.CancelledAt), l.CancelRemark, boolInt(l.Recredited), fmtTime(l.UpdatedAt),
		l.ID,
	)
	if err != nil {
		return errors.Wrap(err, "update leave request")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.NotFound("leave request %d", l.ID)
	}
	return nil
}

func (r *repo) GetLeave(ctx context.Context, id int64) (*timeoff.LeaveRequest, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = ?", id)
	l, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (r *repo) ListLeaves(ctx context.Context, f timeoff.LeaveFilter) ([]timeoff.LeaveRequest, error) {
	var (
		where []string
		args  []any
	)
	if len(f.EmployeeIDs) > 0 {
		in, a := inClause(f.EmployeeIDs)
		where = append(where, "employee_id IN "+in)
		args = append(args, a...)
	}
	if len(f.Statuses) > 0 {
		in, a := inClause(f.Statuses)
		where = append(where, "status IN "+in)
		args = append(args, a...)
	}
	if len(f.LeaveTypes) > 0 {
		in, a := inClause(f.LeaveTypes)
		where = append(where, "leave_type IN "+in)
		args = append(args, a...)
	}
	if f.Year != 0 {
		where = append(where, "from_date >= ? AND from_date <= ?")
		args = append(args, generic.StartOfYear(f.Year).String(), generic.EndOfYear(f.Year).String())
	}
	if f.Overlapping != nil {
		where = append(where, "from_date <= ? AND to_date >= ?")
		args = append(args, f.Overlapping.End.String(), f.Overlapping.Start.String())
	}
	if f.ExcludeID != 0 {
		where = append(where, "id <> ?")
		args = append(args, f.ExcludeID)
	}

	query := "SELECT " + leaveColumns + " FROM leave_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY from_date, id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "list leave requests")
	}
	defer rows.Close()

	var out []timeoff.LeaveRequest
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLeave(s scanner) (*timeoff.LeaveRequest, error) {
	var (
		l                                   timeoff.LeaveRequest
		emp, appliedBy, approvedBy          int64
		rejectedBy, cancelledBy             int64
		lt, olt, from, to, status           string
		computed, byMonth, paid, lwp        string
		override, autoLWP, recredited       int
		approvedAt, rejectedAt, cancelledAt sql.NullString
		appliedAt, updatedAt                string
	)
	err := s.Scan(&l.ID, &emp, &lt, &olt, &from, &to, &l.Reason, &status,
		&computed, &byMonth, &paid, &lwp, &override, &l.OverrideRemark,
		&autoLWP, &l.AutoLWPReason, &appliedBy, &approvedBy, &approvedAt, &l.ApprovedRemark,
		&rejectedBy, &rejectedAt, &l.RejectedRemark, &cancelledBy, &cancelledAt, &l.CancelRemark, &recredited,
		&appliedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan leave request")
	}
	l.EmployeeID = generic.EmployeeID(emp)
	l.LeaveType = timeoff.LeaveType(lt)
	l.OriginalLeaveType = timeoff.LeaveType(olt)
	l.FromDate, _ = generic.ParseDate(from)
	l.ToDate, _ = generic.ParseDate(to)
	l.Status = timeoff.Status(status)
	l.ComputedDays = days(computed)
	l.ComputedDaysByMonth = byMonthOf(byMonth)
	l.PaidDays, l.LWPDays = days(paid), days(lwp)
	l.OverridePolicy = override == 1
	l.AutoConvertedToLWP = autoLWP == 1
	l.Recredited = recredited == 1
	l.AppliedBy = generic.EmployeeID(appliedBy)
	l.ApprovedBy = generic.EmployeeID(approvedBy)
	l.RejectedBy = generic.EmployeeID(rejectedBy)
	l.CancelledBy = generic.EmployeeID(cancelledBy)
	l.ApprovedAt, l.RejectedAt, l.CancelledAt = timePtr(approvedAt), timePtr(rejectedAt), timePtr(cancelledAt)
	l.AppliedAt, l.UpdatedAt = parseTime(appliedAt), parseTime(updatedAt)
	return &l, nil
}

// =============================================================================
// APPROVAL HISTORY
// =============================================================================

func (r *repo) AppendApproval(ctx context.Context, a timeoff.Approval) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO leave_approvals (leave_request_id, action, actor_id, remarks, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.LeaveRequestID, string(a.Action), int64(a.ActorID), a.Remarks, fmtTime(a.CreatedAt))
	return errors.Wrap(err, "append leave approval")
}

func (r *repo) ListApprovals(ctx context.Context, leaveID int64) ([]timeoff.Approval, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, leave_request_id, action, actor_id, remarks, created_at
		FROM leave_approvals WHERE leave_request_id = ? ORDER BY id`, leaveID)
	if err != nil {
		return nil, errors.Wrap(err, "list leave approvals")
	}
	defer rows.Close()

	out := []timeoff.Approval{}
	for rows.Next() {
		var (
			a          timeoff.Approval
			action, at string
			actor      int64
		)
		if err := rows.Scan(&a.ID, &a.LeaveRequestID, &action, &actor, &a.Remarks, &at); err != nil {
			return nil, errors.Wrap(err, "scan leave approval")
		}
		a.Action = timeoff.ApprovalAction(action)
		a.ActorID = generic.EmployeeID(actor)
		a.CreatedAt = parseTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}
