package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/compoff"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// COMP-OFF LEDGER (append-only, generic.EntryStore)
// =============================================================================

func (r *repo) AppendEntry(ctx context.Context, e generic.Entry) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO compoff_ledger (id, employee_id, kind, days, worked_date, expires_on,
			leave_request_id, reference_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, int64(e.EmployeeID), string(e.Kind), e.Days.String(), nullDate(e.WorkedDate), nullDate(e.ExpiresOn),
		nullID(e.LeaveRequestID), e.ReferenceID, nullString(e.IdempotencyKey), fmtTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return errors.Wrap(err, "append comp-off entry")
	}
	return nil
}

func (r *repo) ListEntries(ctx context.Context, emp generic.EmployeeID) ([]generic.Entry, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, employee_id, kind, days, worked_date, expires_on, leave_request_id, reference_id,
			idempotency_key, created_at
		FROM compoff_ledger WHERE employee_id = ? ORDER BY created_at, rowid`, int64(emp))
	if err != nil {
		return nil, errors.Wrap(err, "list comp-off entries")
	}
	defer rows.Close()

	var out []generic.Entry
	for rows.Next() {
		var (
			e                generic.Entry
			empID            int64
			kind, amount, at string
			worked, expires  sql.NullString
			leaveID          sql.NullInt64
			key              sql.NullString
		)
		if err := rows.Scan(&e.ID, &empID, &kind, &amount, &worked, &expires, &leaveID, &e.ReferenceID,
			&key, &at); err != nil {
			return nil, errors.Wrap(err, "scan comp-off entry")
		}
		e.EmployeeID = generic.EmployeeID(empID)
		e.Kind = generic.EntryKind(kind)
		e.Days = days(amount)
		e.WorkedDate, e.ExpiresOn = dateOf(worked), dateOf(expires)
		e.LeaveRequestID = leaveID.Int64
		e.IdempotencyKey = key.String
		e.CreatedAt = parseTime(at)
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// COMP-OFF REQUESTS
// =============================================================================

const compOffColumns = `id, employee_id, worked_date, reason, status, decided_by, decided_at, remarks, created_at`

func (r *repo) CreateCompOff(ctx context.Context, c *compoff.Request) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO compoff_requests (employee_id, worked_date, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		int64(c.EmployeeID), c.WorkedDate.String(), c.Reason, string(c.Status), fmtTime(c.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Conflict(generic.ReasonDuplicate, "comp-off already requested for %s", c.WorkedDate)
		}
		return errors.Wrap(err, "insert comp-off request")
	}
	c.ID, err = res.LastInsertId()
	return errors.Wrap(err, "comp-off request id")
}

func (r *repo) UpdateCompOff(ctx context.Context, c *compoff.Request) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE compoff_requests SET status = ?, decided_by = ?, decided_at = ?, remarks = ? WHERE id = ?`,
		string(c.Status), int64(c.DecidedBy), nullTime(c.DecidedAt), c.Remarks, c.ID)
	return errors.Wrap(err, "update comp-off request")
}

func (r *repo) GetCompOff(ctx context.Context, id int64) (*compoff.Request, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+compOffColumns+" FROM compoff_requests WHERE id = ?", id)
	c, err := scanCompOff(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *repo) ListCompOff(ctx context.Context, f compoff.Filter) ([]compoff.Request, error) {
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
	query := "SELECT " + compOffColumns + " FROM compoff_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY worked_date, id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "list comp-off requests")
	}
	defer rows.Close()

	var out []compoff.Request
	for rows.Next() {
		c, err := scanCompOff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanCompOff(s scanner) (*compoff.Request, error) {
	var (
		c                  compoff.Request
		emp, decidedBy     int64
		worked, status, at string
		decidedAt          sql.NullString
	)
	err := s.Scan(&c.ID, &emp, &worked, &c.Reason, &status, &decidedBy, &decidedAt, &c.Remarks, &at)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan comp-off request")
	}
	c.EmployeeID = generic.EmployeeID(emp)
	c.WorkedDate, _ = generic.ParseDate(worked)
	c.Status = compoff.Status(status)
	c.DecidedBy = generic.EmployeeID(decidedBy)
	c.DecidedAt = timePtr(decidedAt)
	c.CreatedAt = parseTime(at)
	return &c, nil
}

// =============================================================================
// HR POLICY ACTIONS
// =============================================================================

func (r *repo) AppendHRAction(ctx context.Context, a timeoff.HRAction) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO hr_policy_actions (id, employee_id, action_type, reference_entity, reference_id,
			meta_json, action_by, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, int64(a.EmployeeID), string(a.ActionType), a.ReferenceEntity, a.ReferenceID,
		jsonText(a.Meta), int64(a.ActionBy), a.Remarks, fmtTime(a.CreatedAt))
	return errors.Wrap(err, "append hr policy action")
}

func (r *repo) ListHRActions(ctx context.Context, f timeoff.HRActionFilter) ([]timeoff.HRAction, error) {
	var (
		where []string
		args  []any
	)
	if len(f.EmployeeIDs) > 0 {
		in, a := inClause(f.EmployeeIDs)
		where = append(where, "employee_id IN "+in)
		args = append(args, a...)
	}
	if f.ActionType != "" {
		where = append(where, "action_type = ?")
		args = append(args, string(f.ActionType))
	}
	query := `SELECT id, employee_id, action_type, reference_entity, reference_id, meta_json, action_by,
		remarks, created_at FROM hr_policy_actions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY created_at DESC, rowid DESC", args...)
	if err != nil {
		return nil, errors.Wrap(err, "list hr policy actions")
	}
	defer rows.Close()

	var out []timeoff.HRAction
	for rows.Next() {
		var (
			a                timeoff.HRAction
			emp, by          int64
			actionType, meta string
			at               string
		)
		if err := rows.Scan(&a.ID, &emp, &actionType, &a.ReferenceEntity, &a.ReferenceID, &meta, &by,
			&a.Remarks, &at); err != nil {
			return nil, errors.Wrap(err, "scan hr policy action")
		}
		a.EmployeeID = generic.EmployeeID(emp)
		a.ActionType = timeoff.HRActionType(actionType)
		a.Meta = metaOf(meta)
		a.ActionBy = generic.EmployeeID(by)
		a.CreatedAt = parseTime(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// WFH REQUESTS
// =============================================================================

const wfhColumns = `id, employee_id, date, reason, day_value, status, decided_by, decided_at, remarks, created_at`

func (r *repo) CreateWFH(ctx context.Context, w *timeoff.WFHRequest) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO wfh_requests (employee_id, date, reason, day_value, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		int64(w.EmployeeID), w.Date.String(), w.Reason, w.DayValue.String(), string(w.Status), fmtTime(w.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Conflict(generic.ReasonDuplicate, "WFH already requested for %s", w.Date)
		}
		return errors.Wrap(err, "insert wfh request")
	}
	w.ID, err = res.LastInsertId()
	return errors.Wrap(err, "wfh request id")
}

func (r *repo) UpdateWFH(ctx context.Context, w *timeoff.WFHRequest) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE wfh_requests SET status = ?, decided_by = ?, decided_at = ?, remarks = ? WHERE id = ?`,
		string(w.Status), int64(w.DecidedBy), nullTime(w.DecidedAt), w.Remarks, w.ID)
	return errors.Wrap(err, "update wfh request")
}

func (r *repo) GetWFH(ctx context.Context, id int64) (*timeoff.WFHRequest, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+wfhColumns+" FROM wfh_requests WHERE id = ?", id)
	w, err := scanWFH(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return w, err
}

func (r *repo) ListWFH(ctx context.Context, f timeoff.WFHFilter) ([]timeoff.WFHRequest, error) {
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
	if f.Year != 0 {
		where = append(where, "date >= ? AND date <= ?")
		args = append(args, generic.StartOfYear(f.Year).String(), generic.EndOfYear(f.Year).String())
	}
	query := "SELECT " + wfhColumns + " FROM wfh_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY date, id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "list wfh requests")
	}
	defer rows.Close()

	var out []timeoff.WFHRequest
	for rows.Next() {
		w, err := scanWFH(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func scanWFH(s scanner) (*timeoff.WFHRequest, error) {
	var (
		w                       timeoff.WFHRequest
		emp, decidedBy          int64
		date, value, status, at string
		decidedAt               sql.NullString
	)
	err := s.Scan(&w.ID, &emp, &date, &w.Reason, &value, &status, &decidedBy, &decidedAt, &w.Remarks, &at)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan wfh request")
	}
	w.EmployeeID = generic.EmployeeID(emp)
	w.Date, _ = generic.ParseDate(date)
	w.DayValue = days(value)
	w.Status = timeoff.Status(status)
	w.DecidedBy = generic.EmployeeID(decidedBy)
	w.DecidedAt = timePtr(decidedAt)
	w.CreatedAt = parseTime(at)
	return &w, nil
}
