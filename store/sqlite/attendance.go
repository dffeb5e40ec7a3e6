package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// ATTENDANCE SESSIONS
// =============================================================================

const sessionColumns = `id, employee_id, work_date, punch_in_at, punch_out_at, status,
	punch_in_source, punch_out_source, punch_in_ip, punch_out_ip,
	punch_in_device_id, punch_out_device_id, punch_in_geo, punch_out_geo,
	remarks, created_at, updated_at`

func (r *repo) CreateSession(ctx context.Context, a *timeoff.AttendanceSession) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO attendance_sessions (employee_id, work_date, punch_in_at, punch_out_at, status,
			punch_in_source, punch_out_source, punch_in_ip, punch_out_ip,
			punch_in_device_id, punch_out_device_id, punch_in_geo, punch_out_geo,
			remarks, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(a.EmployeeID), a.WorkDate.String(), nullTime(a.PunchInAt), nullTime(a.PunchOutAt), string(a.Status),
		a.PunchInSource, a.PunchOutSource, a.PunchInIP, a.PunchOutIP,
		a.PunchInDevice, a.PunchOutDevice, geoText(a.PunchInGeo), geoText(a.PunchOutGeo),
		a.Remarks, fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Conflict(generic.ReasonAlreadyPunchedIn, "already punched in for %s", a.WorkDate)
		}
		return errors.Wrap(err, "insert attendance session")
	}
	a.ID, err = res.LastInsertId()
	return errors.Wrap(err, "attendance session id")
}

func (r *repo) UpdateSession(ctx context.Context, a *timeoff.AttendanceSession) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE attendance_sessions SET punch_out_at = ?, status = ?, punch_out_source = ?, punch_out_ip = ?,
			punch_out_device_id = ?, punch_out_geo = ?, remarks = ?, updated_at = ?
		WHERE id = ?`,
		nullTime(a.PunchOutAt), string(a.Status), a.PunchOutSource, a.PunchOutIP,
		a.PunchOutDevice, geoText(a.PunchOutGeo), a.Remarks, fmtTime(a.UpdatedAt), a.ID,
	)
	return errors.Wrap(err, "update attendance session")
}

func (r *repo) GetSession(ctx context.Context, id int64) (*timeoff.AttendanceSession, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM attendance_sessions WHERE id = ?", id)
	a, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListSessions orders by work date (newest first), then punch-in.
func (r *repo) ListSessions(ctx context.Context, f timeoff.AttendanceFilter) ([]timeoff.AttendanceSession, error) {
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
	if !f.From.IsZero() {
		where = append(where, "work_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "work_date <= ?")
		args = append(args, f.To.String())
	}
	query := "SELECT " + sessionColumns + " FROM attendance_sessions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY work_date DESC, punch_in_at, id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "list attendance sessions")
	}
	defer rows.Close()

	var out []timeoff.AttendanceSession
	for rows.Next() {
		a, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanSession(s scanner) (*timeoff.AttendanceSession, error) {
	var (
		a             timeoff.AttendanceSession
		emp           int64
		workDate      string
		in, out       sql.NullString
		status        string
		inGeo, outGeo sql.NullString
		created, upd  string
	)
	err := s.Scan(&a.ID, &emp, &workDate, &in, &out, &status,
		&a.PunchInSource, &a.PunchOutSource, &a.PunchInIP, &a.PunchOutIP,
		&a.PunchInDevice, &a.PunchOutDevice, &inGeo, &outGeo,
		&a.Remarks, &created, &upd)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan attendance session")
	}
	a.EmployeeID = generic.EmployeeID(emp)
	a.WorkDate, _ = generic.ParseDate(workDate)
	a.PunchInAt = timePtr(in)
	a.PunchOutAt = timePtr(out)
	a.Status = timeoff.SessionStatus(status)
	a.PunchInGeo = geoOf(inGeo)
	a.PunchOutGeo = geoOf(outGeo)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(upd)
	return &a, nil
}

func geoText(g *timeoff.Geo) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: jsonText(g), Valid: true}
}

func geoOf(ns sql.NullString) *timeoff.Geo {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var g timeoff.Geo
	if err := json.Unmarshal([]byte(ns.String), &g); err != nil {
		return nil
	}
	return &g
}
