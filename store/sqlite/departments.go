package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// DEPARTMENTS
// =============================================================================

const departmentColumns = `id, name, active, created_at, updated_at`

func (r *repo) CreateDepartment(ctx context.Context, d *timeoff.Department) error {
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO departments (name, active, created_at, updated_at) VALUES (?, ?, ?, ?)",
		d.Name, boolInt(d.Active), fmtTime(d.CreatedAt), fmtTime(d.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Conflict(generic.ReasonDuplicate, "department %q already exists", d.Name)
		}
		return errors.Wrap(err, "insert department")
	}
	d.ID, err = res.LastInsertId()
	return errors.Wrap(err, "department id")
}

func (r *repo) UpdateDepartment(ctx context.Context, d *timeoff.Department) error {
	_, err := r.q.ExecContext(ctx,
		"UPDATE departments SET name = ?, active = ?, updated_at = ? WHERE id = ?",
		d.Name, boolInt(d.Active), fmtTime(d.UpdatedAt), d.ID)
	if isUniqueConstraintError(err) {
		return generic.Conflict(generic.ReasonDuplicate, "department %q already exists", d.Name)
	}
	return errors.Wrap(err, "update department")
}

func (r *repo) GetDepartment(ctx context.Context, id int64) (*timeoff.Department, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+departmentColumns+" FROM departments WHERE id = ?", id)
	d, err := scanDepartment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func (r *repo) ListDepartments(ctx context.Context, activeOnly bool) ([]timeoff.Department, error) {
	query := "SELECT " + departmentColumns + " FROM departments"
	if activeOnly {
		query += " WHERE active = 1"
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return nil, errors.Wrap(err, "list departments")
	}
	defer rows.Close()

	var out []timeoff.Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *repo) SetManagerDepartments(ctx context.Context, manager generic.EmployeeID, departmentIDs []int64) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM manager_departments WHERE manager_id = ?", int64(manager)); err != nil {
		return errors.Wrap(err, "clear manager departments")
	}
	for _, id := range departmentIDs {
		if _, err := r.q.ExecContext(ctx,
			"INSERT INTO manager_departments (manager_id, department_id) VALUES (?, ?)", int64(manager), id); err != nil {
			return errors.Wrap(err, "insert manager department")
		}
	}
	return nil
}

func (r *repo) ListManagerDepartments(ctx context.Context, manager generic.EmployeeID) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT department_id FROM manager_departments WHERE manager_id = ? ORDER BY department_id", int64(manager))
	if err != nil {
		return nil, errors.Wrap(err, "list manager departments")
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan manager department")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanDepartment(s scanner) (*timeoff.Department, error) {
	var (
		d            timeoff.Department
		active       int
		created, upd string
	)
	err := s.Scan(&d.ID, &d.Name, &active, &created, &upd)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan department")
	}
	d.Active = active == 1
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(upd)
	return &d, nil
}
