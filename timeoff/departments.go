package timeoff

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// DEPARTMENTS - Master data, manager assignments, employee membership
// =============================================================================

type Department struct {
	ID        int64
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DepartmentPatch changes the fields that are non-nil.
type DepartmentPatch struct {
	Name   *string
	Active *bool
}

func departmentName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", generic.Validation(generic.ReasonInvalidInput, "department name is required")
	}
	return name, nil
}

// activeDepartment loads id and fails unless it exists and is active.
func activeDepartment(ctx context.Context, store DepartmentStore, id int64) (*Department, error) {
	d, err := store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, generic.NotFound("department %d", id)
	}
	if !d.Active {
		return nil, generic.Validation(generic.ReasonInactiveDept, "department %q is inactive", d.Name).WithDetail("department_id", id)
	}
	return d, nil
}

// CreateDepartment adds an active department. HR/ADMIN only.
func (s *Service) CreateDepartment(ctx context.Context, actor auth.Actor, name string) (*Department, error) {
	if err := auth.Authorize(actor, auth.ActionManageDepartment, auth.Resource{}); err != nil {
		return nil, err
	}
	name, err := departmentName(name)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	d := &Department{Name: name, Active: true, CreatedAt: now, UpdatedAt: now}
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateDepartment(ctx, d); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditDepartment, "department", d.ID, map[string]any{
			"name": d.Name, "op": "create",
		})
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDepartments returns departments by name. Only HR sees inactive ones.
func (s *Service) ListDepartments(ctx context.Context, actor auth.Actor, includeInactive bool) ([]Department, error) {
	out, err := s.Store.ListDepartments(ctx, !(includeInactive && actor.IsHR()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Department{}
	}
	return out, nil
}

func (s *Service) GetDepartment(ctx context.Context, actor auth.Actor, id int64) (*Department, error) {
	d, err := s.Store.GetDepartment(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil || (!d.Active && !actor.IsHR()) {
		return nil, generic.NotFound("department %d", id)
	}
	return d, nil
}

// UpdateDepartment renames or (de)activates a department. HR/ADMIN only.
func (s *Service) UpdateDepartment(ctx context.Context, actor auth.Actor, id int64, patch DepartmentPatch) (*Department, error) {
	if err := auth.Authorize(actor, auth.ActionManageDepartment, auth.Resource{}); err != nil {
		return nil, err
	}
	var out *Department
	err := s.Store.WithTx(ctx, func(tx Store) error {
		d, err := tx.GetDepartment(ctx, id)
		if err != nil {
			return err
		}
		if d == nil {
			return generic.NotFound("department %d", id)
		}
		payload := map[string]any{"op": "update"}
		if patch.Name != nil {
			name, err := departmentName(*patch.Name)
			if err != nil {
				return err
			}
			payload["name"] = map[string]string{"from": d.Name, "to": name}
			d.Name = name
		}
		if patch.Active != nil {
			payload["active"] = *patch.Active
			d.Active = *patch.Active
		}
		d.UpdatedAt = s.Clock.Now()
		if err := tx.UpdateDepartment(ctx, d); err != nil {
			return err
		}
		out = d
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditDepartment, "department", d.ID, payload)
	})
	return out, err
}

// AssignManagerDepartments replaces the set of departments a manager
// oversees. The target must hold the MANAGER role and every department
// must exist and be active. An empty list clears the assignment.
func (s *Service) AssignManagerDepartments(ctx context.Context, actor auth.Actor, managerID generic.EmployeeID, departmentIDs []int64) ([]Department, error) {
	if err := auth.Authorize(actor, auth.ActionManageDepartment, auth.Resource{}); err != nil {
		return nil, err
	}
	ids := uniqueIDs(departmentIDs)
	var out []Department
	err := s.Store.WithTx(ctx, func(tx Store) error {
		m, err := tx.GetEmployee(ctx, managerID)
		if err != nil {
			return err
		}
		if m == nil {
			return generic.NotFound("employee %d", managerID)
		}
		if m.Role != auth.RoleManager {
			return generic.Validation(generic.ReasonNotAManager, "employee %d is %s, not MANAGER", managerID, m.Role)
		}
		out = make([]Department, 0, len(ids))
		for _, id := range ids {
			d, err := activeDepartment(ctx, tx, id)
			if err != nil {
				return err
			}
			out = append(out, *d)
		}
		if err := tx.SetManagerDepartments(ctx, managerID, ids); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditDepartment, "manager_departments", managerID, map[string]any{
			"department_ids": ids,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ManagerDepartments lists what a manager oversees. HR or the manager.
func (s *Service) ManagerDepartments(ctx context.Context, actor auth.Actor, managerID generic.EmployeeID) ([]Department, error) {
	if actor.EmployeeID != managerID && !actor.IsHR() {
		return nil, generic.Forbidden(generic.ReasonRoleRequired, "only HR or the manager can view department assignments")
	}
	ids, err := s.Store.ListManagerDepartments(ctx, managerID)
	if err != nil {
		return nil, err
	}
	out := make([]Department, 0, len(ids))
	for _, id := range ids {
		d, err := s.Store.GetDepartment(ctx, id)
		if err != nil {
			return nil, err
		}
		if d != nil {
			out = append(out, *d)
		}
	}
	return out, nil
}

// SetEmployeeDepartment moves an employee into an active department, or out
// of any department when departmentID is 0. HR/ADMIN only.
func (s *Service) SetEmployeeDepartment(ctx context.Context, actor auth.Actor, empID generic.EmployeeID, departmentID int64) (*Employee, error) {
	if err := auth.Authorize(actor, auth.ActionManageEmployees, auth.Resource{EmployeeID: empID}); err != nil {
		return nil, err
	}
	var out *Employee
	err := s.Store.WithTx(ctx, func(tx Store) error {
		emp, err := tx.GetEmployee(ctx, empID)
		if err != nil {
			return err
		}
		if emp == nil {
			return generic.NotFound("employee %d", empID)
		}
		if departmentID != 0 {
			if _, err := activeDepartment(ctx, tx, departmentID); err != nil {
				return err
			}
		}
		before := emp.DepartmentID
		emp.DepartmentID = departmentID
		if err := tx.UpdateEmployee(ctx, emp); err != nil {
			return err
		}
		out = emp
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditEmployeeUpdated, "employee", emp.ID, map[string]any{
			"department_id": map[string]int64{"from": before, "to": departmentID},
		})
	})
	return out, err
}

// departmentMembers returns employees in any of the manager's departments.
func departmentMembers(ctx context.Context, store Store, all []Employee, managerID generic.EmployeeID) ([]generic.EmployeeID, error) {
	ids, err := store.ListManagerDepartments(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	managed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		managed[id] = true
	}
	var out []generic.EmployeeID
	for _, e := range all {
		if e.DepartmentID != 0 && managed[e.DepartmentID] {
			out = append(out, e.ID)
		}
	}
	return out, nil
}

func uniqueIDs(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
