package timeoff

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// REPORTING TREE
// =============================================================================

// ReportingChain walks up from emp: [direct manager, their manager, ...].
// A cycle in stored data stops the walk.
func ReportingChain(ctx context.Context, store EmployeeStore, emp *Employee) ([]generic.EmployeeID, error) {
	var chain []generic.EmployeeID
	seen := map[generic.EmployeeID]bool{emp.ID: true}
	next := emp.ReportingManagerID
	for next != 0 && !seen[next] {
		seen[next] = true
		chain = append(chain, next)
		m, err := store.GetEmployee(ctx, next)
		if err != nil {
			return nil, errors.Wrap(err, "walk reporting chain")
		}
		if m == nil {
			break
		}
		next = m.ReportingManagerID
	}
	return chain, nil
}

// ResourceFor builds the authorization resource for an employee.
func ResourceFor(ctx context.Context, store EmployeeStore, emp *Employee) (auth.Resource, error) {
	chain, err := ReportingChain(ctx, store, emp)
	if err != nil {
		return auth.Resource{}, err
	}
	return auth.Resource{EmployeeID: emp.ID, Chain: chain}, nil
}

// Subordinates returns every employee below managerID, at any depth.
func Subordinates(all []Employee, managerID generic.EmployeeID) []generic.EmployeeID {
	children := make(map[generic.EmployeeID][]generic.EmployeeID)
	for _, e := range all {
		if e.ReportingManagerID != 0 {
			children[e.ReportingManagerID] = append(children[e.ReportingManagerID], e.ID)
		}
	}
	var out []generic.EmployeeID
	seen := map[generic.EmployeeID]bool{managerID: true}
	queue := append([]generic.EmployeeID(nil), children[managerID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		queue = append(queue, children[id]...)
	}
	return out
}

// DirectReports returns employees whose reporting manager is managerID.
func DirectReports(all []Employee, managerID generic.EmployeeID) []generic.EmployeeID {
	var out []generic.EmployeeID
	for _, e := range all {
		if e.ReportingManagerID == managerID {
			out = append(out, e.ID)
		}
	}
	return out
}

// wouldCycle reports whether making managerID the manager of empID closes a loop.
func wouldCycle(ctx context.Context, store EmployeeStore, empID, managerID generic.EmployeeID) (bool, error) {
	seen := map[generic.EmployeeID]bool{}
	for cur := managerID; cur != 0; {
		if cur == empID {
			return true, nil
		}
		if seen[cur] {
			return false, nil
		}
		seen[cur] = true
		m, err := store.GetEmployee(ctx, cur)
		if err != nil {
			return false, err
		}
		if m == nil {
			return false, nil
		}
		cur = m.ReportingManagerID
	}
	return false, nil
}

// =============================================================================
// EMPLOYEE MANAGEMENT
// =============================================================================

type NewEmployee struct {
	EmpCode            string
	Name               string
	Email              string
	Password           string
	Role               auth.Role
	DepartmentID       int64
	JoinDate           generic.Date
	ReportingManagerID generic.EmployeeID
}

// CreateEmployee adds an employee. HR/ADMIN only.
func (s *Service) CreateEmployee(ctx context.Context, actor auth.Actor, in NewEmployee) (*Employee, error) {
	if err := auth.Authorize(actor, auth.ActionManageEmployees, auth.Resource{}); err != nil {
		return nil, err
	}
	if in.JoinDate.IsZero() {
		return nil, generic.Validation(generic.ReasonInvalidInput, "join_date is required")
	}
	if in.Role == "" {
		in.Role = auth.RoleEmployee
	}
	emp := &Employee{
		EmpCode:            in.EmpCode,
		Name:               in.Name,
		Email:              strings.ToLower(strings.TrimSpace(in.Email)),
		Role:               in.Role,
		DepartmentID:       in.DepartmentID,
		JoinDate:           in.JoinDate,
		ReportingManagerID: in.ReportingManagerID,
		Active:             true,
		CreatedAt:          s.Clock.Now(),
	}
	if in.Password != "" {
		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		emp.PasswordHash = hash
	}

	err := s.Store.WithTx(ctx, func(tx Store) error {
		if existing, err := tx.GetEmployeeByEmail(ctx, emp.Email); err != nil {
			return err
		} else if existing != nil {
			return generic.Conflict(generic.ReasonDuplicate, "employee with email %s already exists", emp.Email)
		}
		if emp.ReportingManagerID != 0 {
			m, err := tx.GetEmployee(ctx, emp.ReportingManagerID)
			if err != nil {
				return err
			}
			if m == nil {
				return generic.Validation(generic.ReasonInvalidInput, "reporting manager %d does not exist", emp.ReportingManagerID)
			}
		}
		if emp.DepartmentID != 0 {
			if _, err := activeDepartment(ctx, tx, emp.DepartmentID); err != nil {
				return err
			}
		}
		if err := tx.CreateEmployee(ctx, emp); err != nil {
			return err
		}
		return s.audit(ctx, tx, actor.EmployeeID, generic.AuditEmployeeCreated, "employee", emp.ID, map[string]any{
			"email": emp.Email, "role": string(emp.Role),
		})
	})
	if err != nil {
		return nil, err
	}
	return emp, nil
}

// SetReportingManager changes an employee's manager, rejecting cycles.
func (s *Service) SetReportingManager(ctx context.Context, actor auth.Actor, empID, managerID generic.EmployeeID) (*Employee, error) {
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
		if managerID == empID {
			return generic.Validation(generic.ReasonManagerCycle, "an employee cannot report to themselves")
		}
		if managerID != 0 {
			cycle, err := wouldCycle(ctx, tx, empID, managerID)
			if err != nil {
				return err
			}
			if cycle {
				return generic.Validation(generic.ReasonManagerCycle, "employee %d reporting to %d would create a cycle", empID, managerID)
			}
		}
		emp.ReportingManagerID = managerID
		if err := tx.UpdateEmployee(ctx, emp); err != nil {
			return err
		}
		out = emp
		return nil
	})
	return out, err
}

// GetEmployee returns an employee visible to the actor.
func (s *Service) GetEmployee(ctx context.Context, actor auth.Actor, id generic.EmployeeID) (*Employee, error) {
	emp, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, generic.NotFound("employee %d", id)
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

// ListEmployees returns every employee. HR/ADMIN only.
func (s *Service) ListEmployees(ctx context.Context, actor auth.Actor) ([]Employee, error) {
	if err := auth.Authorize(actor, auth.ActionManageEmployees, auth.Resource{}); err != nil {
		return nil, err
	}
	return s.Store.ListEmployees(ctx, false)
}

// Login checks credentials and returns the employee.
func (s *Service) Login(ctx context.Context, email, password string) (*Employee, error) {
	emp, err := s.Store.GetEmployeeByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if emp == nil || !emp.Active || emp.PasswordHash == "" || auth.CheckPassword(emp.PasswordHash, password) != nil {
		return nil, errors.Wrap(generic.ErrUnauthenticated, generic.ReasonInvalidCredential)
	}
	return emp, nil
}

func (s *Service) audit(ctx context.Context, log generic.AuditLog, actor generic.EmployeeID, action generic.AuditAction, entityType string, entityID any, payload map[string]any) error {
	return log.AppendAudit(ctx, generic.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  s.Clock.Now(),
		ActorID:    actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   idemKey(entityID),
		Payload:    payload,
	})
}
