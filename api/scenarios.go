/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Populates the database with a small organisation so the API can be
  explored without manual setup. Used by POST /api/scenarios/load and by
  the -seed flag of cmd/server.

AVAILABLE SCENARIOS:
  demo-org:   Admin, HR, one manager and two reportees; this year's
              holidays, one restricted holiday, one company event and
              accrual up to the current month
  year-end:   demo-org plus last year's accrual, ready for
              POST /api/policy/year-close

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the admin directly in the store (there is no actor yet)
 3. Create everyone else through the service as that admin
 4. Add calendar entries and run accrual month by month

NOTE:
  Scenarios reset the database. Every seeded login uses DemoPassword.

SEE ALSO:
  - handlers.go: Handler and error mapping
  - cmd/server/main.go: -seed flag
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// DemoPassword is the password of every seeded employee.
const DemoPassword = "leave-demo-2025"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "demo-org",
		Name:        "Demo Organisation",
		Description: "Five employees, this year's calendar, accrual up to the current month",
	},
	{
		ID:          "year-end",
		Name:        "Year-End Close",
		Description: "Demo organisation with last year fully accrued, ready for year-close",
	},
}

// ScenarioResult tells the caller who can log in.
type ScenarioResult struct {
	Scenario  string        `json:"scenario"`
	Password  string        `json:"password"`
	Employees []EmployeeDTO `json:"employees"`
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and seeds a scenario. ADMIN only.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if err := auth.Authorize(actorFrom(r), auth.ActionLoadScenario, auth.Resource{}); err != nil {
		h.writeError(w, r, err)
		return
	}
	var req LoadScenarioRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.Seed(r.Context(), req.ScenarioID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// LOADERS
// =============================================================================

type seedEmployee struct {
	key, name, email, dept string
	role                   auth.Role
	manager                string
	joined                 generic.Date
}

// Seed resets the store and loads the named scenario.
func (h *Handler) Seed(ctx context.Context, scenarioID string) (*ScenarioResult, error) {
	today := h.Leaves.Clock.Today()
	var years []int
	switch scenarioID {
	case "demo-org":
		years = []int{today.Year()}
	case "year-end":
		years = []int{today.Year() - 1, today.Year()}
	default:
		return nil, generic.NotFound("unknown scenario %q", scenarioID)
	}
	if err := h.Store.Reset(ctx); err != nil {
		return nil, errors.Wrap(err, "reset before seeding")
	}

	first := generic.StartOfYear(years[0] - 1)
	people := []seedEmployee{
		{key: "hr", name: "Harini Rao", email: "hr@example.com", dept: "People", role: auth.RoleHR, manager: "admin", joined: first},
		{key: "mgr", name: "Manoj Iyer", email: "manager@example.com", dept: "Engineering", role: auth.RoleManager, manager: "admin", joined: first},
		{key: "alice", name: "Alice Fernandes", email: "alice@example.com", dept: "Engineering", role: auth.RoleEmployee, manager: "mgr", joined: first.AddMonths(3)},
		{key: "bob", name: "Bob Menon", email: "bob@example.com", dept: "Engineering", role: auth.RoleEmployee, manager: "mgr", joined: generic.NewDate(today.Year(), time.January, 20)},
	}

	admin, err := h.seedAdmin(ctx, first)
	if err != nil {
		return nil, err
	}
	actor := admin.Actor()
	depts := map[string]int64{}
	for _, name := range []string{"Leadership", "People", "Engineering"} {
		d, err := h.Leaves.CreateDepartment(ctx, actor, name)
		if err != nil {
			return nil, errors.Wrapf(err, "seed department %s", name)
		}
		depts[name] = d.ID
	}
	if admin, err = h.Leaves.SetEmployeeDepartment(ctx, actor, admin.ID, depts["Leadership"]); err != nil {
		return nil, errors.Wrap(err, "seed admin department")
	}
	ids := map[string]generic.EmployeeID{"admin": admin.ID}
	res := &ScenarioResult{Scenario: scenarioID, Password: DemoPassword, Employees: []EmployeeDTO{toEmployeeDTO(admin)}}
	for _, p := range people {
		emp, err := h.Leaves.CreateEmployee(ctx, actor, timeoff.NewEmployee{
			Name:               p.name,
			Email:              p.email,
			Password:           DemoPassword,
			Role:               p.role,
			DepartmentID:       depts[p.dept],
			JoinDate:           p.joined,
			ReportingManagerID: ids[p.manager],
		})
		if err != nil {
			return nil, errors.Wrapf(err, "seed %s", p.email)
		}
		ids[p.key] = emp.ID
		res.Employees = append(res.Employees, toEmployeeDTO(emp))
	}

	if _, err := h.Leaves.AssignManagerDepartments(ctx, actor, ids["mgr"], []int64{depts["Engineering"]}); err != nil {
		return nil, errors.Wrap(err, "seed manager departments")
	}

	for _, year := range years {
		if err := h.seedCalendar(ctx, actor, year); err != nil {
			return nil, err
		}
		last := time.December
		if year == today.Year() {
			last = today.Month()
		}
		for m := time.January; m <= last; m++ {
			if _, err := h.Leaves.RunAccrual(ctx, actor, generic.MonthKey(year, m)); err != nil {
				return nil, errors.Wrapf(err, "seed accrual %d-%02d", year, m)
			}
		}
	}

	h.Logger.WithField("scenario", scenarioID).WithField("employees", len(res.Employees)).Info("scenario loaded")
	return res, nil
}

func (h *Handler) seedAdmin(ctx context.Context, joined generic.Date) (*timeoff.Employee, error) {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	admin := &timeoff.Employee{
		EmpCode:      "E000",
		Name:         "Asha Kapoor",
		Email:        "admin@example.com",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		JoinDate:     joined,
		Active:       true,
		CreatedAt:    h.Leaves.Clock.Now(),
	}
	if err := h.Store.CreateEmployee(ctx, admin); err != nil {
		return nil, errors.Wrap(err, "seed admin")
	}
	return admin, nil
}

func (h *Handler) seedCalendar(ctx context.Context, actor auth.Actor, year int) error {
	entries := []timeoff.CalendarEntry{
		{Kind: timeoff.KindHoliday, Date: generic.NewDate(year, time.January, 26), Name: "Republic Day"},
		{Kind: timeoff.KindHoliday, Date: generic.NewDate(year, time.August, 15), Name: "Independence Day"},
		{Kind: timeoff.KindHoliday, Date: generic.NewDate(year, time.October, 2), Name: "Gandhi Jayanti"},
		{Kind: timeoff.KindHoliday, Date: generic.NewDate(year, time.December, 25), Name: "Christmas"},
		{Kind: timeoff.KindRestrictedHoliday, Date: generic.NewDate(year, time.March, 14), Name: "Holi"},
		{Kind: timeoff.KindCompanyEvent, Date: generic.NewDate(year, time.November, 20), Name: "Annual Offsite"},
	}
	for _, e := range entries {
		if _, err := h.Leaves.AddCalendarEntry(ctx, actor, e); err != nil {
			return errors.Wrapf(err, "seed %s %s", e.Kind, e.Date)
		}
	}
	return nil
}
