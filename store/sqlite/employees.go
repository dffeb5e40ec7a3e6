package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

const employeeColumns = `id, emp_code, name, email, password_hash, role, department_id, join_date,
	reporting_manager_id, active, last_accrual_month, created_at`

func (r *repo) CreateEmployee(ctx context.Context, e *timeoff.Employee) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO employees (emp_code, name, email, password_hash, role, department_id, join_date,
			reporting_manager_id, active, last_accrual_month, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EmpCode, e.Name, e.Email, e.PasswordHash, string(e.Role), nullID(e.DepartmentID), e.JoinDate.String(),
		nullID(e.ReportingManagerID), boolInt(e.Active), e.LastAccrualMonth, fmtTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Conflict(generic.ReasonDuplicate, "employee with email %s already exists", e.Email)
		}
		return errors.Wrap(err, "insert employee")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "employee id")
	}
	e.ID = generic.EmployeeID(id)
	return nil
}

func (r *repo) UpdateEmployee(ctx context.Context, e *timeoff.Employee) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE employees SET emp_code = ?, name = ?, email = ?, password_hash = ?, role = ?,
			department_id = ?, join_date = ?, reporting_manager_id = ?, active = ?, last_accrual_month = ?
		WHERE id = ?`,
		e.EmpCode, e.Name, e.Email, e.PasswordHash, string(e.Role), nullID(e.DepartmentID), e.JoinDate.String(),
		nullID(e.ReportingManagerID), boolInt(e.Active), e.LastAccrualMonth, int64(e.ID),
	)
	return errors.Wrap(err, "update employee")
}

func (r *repo) GetEmployee(ctx context.Context, id generic.EmployeeID) (*timeoff.Employee, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE id = ?", int64(id))
	return scanEmployee(row)
}

func (r *repo) GetEmployeeByEmail(ctx context.Context, email string) (*timeoff.Employee, error) {
	row := r.q.QueryRowContext(ctx, "SELECT "+employeeColumns+" FROM employees WHERE email = ?", email)
	return scanEmployee(row)
}

func (r *repo) ListEmployees(ctx context.Context, activeOnly bool) ([]timeoff.Employee, error) {
	query := "SELECT " + employeeColumns + " FROM employees"
	if activeOnly {
		query += " WHERE active = 1"
	}
	rows, err := r.q.QueryContext(ctx, query+" ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "list employees")
	}
	defer rows.Close()

	var out []timeoff.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(s scanner) (*timeoff.Employee, error) {
	var (
		e         timeoff.Employee
		id        int64
		role      string
		joinDate  string
		dept      sql.NullInt64
		manager   sql.NullInt64
		active    int
		createdAt string
	)
	err := s.Scan(&id, &e.EmpCode, &e.Name, &e.Email, &e.PasswordHash, &role, &dept, &joinDate,
		&manager, &active, &e.LastAccrualMonth, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan employee")
	}
	e.ID = generic.EmployeeID(id)
	e.Role = auth.Role(role)
	e.JoinDate, _ = generic.ParseDate(joinDate)
	e.DepartmentID = dept.Int64
	e.ReportingManagerID = generic.EmployeeID(manager.Int64)
	e.Active = active == 1
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

// =============================================================================
// POLICY SETTINGS
// =============================================================================

const settingsColumns = `year, annual_pl, annual_cl, annual_sl, annual_rh, public_holiday_total,
	monthly_credit_pl, monthly_credit_cl, monthly_credit_sl, pl_eligibility_months, backdated_max_days,
	carry_forward_pl_max, wfh_max_days, wfh_day_value, cl_pl_notice_days, cl_pl_monthly_cap,
	enforce_monthly_cap, enforce_notice_days, enforce_sick_intimation, sick_intimation_min_minutes,
	weekly_off_day, sandwich_enabled, sandwich_include_weekly_off, sandwich_include_holidays,
	sandwich_include_rh, treat_event_as_non_working_for_sandwich, block_leave_on_company_events,
	allow_hr_override, updated_at`

func (r *repo) GetSettings(ctx context.Context, year int) (*timeoff.PolicySettings, error) {
	var (
		s                                                       timeoff.PolicySettings
		pl, cl, sl, rh, mpl, mcl, msl, cfMax, wfhValue, capDays string
		capOn, noticeOn, sickOn, sandwich, swOff, swHol, swRH   int
		eventsNW, blockEvents, allowOverride                    int
		updatedAt                                               string
	)
	err := r.q.QueryRowContext(ctx, "SELECT "+settingsColumns+" FROM policy_settings WHERE year = ?", year).Scan(
		&s.Year, &pl, &cl, &sl, &rh, &s.PublicHolidayTotal,
		&mpl, &mcl, &msl, &s.PLEligibilityMonths, &s.BackdatedMaxDays,
		&cfMax, &s.WFHMaxDays, &wfhValue, &s.NoticeDaysCLPL, &capDays,
		&capOn, &noticeOn, &sickOn, &s.SickIntimationMinMinutes,
		&s.WeeklyOffDay, &sandwich, &swOff, &swHol,
		&swRH, &eventsNW, &blockEvents,
		&allowOverride, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get policy settings")
	}
	s.AnnualPL, s.AnnualCL, s.AnnualSL, s.AnnualRH = days(pl), days(cl), days(sl), days(rh)
	s.MonthlyCreditPL, s.MonthlyCreditCL, s.MonthlyCreditSL = days(mpl), days(mcl), days(msl)
	s.CarryForwardPLMax = days(cfMax)
	s.WFHDayValue = days(wfhValue)
	s.MonthlyCapCLPL = days(capDays)
	s.EnforceMonthlyCap = capOn == 1
	s.EnforceNoticeDays = noticeOn == 1
	s.EnforceSickIntimation = sickOn == 1
	s.SandwichEnabled = sandwich == 1
	s.SandwichIncludeWeeklyOff = swOff == 1
	s.SandwichIncludeHolidays = swHol == 1
	s.SandwichIncludeRH = swRH == 1
	s.EventsNonWorking = eventsNW == 1
	s.BlockLeaveOnEvents = blockEvents == 1
	s.AllowHROverride = allowOverride == 1
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func (r *repo) SaveSettings(ctx context.Context, s *timeoff.PolicySettings) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO policy_settings (`+settingsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (year) DO UPDATE SET
			annual_pl = excluded.annual_pl, annual_cl = excluded.annual_cl,
			annual_sl = excluded.annual_sl, annual_rh = excluded.annual_rh,
			public_holiday_total = excluded.public_holiday_total,
			monthly_credit_pl = excluded.monthly_credit_pl, monthly_credit_cl = excluded.monthly_credit_cl,
			monthly_credit_sl = excluded.monthly_credit_sl,
			pl_eligibility_months = excluded.pl_eligibility_months,
			backdated_max_days = excluded.backdated_max_days,
			carry_forward_pl_max = excluded.carry_forward_pl_max,
			wfh_max_days = excluded.wfh_max_days, wfh_day_value = excluded.wfh_day_value,
			cl_pl_notice_days = excluded.cl_pl_notice_days, cl_pl_monthly_cap = excluded.cl_pl_monthly_cap,
			enforce_monthly_cap = excluded.enforce_monthly_cap,
			enforce_notice_days = excluded.enforce_notice_days,
			enforce_sick_intimation = excluded.enforce_sick_intimation,
			sick_intimation_min_minutes = excluded.sick_intimation_min_minutes,
			weekly_off_day = excluded.weekly_off_day,
			sandwich_enabled = excluded.sandwich_enabled,
			sandwich_include_weekly_off = excluded.sandwich_include_weekly_off,
			sandwich_include_holidays = excluded.sandwich_include_holidays,
			sandwich_include_rh = excluded.sandwich_include_rh,
			treat_event_as_non_working_for_sandwich = excluded.treat_event_as_non_working_for_sandwich,
			block_leave_on_company_events = excluded.block_leave_on_company_events,
			allow_hr_override = excluded.allow_hr_override,
			updated_at = excluded.updated_at`,
		s.Year, s.AnnualPL.String(), s.AnnualCL.String(), s.AnnualSL.String(), s.AnnualRH.String(), s.PublicHolidayTotal,
		s.MonthlyCreditPL.String(), s.MonthlyCreditCL.String(), s.MonthlyCreditSL.String(), s.PLEligibilityMonths, s.BackdatedMaxDays,
		s.CarryForwardPLMax.String(), s.WFHMaxDays, s.WFHDayValue.String(), s.NoticeDaysCLPL, s.MonthlyCapCLPL.String(),
		boolInt(s.EnforceMonthlyCap), boolInt(s.EnforceNoticeDays), boolInt(s.EnforceSickIntimation), s.SickIntimationMinMinutes,
		s.WeeklyOffDay, boolInt(s.SandwichEnabled), boolInt(s.SandwichIncludeWeeklyOff), boolInt(s.SandwichIncludeHolidays),
		boolInt(s.SandwichIncludeRH), boolInt(s.EventsNonWorking), boolInt(s.BlockLeaveOnEvents),
		boolInt(s.AllowHROverride), fmtTime(s.UpdatedAt),
	)
	return errors.Wrap(err, "save policy settings")
}

// =============================================================================
// CALENDARS
// =============================================================================

func calendarTable(kind timeoff.CalendarKind) (string, error) {
	switch kind {
	case timeoff.KindHoliday:
		return "holidays", nil
	case timeoff.KindRestrictedHoliday:
		return "restricted_holidays", nil
	case timeoff.KindCompanyEvent:
		return "company_events", nil
	}
	return "", errors.Errorf("unknown calendar kind %q", kind)
}

func (r *repo) AddCalendarEntry(ctx context.Context, e *timeoff.CalendarEntry) error {
	table, err := calendarTable(e.Kind)
	if err != nil {
		return err
	}
	res, err := r.q.ExecContext(ctx,
		"INSERT INTO "+table+" (year, date, name, active) VALUES (?, ?, ?, ?)",
		e.Year, e.Date.String(), e.Name, boolInt(e.Active))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Conflict(generic.ReasonDuplicate, "%s already defined for %s", e.Kind, e.Date)
		}
		return errors.Wrapf(err, "insert %s", table)
	}
	e.ID, err = res.LastInsertId()
	return errors.Wrap(err, "calendar entry id")
}

func (r *repo) ListCalendar(ctx context.Context, kind timeoff.CalendarKind, year int) ([]timeoff.CalendarEntry, error) {
	table, err := calendarTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, year, date, name, active FROM "+table+" WHERE year = ? ORDER BY date", year)
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", table)
	}
	defer rows.Close()

	var out []timeoff.CalendarEntry
	for rows.Next() {
		var (
			e      = timeoff.CalendarEntry{Kind: kind}
			date   string
			active int
		)
		if err := rows.Scan(&e.ID, &e.Year, &date, &e.Name, &active); err != nil {
			return nil, errors.Wrapf(err, "scan %s", table)
		}
		e.Date, _ = generic.ParseDate(date)
		e.Active = active == 1
		out = append(out, e)
	}
	return out, rows.Err()
}
