package timeoff

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// POLICY SETTINGS - One row per calendar year
// =============================================================================

// PolicySettings holds the per-year entitlements, thresholds and toggles.
type PolicySettings struct {
	Year int

	AnnualPL           decimal.Decimal
	AnnualCL           decimal.Decimal
	AnnualSL           decimal.Decimal
	AnnualRH           decimal.Decimal
	PublicHolidayTotal int

	MonthlyCreditPL decimal.Decimal
	MonthlyCreditCL decimal.Decimal
	MonthlyCreditSL decimal.Decimal

	PLEligibilityMonths int
	BackdatedMaxDays    int
	CarryForwardPLMax   decimal.Decimal

	WFHMaxDays  int
	WFHDayValue decimal.Decimal

	NoticeDaysCLPL    int
	MonthlyCapCLPL    decimal.Decimal
	EnforceMonthlyCap bool
	EnforceNoticeDays bool

	EnforceSickIntimation    bool
	SickIntimationMinMinutes int

	WeeklyOffDay int // ISO weekday, 7 = Sunday

	SandwichEnabled          bool
	SandwichIncludeWeeklyOff bool
	SandwichIncludeHolidays  bool
	SandwichIncludeRH        bool
	EventsNonWorking         bool // company events are non-working for sandwich purposes
	BlockLeaveOnEvents       bool

	AllowHROverride bool

	UpdatedAt time.Time
}

// DefaultSettings returns the settings created on first access to a year.
func DefaultSettings(year int) *PolicySettings {
	return &PolicySettings{
		Year:                     year,
		AnnualPL:                 generic.DaysInt(7),
		AnnualCL:                 generic.DaysInt(5),
		AnnualSL:                 generic.DaysInt(6),
		AnnualRH:                 generic.DaysInt(1),
		PublicHolidayTotal:       14,
		MonthlyCreditPL:          generic.DaysInt(1),
		MonthlyCreditCL:          generic.DaysInt(1),
		MonthlyCreditSL:          decimal.Zero,
		PLEligibilityMonths:      6,
		BackdatedMaxDays:         7,
		CarryForwardPLMax:        generic.DaysInt(4),
		WFHMaxDays:               12,
		WFHDayValue:              generic.Days(0.5),
		NoticeDaysCLPL:           3,
		MonthlyCapCLPL:           generic.DaysInt(4),
		EnforceMonthlyCap:        false,
		EnforceNoticeDays:        false,
		EnforceSickIntimation:    false,
		SickIntimationMinMinutes: 120,
		WeeklyOffDay:             7,
		SandwichEnabled:          true,
		SandwichIncludeWeeklyOff: true,
		SandwichIncludeHolidays:  true,
		SandwichIncludeRH:        false,
		EventsNonWorking:         true,
		BlockLeaveOnEvents:       true,
		AllowHROverride:          true,
	}
}

// Annual returns the yearly entitlement for a wallet type.
func (s *PolicySettings) Annual(t LeaveType) decimal.Decimal {
	switch t {
	case LeavePL:
		return s.AnnualPL
	case LeaveCL:
		return s.AnnualCL
	case LeaveSL:
		return s.AnnualSL
	case LeaveRH:
		return s.AnnualRH
	}
	return decimal.Zero
}

// IsWeeklyOff reports whether d falls on the configured weekly off.
func (s *PolicySettings) IsWeeklyOff(d generic.Date) bool {
	return d.ISOWeekday() == s.WeeklyOffDay
}

// PLEligibleFrom is join date + eligibility months, clamped to month end.
func (s *PolicySettings) PLEligibleFrom(join generic.Date) generic.Date {
	return join.AddMonths(s.PLEligibilityMonths)
}

// =============================================================================
// LAZY GET-OR-CREATE
// =============================================================================

// EnsureSettings returns the year's settings, inserting defaults on first access.
func EnsureSettings(ctx context.Context, store SettingsStore, year int) (*PolicySettings, error) {
	s, err := store.GetSettings(ctx, year)
	if err != nil {
		return nil, errors.Wrapf(err, "load policy settings %d", year)
	}
	if s != nil {
		return s, nil
	}
	s = DefaultSettings(year)
	if err := store.SaveSettings(ctx, s); err != nil {
		return nil, errors.Wrapf(err, "create default policy settings %d", year)
	}
	return s, nil
}
