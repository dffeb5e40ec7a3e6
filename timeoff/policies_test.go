package timeoff_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// 2025-03-01 is a Saturday; Sunday is the weekly off.

func d(s string) generic.Date { return generic.MustParseDate(s) }

func period(t *testing.T, from, to string) generic.Period {
	t.Helper()
	p, err := generic.NewPeriod(d(from), d(to))
	require.NoError(t, err)
	return p
}

func holiday(kind timeoff.CalendarKind, date, name string) timeoff.CalendarEntry {
	return timeoff.CalendarEntry{Kind: kind, Year: d(date).Year(), Date: d(date), Name: name, Active: true}
}

// =============================================================================
// DAY COUNTING
// =============================================================================

func TestCountDays_Sandwich(t *testing.T) {
	settings := timeoff.DefaultSettings(2025)
	cal := timeoff.NewCalendar(2025, holiday(timeoff.KindHoliday, "2025-03-05", "Founders Day"))

	tests := []struct {
		name     string
		from, to string
		typ      timeoff.LeaveType
		want     int
	}{
		{"sat to mon sandwiches sunday", "2025-03-01", "2025-03-03", timeoff.LeaveCL, 3},
		{"fri to sat", "2025-02-28", "2025-03-01", timeoff.LeaveCL, 2},
		{"leading off day is not counted", "2025-03-02", "2025-03-04", timeoff.LeavePL, 2},
		{"holiday between counted days", "2025-03-04", "2025-03-06", timeoff.LeaveSL, 3},
		{"lwp uses baseline", "2025-03-01", "2025-03-03", timeoff.LeaveLWP, 2},
		{"only an off day", "2025-03-02", "2025-03-02", timeoff.LeaveCL, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timeoff.CountDays(period(t, tt.from, tt.to), tt.typ, settings, cal)
			assert.True(t, got.Total.Equal(generic.DaysInt(tt.want)), "got %s", got.Total)
		})
	}
}

func TestCountDays_SandwichToggles(t *testing.T) {
	settings := timeoff.DefaultSettings(2025)
	settings.SandwichIncludeHolidays = false
	cal := timeoff.NewCalendar(2025, holiday(timeoff.KindHoliday, "2025-03-05", "Founders Day"))

	got := timeoff.CountDays(period(t, "2025-03-04", "2025-03-06"), timeoff.LeaveCL, settings, cal)
	assert.True(t, got.Total.Equal(generic.DaysInt(2)))

	settings.SandwichEnabled = false
	got = timeoff.CountDays(period(t, "2025-03-01", "2025-03-03"), timeoff.LeaveCL, settings, cal)
	assert.True(t, got.Total.Equal(generic.DaysInt(2)))
}

func TestCountDays_SplitsByMonth(t *testing.T) {
	settings := timeoff.DefaultSettings(2025)
	got := timeoff.CountDays(period(t, "2025-02-27", "2025-03-04"), timeoff.LeavePL, settings, timeoff.NewCalendar(2025))

	// Thu, Fri | Sat, Sun (sandwiched), Mon, Tue
	assert.True(t, got.Total.Equal(generic.DaysInt(6)))
	assert.True(t, got.ByMonth["2025-02"].Equal(generic.DaysInt(2)))
	assert.True(t, got.ByMonth["2025-03"].Equal(generic.DaysInt(4)))
}

// =============================================================================
// EVALUATOR
// =============================================================================

func candidate(t *testing.T, typ timeoff.LeaveType, from, to string) timeoff.Candidate {
	t.Helper()
	settings := timeoff.DefaultSettings(2025)
	cal := timeoff.NewCalendar(2025,
		holiday(timeoff.KindRestrictedHoliday, "2025-03-14", "Holi"),
		holiday(timeoff.KindCompanyEvent, "2025-04-10", "Offsite"),
	)
	p := period(t, from, to)
	return timeoff.Candidate{
		Employee:  &timeoff.Employee{ID: 1, Role: auth.RoleEmployee, JoinDate: d("2024-06-01"), Active: true},
		LeaveType: typ,
		Period:    p,
		Count:     timeoff.CountDays(p, typ, settings, cal),
		Settings:  settings,
		Calendar:  cal,
		Today:     d("2025-02-20"),
	}
}

func TestEvaluate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *timeoff.Candidate)
		typ    timeoff.LeaveType
		from   string
		to     string
		kind   generic.Kind
		reason string
	}{
		{
			name: "overlap", typ: timeoff.LeaveCL, from: "2025-03-03", to: "2025-03-03",
			mutate: func(c *timeoff.Candidate) { c.Overlapping = []timeoff.LeaveRequest{{ID: 9}} },
			kind:   generic.KindConflict, reason: generic.ReasonOverlap,
		},
		{
			name: "rh must be one day", typ: timeoff.LeaveRH, from: "2025-03-13", to: "2025-03-14",
			kind: generic.KindPolicyViolation, reason: generic.ReasonRHSingleDay,
		},
		{
			name: "rh must be a restricted holiday", typ: timeoff.LeaveRH, from: "2025-03-13", to: "2025-03-13",
			kind: generic.KindPolicyViolation, reason: generic.ReasonRHInvalidDate,
		},
		{
			name: "rh quota", typ: timeoff.LeaveRH, from: "2025-03-14", to: "2025-03-14",
			mutate: func(c *timeoff.Candidate) { c.ApprovedRH = true },
			kind:   generic.KindConflict, reason: generic.ReasonRHQuotaUsed,
		},
		{
			name: "pl before eligibility", typ: timeoff.LeavePL, from: "2024-11-04", to: "2024-11-04",
			mutate: func(c *timeoff.Candidate) { c.Today = d("2024-11-01") },
			kind:   generic.KindPolicyViolation, reason: generic.ReasonPLNotEligible,
		},
		{
			name: "company event", typ: timeoff.LeaveCL, from: "2025-04-09", to: "2025-04-11",
			kind: generic.KindPolicyViolation, reason: generic.ReasonCompanyEvent,
		},
		{
			name: "override needs hr", typ: timeoff.LeaveCL, from: "2025-03-03", to: "2025-03-03",
			mutate: func(c *timeoff.Candidate) { c.Override = timeoff.Override{Requested: true, Remark: "x"} },
			kind:   generic.KindAuthorization, reason: generic.ReasonOverrideNotHR,
		},
		{
			name: "override needs a remark", typ: timeoff.LeaveCL, from: "2025-03-03", to: "2025-03-03",
			mutate: func(c *timeoff.Candidate) { c.Override = timeoff.Override{Requested: true, Remark: "  ", ByHR: true} },
			kind:   generic.KindPolicyViolation, reason: generic.ReasonOverrideRemark,
		},
		{
			name: "notice when enforced", typ: timeoff.LeaveCL, from: "2025-02-21", to: "2025-02-21",
			mutate: func(c *timeoff.Candidate) { c.Settings.EnforceNoticeDays = true },
			kind:   generic.KindPolicyViolation, reason: generic.ReasonNoticePeriod,
		},
		{
			name: "monthly cap when enforced", typ: timeoff.LeavePL, from: "2025-03-03", to: "2025-03-04",
			mutate: func(c *timeoff.Candidate) {
				c.Settings.EnforceMonthlyCap = true
				c.ApprovedByMonth = map[string]decimal.Decimal{"2025-03": generic.DaysInt(3)}
			},
			kind: generic.KindConflict, reason: generic.ReasonMonthlyCap,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := candidate(t, tt.typ, tt.from, tt.to)
			if tt.mutate != nil {
				tt.mutate(&c)
			}
			_, err := timeoff.Evaluate(c)
			require.Error(t, err)
			assert.Equal(t, tt.kind, generic.KindOf(err))
			assert.Equal(t, tt.reason, generic.ReasonOf(err))
		})
	}
}

func TestEvaluate_BackdatedBecomesLWP(t *testing.T) {
	// GIVEN a CL 17 days in the past with a 7 day limit
	c := candidate(t, timeoff.LeaveCL, "2025-02-03", "2025-02-03")

	// WHEN evaluated at apply time
	dec, err := timeoff.Evaluate(c)

	// THEN the whole request becomes LWP
	require.NoError(t, err)
	assert.Equal(t, timeoff.LeaveLWP, dec.LeaveType)
	assert.True(t, dec.AutoConvertedToLWP)
	assert.Equal(t, "backdated_over_limit_17_days_max_7", dec.AutoLWPReason)

	// AND at approval time the conversion is not repeated
	c.AtApproval = true
	dec, err = timeoff.Evaluate(c)
	require.NoError(t, err)
	assert.Equal(t, timeoff.LeaveCL, dec.LeaveType)
}

func TestEvaluate_HROverrideSkipsEligibilityAndEvents(t *testing.T) {
	c := candidate(t, timeoff.LeavePL, "2024-11-04", "2024-11-04")
	c.Today = d("2024-11-01")
	c.Override = timeoff.Override{Requested: true, Remark: "joining bonus leave", ByHR: true}

	dec, err := timeoff.Evaluate(c)
	require.NoError(t, err)
	assert.True(t, dec.OverrideApplied)
	assert.Equal(t, timeoff.LeavePL, dec.LeaveType)

	c = candidate(t, timeoff.LeaveCL, "2025-04-09", "2025-04-11")
	c.Override = timeoff.Override{Requested: true, Remark: "family emergency", ByHR: true}
	_, err = timeoff.Evaluate(c)
	assert.NoError(t, err)
}

func TestEvaluate_OverrideNeverSkipsOverlap(t *testing.T) {
	c := candidate(t, timeoff.LeaveCL, "2025-03-03", "2025-03-03")
	c.Override = timeoff.Override{Requested: true, Remark: "r", ByHR: true}
	c.Overlapping = []timeoff.LeaveRequest{{ID: 4}}

	_, err := timeoff.Evaluate(c)
	assert.Equal(t, generic.ReasonOverlap, generic.ReasonOf(err))
}

func TestEvaluate_NoChargeableDays(t *testing.T) {
	c := candidate(t, timeoff.LeaveCL, "2025-03-02", "2025-03-02")
	_, err := timeoff.Evaluate(c)
	assert.Equal(t, generic.ReasonNoChargeableDays, generic.ReasonOf(err))
}

func TestEvaluate_CompOffSkipsNoticeAndCap(t *testing.T) {
	c := candidate(t, timeoff.LeaveCompOff, "2025-02-21", "2025-02-21")
	c.Settings.EnforceNoticeDays = true
	_, err := timeoff.Evaluate(c)
	assert.NoError(t, err)
}
