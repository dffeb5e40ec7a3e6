package factory_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

func TestParseSettings_PartialMerge(t *testing.T) {
	f := factory.NewPolicyFactory()

	// GIVEN a document touching three keys
	doc, err := f.ParseSettings([]byte(`{"carry_forward_pl_max": 5.5, "enforce_monthly_cap": true, "weekly_off_day": 6}`))
	require.NoError(t, err)

	// WHEN merged onto the defaults
	s := timeoff.DefaultSettings(2025)
	require.NoError(t, doc.ApplyTo(s))

	// THEN only those keys change
	assert.True(t, s.CarryForwardPLMax.Equal(generic.Days(5.5)))
	assert.True(t, s.EnforceMonthlyCap)
	assert.Equal(t, 6, s.WeeklyOffDay)
	assert.True(t, s.AnnualPL.Equal(generic.DaysInt(7)))
	assert.True(t, s.SandwichEnabled)
}

func TestParseSettings_FalseAndZeroAreApplied(t *testing.T) {
	f := factory.NewPolicyFactory()
	doc, err := f.ParseSettings([]byte(`{"sandwich_enabled": false, "monthly_credit_cl": 0}`))
	require.NoError(t, err)

	s := timeoff.DefaultSettings(2025)
	require.NoError(t, doc.ApplyTo(s))
	assert.False(t, s.SandwichEnabled)
	assert.True(t, s.MonthlyCreditCL.IsZero())
}

func TestParseSettings_Rejects(t *testing.T) {
	f := factory.NewPolicyFactory()
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"quarter day", `{"annual_pl": 7.25}`, "annual_pl"},
		{"negative", `{"carry_forward_pl_max": -1}`, "carry_forward_pl_max"},
		{"weekday out of range", `{"weekly_off_day": 8}`, "weekly_off_day"},
		{"zero weekday", `{"weekly_off_day": 0}`, "weekly_off_day"},
		{"wfh value above a day", `{"wfh_day_value": 1.5}`, "wfh_day_value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseSettings([]byte(tt.body))
			require.Error(t, err)
			assert.Equal(t, generic.KindValidation, generic.KindOf(err))

			var gerr *generic.Error
			require.ErrorAs(t, err, &gerr)
			fields, ok := gerr.Details["fields"].(map[string]string)
			require.True(t, ok)
			assert.Contains(t, fields, tt.field)
		})
	}

	_, err := f.ParseSettings([]byte(`{"anual_pl": 7}`))
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))

	_, err = f.ParseSettings([]byte(`not json`))
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))
}

func TestFromSettings_RendersEveryKey(t *testing.T) {
	doc := factory.FromSettings(timeoff.DefaultSettings(2025))
	raw, err := json.Marshal(doc)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, float64(2025), m["year"])
	assert.Equal(t, 0.5, m["wfh_day_value"])
	assert.Equal(t, false, m["sandwich_include_rh"])
	assert.Equal(t, float64(7), m["weekly_off_day"])
	assert.Equal(t, true, m["treat_event_as_non_working_for_sandwich"])
	assert.NotContains(t, m, "updated_at")
}
