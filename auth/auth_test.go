package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/generic"
)

var (
	hr       = auth.Actor{EmployeeID: 1, Role: auth.RoleHR}
	admin    = auth.Actor{EmployeeID: 2, Role: auth.RoleAdmin}
	manager  = auth.Actor{EmployeeID: 10, Role: auth.RoleManager}
	skip     = auth.Actor{EmployeeID: 11, Role: auth.RoleManager}
	employee = auth.Actor{EmployeeID: 20, Role: auth.RoleEmployee}
	peer     = auth.Actor{EmployeeID: 21, Role: auth.RoleEmployee}

	// employee 20 reports to 10, who reports to 11
	employeeRes = auth.Resource{EmployeeID: 20, Chain: []generic.EmployeeID{10, 11}}
)

func reason(err error) string { return generic.ReasonOf(err) }

// =============================================================================
// APPROVAL AUTHORITY
// =============================================================================

func TestAuthorize_Approve(t *testing.T) {
	tests := []struct {
		name   string
		actor  auth.Actor
		res    auth.Resource
		reason string
	}{
		{"HR approves anyone", hr, employeeRes, ""},
		{"ADMIN approves anyone", admin, employeeRes, ""},
		{"direct manager approves reportee", manager, employeeRes, ""},
		{"skip-level manager cannot approve", skip, employeeRes, generic.ReasonNotManager},
		{"peer cannot approve", peer, employeeRes, generic.ReasonNotManager},
		{"self approval denied", employee, employeeRes, generic.ReasonSelfApproval},
		{"HR cannot approve own request", hr, auth.Resource{EmployeeID: 1}, generic.ReasonSelfApproval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, action := range []auth.Action{auth.ActionApproveLeave, auth.ActionApproveCompOff, auth.ActionApproveWFH} {
				err := auth.Authorize(tt.actor, action, tt.res)
				if tt.reason == "" {
					assert.NoError(t, err, action)
					continue
				}
				require.Error(t, err, action)
				assert.Equal(t, tt.reason, reason(err))
				assert.Equal(t, generic.KindAuthorization, generic.KindOf(err))
			}
		})
	}
}

func TestAuthorize_ViewScopedToChain(t *testing.T) {
	assert.True(t, auth.Can(employee, auth.ActionViewLeaves, employeeRes))
	assert.True(t, auth.Can(manager, auth.ActionViewLeaves, employeeRes))
	assert.True(t, auth.Can(skip, auth.ActionViewLeaves, employeeRes))
	assert.True(t, auth.Can(hr, auth.ActionViewLeaves, employeeRes))
	assert.False(t, auth.Can(peer, auth.ActionViewLeaves, employeeRes))
}

func TestAuthorize_HROnlyActions(t *testing.T) {
	for _, action := range []auth.Action{
		auth.ActionCancelLeave, auth.ActionOverridePolicy, auth.ActionDeductPL,
		auth.ActionRunAccrual, auth.ActionYearClose, auth.ActionManageSettings,
		auth.ActionManageCalendar, auth.ActionViewReports, auth.ActionManageEmployees,
	} {
		assert.NoError(t, auth.Authorize(hr, action, employeeRes), action)
		assert.NoError(t, auth.Authorize(admin, action, employeeRes), action)
		err := auth.Authorize(manager, action, employeeRes)
		assert.Equal(t, generic.ReasonRoleRequired, reason(err), action)
	}
}

func TestAuthorize_ApplyOnBehalf(t *testing.T) {
	assert.NoError(t, auth.Authorize(employee, auth.ActionApplyOnBehalf, employeeRes))
	assert.NoError(t, auth.Authorize(hr, auth.ActionApplyOnBehalf, employeeRes))
	assert.Error(t, auth.Authorize(manager, auth.ActionApplyOnBehalf, employeeRes))
}

func TestAuthorize_ScenarioAdminOnly(t *testing.T) {
	assert.NoError(t, auth.Authorize(admin, auth.ActionLoadScenario, auth.Resource{}))
	assert.Error(t, auth.Authorize(hr, auth.ActionLoadScenario, auth.Resource{}))
}

func TestParseRole(t *testing.T) {
	r, ok := auth.ParseRole(" manager ")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleManager, r)

	_, ok = auth.ParseRole("MD")
	assert.False(t, ok)
}

// =============================================================================
// TOKENS AND PASSWORDS
// =============================================================================

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", "leave-engine", time.Hour)

	token, err := issuer.Issue(manager)
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, manager, got)
}

func TestTokenIssuer_RejectsWrongSecretAndExpired(t *testing.T) {
	issued := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	issuer := auth.NewTokenIssuer("secret-a", "leave-engine", time.Hour).
		WithClock(func() time.Time { return issued })

	token, err := issuer.Issue(employee)
	require.NoError(t, err)

	_, err = auth.NewTokenIssuer("secret-b", "leave-engine", time.Hour).
		WithClock(func() time.Time { return issued }).Parse(token)
	assert.True(t, errors.Is(err, generic.ErrUnauthenticated))

	later := auth.NewTokenIssuer("secret-a", "leave-engine", time.Hour).
		WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	_, err = later.Parse(token)
	assert.True(t, errors.Is(err, generic.ErrUnauthenticated))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	assert.NoError(t, auth.CheckPassword(hash, "s3cret"))
	assert.Error(t, auth.CheckPassword(hash, "wrong"))
}
