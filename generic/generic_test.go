package generic_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) generic.Date { return generic.MustParseDate(s) }

func days(v float64) decimal.Decimal { return generic.Days(v) }

func credit(emp generic.EmployeeID, worked string, n float64, key string) generic.Entry {
	w := d(worked)
	return generic.Entry{
		ID:             key,
		EmployeeID:     emp,
		Kind:           generic.EntryCredit,
		Days:           days(n),
		WorkedDate:     w,
		ExpiresOn:      w.AddDays(60),
		IdempotencyKey: key,
		CreatedAt:      w.Time(),
	}
}

// =============================================================================
// DATE AND PERIOD
// =============================================================================

func TestDate_AddMonthsClampsToMonthEnd(t *testing.T) {
	assert.Equal(t, "2025-02-28", d("2025-01-31").AddMonths(1).String())
	assert.Equal(t, "2024-02-29", d("2023-08-29").AddMonths(6).String())
	assert.Equal(t, "2026-01-15", d("2025-07-15").AddMonths(6).String())
}

func TestDate_ISOWeekday(t *testing.T) {
	assert.Equal(t, 7, d("2025-03-09").ISOWeekday()) // Sunday
	assert.Equal(t, 1, d("2025-03-10").ISOWeekday()) // Monday
	assert.Equal(t, 6, d("2025-03-08").ISOWeekday()) // Saturday
}

func TestDate_JSONRoundTripAndNull(t *testing.T) {
	b, err := d("2025-06-01").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2025-06-01"`, string(b))

	b, err = generic.Date{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var parsed generic.Date
	require.NoError(t, parsed.UnmarshalJSON([]byte(`"2025-12-31"`)))
	assert.True(t, parsed.Equal(d("2025-12-31")))
	assert.Error(t, parsed.UnmarshalJSON([]byte(`"31/12/2025"`)))
}

func TestPeriod_RejectsInvertedRange(t *testing.T) {
	_, err := generic.NewPeriod(d("2025-03-10"), d("2025-03-09"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestPeriod_OverlapsInclusive(t *testing.T) {
	a := generic.Period{Start: d("2025-03-10"), End: d("2025-03-12")}
	b := generic.Period{Start: d("2025-03-12"), End: d("2025-03-14")}
	c := generic.Period{Start: d("2025-03-13"), End: d("2025-03-14")}

	assert.True(t, a.Overlaps(b))
	assert.True(t, b.Overlaps(a))
	assert.False(t, a.Overlaps(c))
	assert.Equal(t, 3, a.Len())
}

func TestSplitByMonth(t *testing.T) {
	p := generic.Period{Start: d("2025-01-30"), End: d("2025-02-02")}
	split := generic.SplitByMonth(p.Days())

	require.Len(t, split, 2)
	assert.True(t, split["2025-01"].Equal(days(2)))
	assert.True(t, split["2025-02"].Equal(days(2)))
	assert.Equal(t, []string{"2025-01", "2025-02"}, generic.SortedKeys(split))
}

func TestRoundToHalf(t *testing.T) {
	cases := map[float64]float64{
		5.0:  5.0,
		5.25: 5.5,
		5.2:  5.0,
		3.75: 4.0,
		0.25: 0.5,
	}
	for in, want := range cases {
		assert.True(t, generic.RoundToHalf(days(in)).Equal(days(want)), "round(%v)", in)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestError_StatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, generic.Validation(generic.ReasonInvalidInput, "x").Status())
	assert.Equal(t, http.StatusBadRequest, generic.Violation(generic.ReasonPLNotEligible, "x").Status())
	assert.Equal(t, http.StatusConflict, generic.Conflict(generic.ReasonOverlap, "x").Status())
	assert.Equal(t, http.StatusForbidden, generic.Forbidden(generic.ReasonSelfApproval, "x").Status())
	assert.Equal(t, http.StatusNotFound, generic.NotFound("leave %d", 4).Status())
}

func TestError_MatchableThroughWrapping(t *testing.T) {
	err := generic.Conflict(generic.ReasonRHQuotaUsed, "already used")
	wrapped := errors.Join(errors.New("context"), err)

	assert.Equal(t, generic.KindConflict, generic.KindOf(wrapped))
	assert.Equal(t, generic.ReasonRHQuotaUsed, generic.ReasonOf(wrapped))
	assert.True(t, generic.IsNotFound(generic.NotFound("missing")))
	assert.True(t, errors.Is(generic.NotFound("missing"), generic.ErrEntityNotFound))
	assert.False(t, generic.IsClientError(errors.New("boom")))
}

// =============================================================================
// LEDGER
// =============================================================================

func TestBalance_ExpiredCreditsExcluded(t *testing.T) {
	// GIVEN: two credits, one worked 70 days before asOf
	entries := []generic.Entry{
		credit(1, "2025-01-05", 1, "c1"),
		credit(1, "2025-03-02", 1, "c2"),
	}

	// WHEN: balance on 2025-03-16
	b := generic.Balance(entries, d("2025-03-16"))

	// THEN: the January credit has expired
	assert.True(t, b.Credits.Equal(days(1)))
	assert.True(t, b.Expired.Equal(days(1)))
	assert.True(t, b.Available.Equal(days(1)))
}

func TestBalance_CreditValidOnExpiryDay(t *testing.T) {
	entries := []generic.Entry{credit(1, "2025-03-02", 1, "c1")}

	assert.True(t, generic.Balance(entries, d("2025-05-01")).Available.Equal(days(1)))
	assert.True(t, generic.Balance(entries, d("2025-05-02")).Available.IsZero())
}

func TestBalance_ReversalRestoresDebit(t *testing.T) {
	entries := []generic.Entry{
		credit(1, "2025-03-02", 1, "c1"),
		{EmployeeID: 1, Kind: generic.EntryDebit, Days: days(1), LeaveRequestID: 9},
		{EmployeeID: 1, Kind: generic.EntryReversal, Days: days(1), LeaveRequestID: 9},
	}
	b := generic.Balance(entries, d("2025-03-10"))
	assert.True(t, b.Available.Equal(days(1)))
}

func TestBalance_FlooredAtZero(t *testing.T) {
	entries := []generic.Entry{
		credit(1, "2025-01-05", 1, "c1"),
		{EmployeeID: 1, Kind: generic.EntryDebit, Days: days(1), LeaveRequestID: 2},
	}
	// credit expired, debit remains
	b := generic.Balance(entries, d("2025-06-01"))
	assert.True(t, b.Available.IsZero())
}

func TestLedger_AppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := generic.NewLedger(newMemoryEntries())

	require.NoError(t, ledger.Append(ctx, credit(1, "2025-03-02", 1, "compoff-credit:1")))
	err := ledger.Append(ctx, credit(1, "2025-03-02", 1, "compoff-credit:1"))
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	b, err := ledger.BalanceAt(ctx, 1, d("2025-03-03"))
	require.NoError(t, err)
	assert.True(t, b.Available.Equal(days(1)))
}

func TestLedger_RejectsNonPositiveAndUnexpiringCredit(t *testing.T) {
	ctx := context.Background()
	ledger := generic.NewLedger(newMemoryEntries())

	err := ledger.Append(ctx, generic.Entry{EmployeeID: 1, Kind: generic.EntryDebit, Days: decimal.Zero})
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))

	err = ledger.Append(ctx, generic.Entry{EmployeeID: 1, Kind: generic.EntryCredit, Days: days(1)})
	assert.Equal(t, generic.KindValidation, generic.KindOf(err))
}

func TestLedger_DebitedFor(t *testing.T) {
	ctx := context.Background()
	ledger := generic.NewLedger(newMemoryEntries())
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Append(ctx, credit(1, "2025-03-02", 1, "c1")))
	require.NoError(t, ledger.Append(ctx, credit(1, "2025-03-09", 1, "c2")))
	require.NoError(t, ledger.Append(ctx, generic.Entry{EmployeeID: 1, Kind: generic.EntryDebit, Days: days(2), LeaveRequestID: 5, CreatedAt: now}))

	net, err := ledger.DebitedFor(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, net.Equal(days(2)))

	require.NoError(t, ledger.Append(ctx, generic.Entry{EmployeeID: 1, Kind: generic.EntryReversal, Days: days(2), LeaveRequestID: 5, CreatedAt: now.Add(time.Hour)}))
	net, err = ledger.DebitedFor(ctx, 1, 5)
	require.NoError(t, err)
	assert.True(t, net.IsZero())
}
