package generic

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is the inclusive range [Start, End].
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates ordering.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps reports whether two inclusive periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return !p.End.Before(o.Start) && !p.Start.After(o.End)
}

// SameYear reports whether both ends fall in one calendar year.
func (p Period) SameYear() bool { return p.Start.Year() == p.End.Year() }

// IsSingleDay reports Start == End.
func (p Period) IsSingleDay() bool { return p.Start.Equal(p.End) }

// Days returns all days in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the number of calendar days in the period.
func (p Period) Len() int { return DaysBetween(p.Start, p.End) + 1 }

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Year returns the period for a calendar year.
func Year(year int) Period { return Period{Start: StartOfYear(year), End: EndOfYear(year)} }

// =============================================================================
// MONTH SPLIT
// =============================================================================

// SplitByMonth counts one day per date, keyed by "YYYY-MM".
func SplitByMonth(days []Date) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	one := decimal.NewFromInt(1)
	for _, d := range days {
		out[d.MonthKey()] = out[d.MonthKey()].Add(one)
	}
	return out
}

// SortedKeys returns the month keys in ascending order.
func SortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
