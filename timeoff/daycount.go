/*
daycount.go - Chargeable-day engine

PURPOSE:
  Computes how many days a leave request consumes and how those days are
  spread across calendar months.

BASELINE:
  Every date in the range counts as one day unless it is non-working:
    - the weekly off (settings.WeeklyOffDay)
    - an active holiday
    - an active company event, when EventsNonWorking is on
    - an active restricted holiday, when SandwichIncludeRH is on

SANDWICH RULE (CL/PL/SL only, when SandwichEnabled):
  A non-working day strictly between two counted days of the SAME request
  is counted too, provided its kind is enabled by the sandwich flags.
  Non-working days at either boundary never count.

    Sat → Mon (Sun off)   Sat ✓  Sun ✓(sandwiched)  Mon ✓     = 3
    Fri → Sat             Fri ✓  Sat ✓                        = 2
    Sun → Tue             Sun ✗(boundary)  Mon ✓  Tue ✓       = 2

  RH, COMPOFF and LWP use the baseline only.

SEE ALSO:
  - policies.go: Uses the result for the monthly cap
*/
package timeoff

import (
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// DayCount is the outcome for one request.
type DayCount struct {
	Total   decimal.Decimal
	ByMonth map[string]decimal.Decimal
	Dates   []generic.Date // counted dates, ascending
}

type dayKind int

const (
	dayWorking dayKind = iota
	dayWeeklyOff
	dayHoliday
	dayEvent
	dayRestricted
)

func classify(d generic.Date, s *PolicySettings, cal *Calendar) dayKind {
	switch {
	case cal.IsHoliday(d):
		return dayHoliday
	case s.IsWeeklyOff(d):
		return dayWeeklyOff
	case s.EventsNonWorking && cal.IsCompanyEvent(d):
		return dayEvent
	case s.SandwichIncludeRH && cal.IsRestrictedHoliday(d):
		return dayRestricted
	}
	return dayWorking
}

func sandwichable(k dayKind, s *PolicySettings) bool {
	switch k {
	case dayWeeklyOff:
		return s.SandwichIncludeWeeklyOff
	case dayHoliday:
		return s.SandwichIncludeHolidays
	case dayEvent:
		return s.EventsNonWorking
	case dayRestricted:
		return s.SandwichIncludeRH
	}
	return false
}

// CountDays computes chargeable days for p. p must be a valid period.
func CountDays(p generic.Period, t LeaveType, s *PolicySettings, cal *Calendar) DayCount {
	dates := p.Days()
	kinds := make([]dayKind, len(dates))
	for i, d := range dates {
		kinds[i] = classify(d, s, cal)
	}

	counted := make([]bool, len(dates))
	for i, k := range kinds {
		counted[i] = k == dayWorking
	}

	if t.Sandwiched() && s.SandwichEnabled {
		first, last := -1, -1
		for i, ok := range counted {
			if ok {
				if first < 0 {
					first = i
				}
				last = i
			}
		}
		for i := first + 1; first >= 0 && i < last; i++ {
			if !counted[i] && sandwichable(kinds[i], s) {
				counted[i] = true
			}
		}
	}

	var out []generic.Date
	for i, ok := range counted {
		if ok {
			out = append(out, dates[i])
		}
	}
	return DayCount{
		Total:   generic.DaysInt(len(out)),
		ByMonth: generic.SplitByMonth(out),
		Dates:   out,
	}
}
