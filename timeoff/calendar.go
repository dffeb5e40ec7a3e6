package timeoff

import (
	"context"

	"github.com/pkg/errors"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CALENDAR ENTRIES
// =============================================================================

type CalendarKind string

const (
	KindHoliday           CalendarKind = "HOLIDAY"
	KindRestrictedHoliday CalendarKind = "RESTRICTED_HOLIDAY"
	KindCompanyEvent      CalendarKind = "COMPANY_EVENT"
)

// CalendarEntry is a dated, named day. (Kind, Year, Date) is unique.
type CalendarEntry struct {
	ID     int64
	Kind   CalendarKind
	Year   int
	Date   generic.Date
	Name   string
	Active bool
}

// =============================================================================
// CALENDAR - Read-only lookups for one year
// =============================================================================

// Calendar answers "is this date special?" for the day-counting engine and
// the policy evaluator. Only active entries are loaded.
type Calendar struct {
	Year               int
	holidays           map[string]string
	restrictedHolidays map[string]string
	events             map[string]string
}

// NewCalendar builds a calendar from entries; inactive entries are ignored.
func NewCalendar(year int, entries ...CalendarEntry) *Calendar {
	c := &Calendar{
		Year:               year,
		holidays:           make(map[string]string),
		restrictedHolidays: make(map[string]string),
		events:             make(map[string]string),
	}
	for _, e := range entries {
		if !e.Active {
			continue
		}
		switch e.Kind {
		case KindHoliday:
			c.holidays[e.Date.String()] = e.Name
		case KindRestrictedHoliday:
			c.restrictedHolidays[e.Date.String()] = e.Name
		case KindCompanyEvent:
			c.events[e.Date.String()] = e.Name
		}
	}
	return c
}

func (c *Calendar) IsHoliday(d generic.Date) bool {
	_, ok := c.holidays[d.String()]
	return ok
}

func (c *Calendar) IsRestrictedHoliday(d generic.Date) bool {
	_, ok := c.restrictedHolidays[d.String()]
	return ok
}

func (c *Calendar) IsCompanyEvent(d generic.Date) bool {
	_, ok := c.events[d.String()]
	return ok
}

// HolidayName returns the holiday's name, or "".
func (c *Calendar) HolidayName(d generic.Date) string { return c.holidays[d.String()] }

// EventsIn returns the company event dates inside p.
func (c *Calendar) EventsIn(p generic.Period) []generic.Date {
	var out []generic.Date
	for _, d := range p.Days() {
		if c.IsCompanyEvent(d) {
			out = append(out, d)
		}
	}
	return out
}

// LoadCalendar reads the active entries of all three kinds for a year.
func LoadCalendar(ctx context.Context, store CalendarStore, year int) (*Calendar, error) {
	var all []CalendarEntry
	for _, kind := range []CalendarKind{KindHoliday, KindRestrictedHoliday, KindCompanyEvent} {
		entries, err := store.ListCalendar(ctx, kind, year)
		if err != nil {
			return nil, errors.Wrapf(err, "load %s calendar %d", kind, year)
		}
		all = append(all, entries...)
	}
	return NewCalendar(year, all...), nil
}
