// Package calendar implements per-resource day availability and workday
// arithmetic. A Calendar maps a calendar date to a fractional availability
// in [0,1]: the default is 1.0 on Mon-Fri and 0.0 on Sat-Sun, overridable
// per-date for holidays or partial-availability days.
package calendar

import (
	"sync"
	"time"
)

const epsilon = 1e-9

// Calendar is a day -> availability override map layered on top of the
// standard Mon-Fri working week.
type Calendar struct {
	mu        sync.RWMutex
	overrides map[time.Time]float64
}

// New creates a Calendar with the default Mon-Fri working week and no
// overrides.
func New() *Calendar {
	return &Calendar{overrides: make(map[time.Time]float64)}
}

func dayKey(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func defaultAvailability(d time.Time) float64 {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return 0.0
	default:
		return 1.0
	}
}

// Availability returns the override for d if one was set, else the default
// Mon-Fri/Sat-Sun availability.
func (c *Calendar) Availability(d time.Time) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := dayKey(d)
	if v, ok := c.overrides[key]; ok {
		return v
	}
	return defaultAvailability(key)
}

// IsWorkingDay reports whether d has nonzero availability.
func (c *Calendar) IsWorkingDay(d time.Time) bool {
	return c.Availability(d) > epsilon
}

// SetAvailability overrides a single date's availability. Used both for
// holidays (0.0) and partial-availability days (e.g. 0.5).
func (c *Calendar) SetAvailability(d time.Time, availability float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[dayKey(d)] = availability
}

// AddUnavailablePeriod sets availability to 0 for every date in [from, to],
// inclusive on both ends.
func (c *Calendar) AddUnavailablePeriod(from, to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cursor := dayKey(from)
	end := dayKey(to)
	for !cursor.After(end) {
		c.overrides[cursor] = 0.0
		cursor = cursor.AddDate(0, 0, 1)
	}
}

// AddWorkdays advances forward from start, consuming fractional availability
// per calendar day, and returns the date at which nWorkdays have been fully
// consumed. The result is exclusive of any remaining work: it is the first
// working day after the last day that contributed to the nth workday (so a
// Monday plus 5 workdays is the following Monday, not the Saturday between),
// and start + AddWorkdays(start, n) satisfies "start_date +
// working_days(duration) = end_date" for zero-length and fractional n alike.
// When no availability is consumed (n = 0), start's day is returned as is.
func (c *Calendar) AddWorkdays(start time.Time, nWorkdays float64) time.Time {
	cursor := dayKey(start)
	consumed := 0.0
	for consumed < nWorkdays-epsilon {
		consumed += c.Availability(cursor)
		cursor = cursor.AddDate(0, 0, 1)
	}
	if consumed > epsilon {
		for !c.IsWorkingDay(cursor) {
			cursor = cursor.AddDate(0, 0, 1)
		}
	}
	return cursor
}

// WorkdaysBetween returns the number of working days consumed by the
// calendar-date range [s, e): the sum of Availability(d) for each day d in
// that half-open range. If e is before s, returns 0.
func (c *Calendar) WorkdaysBetween(s, e time.Time) float64 {
	start := dayKey(s)
	end := dayKey(e)
	if !end.After(start) {
		return 0
	}

	total := 0.0
	for cursor := start; cursor.Before(end); cursor = cursor.AddDate(0, 0, 1) {
		total += c.Availability(cursor)
	}
	return total
}
