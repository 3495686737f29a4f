// Package calendar provides the business-day and month arithmetic the card
// and extension schedules are built on. All dates are normalized to UTC
// midnight so they compare cleanly with Before/After/Equal.
package calendar

import "time"

// Calendar answers business-day questions against a fixed holiday set.
type Calendar struct {
	holidays map[time.Time]bool
}

// New creates a Calendar from a holiday list.
func New(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[time.Time]bool, len(holidays))}
	for _, h := range holidays {
		c.holidays[Midnight(h)] = true
	}
	return c
}

// Default returns a Calendar loaded with the Canadian statutory holidays
// for 2025.
func Default() *Calendar {
	return New([]time.Time{
		Date(2025, time.January, 1),   // New Year's Day
		Date(2025, time.April, 18),    // Good Friday
		Date(2025, time.May, 19),      // Victoria Day
		Date(2025, time.July, 1),      // Canada Day
		Date(2025, time.August, 4),    // Civic Holiday
		Date(2025, time.September, 1), // Labour Day
		Date(2025, time.October, 13),  // Thanksgiving
		Date(2025, time.November, 11), // Remembrance Day
		Date(2025, time.December, 25), // Christmas Day
		Date(2025, time.December, 26), // Boxing Day
	})
}

// IsBusinessDay reports whether t is a weekday outside the holiday set.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	t = Midnight(t)
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[t]
}

// AddBusinessDays steps forward one calendar day at a time, decrementing
// the counter only on business days, and returns the landed date.
func (c *Calendar) AddBusinessDays(t time.Time, days int) time.Time {
	current := Midnight(t)
	for remaining := days; remaining > 0; {
		current = current.AddDate(0, 0, 1)
		if c.IsBusinessDay(current) {
			remaining--
		}
	}
	return current
}

// Date builds a UTC-midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Midnight truncates t to its UTC calendar date.
func Midnight(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}

// AddMonths adds calendar months to a date, clamping the day-of-month to
// the last valid day of the target month (Jan 31 + 1 month = Feb 28).
// time.Time.AddDate is unsuitable here because it normalizes overflow
// into the following month instead.
func AddMonths(t time.Time, months int) time.Time {
	t = Midnight(t)
	m := int(t.Month()) - 1 + months
	year := t.Year() + m/12
	month := time.Month(m%12 + 1)
	if m < 0 {
		// Go integer division truncates toward zero; shift negative
		// month offsets into the previous year.
		year = t.Year() + (m-11)/12
		month = time.Month((m%12+12)%12 + 1)
	}
	day := t.Day()
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return Date(year, month, day)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}
