/*
Package calendar provides the calendar-day abstraction used by the absence engine.

PURPOSE:
  Absences are booked in whole days. Everything in this package works on a
  Date (year/month/day, no time of day, no zone) so that day arithmetic and
  weekday lookups never drift across DST changes or server time zones.

KEY CONCEPTS:
  - Date:     A single calendar day (normalized to UTC midnight internally)
  - WorkWeek: The set of weekdays an employee is contracted to work
  - Period:   An inclusive [Start, End] range of days

TEXT FORMS:
  Date.String() renders ISO "2006-01-02" for logs and error messages only.
  The public dd-MM-yyyy form lives in the api package.

SEE ALSO:
  - workweek.go: Working-day set
  - period.go:   Inclusive day ranges and year splitting
*/
package calendar

import "time"

// =============================================================================
// DATE - A calendar day with no time component
// =============================================================================

type Date struct {
	t time.Time
}

// NewDate builds a Date. Out-of-range values normalize the way time.Date does
// (e.g. February 30 becomes March 2).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the time-of-day and zone of t, keeping its calendar day.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return FromTime(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }

// Time returns the day as UTC midnight.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// =============================================================================
// DATE UTILITIES
// =============================================================================

// DaysBetween returns to - from in whole days (negative when to is earlier).
// Dates are UTC midnights, so the difference in Unix seconds is an exact
// multiple of a day. time.Duration would saturate past ~292 years.
func DaysBetween(from, to Date) int {
	return int((to.t.Unix() - from.t.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

func StartOfYear(year int) Date { return NewDate(year, time.January, 1) }
func EndOfYear(year int) Date   { return NewDate(year, time.December, 31) }

// Year returns the whole calendar year as a Period.
func Year(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}
