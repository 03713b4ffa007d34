package calendar

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// WORK WEEK - The weekdays an employee is expected to work
// =============================================================================

// WorkWeek is a set of weekdays. The zero value is an empty set, meaning every
// day is a non-working day.
type WorkWeek struct {
	days [7]bool
}

// NewWorkWeek builds a WorkWeek from the given weekdays. Duplicates are ignored.
func NewWorkWeek(days ...time.Weekday) WorkWeek {
	var w WorkWeek
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			w.days[d] = true
		}
	}
	return w
}

// MondayToFriday is the common five-day week.
func MondayToFriday() WorkWeek {
	return NewWorkWeek(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
}

func (w WorkWeek) Contains(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && w.days[d]
}

func (w WorkWeek) IsWorkingDay(d Date) bool { return w.Contains(d.Weekday()) }

func (w WorkWeek) IsEmpty() bool { return w.Len() == 0 }

func (w WorkWeek) Len() int {
	n := 0
	for _, on := range w.days {
		if on {
			n++
		}
	}
	return n
}

// Weekdays returns the members ordered Monday first, Sunday last.
func (w WorkWeek) Weekdays() []time.Weekday {
	var out []time.Weekday
	for _, d := range mondayFirst {
		if w.days[d] {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set as comma separated English weekday names,
// e.g. "Monday,Tuesday".
func (w WorkWeek) String() string {
	names := make([]string, 0, 7)
	for _, d := range w.Weekdays() {
		names = append(names, d.String())
	}
	return strings.Join(names, ",")
}

var mondayFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ParseWorkWeek parses comma separated English weekday names. Matching is
// case-insensitive and surrounding spaces are ignored. An empty string yields
// an empty WorkWeek; an unknown name is an error.
func ParseWorkWeek(s string) (WorkWeek, error) {
	var w WorkWeek
	if strings.TrimSpace(s) == "" {
		return w, nil
	}
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		d, ok := weekdayByName(name)
		if !ok {
			return WorkWeek{}, fmt.Errorf("unknown weekday %q", name)
		}
		w.days[d] = true
	}
	return w, nil
}

func weekdayByName(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}
