package absence

import "github.com/personalman/absence-server/calendar"

// =============================================================================
// CALENDAR EXPANSION
// =============================================================================

// ExpandWorkingDays emits one single-day record of cat for every day in
// [start, end] that is a working day for emp. Non-working days are skipped.
// start after end yields nothing.
func ExpandWorkingDays(emp Employee, start, end calendar.Date, cat Category) []Record {
	return expand(emp, start, end, cat, emp.WorkingDays.IsWorkingDay)
}

// ExpandLieuDays is the inverse of ExpandWorkingDays: one DayInLieuRequest
// record for every non-working day in range. Together the two partition the
// range.
func ExpandLieuDays(emp Employee, start, end calendar.Date) []Record {
	return expand(emp, start, end, DayInLieuRequest, func(d calendar.Date) bool {
		return !emp.WorkingDays.IsWorkingDay(d)
	})
}

// expandEveryDay records every day in range regardless of the work week.
func expandEveryDay(emp Employee, start, end calendar.Date, cat Category) []Record {
	return expand(emp, start, end, cat, func(calendar.Date) bool { return true })
}

func expand(emp Employee, start, end calendar.Date, cat Category, keep func(calendar.Date) bool) []Record {
	var records []Record
	for _, day := range calendar.NewPeriod(start, end).Days() {
		if keep(day) {
			records = append(records, NewRecord(emp.Company, emp.Username, day, day, cat))
		}
	}
	return records
}
