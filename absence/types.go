/*
types.go - Core data model of the absence engine

PURPOSE:
  Plain values passed between the booking engine, its policies and the
  repository. None of these types know about storage or wire formats.

KEY CONCEPTS:
  Employee: Read-only view of a directory entry (entitlement + work week)
  Record:   One stored absence, inclusive [Start, End]
  Request:  An absence asked for, not yet decided
  Query:    Containment window used by find/count/delete

DAY COUNTING:
  Record.Days() is the only place a day total is computed. Entitlement checks,
  lieu balances, Count and statistics all go through it.

SEE ALSO:
  - category.go: Category enumeration
  - service.go:  Booking engine
*/
package absence

import (
	"github.com/google/uuid"

	"github.com/personalman/absence-server/calendar"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is what the engine needs to know about a person: where they work,
// how many holiday days a year they get and which weekdays they work.
type Employee struct {
	Company                 string
	Username                string
	LeaveEntitlementPerYear int
	WorkingDays             calendar.WorkWeek
}

// =============================================================================
// RECORD
// =============================================================================

// Record is one stored absence covering Start through End inclusive.
type Record struct {
	ID       string
	Company  string
	Username string
	Start    calendar.Date
	End      calendar.Date
	Category Category
}

// NewRecord creates a record with a fresh ID.
func NewRecord(company, username string, start, end calendar.Date, cat Category) Record {
	return Record{
		ID:       uuid.NewString(),
		Company:  company,
		Username: username,
		Start:    start,
		End:      end,
		Category: cat,
	}
}

// Days is the inclusive length of the record: (End - Start) + 1.
func (r Record) Days() int {
	return calendar.DaysBetween(r.Start, r.End) + 1
}

// Period returns the record's inclusive range.
func (r Record) Period() calendar.Period {
	return calendar.NewPeriod(r.Start, r.End)
}

// CountDays sums Days() over records.
func CountDays(records []Record) int {
	total := 0
	for _, r := range records {
		total += r.Days()
	}
	return total
}

// =============================================================================
// REQUEST / QUERY
// =============================================================================

// Request asks for an absence. It becomes zero or more Records once a policy
// accepts it.
type Request struct {
	Company  string
	Username string
	Start    calendar.Date
	End      calendar.Date
	Category Category
}

func (r Request) Period() calendar.Period {
	return calendar.NewPeriod(r.Start, r.End)
}

// Query selects records of Company fully contained in Period. An empty
// Username matches every employee of the company.
type Query struct {
	Company  string
	Username string
	Period   calendar.Period
}

// Matches applies the containment rule: the record must lie inside the window,
// overlapping is not enough.
func (q Query) Matches(r Record) bool {
	if r.Company != q.Company {
		return false
	}
	if q.Username != "" && r.Username != q.Username {
		return false
	}
	return q.Period.Covers(r.Period())
}

// YearQuery scopes a query to one employee and one calendar year.
func YearQuery(company, username string, year int) Query {
	return Query{Company: company, Username: username, Period: calendar.Year(year)}
}
