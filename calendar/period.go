package calendar

// =============================================================================
// PERIOD - Inclusive range of days
// =============================================================================

// Period is the inclusive range [Start, End]. A Period whose End is before its
// Start is empty: Days returns nothing and Contains is always false.
type Period struct {
	Start Date
	End   Date
}

func NewPeriod(start, end Date) Period { return Period{Start: start, End: end} }

// IsValid reports whether End is not before Start.
func (p Period) IsValid() bool { return p.Start.BeforeOrEqual(p.End) }

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Covers returns true if other lies fully inside p.
func (p Period) Covers(other Period) bool {
	return other.Start.AfterOrEqual(p.Start) && other.End.BeforeOrEqual(p.End)
}

// Days returns every day in the period in ascending order.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Len is the number of days in the period, zero when invalid.
func (p Period) Len() int {
	if !p.IsValid() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// YearSpan is the number of distinct calendar years the period touches.
func (p Period) YearSpan() int {
	if !p.IsValid() {
		return 0
	}
	return p.End.Year() - p.Start.Year() + 1
}

// SplitByYear cuts the period at every Dec 31 / Jan 1 boundary.
func (p Period) SplitByYear() []Period {
	if !p.IsValid() {
		return nil
	}
	var parts []Period
	start := p.Start
	for start.Year() < p.End.Year() {
		parts = append(parts, Period{Start: start, End: EndOfYear(start.Year())})
		start = StartOfYear(start.Year() + 1)
	}
	return append(parts, Period{Start: start, End: p.End})
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
