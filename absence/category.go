package absence

import "fmt"

// =============================================================================
// CATEGORY - Closed set of absence kinds
// =============================================================================

// Category identifies the kind of an absence. Each category carries a display
// string used at every external boundary (JSON, statistics keys, storage).
type Category int

const (
	// CategoryNone is the zero value. It has no policy and is always rejected.
	CategoryNone Category = iota
	Illness
	Holiday
	Trip
	Conference
	DayInLieu
	DayInLieuRequest
	FederalHoliday
)

var categoryNames = [...]string{
	CategoryNone:     "",
	Illness:          "Illness",
	Holiday:          "Holiday",
	Trip:             "Trip",
	Conference:       "Conference",
	DayInLieu:        "Day in Lieu",
	DayInLieuRequest: "Day in Lieu Request",
	FederalHoliday:   "Federal Holiday",
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	return []Category{Illness, Holiday, Trip, Conference, DayInLieu, DayInLieuRequest, FederalHoliday}
}

// ParseCategory resolves a display string. Matching is exact; anything else
// yields (CategoryNone, false) rather than a guessed category.
func ParseCategory(s string) (Category, bool) {
	if s == "" {
		return CategoryNone, false
	}
	for _, c := range Categories() {
		if categoryNames[c] == s {
			return c, true
		}
	}
	return CategoryNone, false
}

// IsValid reports whether c is one of the seven known categories.
func (c Category) IsValid() bool {
	return c > CategoryNone && int(c) < len(categoryNames)
}

func (c Category) String() string {
	if !c.IsValid() {
		return ""
	}
	return categoryNames[c]
}

// MarshalText encodes c as its display string. CategoryNone and out of range
// values fail with ErrUnknownCategory.
func (c Category) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts exactly the display strings.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, string(text))
	}
	*c = parsed
	return nil
}
