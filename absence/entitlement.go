package absence

import (
	"context"
	"fmt"
)

// =============================================================================
// ENTITLEMENT
// =============================================================================

// checkYear reports whether candidates fit in emp's entitlement for year,
// given what is already booked under cat. Totals are read from repo on every
// call and never cached.
func checkYear(ctx context.Context, repo Repository, emp Employee, year int, cat Category, candidates []Record) (bool, error) {
	booked, err := countDays(ctx, repo, YearQuery(emp.Company, emp.Username, year), cat)
	if err != nil {
		return false, err
	}
	return booked+CountDays(candidates) <= emp.LeaveEntitlementPerYear, nil
}

// countDays sums Days() over every record of cat matching q.
func countDays(ctx context.Context, repo Repository, q Query, cat Category) (int, error) {
	records, err := repo.Find(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("find absences: %w", err)
	}
	total := 0
	for _, r := range records {
		if r.Category == cat {
			total += r.Days()
		}
	}
	return total, nil
}
