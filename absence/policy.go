package absence

import (
	"context"
	"fmt"
)

// =============================================================================
// CATEGORY POLICY - Per-category expansion and validation
// =============================================================================

// Decision is the outcome of a policy. Records is empty when rejected.
type Decision struct {
	Accepted bool
	Records  []Record
	Reason   string
}

func accept(records []Record) Decision {
	return Decision{Accepted: true, Records: records}
}

func reject(format string, args ...any) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// policyFunc decides a request for a resolved employee. Reads go through repo
// so that, inside a transaction, the decision sees the same snapshot the
// insert will commit against.
type policyFunc func(ctx context.Context, repo Repository, emp Employee, req Request) (Decision, error)

// defaultPolicies is the dispatch table. A category missing here has no
// policy and is rejected.
func defaultPolicies() map[Category]policyFunc {
	return map[Category]policyFunc{
		Holiday:          holidayPolicy,
		Trip:             travelPolicy,
		Conference:       travelPolicy,
		DayInLieu:        dayInLieuPolicy,
		Illness:          workingDaysPolicy,
		FederalHoliday:   workingDaysPolicy,
		DayInLieuRequest: workingDaysPolicy,
	}
}

// holidayPolicy books working days against the yearly entitlement. A request
// may cross at most one year boundary; each year is checked on its own and
// both must pass.
func holidayPolicy(ctx context.Context, repo Repository, emp Employee, req Request) (Decision, error) {
	period := req.Period()
	if span := period.YearSpan(); span > 2 {
		return reject("holiday spans %d calendar years, at most 2 allowed", span), nil
	}

	var records []Record
	for _, part := range period.SplitByYear() {
		candidates := ExpandWorkingDays(emp, part.Start, part.End, Holiday)
		ok, err := checkYear(ctx, repo, emp, part.Start.Year(), Holiday, candidates)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return reject("holiday entitlement of %d days exceeded for %d",
				emp.LeaveEntitlementPerYear, part.Start.Year()), nil
		}
		records = append(records, candidates...)
	}
	return accept(records), nil
}

// travelPolicy always accepts: one record spanning the whole trip plus a lieu
// credit for every non-working day spent travelling.
func travelPolicy(_ context.Context, _ Repository, emp Employee, req Request) (Decision, error) {
	records := []Record{NewRecord(emp.Company, emp.Username, req.Start, req.End, req.Category)}
	records = append(records, ExpandLieuDays(emp, req.Start, req.End)...)
	return accept(records), nil
}

// dayInLieuPolicy spends earned lieu days. Balance is earned minus taken within
// the request's year. Every day in range is recorded, working day or not.
func dayInLieuPolicy(ctx context.Context, repo Repository, emp Employee, req Request) (Decision, error) {
	if req.Start.Year() != req.End.Year() {
		return reject("day in lieu must fall within one calendar year"), nil
	}

	q := YearQuery(emp.Company, emp.Username, req.Start.Year())
	earned, err := countDays(ctx, repo, q, DayInLieuRequest)
	if err != nil {
		return Decision{}, err
	}
	taken, err := countDays(ctx, repo, q, DayInLieu)
	if err != nil {
		return Decision{}, err
	}

	candidates := expandEveryDay(emp, req.Start, req.End, DayInLieu)
	if requested, balance := CountDays(candidates), earned-taken; requested > balance {
		return reject("requested %d lieu days, balance is %d", requested, balance), nil
	}
	return accept(candidates), nil
}

// workingDaysPolicy records working days with no entitlement check.
func workingDaysPolicy(_ context.Context, _ Repository, emp Employee, req Request) (Decision, error) {
	return accept(ExpandWorkingDays(emp, req.Start, req.End, req.Category)), nil
}
