/*
service.go - Absence booking engine

PURPOSE:
  Entry point for booking, finding, counting and deleting absences.
  Stateless: every decision is recomputed from the repository.

BOOKING FLOW:
  1. Reject malformed requests (end before start, unknown category)
  2. Resolve the employee from the Directory (missing = hard error)
  3. Run the category policy against current repository totals
  4. On acceptance, insert every generated record in one call

  Steps 3 and 4 share one WithTx scope when the repository supports it.
  A request ends Accepted (all records stored) or Rejected (none stored).

CONCURRENCY:
  No in-process lock guards an employee's year. Two concurrent bookings can
  both read a total that excludes the other and over-commit the entitlement
  unless the repository's transaction serializes them.

SEE ALSO:
  - policy.go:      Category dispatch table
  - entitlement.go: Yearly entitlement check
*/
package absence

import (
	"context"
	"fmt"
	"log/slog"
)

type Service struct {
	repo      Repository
	directory Directory
	logger    *slog.Logger
	policies  map[Category]policyFunc
}

// NewService wires the engine. A nil logger falls back to slog.Default().
func NewService(repo Repository, directory Directory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		directory: directory,
		logger:    logger,
		policies:  defaultPolicies(),
	}
}

// =============================================================================
// BOOK
// =============================================================================

// Book decides req and, when accepted, stores every derived record.
// A policy rejection returns (false, nil). Errors are reserved for a missing
// employee and repository failures.
func (s *Service) Book(ctx context.Context, req Request) (bool, error) {
	log := s.logger.With(
		slog.String("company", req.Company),
		slog.String("username", req.Username),
		slog.String("category", req.Category.String()),
		slog.String("start", req.Start.String()),
		slog.String("end", req.End.String()),
	)

	if req.End.Before(req.Start) {
		log.InfoContext(ctx, "absence rejected", slog.String("reason", ErrInvalidPeriod.Error()))
		return false, nil
	}
	policy, ok := s.policies[req.Category]
	if !ok {
		log.InfoContext(ctx, "absence rejected", slog.String("reason", ErrUnknownCategory.Error()))
		return false, nil
	}

	emp, err := s.directory.Lookup(ctx, req.Company, req.Username)
	if err != nil {
		log.WarnContext(ctx, "employee lookup failed", slog.Any("error", err))
		return false, fmt.Errorf("resolve employee: %w", err)
	}

	var decision Decision
	err = inTx(ctx, s.repo, func(repo Repository) error {
		d, err := policy(ctx, repo, emp, req)
		if err != nil {
			return err
		}
		decision = d
		if !d.Accepted || len(d.Records) == 0 {
			return nil
		}
		if err := repo.Insert(ctx, d.Records); err != nil {
			return fmt.Errorf("insert absences: %w", err)
		}
		return nil
	})
	if err != nil {
		log.ErrorContext(ctx, "absence booking failed", slog.Any("error", err))
		return false, err
	}

	if !decision.Accepted {
		log.InfoContext(ctx, "absence rejected", slog.String("reason", decision.Reason))
		return false, nil
	}
	log.InfoContext(ctx, "absence accepted", slog.Int("records", len(decision.Records)))
	return true, nil
}

// =============================================================================
// FIND / COUNT / DELETE
// =============================================================================

// Find returns every record fully contained in q.
func (s *Service) Find(ctx context.Context, q Query) ([]Record, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	records, err := s.repo.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("find absences: %w", err)
	}
	return records, nil
}

// Count sums the days of every record of cat matching q.
func (s *Service) Count(ctx context.Context, q Query, cat Category) (int, error) {
	if err := validateQuery(q); err != nil {
		return 0, err
	}
	if !cat.IsValid() {
		return 0, ErrUnknownCategory
	}
	return countDays(ctx, s.repo, q, cat)
}

// Delete removes every record Find would return for q and reports how many
// were removed. Matching nothing is not an error.
func (s *Service) Delete(ctx context.Context, q Query) (int, error) {
	if err := validateQuery(q); err != nil {
		return 0, err
	}

	var removed int
	err := inTx(ctx, s.repo, func(repo Repository) error {
		records, err := repo.Find(ctx, q)
		if err != nil {
			return fmt.Errorf("find absences: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		ids := make([]string, len(records))
		for i, r := range records {
			ids[i] = r.ID
		}
		n, err := repo.Remove(ctx, ids)
		if err != nil {
			return fmt.Errorf("remove absences: %w", err)
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "absences deleted",
		slog.String("company", q.Company),
		slog.String("username", q.Username),
		slog.Int("removed", removed),
	)
	return removed, nil
}

func validateQuery(q Query) error {
	if q.Company == "" {
		return ErrCompanyRequired
	}
	if !q.Period.IsValid() {
		return ErrInvalidPeriod
	}
	return nil
}
