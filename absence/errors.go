package absence

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// A policy rejection is never an error: Book reports it as (false, nil).
var (
	// ErrEmployeeNotFound is returned when the directory has no such employee.
	// Booking cannot proceed without entitlement and working-day data.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrUnknownCategory is returned when a category string has no match.
	ErrUnknownCategory = errors.New("unknown absence category")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrDuplicateAbsence is returned when a record with the same company,
	// username, start, end and category is already stored.
	ErrDuplicateAbsence = errors.New("duplicate absence")

	// ErrCompanyRequired is returned when a query has no company scope.
	ErrCompanyRequired = errors.New("company is required")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

type EmployeeNotFoundError struct {
	Company  string
	Username string
}

func (e *EmployeeNotFoundError) Error() string {
	return fmt.Sprintf("employee not found: %s/%s", e.Company, e.Username)
}

func (e *EmployeeNotFoundError) Unwrap() error {
	return ErrEmployeeNotFound
}

// DuplicateAbsenceError names the record that clashed on insert.
type DuplicateAbsenceError struct {
	Record Record
}

func (e *DuplicateAbsenceError) Error() string {
	return fmt.Sprintf("duplicate absence: %s/%s %s %s..%s",
		e.Record.Company, e.Record.Username, e.Record.Category, e.Record.Start, e.Record.End)
}

func (e *DuplicateAbsenceError) Unwrap() error {
	return ErrDuplicateAbsence
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownCategory) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrCompanyRequired)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}

// IsConflict returns true if the error is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateAbsence)
}
