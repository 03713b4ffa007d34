/*
Package directory holds the companies and users that absences are booked for.

PURPOSE:
  The absence engine only needs an Employee view (entitlement + work week).
  This package owns the full records behind that view, their registration
  rules and password authentication.

KEY CONCEPTS:
  Company: Employer with a default annual leave allowance
  User:    Employee account; converts to absence.Employee
  Store:   Persistence contract implemented by store/sqlite and store/postgres

SEE ALSO:
  - service.go:         Registration and login rules
  - absence/store.go:   Directory interface consumed by the engine
*/
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/calendar"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrCompanyExists   = errors.New("company already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")

	// ErrInvalidCredentials covers both an unknown user and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation is wrapped by every input validation failure.
	ErrValidation = errors.New("validation failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrCompanyNotFound) || errors.Is(err, ErrUserNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrCompanyExists) || errors.Is(err, ErrUserExists)
}

// =============================================================================
// RECORDS
// =============================================================================

type Company struct {
	Name                     string
	DefaultAnnualLeaveInDays int
	Country                  string
	CreatedAt                time.Time
}

type User struct {
	Company                 string
	Username                string
	PasswordHash            string
	FirstName               string
	Surname                 string
	Position                string
	LeaveEntitlementPerYear int
	WorkingDays             calendar.WorkWeek
	StartDate               calendar.Date // zero when unknown
	CreatedAt               time.Time
}

// Employee is the read-only view the absence engine works with.
func (u User) Employee() absence.Employee {
	return absence.Employee{
		Company:                 u.Company,
		Username:                u.Username,
		LeaveEntitlementPerYear: u.LeaveEntitlementPerYear,
		WorkingDays:             u.WorkingDays,
	}
}

// =============================================================================
// STORE
// =============================================================================

type Store interface {
	// CreateCompany fails with ErrCompanyExists on a duplicate name.
	CreateCompany(ctx context.Context, c Company) error
	GetCompany(ctx context.Context, name string) (Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)
	// DeleteCompany removes the company with all of its users and absences
	// in one transaction. ErrCompanyNotFound when it does not exist.
	DeleteCompany(ctx context.Context, name string) error

	// CreateUser fails with ErrUserExists on a duplicate (company, username)
	// and ErrCompanyNotFound when the company does not exist.
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, company, username string) (User, error)
	ListUsers(ctx context.Context, company string) ([]User, error)
	DeleteUser(ctx context.Context, company, username string) error
}
