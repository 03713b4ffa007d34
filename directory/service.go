package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Service applies registration and login rules on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Service) RegisterCompany(ctx context.Context, c Company) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: company name is required", ErrValidation)
	}
	if c.DefaultAnnualLeaveInDays < 0 {
		return fmt.Errorf("%w: default annual leave must not be negative", ErrValidation)
	}
	if err := s.store.CreateCompany(ctx, c); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "company registered", slog.String("company", c.Name))
	return nil
}

func (s *Service) Company(ctx context.Context, name string) (Company, error) {
	return s.store.GetCompany(ctx, name)
}

func (s *Service) Companies(ctx context.Context) ([]Company, error) {
	return s.store.ListCompanies(ctx)
}

// DeleteCompany removes a company together with its users and absences.
func (s *Service) DeleteCompany(ctx context.Context, name string) error {
	if err := s.store.DeleteCompany(ctx, name); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "company deleted", slog.String("company", name))
	return nil
}

// =============================================================================
// USERS
// =============================================================================

// Registration is a user as submitted, password in clear text.
type Registration struct {
	User
	Password string
}

// RegisterUser validates, hashes the password and stores the user. An
// entitlement of zero takes the company's default.
func (s *Service) RegisterUser(ctx context.Context, r Registration) (User, error) {
	u := r.User
	u.Company = strings.TrimSpace(u.Company)
	u.Username = strings.TrimSpace(u.Username)
	switch {
	case u.Company == "":
		return User{}, fmt.Errorf("%w: company is required", ErrValidation)
	case u.Username == "":
		return User{}, fmt.Errorf("%w: username is required", ErrValidation)
	case r.Password == "":
		return User{}, fmt.Errorf("%w: password is required", ErrValidation)
	case u.LeaveEntitlementPerYear < 0:
		return User{}, fmt.Errorf("%w: leave entitlement must not be negative", ErrValidation)
	}

	company, err := s.store.GetCompany(ctx, u.Company)
	if err != nil {
		return User{}, err
	}
	if u.LeaveEntitlementPerYear == 0 {
		u.LeaveEntitlementPerYear = company.DefaultAnnualLeaveInDays
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := s.store.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	s.logger.InfoContext(ctx, "user registered",
		slog.String("company", u.Company),
		slog.String("username", u.Username),
	)
	return u, nil
}

func (s *Service) User(ctx context.Context, company, username string) (User, error) {
	return s.store.GetUser(ctx, company, username)
}

func (s *Service) Users(ctx context.Context, company string) ([]User, error) {
	return s.store.ListUsers(ctx, company)
}

func (s *Service) DeleteUser(ctx context.Context, company, username string) error {
	if err := s.store.DeleteUser(ctx, company, username); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted",
		slog.String("company", company),
		slog.String("username", username),
	)
	return nil
}

// Authenticate checks a password. Unknown users and wrong passwords both
// return ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, company, username, password string) (User, error) {
	u, err := s.store.GetUser(ctx, company, username)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
