/*
Package postgres provides a PostgreSQL-backed implementation of the storage
interfaces using a pgx connection pool.

INTERFACES IMPLEMENTED:
  absence.TxRepository, absence.Directory, directory.Store
  (same contracts as store/sqlite)

CONCURRENCY:
  WithTx runs the closure inside a pgx.Tx at the server's default isolation
  level. Two bookings for the same employee and year may still both read a
  total that excludes the other; the unique index only prevents identical
  records.

ERRORS:
  SQLSTATE 23505 (unique_violation) maps to the domain "exists"/"duplicate"
  sentinels, 23503 (foreign_key_violation) to directory.ErrCompanyNotFound.
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/calendar"
	"github.com/personalman/absence-server/directory"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

type Store struct {
	pool *pgxpool.Pool
}

// New connects, pings and migrates.
func New(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	config.MaxConns = 25
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		name TEXT PRIMARY KEY,
		default_annual_leave_in_days INTEGER NOT NULL DEFAULT 0,
		country TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS users (
		company TEXT NOT NULL REFERENCES companies(name),
		username TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		surname TEXT NOT NULL DEFAULT '',
		position TEXT NOT NULL DEFAULT '',
		leave_entitlement_per_year INTEGER NOT NULL DEFAULT 0,
		working_days TEXT NOT NULL DEFAULT '',
		start_date DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (company, username)
	);

	CREATE TABLE IF NOT EXISTS absences (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		company TEXT NOT NULL,
		username TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		category TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (end_date >= start_date)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_absence
		ON absences(company, username, start_date, end_date, category);

	CREATE INDEX IF NOT EXISTS idx_absences_company_dates
		ON absences(company, start_date, end_date);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// ABSENCE REPOSITORY
// =============================================================================

func (s *Store) Find(ctx context.Context, q absence.Query) ([]absence.Record, error) {
	return findAbsences(ctx, s.pool, q)
}

func (s *Store) Insert(ctx context.Context, records []absence.Record) error {
	return s.WithTx(ctx, func(repo absence.Repository) error {
		return repo.Insert(ctx, records)
	})
}

func (s *Store) Remove(ctx context.Context, ids []string) (int, error) {
	return removeAbsences(ctx, s.pool, ids)
}

// WithTx executes fn inside a pgx transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repo absence.Repository) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txStore struct {
	tx pgx.Tx
}

func (ts *txStore) Find(ctx context.Context, q absence.Query) ([]absence.Record, error) {
	return findAbsences(ctx, ts.tx, q)
}

func (ts *txStore) Insert(ctx context.Context, records []absence.Record) error {
	return insertAbsences(ctx, ts.tx, records)
}

func (ts *txStore) Remove(ctx context.Context, ids []string) (int, error) {
	return removeAbsences(ctx, ts.tx, ids)
}

func findAbsences(ctx context.Context, q querier, query absence.Query) ([]absence.Record, error) {
	sql := `
		SELECT id, company, username, start_date, end_date, category
		FROM absences
		WHERE company = $1
		  AND ($2::text = '' OR username = $2)
		  AND start_date >= $3 AND end_date <= $4
		ORDER BY start_date ASC, seq ASC
	`
	rows, err := q.Query(ctx, sql, query.Company, query.Username,
		query.Period.Start.Time(), query.Period.End.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var records []absence.Record
	for rows.Next() {
		var (
			r          absence.Record
			start, end time.Time
			category   string
		)
		if err := rows.Scan(&r.ID, &r.Company, &r.Username, &start, &end, &category); err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		r.Start, r.End = calendar.FromTime(start), calendar.FromTime(end)
		if err := r.Category.UnmarshalText([]byte(category)); err != nil {
			return nil, fmt.Errorf("absence %s: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func insertAbsences(ctx context.Context, q querier, records []absence.Record) error {
	sql := `
		INSERT INTO absences (id, company, username, start_date, end_date, category)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		_, err := q.Exec(ctx, sql, r.ID, r.Company, r.Username,
			r.Start.Time(), r.End.Time(), r.Category.String())
		if err != nil {
			if hasCode(err, codeUniqueViolation) {
				return &absence.DuplicateAbsenceError{Record: r}
			}
			return fmt.Errorf("failed to insert absence: %w", err)
		}
	}
	return nil
}

func removeAbsences(ctx context.Context, q querier, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := q.Exec(ctx, "DELETE FROM absences WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete absences: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// =============================================================================
// EMPLOYEE LOOKUP
// =============================================================================

func (s *Store) Lookup(ctx context.Context, company, username string) (absence.Employee, error) {
	u, err := s.GetUser(ctx, company, username)
	if errors.Is(err, directory.ErrUserNotFound) {
		return absence.Employee{}, &absence.EmployeeNotFoundError{Company: company, Username: username}
	}
	if err != nil {
		return absence.Employee{}, err
	}
	return u.Employee(), nil
}

// =============================================================================
// COMPANIES
// =============================================================================

func (s *Store) CreateCompany(ctx context.Context, c directory.Company) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (name, default_annual_leave_in_days, country) VALUES ($1, $2, $3)`,
		c.Name, c.DefaultAnnualLeaveInDays, c.Country,
	)
	if hasCode(err, codeUniqueViolation) {
		return directory.ErrCompanyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, name string) (directory.Company, error) {
	var c directory.Company
	err := s.pool.QueryRow(ctx,
		`SELECT name, default_annual_leave_in_days, country, created_at FROM companies WHERE name = $1`,
		name,
	).Scan(&c.Name, &c.DefaultAnnualLeaveInDays, &c.Country, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return c, directory.ErrCompanyNotFound
	}
	if err != nil {
		return c, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]directory.Company, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, default_annual_leave_in_days, country, created_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []directory.Company
	for rows.Next() {
		var c directory.Company
		if err := rows.Scan(&c.Name, &c.DefaultAnnualLeaveInDays, &c.Country, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `company, username, password_hash, first_name, surname, position,
	leave_entitlement_per_year, working_days, start_date, created_at`

func (s *Store) CreateUser(ctx context.Context, u directory.User) error {
	var startDate *time.Time
	if !u.StartDate.IsZero() {
		t := u.StartDate.Time()
		startDate = &t
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (company, username, password_hash, first_name, surname, position,
			leave_entitlement_per_year, working_days, start_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.Company, u.Username, u.PasswordHash, u.FirstName, u.Surname, u.Position,
		u.LeaveEntitlementPerYear, u.WorkingDays.String(), startDate,
	)
	switch {
	case err == nil:
		return nil
	case hasCode(err, codeUniqueViolation):
		return directory.ErrUserExists
	case hasCode(err, codeForeignKeyViolation):
		return directory.ErrCompanyNotFound
	default:
		return fmt.Errorf("failed to insert user: %w", err)
	}
}

func (s *Store) GetUser(ctx context.Context, company, username string) (directory.User, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE company = $1 AND username = $2",
		company, username,
	)
	u, err := scanUser(row)
	if err == pgx.ErrNoRows {
		return u, directory.ErrUserNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context, company string) ([]directory.User, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+userColumns+" FROM users WHERE company = $1 ORDER BY username",
		company,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []directory.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteCompany cascades to the company's absences and users.
func (s *Store) DeleteCompany(ctx context.Context, name string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM absences WHERE company = $1", name); err != nil {
		return fmt.Errorf("failed to delete company absences: %w", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM users WHERE company = $1", name); err != nil {
		return fmt.Errorf("failed to delete company users: %w", err)
	}
	tag, err := tx.Exec(ctx, "DELETE FROM companies WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrCompanyNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, company, username string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM users WHERE company = $1 AND username = $2", company, username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (directory.User, error) {
	var (
		u           directory.User
		workingDays string
		startDate   *time.Time
	)
	err := row.Scan(&u.Company, &u.Username, &u.PasswordHash, &u.FirstName, &u.Surname, &u.Position,
		&u.LeaveEntitlementPerYear, &workingDays, &startDate, &u.CreatedAt)
	if err == pgx.ErrNoRows {
		return u, err
	}
	if err != nil {
		return u, fmt.Errorf("failed to scan user: %w", err)
	}
	if u.WorkingDays, err = calendar.ParseWorkWeek(workingDays); err != nil {
		return u, fmt.Errorf("user %s/%s: %w", u.Company, u.Username, err)
	}
	if startDate != nil {
		u.StartDate = calendar.FromTime(*startDate)
	}
	return u, nil
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
