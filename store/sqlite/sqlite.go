/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Default embedded backend. Persists absences, users and companies in one
  database file and implements every storage interface the server needs.

INTERFACES IMPLEMENTED:
  absence.TxRepository: Absence find / insert / remove, atomic scopes
  absence.Directory:    Employee lookup for the booking engine
  directory.Store:      Company and user records

KEY TABLES:
  companies: Employers and their default leave allowance
  users:     Employee accounts (FK to companies)
  absences:  One row per stored absence record

UNIQUENESS:
  absences is unique on (company, username, start_date, end_date, category).
  A clash on insert surfaces as absence.ErrDuplicateAbsence.

DATES:
  Stored as ISO "2006-01-02" text so string comparison is date comparison.
  The containment query (start_date >= ? AND end_date <= ?) relies on it.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole closure, so bookings on this backend are serialized and the
  read-decide-write sequence of a booking cannot interleave with another.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./personalman.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := absence.NewService(store, store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - absence/store.go:         Interface definitions
  - absence/store/memory.go:  In-memory implementation for testing
  - store/postgres:           Server deployment backend
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/calendar"
	"github.com/personalman/absence-server/directory"
)

const dateLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS companies (
		name TEXT PRIMARY KEY,
		default_annual_leave_in_days INTEGER NOT NULL DEFAULT 0,
		country TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
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
		start_date TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (company, username)
	);

	-- seq keeps insertion order stable for records sharing a start date
	CREATE TABLE IF NOT EXISTS absences (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		company TEXT NOT NULL,
		username TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_absence
		ON absences(company, username, start_date, end_date, category);

	-- Containment queries (hot path for entitlement checks)
	CREATE INDEX IF NOT EXISTS idx_absences_company_dates
		ON absences(company, start_date, end_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ABSENCE REPOSITORY (absence.Repository interface)
// =============================================================================

// Find returns absences fully contained in the query window.
func (s *Store) Find(ctx context.Context, q absence.Query) ([]absence.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findAbsences(ctx, s.db, q)
}

// Insert adds records atomically.
func (s *Store) Insert(ctx context.Context, records []absence.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := insertAbsences(ctx, sqlTx, records); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Remove deletes absences by ID.
func (s *Store) Remove(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return removeAbsences(ctx, s.db, ids)
}

func findAbsences(ctx context.Context, db querier, q absence.Query) ([]absence.Record, error) {
	query := `
		SELECT id, company, username, start_date, end_date, category
		FROM absences
		WHERE company = ?
		  AND (? = '' OR username = ?)
		  AND start_date >= ? AND end_date <= ?
		ORDER BY start_date ASC, seq ASC
	`

	rows, err := db.QueryContext(ctx, query,
		q.Company, q.Username, q.Username,
		q.Period.Start.String(), q.Period.End.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()

	var records []absence.Record
	for rows.Next() {
		r, err := scanAbsence(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func scanAbsence(rows *sql.Rows) (absence.Record, error) {
	var (
		r          absence.Record
		start, end string
		category   string
	)
	if err := rows.Scan(&r.ID, &r.Company, &r.Username, &start, &end, &category); err != nil {
		return r, fmt.Errorf("failed to scan absence: %w", err)
	}

	var err error
	if r.Start, err = parseDate(start); err != nil {
		return r, err
	}
	if r.End, err = parseDate(end); err != nil {
		return r, err
	}
	if err := r.Category.UnmarshalText([]byte(category)); err != nil {
		return r, fmt.Errorf("absence %s: %w", r.ID, err)
	}
	return r, nil
}

func insertAbsences(ctx context.Context, db querier, records []absence.Record) error {
	query := `
		INSERT INTO absences (id, company, username, start_date, end_date, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC().Format(time.RFC3339)

	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		_, err := db.ExecContext(ctx, query,
			r.ID, r.Company, r.Username,
			r.Start.String(), r.End.String(),
			r.Category.String(), now,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return &absence.DuplicateAbsenceError{Record: r}
			}
			return fmt.Errorf("failed to insert absence: %w", err)
		}
	}
	return nil
}

func removeAbsences(ctx context.Context, db querier, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	res, err := db.ExecContext(ctx, "DELETE FROM absences WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete absences: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// =============================================================================
// TRANSACTIONAL STORE (absence.TxRepository interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(repo absence.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every statement on the open transaction; the parent lock is
// already held.
type txStore struct {
	tx *sql.Tx
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

// =============================================================================
// EMPLOYEE LOOKUP (absence.Directory interface)
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
// COMPANY STORE
// =============================================================================

func (s *Store) CreateCompany(ctx context.Context, c directory.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO companies (name, default_annual_leave_in_days, country, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		c.Name, c.DefaultAnnualLeaveInDays, c.Country,
		time.Now().UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return directory.ErrCompanyExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert company: %w", err)
	}
	return nil
}

func (s *Store) GetCompany(ctx context.Context, name string) (directory.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c directory.Company
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT name, default_annual_leave_in_days, country, created_at FROM companies WHERE name = ?",
		name,
	).Scan(&c.Name, &c.DefaultAnnualLeaveInDays, &c.Country, &createdAt)

	if err == sql.ErrNoRows {
		return c, directory.ErrCompanyNotFound
	}
	if err != nil {
		return c, fmt.Errorf("failed to get company: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]directory.Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, default_annual_leave_in_days, country, created_at FROM companies ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []directory.Company
	for rows.Next() {
		var c directory.Company
		var createdAt string
		if err := rows.Scan(&c.Name, &c.DefaultAnnualLeaveInDays, &c.Country, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// =============================================================================
// USER STORE
// =============================================================================

const userColumns = `company, username, password_hash, first_name, surname, position,
	leave_entitlement_per_year, working_days, start_date, created_at`

func (s *Store) CreateUser(ctx context.Context, u directory.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		u.Company, u.Username, u.PasswordHash, u.FirstName, u.Surname, u.Position,
		u.LeaveEntitlementPerYear, u.WorkingDays.String(), nullDate(u.StartDate),
		time.Now().UTC().Format(time.RFC3339),
	)
	switch {
	case err == nil:
		return nil
	case isUniqueConstraintError(err):
		return directory.ErrUserExists
	case isForeignKeyError(err):
		return directory.ErrCompanyNotFound
	default:
		return fmt.Errorf("failed to insert user: %w", err)
	}
}

func (s *Store) GetUser(ctx context.Context, company, username string) (directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE company = ? AND username = ?",
		company, username,
	)
	if err != nil {
		return directory.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return directory.User{}, err
		}
		return directory.User{}, directory.ErrUserNotFound
	}
	return scanUser(rows)
}

func (s *Store) ListUsers(ctx context.Context, company string) ([]directory.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE company = ? ORDER BY username",
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
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM absences WHERE company = ?", name); err != nil {
		return fmt.Errorf("failed to delete company absences: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM users WHERE company = ?", name); err != nil {
		return fmt.Errorf("failed to delete company users: %w", err)
	}
	res, err := sqlTx.ExecContext(ctx, "DELETE FROM companies WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrCompanyNotFound
	}
	return sqlTx.Commit()
}

func (s *Store) DeleteUser(ctx context.Context, company, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM users WHERE company = ? AND username = ?",
		company, username,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return directory.ErrUserNotFound
	}
	return nil
}

func scanUser(rows *sql.Rows) (directory.User, error) {
	var (
		u           directory.User
		workingDays string
		startDate   sql.NullString
		createdAt   string
	)
	err := rows.Scan(&u.Company, &u.Username, &u.PasswordHash, &u.FirstName, &u.Surname, &u.Position,
		&u.LeaveEntitlementPerYear, &workingDays, &startDate, &createdAt)
	if err != nil {
		return u, fmt.Errorf("failed to scan user: %w", err)
	}

	if u.WorkingDays, err = calendar.ParseWorkWeek(workingDays); err != nil {
		return u, fmt.Errorf("user %s/%s: %w", u.Company, u.Username, err)
	}
	if startDate.Valid && startDate.String != "" {
		if u.StartDate, err = parseDate(startDate.String); err != nil {
			return u, err
		}
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (calendar.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return calendar.FromTime(t), nil
}

func nullDate(d calendar.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
