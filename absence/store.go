/*
store.go - Persistence contracts consumed by the absence engine

PURPOSE:
  The engine owns no state. Everything it reads or writes goes through the
  interfaces below, implemented by the memory, SQLite and Postgres stores.

KEY INTERFACES:
  Repository:   find / insert / delete over absence records
  TxRepository: Repository plus an atomic scope for read-decide-write
  Directory:    Read-only employee lookup

ATOMIC BOOKINGS:
  A booking reads current totals, decides, then writes every generated
  record with a single Insert. When the repository is a TxRepository the
  whole sequence runs inside WithTx, so a failed write leaves nothing behind.

IMPLEMENTATIONS:
  - absence/store/memory.go: In-memory for testing
  - store/sqlite/sqlite.go:  Embedded default backend
  - store/postgres:          pgx backed server deployment
*/
package absence

import "context"

// =============================================================================
// REPOSITORY
// =============================================================================

type Repository interface {
	// Find returns records matching q (containment semantics), ordered by
	// start date then insertion order.
	Find(ctx context.Context, q Query) ([]Record, error)

	// Insert persists records atomically, in order. A unique-key clash
	// returns an error wrapping ErrDuplicateAbsence and writes nothing.
	Insert(ctx context.Context, records []Record) error

	// Remove deletes the records with the given IDs and returns how many
	// existed. Unknown IDs are ignored.
	Remove(ctx context.Context, ids []string) (int, error)
}

// TxRepository wraps Repository with transaction support.
type TxRepository interface {
	Repository

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// =============================================================================
// DIRECTORY
// =============================================================================

type Directory interface {
	// Lookup returns the employee or an error wrapping ErrEmployeeNotFound.
	Lookup(ctx context.Context, company, username string) (Employee, error)
}

// inTx runs fn inside repo's transaction scope when it has one.
func inTx(ctx context.Context, repo Repository, fn func(Repository) error) error {
	if txr, ok := repo.(TxRepository); ok {
		return txr.WithTx(ctx, fn)
	}
	return fn(repo)
}
