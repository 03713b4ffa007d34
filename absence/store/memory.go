// Package store provides in-memory absence.Repository and absence.Directory
// implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/personalman/absence-server/absence"
	"github.com/personalman/absence-server/calendar"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	records   []absence.Record
	employees map[employeeKey]absence.Employee
}

type employeeKey struct {
	Company  string
	Username string
}

// uniqueKey mirrors the unique constraint of the SQL stores.
type uniqueKey struct {
	Company  string
	Username string
	Start    calendar.Date
	End      calendar.Date
	Category absence.Category
}

func keyOf(r absence.Record) uniqueKey {
	return uniqueKey{r.Company, r.Username, r.Start, r.End, r.Category}
}

func NewMemory() *Memory {
	return &Memory{employees: make(map[employeeKey]absence.Employee)}
}

// =============================================================================
// DIRECTORY
// =============================================================================

// PutEmployee adds or replaces an employee.
func (m *Memory) PutEmployee(emp absence.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[employeeKey{emp.Company, emp.Username}] = emp
}

func (m *Memory) Lookup(_ context.Context, company, username string) (absence.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[employeeKey{company, username}]
	if !ok {
		return absence.Employee{}, &absence.EmployeeNotFoundError{Company: company, Username: username}
	}
	return emp, nil
}

// =============================================================================
// REPOSITORY
// =============================================================================

func (m *Memory) Find(_ context.Context, q absence.Query) ([]absence.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLocked(q), nil
}

// Insert adds records atomically. Either all are stored or none are.
func (m *Memory) Insert(_ context.Context, records []absence.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(records)
}

func (m *Memory) Remove(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(ids), nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *Memory) findLocked(q absence.Query) []absence.Record {
	var result []absence.Record
	for _, r := range m.records {
		if q.Matches(r) {
			result = append(result, r)
		}
	}
	// Stable keeps insertion order among equal start dates.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Start.Before(result[j].Start)
	})
	return result
}

func (m *Memory) insertLocked(records []absence.Record) error {
	// Check all keys first (atomic check)
	seen := make(map[uniqueKey]bool, len(m.records)+len(records))
	for _, r := range m.records {
		seen[keyOf(r)] = true
	}
	for _, r := range records {
		k := keyOf(r)
		if seen[k] {
			return &absence.DuplicateAbsenceError{Record: r}
		}
		seen[k] = true
	}

	// Append all (atomic write)
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		m.records = append(m.records, r)
	}
	return nil
}

func (m *Memory) removeLocked(ids []string) int {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.records[:0]
	removed := 0
	for _, r := range m.records {
		if drop[r.ID] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
// The write lock is held for the whole closure, so transactions serialize.
func (tm *TxMemory) WithTx(_ context.Context, fn func(absence.Repository) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := append([]absence.Record(nil), tm.records...)

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.records = snapshot
		return err
	}
	return nil
}

// txMemoryView operates on the parent while its lock is already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Find(_ context.Context, q absence.Query) ([]absence.Record, error) {
	return tv.parent.findLocked(q), nil
}

func (tv *txMemoryView) Insert(_ context.Context, records []absence.Record) error {
	return tv.parent.insertLocked(records)
}

func (tv *txMemoryView) Remove(_ context.Context, ids []string) (int, error) {
	return tv.parent.removeLocked(ids), nil
}
