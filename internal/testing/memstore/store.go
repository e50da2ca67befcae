// Package memstore is an in-memory implementation of every ledger repository
// for service tests. Transactions are serialised and roll back to a snapshot
// when the callback fails, so tests can assert all-or-nothing behaviour.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Emran025/supermarket-system-sub001/internal/accounting/accounts"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/journals"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/periods"
	"github.com/Emran025/supermarket-system-sub001/internal/accounting/sequences"
	"github.com/Emran025/supermarket-system-sub001/internal/assets"
	"github.com/Emran025/supermarket-system-sub001/internal/inventory"
	"github.com/Emran025/supermarket-system-sub001/internal/shared"
)

type state struct {
	nextID       int64
	accounts     map[string]accounts.Account
	mappings     map[string]string
	sequences    map[string]sequences.Sequence
	periods      []periods.FiscalPeriod
	entries      []journals.LedgerEntry
	lots         []inventory.Lot
	costs        map[int64]inventory.ProductCost
	assets       map[int64]assets.Asset
	depreciation []assets.DepreciationRecord
}

func (s *state) clone() state {
	return state{
		nextID:       s.nextID,
		accounts:     maps.Clone(s.accounts),
		mappings:     maps.Clone(s.mappings),
		sequences:    maps.Clone(s.sequences),
		periods:      slices.Clone(s.periods),
		entries:      slices.Clone(s.entries),
		lots:         slices.Clone(s.lots),
		costs:        maps.Clone(s.costs),
		assets:       maps.Clone(s.assets),
		depreciation: slices.Clone(s.depreciation),
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// Store holds every table in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state
	now  func() time.Time

	idempotency map[string]string
	audit       []shared.AuditLog
	failures    map[string]error
	txCount     int
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data: state{
			accounts:  map[string]accounts.Account{},
			mappings:  map[string]string{},
			sequences: map[string]sequences.Sequence{},
			costs:     map[int64]inventory.ProductCost{},
			assets:    map[int64]assets.Asset{},
		},
		now:         func() time.Time { return time.Now().UTC() },
		idempotency: map[string]string{},
		failures:    map[string]error{},
	}
}

// WithNow overrides the timestamp written on created rows.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FailNext makes the next call of op (a repository method name) return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// TxCount reports how many transactions were started.
func (s *Store) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// withTx runs fn while holding the transaction lock. Data written by fn is
// discarded when it returns an error.
func (s *Store) withTx(ctx context.Context, fn func(context.Context, *txView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.txCount++
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, &txView{store: s}); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// read runs fn under the data lock.
func (s *Store) read(fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

// write is read plus one-shot failure injection for op.
func (s *Store) write(op string, fn func(d *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(op); err != nil {
		return err
	}
	return fn(&s.data)
}
