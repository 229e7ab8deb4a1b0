// Package memory provides a mutex-guarded in-process ledger store. It is the
// default backend for tests and the development host.
package memory

import (
	"context"
	"math/big"
	"sync"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
)

// Store implements ports.LedgerStore over plain maps. Update stages writes
// and applies them only when the update function succeeds, giving the same
// all-or-nothing semantics as the transactional backends.
type Store struct {
	mu          sync.RWMutex
	balances    map[domain.Principal]*big.Int
	supply      *big.Int
	owner       domain.Principal
	initialized bool
}

// NewStore creates an empty in-memory ledger store.
func NewStore() *Store {
	return &Store{
		balances: make(map[domain.Principal]*big.Int),
		supply:   new(big.Int),
	}
}

// BalanceOf returns the balance of p, zero when no entry exists.
func (s *Store) BalanceOf(_ context.Context, p domain.Principal) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CopyAmount(s.balances[p]), nil
}

// TotalSupply returns the supply counter.
func (s *Store) TotalSupply(_ context.Context) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CopyAmount(s.supply), nil
}

// Owner returns the owner principal, ZeroPrincipal when unset.
func (s *Store) Owner(_ context.Context) (domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, nil
}

// Initialized reports whether init has committed.
func (s *Store) Initialized(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, nil
}

// SetOwner bootstraps the owner principal.
func (s *Store) SetOwner(_ context.Context, p domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = p
	return nil
}

// Update runs fn under the store lock with staged writes, applying them only
// when fn returns nil.
func (s *Store) Update(_ context.Context, fn func(tx ports.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &storeTx{
		store:    s,
		balances: make(map[domain.Principal]*big.Int),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for p, b := range tx.balances {
		s.balances[p] = b
	}
	if tx.supply != nil {
		s.supply = tx.supply
	}
	if tx.initialized {
		s.initialized = true
	}
	return nil
}

// storeTx stages writes against the locked store. Reads observe the staged
// values first so a self-transfer within one update nets out correctly.
type storeTx struct {
	store       *Store
	balances    map[domain.Principal]*big.Int
	supply      *big.Int
	initialized bool
}

func (t *storeTx) BalanceOf(_ context.Context, p domain.Principal) (*big.Int, error) {
	if staged, ok := t.balances[p]; ok {
		return domain.CopyAmount(staged), nil
	}
	return domain.CopyAmount(t.store.balances[p]), nil
}

func (t *storeTx) SetBalance(_ context.Context, p domain.Principal, amount *big.Int) error {
	t.balances[p] = domain.CopyAmount(amount)
	return nil
}

func (t *storeTx) TotalSupply(_ context.Context) (*big.Int, error) {
	if t.supply != nil {
		return domain.CopyAmount(t.supply), nil
	}
	return domain.CopyAmount(t.store.supply), nil
}

func (t *storeTx) SetTotalSupply(_ context.Context, amount *big.Int) error {
	t.supply = domain.CopyAmount(amount)
	return nil
}

func (t *storeTx) Owner(_ context.Context) (domain.Principal, error) {
	return t.store.owner, nil
}

func (t *storeTx) Initialized(_ context.Context) (bool, error) {
	return t.initialized || t.store.initialized, nil
}

func (t *storeTx) SetInitialized(_ context.Context) error {
	t.initialized = true
	return nil
}
