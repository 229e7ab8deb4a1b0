package redis

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	goredis "github.com/redis/go-redis/v9"
)

const (
	balancePrefix   = "ledger:balance:"
	keyTotalSupply  = "ledger:meta:total_supply"
	keyOwner        = "ledger:meta:owner"
	keyInitialized  = "ledger:meta:initialized"
)

// Store implements ports.LedgerStore on Redis. Amounts are stored as base-10
// strings, balances one key per principal. Redis has no interactive
// transactions over prior reads, so Update serializes through a process-local
// mutex (the engine's host-serialization contract) and flushes all staged
// writes in one MULTI/EXEC pipeline, keeping commits atomic.
type Store struct {
	client *goredis.Client
	mu     sync.Mutex
}

// NewStore creates a new Redis-backed ledger store.
func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

// BalanceOf returns the balance of p, zero when no key exists.
func (s *Store) BalanceOf(ctx context.Context, p domain.Principal) (*big.Int, error) {
	return s.getAmount(ctx, balancePrefix+p.Hex())
}

// TotalSupply returns the supply counter, zero before init.
func (s *Store) TotalSupply(ctx context.Context) (*big.Int, error) {
	return s.getAmount(ctx, keyTotalSupply)
}

// Owner returns the owner principal, ZeroPrincipal when unset.
func (s *Store) Owner(ctx context.Context) (domain.Principal, error) {
	value, err := s.client.Get(ctx, keyOwner).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.ZeroPrincipal, nil
		}
		return domain.ZeroPrincipal, fmt.Errorf("redis get owner: %w", err)
	}
	owner, err := domain.ParsePrincipal(value)
	if err != nil {
		return domain.ZeroPrincipal, fmt.Errorf("stored owner is corrupt: %w", err)
	}
	return owner, nil
}

// Initialized reports whether the init guard flag has been committed.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	value, err := s.client.Get(ctx, keyInitialized).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get initialized flag: %w", err)
	}
	return value == "true", nil
}

// SetOwner bootstraps the owner principal (host deployment hook).
func (s *Store) SetOwner(ctx context.Context, p domain.Principal) error {
	if err := s.client.Set(ctx, keyOwner, p.Hex(), 0).Err(); err != nil {
		return fmt.Errorf("redis set owner: %w", err)
	}
	return nil
}

// Update runs fn with staged writes, flushing them in a single MULTI/EXEC
// pipeline iff fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &storeTx{
		store:  s,
		staged: make(map[string]string),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.staged) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		for key, value := range tx.staged {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis commit ledger tx: %w", err)
	}
	return nil
}

func (s *Store) getAmount(ctx context.Context, key string) (*big.Int, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	amount, err := domain.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("stored amount at %s is corrupt: %w", key, err)
	}
	return amount, nil
}

// storeTx stages writes as key/value pairs. Reads check the staged map first
// so the transaction observes its own writes.
type storeTx struct {
	store  *Store
	staged map[string]string
}

func (t *storeTx) BalanceOf(ctx context.Context, p domain.Principal) (*big.Int, error) {
	return t.getAmount(ctx, balancePrefix+p.Hex())
}

func (t *storeTx) SetBalance(_ context.Context, p domain.Principal, amount *big.Int) error {
	t.staged[balancePrefix+p.Hex()] = domain.FormatAmount(amount)
	return nil
}

func (t *storeTx) TotalSupply(ctx context.Context) (*big.Int, error) {
	return t.getAmount(ctx, keyTotalSupply)
}

func (t *storeTx) SetTotalSupply(_ context.Context, amount *big.Int) error {
	t.staged[keyTotalSupply] = domain.FormatAmount(amount)
	return nil
}

func (t *storeTx) Owner(ctx context.Context) (domain.Principal, error) {
	return t.store.Owner(ctx)
}

func (t *storeTx) Initialized(ctx context.Context) (bool, error) {
	if value, ok := t.staged[keyInitialized]; ok {
		return value == "true", nil
	}
	return t.store.Initialized(ctx)
}

func (t *storeTx) SetInitialized(_ context.Context) error {
	t.staged[keyInitialized] = "true"
	return nil
}

func (t *storeTx) getAmount(ctx context.Context, key string) (*big.Int, error) {
	if value, ok := t.staged[key]; ok {
		amount, err := domain.ParseAmount(value)
		if err != nil {
			return nil, fmt.Errorf("staged amount at %s is corrupt: %w", key, err)
		}
		return amount, nil
	}
	return t.store.getAmount(ctx, key)
}
