package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// Ledger state lives in two tables: one row per touched account and a small
// key/value table for the scalar slots.
const schema = `
CREATE TABLE IF NOT EXISTS balances (
	principal BYTEA PRIMARY KEY,
	balance   NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS ledger_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

const (
	metaTotalSupply = "total_supply"
	metaOwner       = "owner"
	metaInitialized = "initialized"
)

// Store implements ports.LedgerStore on PostgreSQL. Update wraps the
// read-modify-write sequence in a serializable transaction with FOR UPDATE
// locks on the touched balance rows, per the engine's isolation contract.
type Store struct {
	pool Pool
}

// NewStore creates a new PostgreSQL-backed ledger store.
func NewStore(pool Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the ledger tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring ledger schema: %w", err)
	}
	return nil
}

// BalanceOf fetches the balance of p without locking, zero for an absent row.
func (s *Store) BalanceOf(ctx context.Context, p domain.Principal) (*big.Int, error) {
	return scanBalance(s.pool.QueryRow(ctx,
		`SELECT balance::text FROM balances WHERE principal = $1`, p.Bytes()))
}

// TotalSupply fetches the supply counter, zero before init.
func (s *Store) TotalSupply(ctx context.Context) (*big.Int, error) {
	return scanMetaAmount(s.pool.QueryRow(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1`, metaTotalSupply))
}

// Owner fetches the owner principal, ZeroPrincipal when unset.
func (s *Store) Owner(ctx context.Context) (domain.Principal, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1`, metaOwner).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ZeroPrincipal, nil
		}
		return domain.ZeroPrincipal, fmt.Errorf("get owner: %w", err)
	}
	owner, err := domain.ParsePrincipal(value)
	if err != nil {
		return domain.ZeroPrincipal, fmt.Errorf("stored owner is corrupt: %w", err)
	}
	return owner, nil
}

// Initialized reports whether the init guard flag has been committed.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1`, metaInitialized).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get initialized flag: %w", err)
	}
	return value == "true", nil
}

// SetOwner bootstraps the owner principal (host deployment hook).
func (s *Store) SetOwner(ctx context.Context, p domain.Principal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ledger_meta (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		metaOwner, p.Hex())
	if err != nil {
		return fmt.Errorf("set owner: %w", err)
	}
	return nil
}

// Update runs fn inside a serializable transaction, committing iff fn
// returns nil. Balance reads inside the transaction take row locks.
func (s *Store) Update(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	dbTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := fn(&storeTx{tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// storeTx implements ports.LedgerTx over an open pgx transaction. Reads see
// the transaction's own writes, so the staged-read contract holds for free.
type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) BalanceOf(ctx context.Context, p domain.Principal) (*big.Int, error) {
	return scanBalance(t.tx.QueryRow(ctx,
		`SELECT balance::text FROM balances WHERE principal = $1 FOR UPDATE`, p.Bytes()))
}

func (t *storeTx) SetBalance(ctx context.Context, p domain.Principal, amount *big.Int) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO balances (principal, balance) VALUES ($1, $2::numeric)
		 ON CONFLICT (principal) DO UPDATE SET balance = EXCLUDED.balance`,
		p.Bytes(), domain.FormatAmount(amount))
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (t *storeTx) TotalSupply(ctx context.Context) (*big.Int, error) {
	return scanMetaAmount(t.tx.QueryRow(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1 FOR UPDATE`, metaTotalSupply))
}

func (t *storeTx) SetTotalSupply(ctx context.Context, amount *big.Int) error {
	return t.upsertMeta(ctx, metaTotalSupply, domain.FormatAmount(amount))
}

func (t *storeTx) Owner(ctx context.Context) (domain.Principal, error) {
	var value string
	err := t.tx.QueryRow(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1`, metaOwner).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ZeroPrincipal, nil
		}
		return domain.ZeroPrincipal, fmt.Errorf("get owner: %w", err)
	}
	owner, err := domain.ParsePrincipal(value)
	if err != nil {
		return domain.ZeroPrincipal, fmt.Errorf("stored owner is corrupt: %w", err)
	}
	return owner, nil
}

func (t *storeTx) Initialized(ctx context.Context) (bool, error) {
	var value string
	err := t.tx.QueryRow(ctx,
		`SELECT value FROM ledger_meta WHERE key = $1 FOR UPDATE`, metaInitialized).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get initialized flag: %w", err)
	}
	return value == "true", nil
}

func (t *storeTx) SetInitialized(ctx context.Context) error {
	return t.upsertMeta(ctx, metaInitialized, "true")
}

func (t *storeTx) upsertMeta(ctx context.Context, key, value string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ledger_meta (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

func scanBalance(row pgx.Row) (*big.Int, error) {
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("get balance: %w", err)
	}
	amount, err := domain.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("stored balance is corrupt: %w", err)
	}
	return amount, nil
}

func scanMetaAmount(row pgx.Row) (*big.Int, error) {
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("get total supply: %w", err)
	}
	amount, err := domain.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("stored supply is corrupt: %w", err)
	}
	return amount, nil
}
