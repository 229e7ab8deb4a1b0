package ports

import (
	"context"
	"math/big"

	"token-ledger/internal/core/domain"
)

// LedgerTx is the view of the ledger store inside one atomic update. Reads
// observe writes made earlier in the same transaction, so a self-transfer
// nets out correctly. Implementations lock the touched keys for the duration
// of the transaction where the backend supports it.
type LedgerTx interface {
	// BalanceOf returns the balance of p, zero when no entry exists.
	BalanceOf(ctx context.Context, p domain.Principal) (*big.Int, error)
	// SetBalance stages the balance of p. Zero balances keep their key.
	SetBalance(ctx context.Context, p domain.Principal, amount *big.Int) error
	// TotalSupply returns the staged or persisted total supply.
	TotalSupply(ctx context.Context) (*big.Int, error)
	// SetTotalSupply stages the total supply.
	SetTotalSupply(ctx context.Context, amount *big.Int) error
	// Owner returns the owner principal, ZeroPrincipal when unset.
	Owner(ctx context.Context) (domain.Principal, error)
	// Initialized reports whether the ledger's one-time init has committed.
	Initialized(ctx context.Context) (bool, error)
	// SetInitialized stages the init guard flag.
	SetInitialized(ctx context.Context) error
}

// LedgerStore is the key-value persistence the host injects into the engine.
// The engine is the only writer of balances, total supply and the init flag;
// the owner is externally initialized via SetOwner and read-only afterwards.
type LedgerStore interface {
	// BalanceOf is a non-locking read, zero for an absent entry.
	BalanceOf(ctx context.Context, p domain.Principal) (*big.Int, error)
	// TotalSupply is a non-locking read, zero before init.
	TotalSupply(ctx context.Context) (*big.Int, error)
	// Owner is a non-locking read, ZeroPrincipal when unset.
	Owner(ctx context.Context) (domain.Principal, error)
	// Initialized reports whether init has committed.
	Initialized(ctx context.Context) (bool, error)
	// SetOwner bootstraps the owner principal. Host deployment hook, never
	// called by the engine.
	SetOwner(ctx context.Context, p domain.Principal) error
	// Update runs fn inside an atomic transaction over the ledger keys and
	// commits iff fn returns nil. On error every staged write is discarded.
	Update(ctx context.Context, fn func(tx LedgerTx) error) error
}

// NotificationSink is the host's append-only notification channel. Records
// are emitted after the state change committed; the sink never feeds back
// into ledger state.
type NotificationSink interface {
	Emit(ctx context.Context, n domain.Notification) error
}
