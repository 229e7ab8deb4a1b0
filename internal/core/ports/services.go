package ports

import (
	"context"
	"math/big"
	"time"

	"token-ledger/internal/core/domain"
)

// LedgerService is the public operation surface of the accounting engine.
// The caller principal is an explicit parameter on every mutating operation;
// the engine trusts it completely (the host authenticates). Mutations either
// fully commit or abort with a tagged *apperror.AppError and no state change.
type LedgerService interface {
	// Init sets the caller's balance and the total supply to initialSupply.
	// Runs exactly once per ledger lifetime; repeated calls abort.
	Init(ctx context.Context, caller domain.Principal, initialSupply *big.Int) error
	// Transfer moves amount from caller to to. Total supply is unchanged.
	Transfer(ctx context.Context, caller, to domain.Principal, amount *big.Int) error
	// Mint credits to and grows the total supply. Owner only.
	Mint(ctx context.Context, caller, to domain.Principal, amount *big.Int) error
	// Burn debits the caller and shrinks the total supply. Any caller.
	Burn(ctx context.Context, caller domain.Principal, amount *big.Int) error
	// GetBalance is a pure read, zero for an unknown address.
	GetBalance(ctx context.Context, address domain.Principal) (*big.Int, error)
	// GetTotalSupply is a pure read of the supply counter.
	GetTotalSupply(ctx context.Context) (*big.Int, error)
}

// TokenService handles bearer-token credentials for the reference HTTP host.
type TokenService interface {
	Generate(principal domain.Principal) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed token claims.
type TokenClaims struct {
	Principal domain.Principal
}
