package service

import (
	"context"
	"errors"
	"math/big"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService. Every mutation runs its
// precondition checks and writes inside a single store transaction, so the
// first violated check aborts with no observable state change. Notifications
// are emitted after commit; the store, not the sink, is the source of truth.
type LedgerServiceImpl struct {
	store ports.LedgerStore
	sink  ports.NotificationSink
	log   zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(store ports.LedgerStore, sink ports.NotificationSink, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		store: store,
		sink:  sink,
		log:   log,
	}
}

// Init sets the caller's balance and the total supply to initialSupply. It is
// guarded by a persisted flag: a second call aborts with AlreadyInitialized.
// No notification is emitted.
func (s *LedgerServiceImpl) Init(ctx context.Context, caller domain.Principal, initialSupply *big.Int) error {
	if initialSupply == nil || initialSupply.Sign() < 0 {
		return apperror.Validation("initial supply must be a non-negative amount")
	}

	err := s.store.Update(ctx, func(tx ports.LedgerTx) error {
		initialized, err := tx.Initialized(ctx)
		if err != nil {
			return err
		}
		if initialized {
			return apperror.ErrAlreadyInitialized()
		}
		if err := tx.SetBalance(ctx, caller, initialSupply); err != nil {
			return err
		}
		if err := tx.SetTotalSupply(ctx, initialSupply); err != nil {
			return err
		}
		return tx.SetInitialized(ctx)
	})
	if err != nil {
		return asAppError(err)
	}

	s.log.Info().
		Stringer("caller", caller).
		Str("initial_supply", domain.FormatAmount(initialSupply)).
		Msg("ledger initialized")
	return nil
}

// Transfer moves amount from caller to to. Checks, in order: recipient is not
// the zero principal, amount is strictly positive, caller balance covers the
// amount. Total supply is unchanged; conservation over the two touched
// balances holds by construction.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, caller, to domain.Principal, amount *big.Int) error {
	if to.IsZero() {
		return apperror.ErrInvalidRecipient()
	}
	if amount == nil || amount.Sign() <= 0 {
		return apperror.ErrNonPositiveAmount()
	}

	err := s.store.Update(ctx, func(tx ports.LedgerTx) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		fromBalance, err := tx.BalanceOf(ctx, caller)
		if err != nil {
			return err
		}
		if fromBalance.Cmp(amount) < 0 {
			return apperror.ErrInsufficientBalance()
		}
		if err := tx.SetBalance(ctx, caller, new(big.Int).Sub(fromBalance, amount)); err != nil {
			return err
		}
		// Re-read after the debit so a self-transfer nets to zero.
		toBalance, err := tx.BalanceOf(ctx, to)
		if err != nil {
			return err
		}
		return tx.SetBalance(ctx, to, new(big.Int).Add(toBalance, amount))
	})
	if err != nil {
		return asAppError(err)
	}

	s.emit(ctx, domain.NewTransferNotification(caller, to, amount))
	s.log.Info().
		Stringer("from", caller).
		Stringer("to", to).
		Str("amount", domain.FormatAmount(amount)).
		Msg("transfer committed")
	return nil
}

// Mint credits to and grows the total supply by amount. Only the owner may
// mint; the authorization check runs before the argument checks.
func (s *LedgerServiceImpl) Mint(ctx context.Context, caller, to domain.Principal, amount *big.Int) error {
	err := s.store.Update(ctx, func(tx ports.LedgerTx) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		owner, err := tx.Owner(ctx)
		if err != nil {
			return err
		}
		if !isOwner(caller, owner) {
			return apperror.ErrNotOwner()
		}
		if to.IsZero() {
			return apperror.ErrInvalidRecipient()
		}
		if amount == nil || amount.Sign() <= 0 {
			return apperror.ErrNonPositiveAmount()
		}
		toBalance, err := tx.BalanceOf(ctx, to)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, to, new(big.Int).Add(toBalance, amount)); err != nil {
			return err
		}
		supply, err := tx.TotalSupply(ctx)
		if err != nil {
			return err
		}
		return tx.SetTotalSupply(ctx, new(big.Int).Add(supply, amount))
	})
	if err != nil {
		return asAppError(err)
	}

	s.emit(ctx, domain.NewMintNotification(to, amount))
	s.log.Info().
		Stringer("to", to).
		Str("amount", domain.FormatAmount(amount)).
		Msg("mint committed")
	return nil
}

// Burn debits the caller and shrinks the total supply by amount. Any account
// may burn its own holdings.
func (s *LedgerServiceImpl) Burn(ctx context.Context, caller domain.Principal, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return apperror.ErrNonPositiveAmount()
	}

	err := s.store.Update(ctx, func(tx ports.LedgerTx) error {
		if err := requireInitialized(ctx, tx); err != nil {
			return err
		}
		balance, err := tx.BalanceOf(ctx, caller)
		if err != nil {
			return err
		}
		if balance.Cmp(amount) < 0 {
			return apperror.ErrInsufficientBalance()
		}
		if err := tx.SetBalance(ctx, caller, new(big.Int).Sub(balance, amount)); err != nil {
			return err
		}
		supply, err := tx.TotalSupply(ctx)
		if err != nil {
			return err
		}
		newSupply := new(big.Int).Sub(supply, amount)
		// Supply is the sum of all balances, so it cannot go negative unless
		// the conservation invariant is already broken. Abort rather than
		// persist a negative counter.
		if newSupply.Sign() < 0 {
			return apperror.ErrSupplyUnderflow()
		}
		return tx.SetTotalSupply(ctx, newSupply)
	})
	if err != nil {
		return asAppError(err)
	}

	s.emit(ctx, domain.NewBurnNotification(caller, amount))
	s.log.Info().
		Stringer("from", caller).
		Str("amount", domain.FormatAmount(amount)).
		Msg("burn committed")
	return nil
}

// GetBalance returns the balance of address, zero for an unrecorded address.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, address domain.Principal) (*big.Int, error) {
	balance, err := s.store.BalanceOf(ctx, address)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	return balance, nil
}

// GetTotalSupply returns the total supply counter.
func (s *LedgerServiceImpl) GetTotalSupply(ctx context.Context) (*big.Int, error) {
	supply, err := s.store.TotalSupply(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(err)
	}
	return supply, nil
}

// emit appends a notification to the sink. The state change is already
// committed, so a sink failure is logged and swallowed.
func (s *LedgerServiceImpl) emit(ctx context.Context, n domain.Notification) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Emit(ctx, n); err != nil {
		s.log.Warn().Err(err).Str("kind", string(n.Kind)).Msg("notification emit failed")
	}
}

func requireInitialized(ctx context.Context, tx ports.LedgerTx) error {
	initialized, err := tx.Initialized(ctx)
	if err != nil {
		return err
	}
	if !initialized {
		return apperror.ErrNotInitialized()
	}
	return nil
}

func isOwner(caller, owner domain.Principal) bool {
	return !owner.IsZero() && caller == owner
}

// asAppError passes tagged precondition errors through unchanged and wraps
// everything else as a storage failure.
func asAppError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.ErrStorage(err)
}
