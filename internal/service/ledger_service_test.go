package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"token-ledger/internal/adapter/notify"
	"token-ledger/internal/adapter/storage/memory"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/core/ports/mocks"
	"token-ledger/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc      *LedgerServiceImpl
	store    *memory.Store
	recorder *notify.Recorder
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	t.Helper()
	d := &ledgerTestDeps{
		store:    memory.NewStore(),
		recorder: notify.NewRecorder(),
	}
	d.svc = NewLedgerService(d.store, d.recorder, zerolog.Nop())
	return d
}

func mustPrincipal(t *testing.T, hex string) domain.Principal {
	t.Helper()
	p, err := domain.ParsePrincipal(hex)
	require.NoError(t, err)
	return p
}

var (
	hexAlice = "0x1111111111111111111111111111111111111111"
	hexBob   = "0x2222222222222222222222222222222222222222"
	hexCarol = "0x3333333333333333333333333333333333333333"
	hexOwner = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
)

// requireBalance asserts the committed balance of p.
func requireBalance(t *testing.T, d *ledgerTestDeps, p domain.Principal, want string) {
	t.Helper()
	balance, err := d.svc.GetBalance(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, want, balance.String())
}

func requireSupply(t *testing.T, d *ledgerTestDeps, want string) {
	t.Helper()
	supply, err := d.svc.GetTotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, supply.String())
}

// ==================== Init ====================

func TestLedgerService_Init(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))

	requireBalance(t, d, alice, "1000")
	requireSupply(t, d, "1000")
	assert.Empty(t, d.recorder.Records(), "init emits no notification")
}

func TestLedgerService_Init_ZeroSupply(t *testing.T) {
	d := setupLedgerService(t)
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(context.Background(), alice, big.NewInt(0)))
	requireSupply(t, d, "0")
}

func TestLedgerService_Init_Twice(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))

	err := d.svc.Init(ctx, bob, big.NewInt(9999))
	assert.Equal(t, "LED_006", apperror.Code(err))

	// The first init must be untouched.
	requireBalance(t, d, alice, "1000")
	requireBalance(t, d, bob, "0")
	requireSupply(t, d, "1000")
}

func TestLedgerService_Init_NegativeSupply(t *testing.T) {
	d := setupLedgerService(t)

	err := d.svc.Init(context.Background(), mustPrincipal(t, hexAlice), big.NewInt(-1))
	assert.Equal(t, "VAL_001", apperror.Code(err))

	err = d.svc.Init(context.Background(), mustPrincipal(t, hexAlice), nil)
	assert.Equal(t, "VAL_001", apperror.Code(err))
}

// ==================== Transfer ====================

func TestLedgerService_Transfer(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))
	require.NoError(t, d.svc.Transfer(ctx, alice, bob, big.NewInt(300)))

	requireBalance(t, d, alice, "700")
	requireBalance(t, d, bob, "300")
	requireSupply(t, d, "1000")

	records := d.recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.NotificationTransfer, records[0].Kind)
	assert.Equal(t, alice, *records[0].From)
	assert.Equal(t, bob, *records[0].To)
	assert.Equal(t, "300", records[0].Amount.String())
}

func TestLedgerService_Transfer_ZeroRecipient(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))

	err := d.svc.Transfer(ctx, alice, domain.ZeroPrincipal, big.NewInt(10))
	assert.Equal(t, "LED_001", apperror.Code(err))

	requireBalance(t, d, alice, "1000")
	requireSupply(t, d, "1000")
	assert.Empty(t, d.recorder.Records())
}

func TestLedgerService_Transfer_NonPositiveAmount(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))

	for _, amount := range []*big.Int{big.NewInt(0), big.NewInt(-5), nil} {
		err := d.svc.Transfer(ctx, alice, bob, amount)
		assert.Equal(t, "LED_002", apperror.Code(err))
	}
	requireBalance(t, d, alice, "1000")
	requireBalance(t, d, bob, "0")
}

func TestLedgerService_Transfer_InsufficientBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(100)))

	err := d.svc.Transfer(ctx, alice, bob, big.NewInt(101))
	assert.Equal(t, "LED_003", apperror.Code(err))

	requireBalance(t, d, alice, "100")
	requireBalance(t, d, bob, "0")
	requireSupply(t, d, "100")
	assert.Empty(t, d.recorder.Records())
}

func TestLedgerService_Transfer_ExactBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(100)))
	require.NoError(t, d.svc.Transfer(ctx, alice, bob, big.NewInt(100)))

	requireBalance(t, d, alice, "0")
	requireBalance(t, d, bob, "100")
}

func TestLedgerService_Transfer_ToSelf(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(500)))
	require.NoError(t, d.svc.Transfer(ctx, alice, alice, big.NewInt(200)))

	requireBalance(t, d, alice, "500")
	requireSupply(t, d, "500")
}

func TestLedgerService_Transfer_NotInitialized(t *testing.T) {
	d := setupLedgerService(t)

	err := d.svc.Transfer(context.Background(), mustPrincipal(t, hexAlice), mustPrincipal(t, hexBob), big.NewInt(10))
	assert.Equal(t, "LED_005", apperror.Code(err))
}

// ==================== Mint ====================

func setupInitializedWithOwner(t *testing.T) (*ledgerTestDeps, domain.Principal, domain.Principal) {
	t.Helper()
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	owner := mustPrincipal(t, hexOwner)

	require.NoError(t, d.store.SetOwner(ctx, owner))
	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))
	return d, alice, owner
}

func TestLedgerService_Mint(t *testing.T) {
	d, alice, owner := setupInitializedWithOwner(t)
	ctx := context.Background()
	carol := mustPrincipal(t, hexCarol)

	require.NoError(t, d.svc.Mint(ctx, owner, carol, big.NewInt(50)))

	requireBalance(t, d, carol, "50")
	requireBalance(t, d, alice, "1000")
	requireSupply(t, d, "1050")

	records := d.recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.NotificationMint, records[0].Kind)
	assert.Nil(t, records[0].From)
	assert.Equal(t, carol, *records[0].To)
	assert.Equal(t, "50", records[0].Amount.String())
}

func TestLedgerService_Mint_NotOwner(t *testing.T) {
	d, alice, _ := setupInitializedWithOwner(t)
	ctx := context.Background()
	carol := mustPrincipal(t, hexCarol)

	err := d.svc.Mint(ctx, alice, carol, big.NewInt(50))
	assert.Equal(t, "LED_004", apperror.Code(err))

	requireBalance(t, d, carol, "0")
	requireSupply(t, d, "1000")
	assert.Empty(t, d.recorder.Records())
}

func TestLedgerService_Mint_NoOwnerConfigured(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))

	// With no owner bootstrapped nobody may mint, not even a zero caller.
	err := d.svc.Mint(ctx, domain.ZeroPrincipal, alice, big.NewInt(1))
	assert.Equal(t, "LED_004", apperror.Code(err))
}

func TestLedgerService_Mint_ZeroRecipient(t *testing.T) {
	d, _, owner := setupInitializedWithOwner(t)

	err := d.svc.Mint(context.Background(), owner, domain.ZeroPrincipal, big.NewInt(50))
	assert.Equal(t, "LED_001", apperror.Code(err))
	requireSupply(t, d, "1000")
}

func TestLedgerService_Mint_NonPositiveAmount(t *testing.T) {
	d, _, owner := setupInitializedWithOwner(t)
	carol := mustPrincipal(t, hexCarol)

	err := d.svc.Mint(context.Background(), owner, carol, big.NewInt(0))
	assert.Equal(t, "LED_002", apperror.Code(err))
	requireSupply(t, d, "1000")
}

// ==================== Burn ====================

func TestLedgerService_Burn(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))
	require.NoError(t, d.svc.Burn(ctx, alice, big.NewInt(400)))

	requireBalance(t, d, alice, "600")
	requireSupply(t, d, "600")

	records := d.recorder.Records()
	require.Len(t, records, 1)
	assert.Equal(t, domain.NotificationBurn, records[0].Kind)
	assert.Equal(t, alice, *records[0].From)
	assert.Equal(t, "400", records[0].Amount.String())
}

func TestLedgerService_Burn_ExactBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(1000)))
	require.NoError(t, d.svc.Transfer(ctx, alice, bob, big.NewInt(300)))
	require.NoError(t, d.svc.Burn(ctx, bob, big.NewInt(300)))

	requireBalance(t, d, bob, "0")
	requireSupply(t, d, "700")
}

func TestLedgerService_Burn_InsufficientBalance(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(100)))

	err := d.svc.Burn(ctx, alice, big.NewInt(101))
	assert.Equal(t, "LED_003", apperror.Code(err))
	requireBalance(t, d, alice, "100")
	requireSupply(t, d, "100")
}

func TestLedgerService_Burn_NonPositiveAmount(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(100)))

	err := d.svc.Burn(ctx, alice, big.NewInt(-1))
	assert.Equal(t, "LED_002", apperror.Code(err))
}

// ==================== Properties ====================

// Conservation: for any sequence of successful transfers, the sum of all
// balances equals the total supply after every call.
func TestLedgerService_Conservation(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	accounts := []domain.Principal{
		mustPrincipal(t, hexAlice),
		mustPrincipal(t, hexBob),
		mustPrincipal(t, hexCarol),
	}

	require.NoError(t, d.svc.Init(ctx, accounts[0], big.NewInt(10000)))

	moves := []struct {
		from, to int
		amount   int64
	}{
		{0, 1, 2500}, {0, 2, 100}, {1, 2, 2400}, {2, 0, 500}, {1, 0, 100}, {2, 2, 777},
	}
	for _, mv := range moves {
		require.NoError(t, d.svc.Transfer(ctx, accounts[mv.from], accounts[mv.to], big.NewInt(mv.amount)))

		sum := new(big.Int)
		for _, acc := range accounts {
			balance, err := d.svc.GetBalance(ctx, acc)
			require.NoError(t, err)
			require.True(t, balance.Sign() >= 0, "no balance may go negative")
			sum.Add(sum, balance)
		}
		supply, err := d.svc.GetTotalSupply(ctx)
		require.NoError(t, err)
		assert.Equal(t, supply.String(), sum.String(), "sum of balances must equal total supply")
	}
}

// Rejected operations must leave every balance and the supply untouched.
func TestLedgerService_AbortLeavesStateUnchanged(t *testing.T) {
	d, alice, owner := setupInitializedWithOwner(t)
	ctx := context.Background()
	bob := mustPrincipal(t, hexBob)

	attempts := []func() error{
		func() error { return d.svc.Transfer(ctx, alice, domain.ZeroPrincipal, big.NewInt(1)) },
		func() error { return d.svc.Transfer(ctx, alice, bob, big.NewInt(0)) },
		func() error { return d.svc.Transfer(ctx, alice, bob, big.NewInt(1001)) },
		func() error { return d.svc.Burn(ctx, bob, big.NewInt(1)) },
		func() error { return d.svc.Mint(ctx, bob, bob, big.NewInt(5)) },
		func() error { return d.svc.Init(ctx, owner, big.NewInt(1)) },
	}
	for _, attempt := range attempts {
		require.Error(t, attempt())
		requireBalance(t, d, alice, "1000")
		requireBalance(t, d, bob, "0")
		requireSupply(t, d, "1000")
	}
	assert.Empty(t, d.recorder.Records())
}

// Reads never mutate state.
func TestLedgerService_IdempotentReads(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)

	require.NoError(t, d.svc.Init(ctx, alice, big.NewInt(42)))

	for i := 0; i < 3; i++ {
		requireBalance(t, d, alice, "42")
		requireSupply(t, d, "42")
	}
}

func TestLedgerService_GetBalance_UnknownAddress(t *testing.T) {
	d := setupLedgerService(t)
	requireBalance(t, d, mustPrincipal(t, hexCarol), "0")
}

// Amounts beyond 64 bits must be handled exactly.
func TestLedgerService_ArbitraryPrecision(t *testing.T) {
	d := setupLedgerService(t)
	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	huge, ok := new(big.Int).SetString("340282366920938463463374607431768211456", 10) // 2^128
	require.True(t, ok)

	require.NoError(t, d.svc.Init(ctx, alice, huge))
	require.NoError(t, d.svc.Transfer(ctx, alice, bob, big.NewInt(1)))

	requireBalance(t, d, alice, "340282366920938463463374607431768211455")
	requireBalance(t, d, bob, "1")
	requireSupply(t, d, "340282366920938463463374607431768211456")
}

// ==================== Mock-based failure paths ====================

func TestLedgerService_StorageFailureIsWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockLedgerStore(ctrl)
	sink := mocks.NewMockNotificationSink(ctrl)
	svc := NewLedgerService(store, sink, zerolog.Nop())

	ctx := context.Background()
	store.EXPECT().Update(ctx, gomock.Any()).Return(errors.New("connection reset"))

	err := svc.Transfer(ctx, mustPrincipal(t, hexAlice), mustPrincipal(t, hexBob), big.NewInt(10))
	assert.Equal(t, "SYS_001", apperror.Code(err))
	// No EXPECT on sink.Emit: nothing may be emitted for an aborted transfer.
}

func TestLedgerService_PreconditionFailureWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := mocks.NewMockLedgerStore(ctrl)
	sink := mocks.NewMockNotificationSink(ctrl)
	svc := NewLedgerService(store, sink, zerolog.Nop())

	ctx := context.Background()
	tx := mocks.NewMockLedgerTx(ctrl)

	store.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(ports.LedgerTx) error) error {
			return fn(tx)
		})
	tx.EXPECT().Initialized(ctx).Return(true, nil)
	tx.EXPECT().BalanceOf(ctx, mustPrincipal(t, hexAlice)).Return(big.NewInt(5), nil)
	// No SetBalance/SetTotalSupply expectations: the check must run before any write.

	err := svc.Transfer(ctx, mustPrincipal(t, hexAlice), mustPrincipal(t, hexBob), big.NewInt(10))
	assert.Equal(t, "LED_003", apperror.Code(err))
}

func TestLedgerService_SinkFailureDoesNotFailOperation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sink := mocks.NewMockNotificationSink(ctrl)
	svc := NewLedgerService(memory.NewStore(), sink, zerolog.Nop())

	ctx := context.Background()
	alice := mustPrincipal(t, hexAlice)
	bob := mustPrincipal(t, hexBob)

	require.NoError(t, svc.Init(ctx, alice, big.NewInt(100)))

	sink.EXPECT().Emit(ctx, gomock.Any()).Return(errors.New("stream down"))
	require.NoError(t, svc.Transfer(ctx, alice, bob, big.NewInt(10)), "commit wins over a failed emit")

	balance, err := svc.GetBalance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "10", balance.String())
}
