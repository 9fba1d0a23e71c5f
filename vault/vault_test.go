// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/store"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/token"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/reverts"
)

var (
	vaultAcc = termvault.BytesToAddress([]byte("vault"))
	operator = termvault.BytesToAddress([]byte("operator"))
	alice    = termvault.BytesToAddress([]byte("alice"))
	bob      = termvault.BytesToAddress([]byte("bob"))
	carol    = termvault.BytesToAddress([]byte("carol"))
)

type env struct {
	token *token.Memory
	vault *Vault
	clock uint64
}

func newEnv(t *testing.T, str *store.Store) *env {
	e := &env{clock: 1_700_000_000}
	e.token = token.NewMemory(vaultAcc)
	v, err := New(
		token.NewGateway(e.token, vaultAcc),
		plans.MustNewRegistry(plans.DefaultTerms()),
		str,
		Options{Operator: operator, Now: func() uint64 { return e.clock }},
	)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	e.vault = v
	return e
}

// fund mints amount to addr and approves the vault for all of it.
func (e *env) fund(addr termvault.Address, amount int64) {
	e.token.Mint(addr, big.NewInt(amount))
	e.token.Approve(addr, vaultAcc, big.NewInt(amount))
}

func (e *env) fundPool(t *testing.T, amount int64) {
	t.Helper()
	e.fund(operator, amount)
	require.NoError(t, e.vault.FundPool(context.Background(), operator, big.NewInt(amount)))
}

func (e *env) advance(seconds uint64) {
	e.clock += seconds
}

func (e *env) wallet(t *testing.T, addr termvault.Address) int64 {
	t.Helper()
	bal, err := e.token.BalanceOf(context.Background(), addr)
	require.NoError(t, err)
	return bal.Int64()
}

func recvEvent(t *testing.T, ch chan event.Event) event.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, ch chan event.Event) {
	t.Helper()
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev.Kind())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOpenAndClaimLifecycle(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	ch := make(chan event.Event, 8)
	sub := e.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	e.fundPool(t, 1_000_000)
	assertNoEvent(t, ch)

	e.fund(alice, 20_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(10_000)))

	opened := recvEvent(t, ch).(event.Opened)
	assert.Equal(t, alice, opened.Owner)
	assert.Equal(t, plans.Days30, opened.Plan)
	assert.EqualValues(t, 10_000, opened.Amount.Int64())

	assert.EqualValues(t, 10_000, e.vault.Balance(alice, plans.Days30).Int64())
	assert.EqualValues(t, 10_000, e.vault.TotalStaked().Int64())
	assert.Equal(t, 1, e.vault.PositionCount())

	// the whole-term share is pending from the moment the deposit opens,
	// the lock term only gates paying it
	pending, err := e.vault.PendingReward(alice, plans.Days30)
	require.NoError(t, err)
	assert.EqualValues(t, 41, pending.Int64())
	assert.ErrorIs(t, e.vault.Claim(ctx, alice, plans.Days30), reverts.ErrNotMatured)

	e.advance(30 * termvault.SecondsPerDay)
	mature, err := e.vault.IsMature(alice, plans.Days30)
	require.NoError(t, err)
	assert.True(t, mature)

	require.NoError(t, e.vault.Claim(ctx, alice, plans.Days30))
	claimed := recvEvent(t, ch).(event.RewardClaimed)
	assert.EqualValues(t, 41, claimed.Reward.Int64())
	assert.EqualValues(t, 10_041, e.wallet(t, alice))
	assert.EqualValues(t, 1_000_000-41, e.vault.PoolBalance().Int64())

	// the claim restarted the clock but kept the whole-term share granted
	info, err := e.vault.Info(alice, plans.Days30)
	require.NoError(t, err)
	assert.EqualValues(t, 41, info.FixedReward.Int64())
	assert.EqualValues(t, 0, info.Accrued.Int64())
	assert.Equal(t, e.clock, info.OpenedAt)
	assert.False(t, info.Mature)
	assert.ErrorIs(t, e.vault.Claim(ctx, alice, plans.Days30), reverts.ErrNotMatured)
}

func TestOpenValidation(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, e.vault.Open(ctx, alice, plans.Plan(99), big.NewInt(1)), reverts.ErrUnknownPlan)
	assert.ErrorIs(t, e.vault.Open(ctx, alice, plans.Days30, new(big.Int)), reverts.ErrZeroAmount)
	assert.ErrorIs(t, e.vault.Open(ctx, operator, plans.Days30, big.NewInt(1)), reverts.ErrOperatorDeposit)

	// an empty pool cannot take on a fixed-term obligation
	e.fund(alice, 10_000)
	assert.ErrorIs(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(10_000)), reverts.ErrInsufficientPool)

	// flexible grants nothing up front, so it opens against an empty pool
	require.NoError(t, e.vault.Open(ctx, alice, plans.Flexible, big.NewInt(10_000)))
	assert.ErrorIs(t, e.vault.Open(ctx, alice, plans.Flexible, big.NewInt(1)), reverts.ErrPositionExists)
}

func TestQueriesOnEmptyVault(t *testing.T) {
	e := newEnv(t, nil)

	assert.False(t, e.vault.IsActive(alice, plans.Days30))
	assert.EqualValues(t, 0, e.vault.Balance(alice, plans.Days30).Int64())
	for _, bal := range e.vault.AllBalances(alice) {
		assert.EqualValues(t, 0, bal.Int64())
	}

	_, err := e.vault.Info(alice, plans.Days30)
	assert.ErrorIs(t, err, reverts.ErrNoBalance)
	_, err = e.vault.IsMature(alice, plans.Days30)
	assert.ErrorIs(t, err, reverts.ErrNoBalance)
	_, err = e.vault.PendingReward(alice, plans.Plan(99))
	assert.ErrorIs(t, err, reverts.ErrUnknownPlan)
	_, err = e.vault.Page(0, 0)
	assert.ErrorIs(t, err, reverts.ErrPageOutOfRange)
}

func TestOpenRecordsReceivedAmount(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.fundPool(t, 1_000)

	// 10% burns in flight; the deposit is booked at the 900 that arrived
	e.token.SetTransferFee(100)
	e.fund(alice, 1_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(1_000)))

	assert.EqualValues(t, 900, e.vault.Balance(alice, plans.Days30).Int64())
	info, err := e.vault.Info(alice, plans.Days30)
	require.NoError(t, err)
	assert.EqualValues(t, 3, info.FixedReward.Int64())
}

func TestTopUpCarriesAccrued(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.fundPool(t, 1_000_000)

	ch := make(chan event.Event, 8)
	sub := e.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	e.fund(alice, 15_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days90, big.NewInt(10_000)))
	recvEvent(t, ch)

	assert.ErrorIs(t, e.vault.TopUp(ctx, bob, plans.Days90, big.NewInt(1)), reverts.ErrNoBalance)
	assert.ErrorIs(t, e.vault.TopUp(ctx, alice, plans.Days90, new(big.Int)), reverts.ErrZeroAmount)

	e.advance(45 * termvault.SecondsPerDay)
	require.NoError(t, e.vault.TopUp(ctx, alice, plans.Days90, big.NewInt(5_000)))

	updated := recvEvent(t, ch).(event.Updated)
	assert.EqualValues(t, 5_000, updated.Amount.Int64())
	assert.EqualValues(t, 15_000, updated.Principal.Int64())

	info, err := e.vault.Info(alice, plans.Days90)
	require.NoError(t, err)
	assert.EqualValues(t, 15_000, info.Principal.Int64())
	assert.EqualValues(t, 86, info.Accrued.Int64())      // 45 days on the old principal, carried over
	assert.EqualValues(t, 258, info.FixedReward.Int64()) // whole term over the grown principal
	assert.Equal(t, e.clock, info.OpenedAt)
	assert.EqualValues(t, 15_000, e.vault.TotalStaked().Int64())

	e.advance(90 * termvault.SecondsPerDay)
	require.NoError(t, e.vault.Claim(ctx, alice, plans.Days90))
	assert.EqualValues(t, 344, e.wallet(t, alice)) // 258 fixed + 86 carried
}

func TestExitForfeitsBeforeMaturity(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.fundPool(t, 1_000_000)

	ch := make(chan event.Event, 8)
	sub := e.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	e.fund(alice, 10_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(10_000)))
	recvEvent(t, ch)

	e.advance(10 * termvault.SecondsPerDay)
	require.NoError(t, e.vault.Exit(ctx, alice, plans.Days30))

	closed := recvEvent(t, ch).(event.Closed)
	assert.EqualValues(t, 10_000, closed.Principal.Int64())
	assert.EqualValues(t, 0, closed.Reward.Int64())

	// principal comes back, the reward is forfeited, and the pool is
	// debited for the forfeited share all the same
	assert.EqualValues(t, 10_000, e.wallet(t, alice))
	assert.EqualValues(t, 1_000_000-41, e.vault.PoolBalance().Int64())
	assert.Equal(t, 0, e.vault.PositionCount())
	assert.False(t, e.vault.IsActive(alice, plans.Days30))
}

func TestExitPaysAfterMaturity(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.fundPool(t, 1_000_000)

	e.fund(alice, 10_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(10_000)))

	e.advance(30 * termvault.SecondsPerDay)
	require.NoError(t, e.vault.Exit(ctx, alice, plans.Days30))

	assert.EqualValues(t, 10_041, e.wallet(t, alice))
	assert.EqualValues(t, 1_000_000-41, e.vault.PoolBalance().Int64())
	assert.Equal(t, 0, e.vault.PositionCount())
}

func TestFlexibleMinimumHold(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.token.Mint(carol, big.NewInt(1_000_000)) // keep the supply clear of the holding cap

	e.fund(alice, 10_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Flexible, big.NewInt(10_000)))

	assert.ErrorIs(t, e.vault.Claim(ctx, alice, plans.Flexible), reverts.ErrMinimumHold)
	assert.ErrorIs(t, e.vault.Exit(ctx, alice, plans.Flexible), reverts.ErrMinimumHold)

	// past the hold window the claim goes through, though an empty pool
	// caps the flexible term to nothing
	e.advance(termvault.FlexibleMinHoldSeconds)
	require.NoError(t, e.vault.Claim(ctx, alice, plans.Flexible))
	assert.EqualValues(t, 0, e.wallet(t, alice))

	// the claim restarted the clock, so the hold window gates the exit again
	assert.ErrorIs(t, e.vault.Exit(ctx, alice, plans.Flexible), reverts.ErrMinimumHold)

	e.advance(termvault.FlexibleMinHoldSeconds)
	require.NoError(t, e.vault.Exit(ctx, alice, plans.Flexible))
	assert.EqualValues(t, 10_000, e.wallet(t, alice))
	assert.Equal(t, 0, e.vault.PositionCount())
}

func TestFlexibleSettleCappedByPool(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.token.Mint(carol, big.NewInt(1_000_000))

	e.fund(alice, 10_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Flexible, big.NewInt(10_000)))
	e.fundPool(t, 1)

	// 30 days accrue 24, the pool holds 1: the claim pays the pool out
	e.advance(30 * termvault.SecondsPerDay)
	pending, err := e.vault.PendingReward(alice, plans.Flexible)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Int64())

	require.NoError(t, e.vault.Claim(ctx, alice, plans.Flexible))
	assert.EqualValues(t, 1, e.wallet(t, alice))
	assert.EqualValues(t, 0, e.vault.PoolBalance().Int64())
}

func TestEmergencyExitIgnoresDecline(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.token.Mint(carol, big.NewInt(1_000_000))

	ch := make(chan event.Event, 8)
	sub := e.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	e.fund(alice, 10_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Flexible, big.NewInt(10_000)))
	recvEvent(t, ch)
	e.fund(bob, 5_000)
	require.NoError(t, e.vault.Open(ctx, bob, plans.Flexible, big.NewInt(5_000)))
	recvEvent(t, ch)

	e.advance(termvault.FlexibleMinHoldSeconds)
	e.token.DeclineTransfers(true)

	// the safe path refuses and the deposit survives
	assert.ErrorIs(t, e.vault.Exit(ctx, bob, plans.Flexible), reverts.ErrTransferFailed)
	assert.True(t, e.vault.IsActive(bob, plans.Flexible))

	// the escape hatch closes the books even though the token declined,
	// so nothing actually moved
	require.NoError(t, e.vault.EmergencyExit(ctx, alice, plans.Flexible))
	closed := recvEvent(t, ch).(event.EmergencyClosed)
	assert.EqualValues(t, 10_000, closed.Principal.Int64())
	assert.False(t, e.vault.IsActive(alice, plans.Flexible))
	assert.EqualValues(t, 0, e.wallet(t, alice))
	assert.EqualValues(t, 5_000, e.vault.TotalStaked().Int64())
}

func TestReentrantCallRejected(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()
	e.fundPool(t, 1_000_000)
	e.fund(alice, 10_000)
	e.fund(bob, 10_000)

	// the token calls back into the vault mid-transfer
	var nested error
	e.token.SetTransferHook(func() {
		nested = e.vault.Open(ctx, bob, plans.Days90, big.NewInt(1_000))
	})
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(10_000)))

	assert.ErrorIs(t, nested, reverts.ErrReentrantCall)
	assert.False(t, e.vault.IsActive(bob, plans.Days90))
	assert.EqualValues(t, 10_000, e.vault.TotalStaked().Int64())
}

func TestHoldingCap(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	// supply tuned to exactly 100,000 so the cap lands on 10,000
	e.fund(alice, 10_000)
	e.fund(bob, 9_990)
	e.fundPool(t, 80_010)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days30, big.NewInt(10_000)))
	require.NoError(t, e.vault.Open(ctx, bob, plans.Days30, big.NewInt(9_990)))
	e.advance(30 * termvault.SecondsPerDay)

	// a holding already at the cap can neither claim nor exit the safe way
	assert.ErrorIs(t, e.vault.Claim(ctx, alice, plans.Days30), reverts.ErrHoldingCap)
	assert.ErrorIs(t, e.vault.Exit(ctx, alice, plans.Days30), reverts.ErrHoldingCap)
	assert.EqualValues(t, 80_010, e.vault.PoolBalance().Int64()) // the failed debits rolled back

	// just under the cap the payout trims to the headroom while the pool
	// pays the full settled share
	require.NoError(t, e.vault.Claim(ctx, bob, plans.Days30))
	assert.EqualValues(t, 10, e.wallet(t, bob))
	assert.EqualValues(t, 80_010-41, e.vault.PoolBalance().Int64())

	// the raw escape hatch ignores the cap
	require.NoError(t, e.vault.EmergencyExit(ctx, alice, plans.Days30))
	assert.EqualValues(t, 10_000, e.wallet(t, alice))
}

func TestFundPool(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, e.vault.FundPool(ctx, alice, big.NewInt(1)), reverts.ErrNotOwner)

	e.fund(operator, 2_000)
	assert.ErrorIs(t, e.vault.FundPool(ctx, operator, new(big.Int)), reverts.ErrZeroAmount)

	// the pool grows by what arrived, not what was sent
	e.token.SetTransferFee(100)
	require.NoError(t, e.vault.FundPool(ctx, operator, big.NewInt(1_000)))
	assert.EqualValues(t, 900, e.vault.PoolBalance().Int64())
}

func TestOwnershipHandover(t *testing.T) {
	e := newEnv(t, nil)
	ctx := context.Background()

	ch := make(chan event.Event, 8)
	sub := e.vault.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	assert.ErrorIs(t, e.vault.TransferOwnership(alice, bob), reverts.ErrNotOwner)

	require.NoError(t, e.vault.TransferOwnership(operator, bob))
	changed := recvEvent(t, ch).(event.OwnerChanged)
	assert.Equal(t, operator, changed.Previous)
	assert.Equal(t, bob, changed.Current)
	assert.Equal(t, bob, e.vault.Owner())

	// the old operator is out, the new one funds
	e.fund(operator, 100)
	assert.ErrorIs(t, e.vault.FundPool(ctx, operator, big.NewInt(100)), reverts.ErrNotOwner)
	e.fund(bob, 100)
	require.NoError(t, e.vault.FundPool(ctx, bob, big.NewInt(100)))

	require.NoError(t, e.vault.RenounceOwnership(bob))
	changed = recvEvent(t, ch).(event.OwnerChanged)
	assert.Equal(t, bob, changed.Previous)
	assert.True(t, changed.Current.IsZero())
	assert.True(t, e.vault.Owner().IsZero())

	// a renounced vault admits no operator ever again
	assert.ErrorIs(t, e.vault.FundPool(ctx, bob, big.NewInt(1)), reverts.ErrNotOwner)
	assert.ErrorIs(t, e.vault.RenounceOwnership(bob), reverts.ErrNotOwner)
}

func TestRestoreRoundTrip(t *testing.T) {
	str := store.NewMem()
	defer str.Close()

	e := newEnv(t, str)
	ctx := context.Background()

	e.fundPool(t, 1_000_000)
	e.fund(alice, 10_000)
	require.NoError(t, e.vault.Open(ctx, alice, plans.Days90, big.NewInt(10_000)))
	e.fund(bob, 2_000)
	require.NoError(t, e.vault.Open(ctx, bob, plans.Flexible, big.NewInt(2_000)))
	require.NoError(t, e.vault.TransferOwnership(operator, carol))
	e.vault.Close()

	// a new instance configured with the stale operator must follow the store
	restored, err := New(
		token.NewGateway(e.token, vaultAcc),
		plans.MustNewRegistry(plans.DefaultTerms()),
		str,
		Options{Operator: operator, Now: func() uint64 { return e.clock }},
	)
	require.NoError(t, err)
	defer restored.Close()

	assert.Equal(t, carol, restored.Owner())
	assert.EqualValues(t, 1_000_000, restored.PoolBalance().Int64())
	assert.EqualValues(t, 12_000, restored.TotalStaked().Int64())
	assert.Equal(t, 2, restored.PositionCount())

	info, err := restored.Info(alice, plans.Days90)
	require.NoError(t, err)
	assert.EqualValues(t, 10_000, info.Principal.Int64())
	assert.EqualValues(t, 172, info.FixedReward.Int64())

	// slot order survives the restart
	page, err := restored.Page(0, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, alice, page[0].Owner)
	assert.Equal(t, bob, page[1].Owner)
}
