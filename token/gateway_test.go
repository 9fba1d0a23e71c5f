// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/reverts"
)

var (
	vaultAddr = termvault.BytesToAddress([]byte("vault"))
	userAddr  = termvault.BytesToAddress([]byte("user"))
)

func newFundedMemory(t *testing.T, balance int64) *Memory {
	t.Helper()
	mem := NewMemory(vaultAddr)
	mem.Mint(userAddr, big.NewInt(balance))
	mem.Approve(userAddr, vaultAddr, big.NewInt(balance))
	return mem
}

func TestPullObservesDelta(t *testing.T) {
	mem := newFundedMemory(t, 1000)
	gw := NewGateway(mem, vaultAddr)

	delta, err := gw.Pull(context.Background(), userAddr, big.NewInt(400))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), delta)

	got, err := mem.BalanceOf(context.Background(), vaultAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(400), got)

	// the allowance is consumed
	assert.Equal(t, big.NewInt(600), mem.Allowance(userAddr, vaultAddr))
}

func TestPullAbsorbsTransferFee(t *testing.T) {
	mem := newFundedMemory(t, 1000)
	mem.SetTransferFee(100) // 10% burned in flight
	gw := NewGateway(mem, vaultAddr)

	delta, err := gw.Pull(context.Background(), userAddr, big.NewInt(500))
	require.NoError(t, err)

	// the ledger learns what arrived, not what was sent
	assert.Equal(t, big.NewInt(450), delta)

	supply, err := mem.TotalSupply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(950), supply)
}

func TestPullFailureConventions(t *testing.T) {
	// convention one: ok=false, no error
	mem := newFundedMemory(t, 1000)
	mem.DeclineTransfers(true)
	gw := NewGateway(mem, vaultAddr)

	_, err := gw.Pull(context.Background(), userAddr, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrTransferFailed)

	// convention two: error with a remote reason
	mem = NewMemory(vaultAddr)
	mem.Mint(userAddr, big.NewInt(10))
	mem.Approve(userAddr, vaultAddr, big.NewInt(5))
	gw = NewGateway(mem, vaultAddr)

	_, err = gw.Pull(context.Background(), userAddr, big.NewInt(7))
	assert.ErrorIs(t, err, reverts.ErrTransferFailed)
	assert.Contains(t, err.Error(), "insufficient allowance")
}

func TestPullRejectsNonContract(t *testing.T) {
	mem := newFundedMemory(t, 1000)
	mem.SetHasCode(false)
	gw := NewGateway(mem, vaultAddr)

	_, err := gw.Pull(context.Background(), userAddr, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrNotContract)
}

func TestPullRejectsEmptyDelta(t *testing.T) {
	mem := newFundedMemory(t, 1000)
	mem.SetTransferFee(1000) // everything burned in flight
	gw := NewGateway(mem, vaultAddr)

	_, err := gw.Pull(context.Background(), userAddr, big.NewInt(100))
	assert.ErrorIs(t, err, reverts.ErrTransferFailed)
	assert.Contains(t, err.Error(), "moved no balance")
}

func TestPayout(t *testing.T) {
	mem := NewMemory(vaultAddr)
	mem.Mint(vaultAddr, big.NewInt(1000))
	gw := NewGateway(mem, vaultAddr)

	require.NoError(t, gw.Payout(context.Background(), userAddr, big.NewInt(250)))

	got, err := mem.BalanceOf(context.Background(), userAddr)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(250), got)

	// no delta accounting outbound: a shaving token shorts the recipient
	mem.SetTransferFee(100)
	require.NoError(t, gw.Payout(context.Background(), userAddr, big.NewInt(100)))
	got, _ = mem.BalanceOf(context.Background(), userAddr)
	assert.Equal(t, big.NewInt(340), got)
}

func TestPayoutZeroSkipsToken(t *testing.T) {
	mem := NewMemory(vaultAddr)
	mem.DeclineTransfers(true) // would fail any real call
	gw := NewGateway(mem, vaultAddr)

	assert.NoError(t, gw.Payout(context.Background(), userAddr, new(big.Int)))
}

func TestPayoutFailure(t *testing.T) {
	mem := NewMemory(vaultAddr)
	gw := NewGateway(mem, vaultAddr)

	// vault holds nothing
	err := gw.Payout(context.Background(), userAddr, big.NewInt(10))
	assert.ErrorIs(t, err, reverts.ErrTransferFailed)
	assert.Contains(t, err.Error(), "insufficient balance")
}

func TestTransferHookRunsBeforeSettlement(t *testing.T) {
	mem := newFundedMemory(t, 1000)
	gw := NewGateway(mem, vaultAddr)

	var observed *big.Int
	mem.SetTransferHook(func() {
		b, err := mem.BalanceOf(context.Background(), vaultAddr)
		require.NoError(t, err)
		observed = b
	})

	_, err := gw.Pull(context.Background(), userAddr, big.NewInt(100))
	require.NoError(t, err)
	assert.Equal(t, new(big.Int), observed)
}
