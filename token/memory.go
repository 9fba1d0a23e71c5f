// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/termvault/termvault/termvault"
)

// Memory is an in-memory token for solo mode and tests. It acts as one
// caller account (the vault) and can misbehave on demand: decline transfers,
// shave a fee on the way, report no code behind its address, or call a hook
// mid-transfer to simulate a token calling back into the vault.
type Memory struct {
	mu         sync.Mutex
	caller     termvault.Address // the account Transfer debits
	balances   map[termvault.Address]*big.Int
	allowances map[allowanceKey]*big.Int
	supply     *big.Int

	feePermille uint64
	decline     bool
	hasCode     bool
	hook        func()
}

type allowanceKey struct {
	owner, spender termvault.Address
}

var (
	_ Token      = (*Memory)(nil)
	_ CodeProber = (*Memory)(nil)
)

func NewMemory(caller termvault.Address) *Memory {
	return &Memory{
		caller:     caller,
		balances:   make(map[termvault.Address]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
		supply:     new(big.Int),
		hasCode:    true,
	}
}

// Mint credits addr and grows the total supply.
func (m *Memory) Mint(addr termvault.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credit(addr, amount)
	m.supply.Add(m.supply, amount)
}

// Approve lets spender move up to amount from owner's balance.
func (m *Memory) Approve(owner, spender termvault.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allowances[allowanceKey{owner, spender}] = new(big.Int).Set(amount)
}

// Allowance returns what spender may still move from owner's balance.
func (m *Memory) Allowance(owner, spender termvault.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allowances[allowanceKey{owner, spender}]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// SetTransferFee makes every transfer burn the given share per-mille on the
// way, so receivers observe less than the nominal amount.
func (m *Memory) SetTransferFee(permille uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feePermille = permille
}

// DeclineTransfers switches mutators to returning ok=false with no error.
func (m *Memory) DeclineTransfers(decline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decline = decline
}

// SetHasCode controls the code-presence probe result.
func (m *Memory) SetHasCode(has bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasCode = has
}

// SetTransferHook installs fn to run at the start of every mutator, before
// balances settle. Reentrancy tests call back into the vault from here.
func (m *Memory) SetTransferHook(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = fn
}

func (m *Memory) BalanceOf(_ context.Context, holder termvault.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[holder]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (m *Memory) TotalSupply(_ context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.supply), nil
}

func (m *Memory) Transfer(_ context.Context, to termvault.Address, amount *big.Int) (bool, error) {
	m.runHook()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(m.caller, to, amount)
}

func (m *Memory) TransferFrom(_ context.Context, from, to termvault.Address, amount *big.Int) (bool, error) {
	m.runHook()
	m.mu.Lock()
	defer m.mu.Unlock()

	k := allowanceKey{from, m.caller}
	allowed, ok := m.allowances[k]
	if !ok || allowed.Cmp(amount) < 0 {
		return false, errors.New("insufficient allowance")
	}

	moved, err := m.move(from, to, amount)
	if moved {
		allowed.Sub(allowed, amount)
	}
	return moved, err
}

func (m *Memory) HasCode(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasCode, nil
}

// move settles a transfer under the lock. Decline mode answers through the
// ok=false convention, missing balance through the error convention.
func (m *Memory) move(from, to termvault.Address, amount *big.Int) (bool, error) {
	if m.decline {
		return false, nil
	}

	bal, ok := m.balances[from]
	if !ok || bal.Cmp(amount) < 0 {
		return false, errors.New("insufficient balance")
	}

	received := new(big.Int).Set(amount)
	if m.feePermille > 0 {
		fee := new(big.Int).SetUint64(m.feePermille)
		fee.Mul(fee, amount)
		fee.Div(fee, big.NewInt(1000))
		received.Sub(received, fee)
		m.supply.Sub(m.supply, fee) // the fee is burned
	}

	bal.Sub(bal, amount)
	m.credit(to, received)
	return true, nil
}

func (m *Memory) credit(addr termvault.Address, amount *big.Int) {
	if b, ok := m.balances[addr]; ok {
		b.Add(b, amount)
		return
	}
	m.balances[addr] = new(big.Int).Set(amount)
}

func (m *Memory) runHook() {
	m.mu.Lock()
	hook := m.hook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
}
