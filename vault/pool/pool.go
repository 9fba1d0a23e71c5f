// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/termvault/termvault/vault/reverts"
)

// Pool holds the reward budget deposits settle against. The operator funds
// it up front; settlements debit it without a floor, so the balance is a
// signed quantity. Solvency is enforced as a pre-check on open and top-up,
// not at settlement.
type Pool struct {
	balance *big.Int
}

func New() *Pool {
	return &Pool{balance: new(big.Int)}
}

// NewWithBalance restores a pool at the given balance.
func NewWithBalance(balance *big.Int) *Pool {
	return &Pool{balance: new(big.Int).Set(balance)}
}

// Balance returns the current balance. May be negative.
func (p *Pool) Balance() *big.Int {
	return new(big.Int).Set(p.balance)
}

// Fund credits the pool. The inbound transfer has already settled.
func (p *Pool) Fund(amount *big.Int) {
	p.balance.Add(p.balance, amount)
}

// Reserve checks the pool can cover amount. Nothing is deducted; the check
// only gates accepting a new reward obligation.
func (p *Pool) Reserve(amount *big.Int) error {
	if p.balance.Cmp(amount) < 0 {
		return reverts.ErrInsufficientPool
	}
	return nil
}

// Debit subtracts amount unconditionally.
func (p *Pool) Debit(amount *big.Int) {
	p.balance.Sub(p.balance, amount)
}
