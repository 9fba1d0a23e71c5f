// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
)

// Position is one active deposit. At most one exists per (owner, plan);
// presence in the ledger is what makes a deposit active.
type Position struct {
	body  body
	index int // slot in the dense sequence, maintained on swap-remove
}

// body is the persisted part of a position.
type body struct {
	Owner       termvault.Address
	Plan        plans.Plan
	Principal   *big.Int
	FixedReward *big.Int // whole-term reward granted at open; zero for flexible
	Accrued     *big.Int // reward carried across clock resets, not yet paid
	OpenedAt    uint64   // unix seconds of the last accrual clock reset
}

func newPosition(owner termvault.Address, plan plans.Plan, principal, fixedReward *big.Int, now uint64) *Position {
	return &Position{
		body: body{
			Owner:       owner,
			Plan:        plan,
			Principal:   new(big.Int).Set(principal),
			FixedReward: new(big.Int).Set(fixedReward),
			Accrued:     new(big.Int),
			OpenedAt:    now,
		},
	}
}

func (p *Position) Owner() termvault.Address {
	return p.body.Owner
}

func (p *Position) Plan() plans.Plan {
	return p.body.Plan
}

func (p *Position) Principal() *big.Int {
	return new(big.Int).Set(p.body.Principal)
}

func (p *Position) FixedReward() *big.Int {
	return new(big.Int).Set(p.body.FixedReward)
}

func (p *Position) Accrued() *big.Int {
	return new(big.Int).Set(p.body.Accrued)
}

func (p *Position) OpenedAt() uint64 {
	return p.body.OpenedAt
}

// Index returns the position's slot in the dense sequence. It changes when a
// removal swaps the tail in.
func (p *Position) Index() int {
	return p.index
}

// topUp folds the already-earned reward into Accrued, grows the principal and
// restarts the accrual clock under the recomputed fixed share.
func (p *Position) topUp(delta, carry, newFixed *big.Int, now uint64) {
	p.body.Accrued.Add(p.body.Accrued, carry)
	p.body.Principal.Add(p.body.Principal, delta)
	p.body.FixedReward = new(big.Int).Set(newFixed)
	p.body.OpenedAt = now
}

// resetAccrual zeroes the carried reward and restarts the accrual clock. The
// fixed share stays: it is granted per term held, not once.
func (p *Position) resetAccrual(now uint64) {
	p.body.Accrued = new(big.Int)
	p.body.OpenedAt = now
}

// EncodeRLP implements rlp.Encoder.
func (p *Position) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &p.body)
}

// DecodeRLP implements rlp.Decoder.
func (p *Position) DecodeRLP(s *rlp.Stream) error {
	return s.Decode(&p.body)
}
