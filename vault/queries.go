// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"math/big"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/ledger"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/reverts"
)

// PositionInfo is a point-in-time snapshot of one deposit. Pending is what
// a claim settled at snapshot time would be debited from the pool, before
// the holding cap.
type PositionInfo struct {
	Owner       termvault.Address
	Plan        plans.Plan
	Principal   *big.Int
	FixedReward *big.Int
	Accrued     *big.Int
	OpenedAt    uint64
	MaturesAt   uint64
	Mature      bool
	Pending     *big.Int
}

func (v *Vault) snapshot(pos *ledger.Position, now uint64, poolBalance *big.Int) *PositionInfo {
	plan := pos.Plan()
	return &PositionInfo{
		Owner:       pos.Owner(),
		Plan:        plan,
		Principal:   pos.Principal(),
		FixedReward: pos.FixedReward(),
		Accrued:     pos.Accrued(),
		OpenedAt:    pos.OpenedAt(),
		MaturesAt:   v.engine.MaturesAt(plan, pos.OpenedAt()),
		Mature:      v.engine.IsMature(plan, pos.OpenedAt(), now),
		Pending:     v.engine.Settle(plan, pos.Principal(), pos.FixedReward(), pos.Accrued(), pos.OpenedAt(), now, poolBalance),
	}
}

// Owner returns the current operator, zero after a renounce.
func (v *Vault) Owner() termvault.Address {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.auth.Owner()
}

// PoolBalance returns the reward pool balance. May be negative.
func (v *Vault) PoolBalance() *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pool.Balance()
}

// TotalStaked returns the sum of all locked principal.
func (v *Vault) TotalStaked() *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ledger.TotalStaked()
}

// PositionCount returns the number of open deposits.
func (v *Vault) PositionCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ledger.Count()
}

// IsActive reports whether owner holds a deposit under plan.
func (v *Vault) IsActive(owner termvault.Address, plan plans.Plan) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ledger.Has(owner, plan)
}

// Balance returns the locked principal of owner under plan, zero when no
// deposit is open.
func (v *Vault) Balance(owner termvault.Address, plan plans.Plan) *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pos, ok := v.ledger.Get(owner, plan)
	if !ok {
		return new(big.Int)
	}
	return pos.Principal()
}

// AllBalances returns owner's locked principal across every plan, indexed
// by plan.
func (v *Vault) AllBalances(owner termvault.Address) [plans.Count]*big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var out [plans.Count]*big.Int
	for i, plan := range plans.All() {
		if pos, ok := v.ledger.Get(owner, plan); ok {
			out[i] = pos.Principal()
		} else {
			out[i] = new(big.Int)
		}
	}
	return out
}

// IsMature reports whether owner's deposit under plan has passed its lock
// term, or for Flexible its minimum hold window.
func (v *Vault) IsMature(owner termvault.Address, plan plans.Plan) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !plan.Valid() {
		return false, reverts.ErrUnknownPlan
	}
	pos, ok := v.ledger.Get(owner, plan)
	if !ok {
		return false, reverts.ErrNoBalance
	}
	return v.engine.IsMature(plan, pos.OpenedAt(), v.now()), nil
}

// PendingReward previews what a claim settled now would pay, before the
// holding cap. The pool is not touched.
func (v *Vault) PendingReward(owner termvault.Address, plan plans.Plan) (*big.Int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !plan.Valid() {
		return nil, reverts.ErrUnknownPlan
	}
	pos, ok := v.ledger.Get(owner, plan)
	if !ok {
		return nil, reverts.ErrNoBalance
	}
	return v.engine.Settle(plan, pos.Principal(), pos.FixedReward(), pos.Accrued(), pos.OpenedAt(), v.now(), v.pool.Balance()), nil
}

// Info returns the full snapshot of owner's deposit under plan.
func (v *Vault) Info(owner termvault.Address, plan plans.Plan) (*PositionInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !plan.Valid() {
		return nil, reverts.ErrUnknownPlan
	}
	pos, ok := v.ledger.Get(owner, plan)
	if !ok {
		return nil, reverts.ErrNoBalance
	}
	return v.snapshot(pos, v.now(), v.pool.Balance()), nil
}

// Page snapshots the deposits in slots [start, end], both inclusive.
func (v *Vault) Page(start, end uint64) ([]*PositionInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	positions, err := v.ledger.Page(start, end)
	if err != nil {
		return nil, err
	}
	now := v.now()
	poolBalance := v.pool.Balance()
	out := make([]*PositionInfo, len(positions))
	for i, pos := range positions {
		out[i] = v.snapshot(pos, now, poolBalance)
	}
	return out, nil
}
