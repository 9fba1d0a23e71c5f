// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vault

import (
	"context"
	"math/big"

	"github.com/pkg/errors"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/store"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/reverts"
)

// enter takes the reentry latch and the write lock. The latch comes first:
// a nested call from a token callback finds it taken and is rejected before
// it could deadlock on the lock it already holds.
func (v *Vault) enter() error {
	if err := v.latch.Enter(); err != nil {
		return err
	}
	v.mu.Lock()
	return nil
}

func (v *Vault) leave() {
	v.mu.Unlock()
	v.latch.Leave()
}

// Open locks amount under the given plan for caller. The deposit is
// recorded at the balance the vault actually received; the whole-term
// reward is granted against that and must fit the pool up front.
func (v *Vault) Open(ctx context.Context, caller termvault.Address, plan plans.Plan, amount *big.Int) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	if !plan.Valid() {
		return reverts.ErrUnknownPlan
	}
	if amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	if v.auth.IsOwner(caller) {
		return reverts.ErrOperatorDeposit
	}
	if v.ledger.Has(caller, plan) {
		return reverts.ErrPositionExists
	}
	if err := v.pool.Reserve(v.engine.FixedReward(amount, plan)); err != nil {
		return err
	}

	delta, err := v.gateway.Pull(ctx, caller, amount)
	if err != nil {
		return err
	}

	now := v.now()
	fixed := v.engine.FixedReward(delta, plan)
	pos, err := v.ledger.Open(caller, plan, delta, fixed, now)
	if err != nil {
		// unreachable: presence was checked under the latch
		return err
	}

	v.persist(func(b *store.Batch) error {
		if err := b.PutPosition(pos); err != nil {
			return err
		}
		return b.PutTotal(v.ledger.TotalStaked())
	})

	v.noteOp("open")
	logger.Info("deposit opened", "owner", caller, "plan", plan, "amount", delta)
	v.bus.Publish(event.Opened{Owner: caller, Plan: plan, Amount: delta, Timestamp: now})
	return nil
}

// TopUp grows an active deposit. The reward earned so far is carried, the
// accrual clock restarts and the whole-term reward is recomputed over the
// grown principal, which the pool must still cover.
func (v *Vault) TopUp(ctx context.Context, caller termvault.Address, plan plans.Plan, amount *big.Int) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	if !plan.Valid() {
		return reverts.ErrUnknownPlan
	}
	if amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}
	pos, ok := v.ledger.Get(caller, plan)
	if !ok {
		return reverts.ErrNoBalance
	}

	grown := new(big.Int).Add(pos.Principal(), amount)
	if err := v.pool.Reserve(v.engine.FixedReward(grown, plan)); err != nil {
		return err
	}

	delta, err := v.gateway.Pull(ctx, caller, amount)
	if err != nil {
		return err
	}

	now := v.now()
	carry := v.engine.AccruedSince(pos.Principal(), plan, pos.OpenedAt(), now)
	grown = new(big.Int).Add(pos.Principal(), delta)
	fixed := v.engine.FixedReward(grown, plan)

	pos, err = v.ledger.TopUp(caller, plan, delta, carry, fixed, now)
	if err != nil {
		return err
	}

	v.persist(func(b *store.Batch) error {
		if err := b.PutPosition(pos); err != nil {
			return err
		}
		return b.PutTotal(v.ledger.TotalStaked())
	})

	v.noteOp("topup")
	logger.Info("deposit grown", "owner", caller, "plan", plan, "amount", delta, "principal", grown)
	v.bus.Publish(event.Updated{Owner: caller, Plan: plan, Amount: delta, Principal: grown, Timestamp: now})
	return nil
}

// Claim pays the reward due so far and restarts the accrual clock. Fixed
// plans claim at maturity, flexible ones after the plan table's minimum
// hold. The whole-term share stays granted: a position held through
// another full term claims it again.
func (v *Vault) Claim(ctx context.Context, caller termvault.Address, plan plans.Plan) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	if !plan.Valid() {
		return reverts.ErrUnknownPlan
	}
	pos, ok := v.ledger.Get(caller, plan)
	if !ok {
		return reverts.ErrNoBalance
	}
	now := v.now()
	if !v.engine.IsMature(plan, pos.OpenedAt(), now) {
		if plan.IsFlexible() {
			return reverts.ErrMinimumHold
		}
		return reverts.ErrNotMatured
	}

	reward := v.engine.Settle(plan, pos.Principal(), pos.FixedReward(), pos.Accrued(), pos.OpenedAt(), now, v.pool.Balance())

	// the debit is fixed before the cap trims the payout
	v.pool.Debit(reward)
	paid, err := v.clampPayout(ctx, pos.Principal(), reward)
	if err != nil {
		v.pool.Fund(reward)
		return err
	}
	if err := v.gateway.Payout(ctx, caller, paid); err != nil {
		v.pool.Fund(reward)
		return err
	}

	pos, err = v.ledger.ResetAccrual(caller, plan, now)
	if err != nil {
		return err
	}

	v.persist(func(b *store.Batch) error {
		if err := b.PutPosition(pos); err != nil {
			return err
		}
		return b.PutPool(v.pool.Balance())
	})

	v.noteOp("claim")
	logger.Info("reward claimed", "owner", caller, "plan", plan, "reward", paid)
	v.bus.Publish(event.RewardClaimed{Owner: caller, Plan: plan, Reward: paid, Timestamp: now})
	return nil
}

// Exit closes a deposit and pays principal plus whatever reward survives:
// a fixed-plan exit before maturity forfeits the reward, though the pool
// is still debited for it; a flexible exit inside the protocol minimum
// hold is refused outright.
func (v *Vault) Exit(ctx context.Context, caller termvault.Address, plan plans.Plan) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	if !plan.Valid() {
		return reverts.ErrUnknownPlan
	}
	pos, ok := v.ledger.Get(caller, plan)
	if !ok {
		return reverts.ErrNoBalance
	}
	if v.auth.IsOwner(caller) {
		return reverts.ErrOperatorDeposit
	}
	now := v.now()
	if plan.IsFlexible() && now < pos.OpenedAt()+termvault.FlexibleMinHoldSeconds {
		return reverts.ErrMinimumHold
	}

	principal := pos.Principal()
	reward := v.engine.Settle(plan, principal, pos.FixedReward(), pos.Accrued(), pos.OpenedAt(), now, v.pool.Balance())

	// the pool pays for the settlement even when the exit forfeits it
	v.pool.Debit(reward)
	if !plan.IsFlexible() && !v.engine.IsMature(plan, pos.OpenedAt(), now) {
		reward = new(big.Int)
	}
	paid, err := v.clampPayout(ctx, principal, reward)
	if err != nil {
		v.pool.Fund(reward)
		return err
	}
	if err := v.gateway.Payout(ctx, caller, new(big.Int).Add(principal, paid)); err != nil {
		v.pool.Fund(reward)
		return err
	}

	removed, moved, err := v.ledger.Remove(caller, plan)
	if err != nil {
		return err
	}

	v.persist(func(b *store.Batch) error {
		b.DeletePosition(removed.Owner(), removed.Plan())
		if moved != nil {
			if err := b.PutPosition(moved); err != nil {
				return err
			}
		}
		if err := b.PutTotal(v.ledger.TotalStaked()); err != nil {
			return err
		}
		return b.PutPool(v.pool.Balance())
	})

	v.noteOp("exit")
	logger.Info("deposit closed", "owner", caller, "plan", plan, "principal", principal, "reward", paid)
	v.bus.Publish(event.Closed{Owner: caller, Plan: plan, Principal: principal, Reward: paid, Timestamp: now})
	return nil
}

// EmergencyExit returns the principal through the raw token path, giving
// up every reward. The transfer's ok result goes unchecked; only a
// transport failure aborts. No pool debit, no cap, no code probe; the
// escape hatch works even when the safe path is wedged.
func (v *Vault) EmergencyExit(ctx context.Context, caller termvault.Address, plan plans.Plan) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	if !plan.Valid() {
		return reverts.ErrUnknownPlan
	}
	pos, ok := v.ledger.Get(caller, plan)
	if !ok {
		return reverts.ErrNoBalance
	}
	if v.auth.IsOwner(caller) {
		return reverts.ErrOperatorDeposit
	}

	principal := pos.Principal()
	if _, err := v.gateway.Token().Transfer(ctx, caller, principal); err != nil {
		return errors.Wrap(reverts.ErrTransferFailed, err.Error())
	}

	now := v.now()
	removed, moved, err := v.ledger.Remove(caller, plan)
	if err != nil {
		return err
	}

	v.persist(func(b *store.Batch) error {
		b.DeletePosition(removed.Owner(), removed.Plan())
		if moved != nil {
			if err := b.PutPosition(moved); err != nil {
				return err
			}
		}
		return b.PutTotal(v.ledger.TotalStaked())
	})

	v.noteOp("emergency_exit")
	logger.Warn("emergency exit", "owner", caller, "plan", plan, "principal", principal)
	v.bus.Publish(event.EmergencyClosed{Owner: caller, Plan: plan, Principal: principal, Timestamp: now})
	return nil
}

// FundPool pulls amount from the operator into the reward pool. The pool
// grows by what actually arrived.
func (v *Vault) FundPool(ctx context.Context, caller termvault.Address, amount *big.Int) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	if err := v.auth.Require(caller); err != nil {
		return err
	}
	if amount.Sign() <= 0 {
		return reverts.ErrZeroAmount
	}

	delta, err := v.gateway.Pull(ctx, caller, amount)
	if err != nil {
		return err
	}
	v.pool.Fund(delta)

	v.persist(func(b *store.Batch) error {
		return b.PutPool(v.pool.Balance())
	})

	v.noteOp("fund_pool")
	logger.Info("pool funded", "operator", caller, "amount", delta, "balance", v.pool.Balance())
	return nil
}

// TransferOwnership hands the operator role to next.
func (v *Vault) TransferOwnership(caller, next termvault.Address) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	prev, err := v.auth.Transfer(caller, next)
	if err != nil {
		return err
	}

	v.persist(func(b *store.Batch) error {
		return b.PutOwner(next)
	})

	now := v.now()
	v.noteOp("transfer_ownership")
	logger.Info("ownership transferred", "previous", prev, "current", next)
	v.bus.Publish(event.OwnerChanged{Previous: prev, Current: next, Timestamp: now})
	return nil
}

// RenounceOwnership clears the operator role for good; pool funding and
// admin calls are refused from then on.
func (v *Vault) RenounceOwnership(caller termvault.Address) error {
	if err := v.enter(); err != nil {
		return err
	}
	defer v.leave()

	prev, err := v.auth.Renounce(caller)
	if err != nil {
		return err
	}

	v.persist(func(b *store.Batch) error {
		return b.PutOwner(termvault.Address{})
	})

	now := v.now()
	v.noteOp("renounce_ownership")
	logger.Info("ownership renounced", "previous", prev)
	v.bus.Publish(event.OwnerChanged{Previous: prev, Timestamp: now})
	return nil
}

// clampPayout bounds reward to the whale cap over the live total supply.
func (v *Vault) clampPayout(ctx context.Context, principal, reward *big.Int) (*big.Int, error) {
	supply, err := v.gateway.Token().TotalSupply(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "total supply")
	}
	return v.engine.ClampToCap(principal, reward, supply)
}
