// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package accrual computes deposit rewards over the plan table. All math is
// integer math on token base units; every division truncates toward zero.
package accrual

import (
	"math/big"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/reverts"
)

var (
	// rate is per-mille per year, so a whole-term reward divides by 1000*365
	// when counting days and by 1000*365*86400 when counting seconds.
	fixedDenominator   = new(big.Int).SetUint64(termvault.RateDenominator * termvault.DaysPerYear)
	accruedDenominator = new(big.Int).SetUint64(termvault.RateDenominator * termvault.SecondsPerYear)
)

// Engine derives reward amounts from principal, plan and elapsed time. It is
// stateless; the vault owns all balances.
type Engine struct {
	plans      *plans.Registry
	capPercent uint64 // share of total token supply one account may hold after a payout
}

func New(plans *plans.Registry, capPercent uint64) *Engine {
	return &Engine{
		plans:      plans,
		capPercent: capPercent,
	}
}

// FixedReward returns the whole-term reward granted the moment a fixed-plan
// deposit opens: principal * rate * lockDays / (1000 * 365). Flexible
// deposits earn by elapsed time only, their fixed share is zero.
func (e *Engine) FixedReward(principal *big.Int, plan plans.Plan) *big.Int {
	if plan.IsFlexible() {
		return new(big.Int)
	}
	term := e.plans.Term(plan)
	x := new(big.Int).SetUint64(term.LockDays)
	x.Mul(x, new(big.Int).SetUint64(term.Rate))
	x.Mul(x, principal)
	return x.Div(x, fixedDenominator)
}

// Accrued returns the time-prorated reward earned over elapsed seconds:
// principal * rate * elapsed / (1000 * 31536000). For fixed plans elapsed
// stops counting at maturity; flexible deposits accrue open-ended.
func (e *Engine) Accrued(principal *big.Int, plan plans.Plan, elapsed uint64) *big.Int {
	if !plan.IsFlexible() {
		if lock := e.plans.LockSeconds(plan); elapsed > lock {
			elapsed = lock
		}
	}
	if elapsed == 0 {
		return new(big.Int)
	}
	x := new(big.Int).SetUint64(elapsed)
	x.Mul(x, new(big.Int).SetUint64(e.plans.Rate(plan)))
	x.Mul(x, principal)
	return x.Div(x, accruedDenominator)
}

// AccruedSince is Accrued over the wall-clock interval from openedAt to now.
// A clock reading at or before openedAt yields zero.
func (e *Engine) AccruedSince(principal *big.Int, plan plans.Plan, openedAt, now uint64) *big.Int {
	if now <= openedAt {
		return new(big.Int)
	}
	return e.Accrued(principal, plan, now-openedAt)
}

// Settle returns the reward claimable right now by a deposit: the share fixed
// at open plus everything carried into accrued by clock resets, plus, for
// flexible deposits, the live term since the last reset. The live term is
// capped to the pool balance rather than failing the claim.
func (e *Engine) Settle(plan plans.Plan, principal, fixedReward, accrued *big.Int, openedAt, now uint64, poolBalance *big.Int) *big.Int {
	claimable := new(big.Int).Add(fixedReward, accrued)
	if plan.IsFlexible() {
		live := e.AccruedSince(principal, plan, openedAt, now)
		if live.Cmp(poolBalance) > 0 {
			live.Set(poolBalance)
			if live.Sign() < 0 {
				live.SetUint64(0)
			}
		}
		claimable.Add(claimable, live)
	}
	return claimable
}

// HoldingCap returns the largest balance a single account may hold after a
// payout: capPercent of the token's total issued supply.
func (e *Engine) HoldingCap(totalSupply *big.Int) *big.Int {
	x := new(big.Int).SetUint64(e.capPercent)
	x.Mul(x, totalSupply)
	return x.Div(x, big.NewInt(100))
}

// ClampToCap bounds reward so that principal+reward stays within the holding
// cap. The reward is silently reduced; a principal already at or above the
// cap rejects the call instead.
func (e *Engine) ClampToCap(principal, reward, totalSupply *big.Int) (*big.Int, error) {
	limit := e.HoldingCap(totalSupply)
	if principal.Cmp(limit) >= 0 {
		return nil, reverts.ErrHoldingCap
	}
	headroom := new(big.Int).Sub(limit, principal)
	if reward.Cmp(headroom) > 0 {
		return headroom, nil
	}
	return new(big.Int).Set(reward), nil
}

// MaturesAt returns the unix time a deposit opened at openedAt can claim or
// exit: the lock term for fixed plans, the minimum hold window for Flexible.
func (e *Engine) MaturesAt(plan plans.Plan, openedAt uint64) uint64 {
	return openedAt + e.plans.LockSeconds(plan)
}

// IsMature returns whether the deposit has passed its maturity.
func (e *Engine) IsMature(plan plans.Plan, openedAt, now uint64) bool {
	return now >= e.MaturesAt(plan, openedAt)
}
