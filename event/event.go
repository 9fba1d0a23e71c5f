// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package event defines the notifications the vault emits after a state
// change commits, and the bus that fans them out to subscribers.
package event

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
)

// Kind tags an event for filtering and storage.
type Kind string

const (
	KindOpened          Kind = "opened"
	KindUpdated         Kind = "updated"
	KindRewardClaimed   Kind = "reward_claimed"
	KindClosed          Kind = "closed"
	KindEmergencyClosed Kind = "emergency_closed"
	KindOwnerChanged    Kind = "owner_changed"
)

// Kinds lists every kind the vault emits.
func Kinds() []Kind {
	return []Kind{
		KindOpened,
		KindUpdated,
		KindRewardClaimed,
		KindClosed,
		KindEmergencyClosed,
		KindOwnerChanged,
	}
}

// ParseKind converts a string from a query or a stored row back to a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.Errorf("unknown event kind %q", s)
}

// Event is one committed staking notification. Account names the address the
// event is about, which subscribers use to filter their stream.
type Event interface {
	Kind() Kind
	Account() termvault.Address
	Time() uint64
}

// Opened reports a freshly opened deposit. Amount is the balance the vault
// actually received, after any in-flight token fee.
type Opened struct {
	Owner     termvault.Address
	Plan      plans.Plan
	Amount    *big.Int
	Timestamp uint64
}

func (Opened) Kind() Kind                    { return KindOpened }
func (ev Opened) Account() termvault.Address { return ev.Owner }
func (ev Opened) Time() uint64               { return ev.Timestamp }

// Updated reports a top-up. Amount is the received delta, Principal the
// position's principal after it was folded in.
type Updated struct {
	Owner     termvault.Address
	Plan      plans.Plan
	Amount    *big.Int
	Principal *big.Int
	Timestamp uint64
}

func (Updated) Kind() Kind                    { return KindUpdated }
func (ev Updated) Account() termvault.Address { return ev.Owner }
func (ev Updated) Time() uint64               { return ev.Timestamp }

// RewardClaimed reports a mid-term reward payout.
type RewardClaimed struct {
	Owner     termvault.Address
	Plan      plans.Plan
	Reward    *big.Int
	Timestamp uint64
}

func (RewardClaimed) Kind() Kind                    { return KindRewardClaimed }
func (ev RewardClaimed) Account() termvault.Address { return ev.Owner }
func (ev RewardClaimed) Time() uint64               { return ev.Timestamp }

// Closed reports a completed exit. Reward is what was actually paid, zero
// when the exit forfeited.
type Closed struct {
	Owner     termvault.Address
	Plan      plans.Plan
	Principal *big.Int
	Reward    *big.Int
	Timestamp uint64
}

func (Closed) Kind() Kind                    { return KindClosed }
func (ev Closed) Account() termvault.Address { return ev.Owner }
func (ev Closed) Time() uint64               { return ev.Timestamp }

// EmergencyClosed reports a principal-only emergency exit.
type EmergencyClosed struct {
	Owner     termvault.Address
	Plan      plans.Plan
	Principal *big.Int
	Timestamp uint64
}

func (EmergencyClosed) Kind() Kind                    { return KindEmergencyClosed }
func (ev EmergencyClosed) Account() termvault.Address { return ev.Owner }
func (ev EmergencyClosed) Time() uint64               { return ev.Timestamp }

// OwnerChanged reports an operator handover. Current is zero after a
// renounce; Account reports the incoming owner.
type OwnerChanged struct {
	Previous  termvault.Address
	Current   termvault.Address
	Timestamp uint64
}

func (OwnerChanged) Kind() Kind                    { return KindOwnerChanged }
func (ev OwnerChanged) Account() termvault.Address { return ev.Current }
func (ev OwnerChanged) Time() uint64               { return ev.Timestamp }
