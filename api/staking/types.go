// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/logdb"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault"
	"github.com/termvault/termvault/vault/plans"
)

// Plan is one row of the plan table.
type Plan struct {
	Plan         plans.Plan `json:"plan"`
	RatePermille uint64     `json:"ratePermille"`
	LockDays     uint64     `json:"lockDays"`
	LockSeconds  uint64     `json:"lockSeconds"`
	Flexible     bool       `json:"flexible"`
}

// Position is a point-in-time view of one deposit. PendingReward is what a
// claim settled now would draw from the pool, before the holding cap.
type Position struct {
	Owner         termvault.Address     `json:"owner"`
	Plan          plans.Plan            `json:"plan"`
	Balance       *math.HexOrDecimal256 `json:"balance"`
	FixedReward   *math.HexOrDecimal256 `json:"fixedReward"`
	Accrued       *math.HexOrDecimal256 `json:"accrued"`
	PendingReward *math.HexOrDecimal256 `json:"pendingReward"`
	OpenedAt      uint64                `json:"openedAt"`
	MaturesAt     uint64                `json:"maturesAt"`
	Active        bool                  `json:"active"`
	Mature        bool                  `json:"mature"`
}

// Balances lists an account's principal per plan, in plan-table order.
type Balances struct {
	Owner    termvault.Address       `json:"owner"`
	Balances []*math.HexOrDecimal256 `json:"balances"`
}

// Total reports the staked principal across every position.
type Total struct {
	Total *math.HexOrDecimal256 `json:"total"`
}

// Count reports the number of active positions.
type Count struct {
	Count int `json:"count"`
}

// PoolStatus reports the reward pool balance. It goes negative when flexible
// settlements outran the funding.
type PoolStatus struct {
	Balance *math.HexOrDecimal256 `json:"balance"`
}

// AmountRequest is the body of open, top-up and pool funding calls.
type AmountRequest struct {
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// OwnerRequest is the body of an ownership handover.
type OwnerRequest struct {
	Caller termvault.Address `json:"caller"`
	Owner  termvault.Address `json:"owner"`
}

// FundRequest is the body of a pool funding call.
type FundRequest struct {
	Caller termvault.Address     `json:"caller"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

// OwnerResponse reports the operator after an admin call.
type OwnerResponse struct {
	Owner termvault.Address `json:"owner"`
}

// LogEntry is one stored notification. Fields a kind does not carry are
// omitted.
type LogEntry struct {
	Seq       uint64                `json:"seq"`
	Event     event.Kind            `json:"event"`
	Owner     termvault.Address     `json:"owner"`
	Plan      *plans.Plan           `json:"plan,omitempty"`
	Amount    *math.HexOrDecimal256 `json:"amount,omitempty"`
	Principal *math.HexOrDecimal256 `json:"principal,omitempty"`
	Reward    *math.HexOrDecimal256 `json:"reward,omitempty"`
	PrevOwner *termvault.Address    `json:"prevOwner,omitempty"`
	Timestamp uint64                `json:"timestamp"`
}

func convertPosition(info *vault.PositionInfo) *Position {
	return &Position{
		Owner:         info.Owner,
		Plan:          info.Plan,
		Balance:       (*math.HexOrDecimal256)(info.Principal),
		FixedReward:   (*math.HexOrDecimal256)(info.FixedReward),
		Accrued:       (*math.HexOrDecimal256)(info.Accrued),
		PendingReward: (*math.HexOrDecimal256)(info.Pending),
		OpenedAt:      info.OpenedAt,
		MaturesAt:     info.MaturesAt,
		Active:        true,
		Mature:        info.Mature,
	}
}

func convertEntry(e *logdb.Entry) *LogEntry {
	return &LogEntry{
		Seq:       e.Seq,
		Event:     e.Kind,
		Owner:     e.Owner,
		Plan:      e.Plan,
		Amount:    (*math.HexOrDecimal256)(e.Amount),
		Principal: (*math.HexOrDecimal256)(e.Principal),
		Reward:    (*math.HexOrDecimal256)(e.Reward),
		PrevOwner: e.PrevOwner,
		Timestamp: e.Time,
	}
}
