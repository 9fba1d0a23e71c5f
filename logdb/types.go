// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

import (
	"math/big"

	"github.com/termvault/termvault/event"
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
)

// Entry is one committed notification as stored. Fields a kind does not
// carry stay nil: Plan on ownership changes, PrevOwner everywhere else,
// and whichever amounts the kind leaves unset.
type Entry struct {
	Seq       uint64
	Kind      event.Kind
	Owner     termvault.Address
	Plan      *plans.Plan
	Amount    *big.Int // balance received (open, top-up delta)
	Principal *big.Int
	Reward    *big.Int
	PrevOwner *termvault.Address
	Time      uint64
}

// newEntry flattens a bus event into its stored form. Seq is assigned by
// the database.
func newEntry(ev event.Event) *Entry {
	entry := &Entry{
		Kind:  ev.Kind(),
		Owner: ev.Account(),
		Time:  ev.Time(),
	}
	switch ev := ev.(type) {
	case event.Opened:
		plan := ev.Plan
		entry.Plan = &plan
		entry.Amount = ev.Amount
	case event.Updated:
		plan := ev.Plan
		entry.Plan = &plan
		entry.Amount = ev.Amount
		entry.Principal = ev.Principal
	case event.RewardClaimed:
		plan := ev.Plan
		entry.Plan = &plan
		entry.Reward = ev.Reward
	case event.Closed:
		plan := ev.Plan
		entry.Plan = &plan
		entry.Principal = ev.Principal
		entry.Reward = ev.Reward
	case event.EmergencyClosed:
		plan := ev.Plan
		entry.Plan = &plan
		entry.Principal = ev.Principal
	case event.OwnerChanged:
		prev := ev.Previous
		entry.PrevOwner = &prev
	}
	return entry
}

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range bounds entries by commit time, in unix seconds, both ends included.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter narrows a query. Nil members match everything.
type Filter struct {
	Owner   *termvault.Address
	Kind    *event.Kind
	Range   *Range
	Options *Options
	Order   Order // default asc
}
