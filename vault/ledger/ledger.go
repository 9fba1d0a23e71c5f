// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package ledger keeps the book of active deposits: a dense sequence for
// paging plus a by-key lookup, with each position carrying its slot index so
// removal swaps the tail in at O(1). The sequence therefore has no stable
// order. Mutations keep both views and the principal total in sync.
package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/plans"
	"github.com/termvault/termvault/vault/reverts"
)

type key struct {
	owner termvault.Address
	plan  plans.Plan
}

type Ledger struct {
	seq    []*Position
	lookup map[key]*Position
	total  *big.Int // sum of active principals
}

func New() *Ledger {
	return &Ledger{
		lookup: make(map[key]*Position),
		total:  new(big.Int),
	}
}

// Open adds a position for (owner, plan). A second open for the same key is
// rejected; top-up is the only way to grow an active deposit.
func (l *Ledger) Open(owner termvault.Address, plan plans.Plan, principal, fixedReward *big.Int, now uint64) (*Position, error) {
	k := key{owner, plan}
	if _, ok := l.lookup[k]; ok {
		return nil, reverts.ErrPositionExists
	}

	pos := newPosition(owner, plan, principal, fixedReward, now)
	pos.index = len(l.seq)
	l.seq = append(l.seq, pos)
	l.lookup[k] = pos
	l.total.Add(l.total, pos.body.Principal)
	return pos, nil
}

// TopUp grows an active position by delta, folding carry into its accrued
// reward and replacing the fixed share. The caller computes both from the
// state before the top-up.
func (l *Ledger) TopUp(owner termvault.Address, plan plans.Plan, delta, carry, newFixed *big.Int, now uint64) (*Position, error) {
	pos, ok := l.lookup[key{owner, plan}]
	if !ok {
		return nil, reverts.ErrNoBalance
	}

	pos.topUp(delta, carry, newFixed, now)
	l.total.Add(l.total, delta)
	return pos, nil
}

// ResetAccrual zeroes the carried reward of an active position and restarts
// its accrual clock.
func (l *Ledger) ResetAccrual(owner termvault.Address, plan plans.Plan, now uint64) (*Position, error) {
	pos, ok := l.lookup[key{owner, plan}]
	if !ok {
		return nil, reverts.ErrNoBalance
	}

	pos.resetAccrual(now)
	return pos, nil
}

// Remove closes a position with a swap-remove: the tail of the sequence takes
// the freed slot and its back-pointer follows. The removed position is
// returned for settlement bookkeeping, the swapped-in one (nil when the tail
// itself was removed) so callers can re-persist its new slot.
func (l *Ledger) Remove(owner termvault.Address, plan plans.Plan) (removed, moved *Position, err error) {
	k := key{owner, plan}
	pos, ok := l.lookup[k]
	if !ok {
		return nil, nil, reverts.ErrNoBalance
	}

	last := len(l.seq) - 1
	moved = l.seq[last]
	l.seq[pos.index] = moved
	moved.index = pos.index
	l.seq[last] = nil
	l.seq = l.seq[:last]

	delete(l.lookup, k)
	l.total.Sub(l.total, pos.body.Principal)
	if moved == pos {
		moved = nil
	}
	return pos, moved, nil
}

// Get returns the active position for (owner, plan), if any.
func (l *Ledger) Get(owner termvault.Address, plan plans.Plan) (*Position, bool) {
	pos, ok := l.lookup[key{owner, plan}]
	return pos, ok
}

// Has returns whether (owner, plan) holds an active position.
func (l *Ledger) Has(owner termvault.Address, plan plans.Plan) bool {
	_, ok := l.lookup[key{owner, plan}]
	return ok
}

// Count returns the number of active positions.
func (l *Ledger) Count() int {
	return len(l.seq)
}

// TotalStaked returns the sum of all active principals.
func (l *Ledger) TotalStaked() *big.Int {
	return new(big.Int).Set(l.total)
}

// Page returns the positions in slots [start, end], both inclusive. Bounds
// are checked in order: inverted range, end past the sequence, then the span
// cap. A span over MaxPageSize entries is rejected even when in range.
func (l *Ledger) Page(start, end uint64) ([]*Position, error) {
	if start > end {
		return nil, reverts.ErrPageInverted
	}
	if end >= uint64(len(l.seq)) {
		return nil, reverts.ErrPageOutOfRange
	}
	if end-start+1 > termvault.MaxPageSize {
		return nil, reverts.ErrPageTooLarge
	}
	return append([]*Position(nil), l.seq[start:end+1]...), nil
}

// Restore rebuilds the ledger from persisted positions, assigning slots in
// the order given.
func (l *Ledger) Restore(positions []*Position) error {
	if len(l.seq) != 0 {
		return errors.New("ledger not empty")
	}
	for _, pos := range positions {
		k := key{pos.body.Owner, pos.body.Plan}
		if _, ok := l.lookup[k]; ok {
			return errors.Errorf("duplicate position for %s/%s", pos.body.Owner, pos.body.Plan)
		}
		pos.index = len(l.seq)
		l.seq = append(l.seq, pos)
		l.lookup[k] = pos
		l.total.Add(l.total, pos.body.Principal)
	}
	return nil
}
