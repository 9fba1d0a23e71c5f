// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auth

import (
	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/reverts"
)

// Authority tracks the operator entitled to fund the reward pool and manage
// ownership. A renounced authority has the zero owner and admits nobody.
type Authority struct {
	owner termvault.Address
}

func New(owner termvault.Address) *Authority {
	return &Authority{owner: owner}
}

func (a *Authority) Owner() termvault.Address {
	return a.owner
}

// IsOwner returns whether addr is the current operator.
func (a *Authority) IsOwner(addr termvault.Address) bool {
	if a.owner.IsZero() {
		return false
	}
	return a.owner == addr
}

// Require rejects callers other than the current operator.
func (a *Authority) Require(caller termvault.Address) error {
	if !a.IsOwner(caller) {
		return reverts.ErrNotOwner
	}
	return nil
}

// Transfer hands the operator role to next, effective immediately. The zero
// address is refused; renouncing is explicit.
func (a *Authority) Transfer(caller, next termvault.Address) (termvault.Address, error) {
	if err := a.Require(caller); err != nil {
		return termvault.Address{}, err
	}
	if next.IsZero() {
		return termvault.Address{}, reverts.New("new owner is the zero address")
	}
	prev := a.owner
	a.owner = next
	return prev, nil
}

// Renounce clears the operator role for good.
func (a *Authority) Renounce(caller termvault.Address) (termvault.Address, error) {
	if err := a.Require(caller); err != nil {
		return termvault.Address{}, err
	}
	prev := a.owner
	a.owner = termvault.Address{}
	return prev, nil
}
