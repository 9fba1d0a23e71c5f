// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termvault/termvault/termvault"
	"github.com/termvault/termvault/vault/reverts"
)

func TestAuthority(t *testing.T) {
	alice := termvault.BytesToAddress([]byte("alice"))
	bob := termvault.BytesToAddress([]byte("bob"))

	a := New(alice)
	assert.True(t, a.IsOwner(alice))
	assert.False(t, a.IsOwner(bob))
	assert.NoError(t, a.Require(alice))
	assert.ErrorIs(t, a.Require(bob), reverts.ErrNotOwner)

	// only the owner can hand over
	_, err := a.Transfer(bob, bob)
	assert.ErrorIs(t, err, reverts.ErrNotOwner)

	_, err = a.Transfer(alice, termvault.Address{})
	assert.Error(t, err)

	prev, err := a.Transfer(alice, bob)
	require.NoError(t, err)
	assert.Equal(t, alice, prev)
	assert.Equal(t, bob, a.Owner())
	assert.ErrorIs(t, a.Require(alice), reverts.ErrNotOwner)
}

func TestRenounce(t *testing.T) {
	alice := termvault.BytesToAddress([]byte("alice"))

	a := New(alice)
	prev, err := a.Renounce(alice)
	require.NoError(t, err)
	assert.Equal(t, alice, prev)

	// nobody is the owner afterwards, not even the zero address
	assert.True(t, a.Owner().IsZero())
	assert.ErrorIs(t, a.Require(alice), reverts.ErrNotOwner)
	assert.ErrorIs(t, a.Require(termvault.Address{}), reverts.ErrNotOwner)
}
