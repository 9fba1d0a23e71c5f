// Copyright (c) 2025 The TermVault developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>
package termvault

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())

	// without 0x prefix
	addr, err = ParseAddress("7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.NoError(t, err)
	assert.False(t, addr.IsZero())

	_, err = ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ff")
	assert.Error(t, err)

	_, err = ParseAddress("zz7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	original := `"0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"`

	var addr Address
	err := json.Unmarshal([]byte(original), &addr)
	assert.NoError(t, err)

	marshaled, err := json.Marshal(&addr)
	assert.NoError(t, err)
	assert.Equal(t, original, string(marshaled))
}

func TestBytesToAddress(t *testing.T) {
	assert.Equal(t, MustParseAddress("0x0000000000000000000000000000000000012345"), BytesToAddress([]byte{0x1, 0x23, 0x45}))
	assert.True(t, Address{}.IsZero())
}
