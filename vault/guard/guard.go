// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package guard

import (
	"sync/atomic"

	"github.com/termvault/termvault/vault/reverts"
)

// Guard is the latch taken around every mutating vault call. A call arriving
// while another is still in flight (the token calling back into the vault
// mid-transfer) is rejected, never queued. The zero value is ready to use.
type Guard struct {
	busy atomic.Bool
}

// Enter takes the latch or rejects the call.
func (g *Guard) Enter() error {
	if !g.busy.CompareAndSwap(false, true) {
		return reverts.ErrReentrantCall
	}
	return nil
}

// Leave releases the latch. Callers defer it so failed operations release
// too.
func (g *Guard) Leave() {
	g.busy.Store(false)
}
