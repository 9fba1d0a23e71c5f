// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package guard

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termvault/termvault/vault/reverts"
)

func TestGuard(t *testing.T) {
	var g Guard

	require.NoError(t, g.Enter())
	assert.ErrorIs(t, g.Enter(), reverts.ErrReentrantCall)

	g.Leave()
	assert.NoError(t, g.Enter())
	g.Leave()
}

func TestGuardReleasedOnFailurePath(t *testing.T) {
	var g Guard

	func() {
		require.NoError(t, g.Enter())
		defer g.Leave()
		// operation fails here; the deferred leave still runs
	}()

	assert.NoError(t, g.Enter())
	g.Leave()
}

func TestGuardConcurrentEntry(t *testing.T) {
	var g Guard
	var entered atomic.Int32

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.Enter() == nil {
				entered.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), entered.Load())
}
