// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package event

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
)

// Bus fans committed events out to subscribers. Publish never blocks the
// publisher; delivery happens on its own goroutine and waits for every
// subscriber channel, so subscribers must keep draining or unsubscribe.
// Close is required to be called at end.
type Bus struct {
	feed  event.FeedOf[Event]
	scope event.SubscriptionScope
	wg    sync.WaitGroup
}

// Subscribe registers ch to receive every published event. Unsubscribing
// through the returned subscription stops delivery.
func (b *Bus) Subscribe(ch chan Event) event.Subscription {
	return b.scope.Track(b.feed.Subscribe(ch))
}

// Publish hands ev to all current subscribers.
func (b *Bus) Publish(ev Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.feed.Send(ev)
	}()
}

// Close unsubscribes everyone and waits for in-flight deliveries to land.
func (b *Bus) Close() {
	b.scope.Close()
	b.wg.Wait()
}
