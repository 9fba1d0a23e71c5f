// Copyright (c) 2025 The TermVault developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// messageCache shares encoded payloads between subscribers, so an event
// delivered to a hundred connections is marshaled once. The mutex is not
// guarding the cache, which locks internally, but keeps concurrent misses
// on the same key from encoding twice.
type messageCache struct {
	cache *lru.Cache
	mu    sync.RWMutex
}

func newMessageCache(size int) *messageCache {
	if size < 1 {
		size = 1
	}
	cache, err := lru.New(size)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(fmt.Errorf("failed to create message cache: %v", err))
	}
	return &messageCache{
		cache: cache,
	}
}

// GetOrAdd returns the payload stored under key, generating and caching it
// on a miss. The second return value reports whether the payload is newly
// generated.
func (mc *messageCache) GetOrAdd(key string, createMessage func() ([]byte, error)) ([]byte, bool, error) {
	mc.mu.RLock()
	msg, ok := mc.cache.Get(key)
	mc.mu.RUnlock()
	if ok {
		return msg.([]byte), false, nil
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	msg, ok = mc.cache.Get(key)
	if ok {
		return msg.([]byte), false, nil
	}

	msg, err := createMessage()
	if err != nil {
		return nil, false, err
	}
	mc.cache.Add(key, msg)
	return msg.([]byte), true, nil
}
