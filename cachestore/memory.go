// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cachestore

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is a process-local Store.
type Memory struct {
	cache *ttlcache.Cache[string, any]
}

var _ Store = (*Memory)(nil)

// NewMemory starts a memory store. Reads do not extend an entry's TTL.
func NewMemory() *Memory {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, any](),
	)
	go cache.Start()
	return &Memory{cache: cache}
}

func (m *Memory) Get(_ context.Context, key string) (any, bool, error) {
	item := m.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) Forget(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.cache.Len()
}

// Close stops the expiry goroutine.
func (m *Memory) Close() error {
	m.cache.Stop()
	return nil
}
