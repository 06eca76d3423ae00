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

package settings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cardinalhq/propertybag/cachestore"
	"github.com/cardinalhq/propertybag/schema"
	"github.com/cardinalhq/propertybag/settingsdb"
)

type rowKey struct {
	resourceType string
	resourceID   string
	key          string
}

// mockQuerier keeps rows in memory and counts calls.
type mockQuerier struct {
	mu   sync.Mutex
	rows map[rowKey]settingsdb.PropertyBag

	listCalls   atomic.Int32
	getCalls    atomic.Int32
	insertCalls atomic.Int32
	updateCalls atomic.Int32
	deleteCalls atomic.Int32

	insertErr error
}

var _ Querier = (*mockQuerier)(nil)

func newMockQuerier() *mockQuerier {
	return &mockQuerier{rows: map[rowKey]settingsdb.PropertyBag{}}
}

func (m *mockQuerier) ListResourceSettings(_ context.Context, arg settingsdb.ListResourceSettingsParams) ([]settingsdb.PropertyBag, error) {
	m.listCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []settingsdb.PropertyBag
	for k, row := range m.rows {
		if k.resourceType == arg.ResourceType && k.resourceID == arg.ResourceID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockQuerier) GetResourceSetting(_ context.Context, arg settingsdb.GetResourceSettingParams) (settingsdb.PropertyBag, error) {
	m.getCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey{arg.ResourceType, arg.ResourceID, arg.Key}]
	if !ok {
		return settingsdb.PropertyBag{}, pgx.ErrNoRows
	}
	return row, nil
}

func (m *mockQuerier) InsertResourceSetting(_ context.Context, arg settingsdb.InsertResourceSettingParams) (settingsdb.PropertyBag, error) {
	m.insertCalls.Add(1)
	if m.insertErr != nil {
		return settingsdb.PropertyBag{}, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rowKey{arg.ResourceType, arg.ResourceID, arg.Key}
	if _, exists := m.rows[k]; exists {
		return settingsdb.PropertyBag{}, errors.New("duplicate key value violates unique constraint")
	}
	now := time.Now()
	row := settingsdb.PropertyBag{
		ID:           arg.ID,
		ResourceType: arg.ResourceType,
		ResourceID:   arg.ResourceID,
		Key:          arg.Key,
		Value:        arg.Value,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.rows[k] = row
	return row, nil
}

func (m *mockQuerier) UpdateResourceSetting(_ context.Context, arg settingsdb.UpdateResourceSettingParams) (settingsdb.PropertyBag, error) {
	m.updateCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	k := rowKey{arg.ResourceType, arg.ResourceID, arg.Key}
	row, ok := m.rows[k]
	if !ok {
		return settingsdb.PropertyBag{}, pgx.ErrNoRows
	}
	row.Value = arg.Value
	row.UpdatedAt = time.Now()
	m.rows[k] = row
	return row, nil
}

func (m *mockQuerier) DeleteResourceSetting(_ context.Context, arg settingsdb.DeleteResourceSettingParams) error {
	m.deleteCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rowKey{arg.ResourceType, arg.ResourceID, arg.Key})
	return nil
}

func (m *mockQuerier) row(resourceType, resourceID, key string) (settingsdb.PropertyBag, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[rowKey{resourceType, resourceID, key}]
	return row, ok
}

func (m *mockQuerier) count(resourceType, resourceID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.rows {
		if k.resourceType == resourceType && k.resourceID == resourceID {
			n++
		}
	}
	return n
}

// countingCache wraps a store and counts calls.
type countingCache struct {
	cachestore.Store
	gets    atomic.Int32
	puts    atomic.Int32
	forgets atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, key string) (any, bool, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, key)
}

func (c *countingCache) Put(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.puts.Add(1)
	return c.Store.Put(ctx, key, v, ttl)
}

func (c *countingCache) Forget(ctx context.Context, key string) error {
	c.forgets.Add(1)
	return c.Store.Forget(ctx, key)
}

func (c *countingCache) has(key string) bool {
	_, ok, _ := c.Store.Get(context.Background(), key)
	return ok
}

const (
	userType    = `App\Models\User`
	commentType = `App\Models\Comment`
)

func testSource() schema.StaticSource {
	return schema.StaticSource{
		userType: schema.MustNew(
			schema.RegisteredSetting{Key: "status", Allowed: schema.Literal("active", "inactive"), Default: "inactive"},
			schema.RegisteredSetting{Key: "flag", Allowed: schema.Literal(true, false, "true", "false", 0, 1, "0", "1"), Default: false},
			schema.RegisteredSetting{Key: "volume", Allowed: schema.RuleSpec("range=0,10"), Default: 5},
			schema.RegisteredSetting{Key: "ratio", Allowed: schema.RuleSpec("numeric"), Default: 0.5},
			schema.RegisteredSetting{Key: "broken", Allowed: schema.RuleSpec("nope"), Default: "x"},
		),
		commentType: schema.MustNew(
			schema.RegisteredSetting{Key: "pinned", Allowed: schema.Literal(true, false), Default: false},
		),
	}
}

func newTestService(opts ...Option) (*Service, *mockQuerier, *countingCache) {
	q := newMockQuerier()
	cache := &countingCache{Store: cachestore.NewMemory()}
	return NewService(q, testSource(), cache, opts...), q, cache
}
