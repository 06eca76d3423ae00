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
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/propertybag/cachestore"
	"github.com/cardinalhq/propertybag/internal/value"
	"github.com/cardinalhq/propertybag/schema"
	"github.com/cardinalhq/propertybag/settingsdb"
)

func newMemory(t *testing.T) *cachestore.Memory {
	t.Helper()
	m := cachestore.NewMemory()
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func trackedKeys(t *testing.T, cache cachestore.Store, listKey string) []string {
	t.Helper()
	raw, ok, err := cache.Get(context.Background(), listKey)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	list, ok := coerceStrings(raw)
	require.True(t, ok)
	return list
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, `property_bag:App\Models\User:1:status`, ValueKey(userType, "1", "status"))
	assert.Equal(t, `property_bag:App\Models\User:1:all`, AllKey(userType, "1"))
	assert.Equal(t, `property_bag:App\Models\User:1:saved`, SavedKey(userType, "1"))
	assert.Equal(t, `property_bag:keys:App\Models\User:1`, InstanceKeysKey(userType, "1"))
	assert.Equal(t, `property_bag:keys:App\Models\User`, TypeKeysKey(userType))
	assert.Equal(t, "property_bag:resource_types", resourceTypesKey)
}

func TestInstancePattern(t *testing.T) {
	p := instancePattern(`App\Models\User`)

	m := p.FindStringSubmatch(ValueKey(userType, "17", "status"))
	require.NotNil(t, m)
	assert.Equal(t, "17", m[1])

	m = p.FindStringSubmatch(SavedKey(userType, "9b2c-uuid"))
	require.NotNil(t, m)
	assert.Equal(t, "9b2c-uuid", m[1])

	assert.Nil(t, p.FindStringSubmatch(ValueKey(`App\Models\UserGroup`, "17", "status")))
	assert.Nil(t, p.FindStringSubmatch(ValueKey("AppXModels\\User", "17", "status")))
}

func TestRememberTracksKeys(t *testing.T) {
	ctx := context.Background()
	svc, _, cache := newTestService()

	st, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	_, err = st.Get(ctx, "status")
	require.NoError(t, err)
	_, err = st.All(ctx)
	require.NoError(t, err)

	want := []string{SavedKey(userType, "1"), ValueKey(userType, "1", "status"), AllKey(userType, "1")}
	assert.Equal(t, want, trackedKeys(t, cache, InstanceKeysKey(userType, "1")))
	assert.Equal(t, want, trackedKeys(t, cache, TypeKeysKey(userType)))
	assert.Equal(t, []string{userType}, trackedKeys(t, cache, resourceTypesKey))

	// A second lookup is a hit and does not duplicate tracking.
	_, err = st.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, want, trackedKeys(t, cache, InstanceKeysKey(userType, "1")))
}

func TestCacheServesStaleUntilFlushed(t *testing.T) {
	ctx := context.Background()
	svc, q, _ := newTestService()

	st, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	_, err = st.Set(ctx, map[string]any{"status": "active"})
	require.NoError(t, err)
	got, err := st.Get(ctx, "status")
	require.NoError(t, err)
	require.Equal(t, "active", got)

	// A write that bypasses the engine is invisible until a flush.
	_, err = q.UpdateResourceSetting(ctx, settingsdb.UpdateResourceSettingParams{
		ResourceType: userType,
		ResourceID:   "1",
		Key:          "status",
		Value:        json.RawMessage(`["inactive"]`),
	})
	require.NoError(t, err)

	again, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	got, err = again.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "active", got)

	require.NoError(t, svc.FlushCacheForResourceType(ctx, userType, "1"))

	again, err = svc.For(ctx, user("1"))
	require.NoError(t, err)
	got, err = again.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "inactive", got)
}

func TestSetFlushesInstanceOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, cache := newTestService()

	one, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	two, err := svc.For(ctx, user("2"))
	require.NoError(t, err)
	_, err = one.Get(ctx, "status")
	require.NoError(t, err)
	_, err = two.Get(ctx, "status")
	require.NoError(t, err)

	_, err = one.Set(ctx, map[string]any{"volume": 3})
	require.NoError(t, err)

	assert.False(t, cache.has(ValueKey(userType, "1", "status")))
	assert.True(t, cache.has(ValueKey(userType, "2", "status")))
	assert.True(t, cache.has(SavedKey(userType, "2")))

	typeKeys := trackedKeys(t, cache, TypeKeysKey(userType))
	assert.Contains(t, typeKeys, ValueKey(userType, "2", "status"))
	assert.NotContains(t, typeKeys, ValueKey(userType, "1", "status"))
}

func TestFlushCacheForResourceType_ByID(t *testing.T) {
	ctx := context.Background()
	svc, q, cache := newTestService()

	one, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	two, err := svc.For(ctx, user("2"))
	require.NoError(t, err)
	_, err = two.Set(ctx, map[string]any{"status": "active"})
	require.NoError(t, err)
	_, err = one.Get(ctx, "status")
	require.NoError(t, err)
	_, err = two.Get(ctx, "status")
	require.NoError(t, err)

	require.NoError(t, svc.FlushCacheForResourceType(ctx, userType, "1"))

	assert.False(t, cache.has(ValueKey(userType, "1", "status")))
	assert.False(t, cache.has(SavedKey(userType, "1")))
	assert.True(t, cache.has(ValueKey(userType, "2", "status")))

	typeKeys := trackedKeys(t, cache, TypeKeysKey(userType))
	assert.NotContains(t, typeKeys, ValueKey(userType, "1", "status"))
	assert.Contains(t, typeKeys, ValueKey(userType, "2", "status"))

	// id2 stays reachable and correct.
	fresh, err := svc.For(ctx, user("2"))
	require.NoError(t, err)
	got, err := fresh.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "active", got)

	listed := q.listCalls.Load()
	fresh, err = svc.For(ctx, user("1"))
	require.NoError(t, err)
	got, err = fresh.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "inactive", got)
	assert.Equal(t, listed+1, q.listCalls.Load(), "flushed snapshot reloads from the store")
}

func TestFlushCacheForResourceType_All(t *testing.T) {
	ctx := context.Background()
	svc, _, cache := newTestService()

	for _, id := range []string{"1", "2"} {
		st, err := svc.For(ctx, user(id))
		require.NoError(t, err)
		_, err = st.All(ctx)
		require.NoError(t, err)
	}
	comment, err := svc.For(ctx, schema.Ref{Type: commentType, ID: "1"})
	require.NoError(t, err)
	_, err = comment.Get(ctx, "pinned")
	require.NoError(t, err)

	require.NoError(t, svc.FlushCacheForResourceType(ctx, userType))

	assert.False(t, cache.has(AllKey(userType, "1")))
	assert.False(t, cache.has(AllKey(userType, "2")))
	assert.False(t, cache.has(TypeKeysKey(userType)))
	assert.True(t, cache.has(ValueKey(commentType, "1", "pinned")))
}

func TestFlushAllCache(t *testing.T) {
	ctx := context.Background()
	svc, _, cache := newTestService()

	st, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	_, err = st.Get(ctx, "status")
	require.NoError(t, err)
	comment, err := svc.For(ctx, schema.Ref{Type: commentType, ID: "7"})
	require.NoError(t, err)
	_, err = comment.All(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.FlushAllCache(ctx))

	for _, key := range []string{
		ValueKey(userType, "1", "status"),
		SavedKey(userType, "1"),
		AllKey(commentType, "7"),
		SavedKey(commentType, "7"),
		TypeKeysKey(userType),
		TypeKeysKey(commentType),
		resourceTypesKey,
	} {
		assert.False(t, cache.has(key), key)
	}
}

func TestFileBackendCoercion(t *testing.T) {
	ctx := context.Background()
	file, err := cachestore.NewFile(t.TempDir())
	require.NoError(t, err)
	svc := NewService(newMockQuerier(), testSource(), file)

	st, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	_, err = st.Set(ctx, map[string]any{"volume": 7, "ratio": 1.0, "flag": true})
	require.NoError(t, err)

	// Warm the cache, then read everything back through a fresh engine.
	_, err = st.All(ctx)
	require.NoError(t, err)
	_, err = st.Get(ctx, "volume")
	require.NoError(t, err)

	fresh, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	assert.Equal(t, map[string]value.Value{"volume": int64(7), "ratio": 1.0, "flag": true}, fresh.AllSaved())

	got, err := fresh.Get(ctx, "volume")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	all, err := fresh.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, all["ratio"])
	assert.Equal(t, "inactive", all["status"])

	assert.Equal(t, []string{userType}, trackedKeys(t, file, resourceTypesKey))
	require.NoError(t, svc.FlushAllCache(ctx))
	_, ok, err := file.Get(ctx, AllKey(userType, "1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnreadableCacheEntryIsRecomputed(t *testing.T) {
	ctx := context.Background()
	svc, _, cache := newTestService()

	require.NoError(t, cache.Put(ctx, AllKey(userType, "1"), "garbage", 0))
	require.NoError(t, cache.Put(ctx, InstanceKeysKey(userType, "1"), 42, 0))

	st, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	all, err := st.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "inactive", all["status"])
}

func TestCoerce(t *testing.T) {
	v, ok := coerceValue(uint64(3))
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)
	_, ok = coerceValue([]int{1})
	assert.False(t, ok)

	m, ok := coerceValues(map[string]any{"a": uint8(1), "b": "x"})
	assert.True(t, ok)
	assert.Equal(t, map[string]value.Value{"a": int64(1), "b": "x"}, m)
	_, ok = coerceValues(map[string]any{"a": []int{1}})
	assert.False(t, ok)
	_, ok = coerceValues("x")
	assert.False(t, ok)

	list, ok := coerceStrings([]any{"a", "b"})
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, list)
	_, ok = coerceStrings([]any{"a", 1})
	assert.False(t, ok)
	list, ok = coerceStrings(nil)
	assert.True(t, ok)
	assert.Nil(t, list)
}

// stallingQuerier holds one ListResourceSettings call, after it has read
// the rows, until release is closed.
type stallingQuerier struct {
	*mockQuerier
	stall   atomic.Bool
	stalled chan struct{}
	release chan struct{}
}

func (q *stallingQuerier) ListResourceSettings(ctx context.Context, arg settingsdb.ListResourceSettingsParams) ([]settingsdb.PropertyBag, error) {
	rows, err := q.mockQuerier.ListResourceSettings(ctx, arg)
	if q.stall.CompareAndSwap(true, false) {
		close(q.stalled)
		<-q.release
	}
	return rows, err
}

func TestSet_ReloadIgnoresLoadStartedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	q := &stallingQuerier{
		mockQuerier: newMockQuerier(),
		stalled:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc := NewService(q, testSource(), newMemory(t))

	writer, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	require.NoError(t, svc.FlushCacheForResourceType(ctx, userType))

	var once sync.Once
	release := func() { once.Do(func() { close(q.release) }) }
	defer release()
	timer := time.AfterFunc(5*time.Second, release)
	defer timer.Stop()

	q.stall.Store(true)
	readerDone := make(chan error, 1)
	go func() {
		_, err := svc.For(ctx, user("1"))
		readerDone <- err
	}()
	<-q.stalled

	_, err = writer.Set(ctx, map[string]any{"status": "active"})
	require.NoError(t, err)

	_, stored := q.row(userType, "1", "status")
	assert.True(t, stored)
	assert.True(t, writer.IsSaved("status"))
	got, err := writer.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "active", got)

	release()
	require.NoError(t, <-readerDone)

	// The stalled load finished after the write; it must not have
	// repopulated the saved entry with the old rows.
	later, err := svc.For(ctx, user("1"))
	require.NoError(t, err)
	got, err = later.Get(ctx, "status")
	require.NoError(t, err)
	assert.Equal(t, "active", got)
	assert.True(t, later.IsSaved("status"))
}
