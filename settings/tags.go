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
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/cardinalhq/propertybag/internal/logctx"
	"github.com/cardinalhq/propertybag/schema"
)

// Cache bookkeeping. Every remembered key is recorded in three tracked
// lists (instance, type, global types) so that it can be invalidated
// later. The lists are read-modify-written without locking; a lost update
// leaves an entry that lives until its TTL.

// remember returns the entry cached under key, computing and storing it on
// a miss. The key is tracked before the lookup, hit or miss. Concurrent
// misses on one key share a single computation, and a computation that
// overlapped a flush is returned but not stored. With caching disabled it
// only computes.
func remember[T any](ctx context.Context, svc *Service, res schema.Resource, key string,
	coerce func(any) (T, bool), compute func() (T, error)) (T, error) {
	if !svc.cacheEnabled {
		return compute()
	}

	var zero T

	if err := svc.track(ctx, res, key); err != nil {
		return zero, err
	}

	cached, ok, err := svc.cache.Get(ctx, key)
	if err != nil {
		return zero, err
	}
	if ok {
		if v, ok := coerce(cached); ok {
			recordLookup(ctx, true)
			return v, nil
		}
		logctx.FromContext(ctx).Debug("Discarding unreadable cache entry", slog.String("key", key))
	}

	recordLookup(ctx, false)
	shared, err, _ := svc.loads.Do(key, func() (any, error) {
		generation := svc.flushes.Load()
		v, err := compute()
		if err != nil {
			return nil, err
		}
		if svc.flushes.Load() != generation {
			return v, nil
		}
		if err := svc.cache.Put(ctx, key, v, svc.ttl); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	v, _ := shared.(T)
	return v, nil
}

// refresh computes the entry under key and stores it without consulting
// the cache or joining an in-flight computation. Writers use it to reload
// state that a load started before their write would miss.
func refresh[T any](ctx context.Context, svc *Service, res schema.Resource, key string,
	compute func() (T, error)) (T, error) {
	v, err := compute()
	if err != nil || !svc.cacheEnabled {
		return v, err
	}

	var zero T
	if err := svc.track(ctx, res, key); err != nil {
		return zero, err
	}
	if err := svc.cache.Put(ctx, key, v, svc.ttl); err != nil {
		return zero, err
	}
	return v, nil
}

func (s *Service) track(ctx context.Context, res schema.Resource, key string) error {
	resourceType := res.ResourceType()
	if err := s.appendTracked(ctx, TypeKeysKey(resourceType), key); err != nil {
		return err
	}
	if err := s.appendTracked(ctx, resourceTypesKey, resourceType); err != nil {
		return err
	}
	return s.appendTracked(ctx, InstanceKeysKey(resourceType, res.ResourceID()), key)
}

func (s *Service) trackedList(ctx context.Context, listKey string) ([]string, error) {
	raw, ok, err := s.cache.Get(ctx, listKey)
	if err != nil || !ok {
		return nil, err
	}
	list, ok := coerceStrings(raw)
	if !ok {
		logctx.FromContext(ctx).Debug("Discarding unreadable tracked key list", slog.String("key", listKey))
		return nil, nil
	}
	return list, nil
}

func (s *Service) appendTracked(ctx context.Context, listKey, member string) error {
	list, err := s.trackedList(ctx, listKey)
	if err != nil {
		return err
	}
	if slices.Contains(list, member) {
		return nil
	}
	list = append(slices.Clone(list), member)
	return s.cache.Put(ctx, listKey, list, s.ttl)
}

// rewriteTracked stores list under listKey, or forgets listKey when list
// is empty.
func (s *Service) rewriteTracked(ctx context.Context, listKey string, list []string) error {
	if len(list) == 0 {
		return s.cache.Forget(ctx, listKey)
	}
	return s.cache.Put(ctx, listKey, list, s.ttl)
}

// forgetAll drops keys from the cache. Loads still in flight for those
// keys are detached so later misses start a fresh computation.
func (s *Service) forgetAll(ctx context.Context, keys []string) error {
	s.flushes.Add(1)
	for _, key := range keys {
		s.loads.Forget(key)
		if err := s.cache.Forget(ctx, key); err != nil {
			return err
		}
	}
	recordFlush(ctx, len(keys))
	return nil
}

// without returns the members of list not in drop, keeping order.
func without(list []string, drop mapset.Set[string]) []string {
	var out []string
	for _, key := range list {
		if !drop.Contains(key) {
			out = append(out, key)
		}
	}
	return out
}

// flushInstance forgets every cache entry tracked for one resource
// instance, plus its saved snapshot, and removes those keys from the
// type list.
func (s *Service) flushInstance(ctx context.Context, res schema.Resource) error {
	if !s.cacheEnabled {
		return nil
	}
	resourceType, resourceID := res.ResourceType(), res.ResourceID()
	instanceKey := InstanceKeysKey(resourceType, resourceID)

	tracked, err := s.trackedList(ctx, instanceKey)
	if err != nil {
		return err
	}
	if err := s.forgetAll(ctx, tracked); err != nil {
		return err
	}
	savedKey := SavedKey(resourceType, resourceID)
	s.loads.Forget(savedKey)
	if err := s.cache.Forget(ctx, savedKey); err != nil {
		return err
	}
	if err := s.cache.Forget(ctx, instanceKey); err != nil {
		return err
	}

	typeKey := TypeKeysKey(resourceType)
	typeKeys, err := s.trackedList(ctx, typeKey)
	if err != nil {
		return err
	}
	return s.rewriteTracked(ctx, typeKey, without(typeKeys, mapset.NewThreadUnsafeSet(tracked...)))
}

// FlushCacheForResourceType forgets the tracked cache entries of
// resourceType. With ids, only entries whose resource id segment is one
// of ids are forgotten and the rest stay tracked.
func (s *Service) FlushCacheForResourceType(ctx context.Context, resourceType string, ids ...string) error {
	if !s.cacheEnabled {
		return nil
	}
	typeKey := TypeKeysKey(resourceType)

	all, err := s.trackedList(ctx, typeKey)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		if err := s.forgetAll(ctx, all); err != nil {
			return err
		}
		logctx.FromContext(ctx).Debug("Flushed settings cache for resource type",
			slog.String("resource_type", resourceType),
			slog.Int("keys", len(all)))
		return s.cache.Forget(ctx, typeKey)
	}

	wanted := mapset.NewThreadUnsafeSet(ids...)
	pattern := instancePattern(resourceType)
	forget := mapset.NewThreadUnsafeSet[string]()
	for _, key := range all {
		if m := pattern.FindStringSubmatch(key); m != nil && wanted.Contains(m[1]) {
			forget.Add(key)
		}
	}

	if err := s.forgetAll(ctx, forget.ToSlice()); err != nil {
		return err
	}
	logctx.FromContext(ctx).Debug("Flushed settings cache for resources",
		slog.String("resource_type", resourceType),
		slog.Any("resource_ids", ids),
		slog.Int("keys", forget.Cardinality()))
	return s.rewriteTracked(ctx, typeKey, without(all, forget))
}

// FlushAllCache forgets every tracked cache entry of every resource type.
func (s *Service) FlushAllCache(ctx context.Context) error {
	if !s.cacheEnabled {
		return nil
	}
	resourceTypes, err := s.trackedList(ctx, resourceTypesKey)
	if err != nil {
		return err
	}
	for _, resourceType := range resourceTypes {
		if err := s.FlushCacheForResourceType(ctx, resourceType); err != nil {
			return err
		}
	}
	return s.cache.Forget(ctx, resourceTypesKey)
}
