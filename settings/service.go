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
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cardinalhq/propertybag/cachestore"
	"github.com/cardinalhq/propertybag/internal/logctx"
	"github.com/cardinalhq/propertybag/internal/value"
	"github.com/cardinalhq/propertybag/rules"
	"github.com/cardinalhq/propertybag/schema"
	"github.com/cardinalhq/propertybag/settingsdb"
)

// DefaultTTL is how long cache entries live unless WithTTL says otherwise.
const DefaultTTL = 24 * time.Hour

// Querier is the persisted-row store the engine reads and writes.
type Querier interface {
	ListResourceSettings(ctx context.Context, arg settingsdb.ListResourceSettingsParams) ([]settingsdb.PropertyBag, error)
	GetResourceSetting(ctx context.Context, arg settingsdb.GetResourceSettingParams) (settingsdb.PropertyBag, error)
	InsertResourceSetting(ctx context.Context, arg settingsdb.InsertResourceSettingParams) (settingsdb.PropertyBag, error)
	UpdateResourceSetting(ctx context.Context, arg settingsdb.UpdateResourceSettingParams) (settingsdb.PropertyBag, error)
	DeleteResourceSetting(ctx context.Context, arg settingsdb.DeleteResourceSettingParams) error
}

// Option configures a Service.
type Option func(*Service)

// WithValidator replaces the built-in rule registry.
func WithValidator(v rules.Validator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// WithCacheEnabled turns caching on or off. It has no effect without a
// cache store.
func WithCacheEnabled(enabled bool) Option {
	return func(s *Service) {
		s.cacheEnabled = enabled
	}
}

// WithTTL sets the lifetime of cache entries and tracked key lists.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// Service holds the collaborators shared by every resource's Settings and
// performs the cache flushes that span resources.
type Service struct {
	querier      Querier
	source       schema.Source
	cache        cachestore.Store
	validator    rules.Validator
	cacheEnabled bool
	ttl          time.Duration
	newID        func() uuid.UUID
	linted       sync.Map
	loads        singleflight.Group
	flushes      atomic.Uint64
}

// NewService creates a Service. A nil cache disables caching.
func NewService(querier Querier, source schema.Source, cache cachestore.Store, opts ...Option) *Service {
	s := &Service{
		querier:      querier,
		source:       source,
		cache:        cache,
		validator:    rules.NewRegistry(),
		cacheEnabled: true,
		ttl:          DefaultTTL,
		newID:        uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cacheEnabled = false
	}
	return s
}

// CacheEnabled reports whether lookups go through the cache.
func (s *Service) CacheEnabled() bool {
	return s.cacheEnabled
}

// For loads the settings of resource. It fails with
// *schema.ResourceNotFoundError when the resource type has no schema.
func (s *Service) For(ctx context.Context, resource schema.Resource) (*Settings, error) {
	ctx = logctx.WithResource(ctx, resource.ResourceType(), resource.ResourceID())

	config, err := schema.NewResourceConfig(ctx, s.source, resource)
	if err != nil {
		return nil, err
	}
	s.lint(ctx, resource.ResourceType(), config.RegisteredSettings())

	st := &Settings{
		svc:        s,
		config:     config,
		resource:   resource,
		registered: config.RegisteredSettings(),
	}
	if err := st.sync(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// lint logs defaults that their own allowed spec rejects, once per type.
func (s *Service) lint(ctx context.Context, resourceType string, registered schema.Schema) {
	if _, seen := s.linted.LoadOrStore(resourceType, struct{}{}); seen {
		return
	}
	for _, issue := range registered.Lint(s.validator) {
		logctx.FromContext(ctx).Warn("Settings default rejected by its allowed values",
			slog.String("key", issue.Key),
			slog.Any("error", issue.Err))
	}
}

// loadSaved reads the stored overrides of res.
func (s *Service) loadSaved(ctx context.Context, res schema.Resource) (map[string]value.Value, error) {
	rows, err := s.querier.ListResourceSettings(ctx, settingsdb.ListResourceSettingsParams{
		ResourceType: res.ResourceType(),
		ResourceID:   res.ResourceID(),
	})
	if err != nil {
		return nil, err
	}
	saved := make(map[string]value.Value, len(rows))
	for _, row := range rows {
		v, err := value.Decode(row.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored setting %q: %w", row.Key, err)
		}
		saved[row.Key] = v
	}
	return saved, nil
}
