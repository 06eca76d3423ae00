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
	"database/sql"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/propertybag/internal/logctx"
	"github.com/cardinalhq/propertybag/internal/value"
	"github.com/cardinalhq/propertybag/schema"
	"github.com/cardinalhq/propertybag/settingsdb"
)

// Settings is the settings view of one resource instance. It keeps a
// snapshot of the stored overrides, refreshed after every Set.
type Settings struct {
	svc        *Service
	config     *schema.ResourceConfig
	resource   schema.Resource
	registered schema.Schema
	saved      map[string]value.Value
}

// ResourceConfig returns the schema binding of the resource.
func (s *Settings) ResourceConfig() *schema.ResourceConfig {
	return s.config
}

// Registered returns the registered settings of the resource type.
func (s *Settings) Registered() schema.Schema {
	return s.registered
}

// IsRegistered reports whether key is declared in the schema.
func (s *Settings) IsRegistered(key string) bool {
	_, ok := s.registered[key]
	return ok
}

// IsValid reports whether v may be stored under key. Unregistered keys
// and unrepresentable values are never valid. Rule errors are returned.
func (s *Settings) IsValid(key string, v any) (bool, error) {
	rs, ok := s.registered[key]
	if !ok {
		return false, nil
	}
	nv, err := value.Normalize(v)
	if err != nil {
		return false, nil
	}
	return rs.Allows(s.svc.validator, nv)
}

// IsDefault reports whether v is strictly equal to the default of key.
func (s *Settings) IsDefault(key string, v any) bool {
	def, _ := s.Default(key)
	return value.Equal(def, v)
}

// Default returns the default of key.
func (s *Settings) Default(key string) (value.Value, bool) {
	rs, ok := s.registered[key]
	if !ok {
		return nil, false
	}
	return rs.Default, true
}

// Allowed returns the allowed spec of key.
func (s *Settings) Allowed(key string) (schema.AllowedSpec, bool) {
	rs, ok := s.registered[key]
	if !ok {
		return schema.AllowedSpec{}, false
	}
	return rs.Allowed, true
}

// AllDefaults maps every registered key to its default.
func (s *Settings) AllDefaults() map[string]value.Value {
	out := make(map[string]value.Value, len(s.registered))
	for key, rs := range s.registered {
		out[key] = rs.Default
	}
	return out
}

// AllAllowed maps every registered key to its allowed spec.
func (s *Settings) AllAllowed() map[string]schema.AllowedSpec {
	out := make(map[string]schema.AllowedSpec, len(s.registered))
	for key, rs := range s.registered {
		out[key] = rs.Allowed
	}
	return out
}

// AllSaved returns the stored overrides only, without defaults.
func (s *Settings) AllSaved() map[string]value.Value {
	return maps.Clone(s.saved)
}

// IsSaved reports whether key has a stored override.
func (s *Settings) IsSaved(key string) bool {
	_, ok := s.saved[key]
	return ok
}

// Get returns the stored override of key, else its default, else nil for
// unregistered keys.
func (s *Settings) Get(ctx context.Context, key string) (value.Value, error) {
	return remember(ctx, s.svc, s.resource,
		ValueKey(s.resource.ResourceType(), s.resource.ResourceID(), key),
		coerceValue,
		func() (value.Value, error) {
			return s.resolve(key), nil
		})
}

func (s *Settings) resolve(key string) value.Value {
	if v, ok := s.saved[key]; ok {
		return v
	}
	def, _ := s.Default(key)
	return def
}

// All returns every registered key resolved against the stored overrides.
func (s *Settings) All(ctx context.Context) (map[string]value.Value, error) {
	all, err := remember(ctx, s.svc, s.resource,
		AllKey(s.resource.ResourceType(), s.resource.ResourceID()),
		coerceValues,
		func() (map[string]value.Value, error) {
			out := make(map[string]value.Value, len(s.registered))
			for key := range s.registered {
				out[key] = s.resolve(key)
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}
	return maps.Clone(all), nil
}

// KeyIs reports whether Get(key) is strictly equal to v.
func (s *Settings) KeyIs(ctx context.Context, key string, v any) (bool, error) {
	current, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return value.Equal(current, v), nil
}

// Reset stores the default of key and returns it.
func (s *Settings) Reset(ctx context.Context, key string) (value.Value, error) {
	def, _ := s.Default(key)
	if _, err := s.Set(ctx, map[string]any{key: def}); err != nil {
		return nil, err
	}
	return def, nil
}

// Set validates and stores each pair in key order. A value equal to the
// default removes the stored override. The first invalid pair stops the
// batch with *InvalidSettingsValueError; pairs before it stay stored.
// The resource cache is flushed and the snapshot reloaded from the store
// before Set returns.
func (s *Settings) Set(ctx context.Context, attributes map[string]any) (*Settings, error) {
	ctx = logctx.WithResource(ctx, s.resource.ResourceType(), s.resource.ResourceID())
	ctx, span := tracer.Start(ctx, "propertybag.settings.set", trace.WithAttributes(
		attribute.String("resource_type", s.resource.ResourceType()),
		attribute.Int("keys", len(attributes)),
	))
	defer span.End()

	if err := s.setAll(ctx, attributes); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "set failed")
		return nil, err
	}
	return s, nil
}

func (s *Settings) setAll(ctx context.Context, attributes map[string]any) error {
	for _, key := range slices.Sorted(maps.Keys(attributes)) {
		v, err := value.Normalize(attributes[key])
		if err != nil {
			return &InvalidSettingsValueError{Key: key, Err: err}
		}
		if err := s.setKeyValue(ctx, key, v); err != nil {
			return err
		}
	}

	if err := s.svc.flushInstance(ctx, s.resource); err != nil {
		return err
	}
	return s.reload(ctx)
}

func (s *Settings) setKeyValue(ctx context.Context, key string, v value.Value) error {
	valid, err := s.IsValid(key, v)
	if err != nil {
		return err
	}
	if !valid {
		return &InvalidSettingsValueError{Key: key}
	}

	switch {
	case s.IsDefault(key, v) && s.IsSaved(key):
		return s.deleteRecord(ctx, key)
	case s.IsDefault(key, v):
		return nil
	case s.IsSaved(key):
		return s.updateRecord(ctx, key, v)
	default:
		return s.createRecord(ctx, key, v)
	}
}

func (s *Settings) createRecord(ctx context.Context, key string, v value.Value) error {
	encoded, err := value.Encode(v)
	if err != nil {
		return err
	}
	if _, err := s.svc.querier.InsertResourceSetting(ctx, settingsdb.InsertResourceSettingParams{
		ID:           s.svc.newID(),
		ResourceType: s.resource.ResourceType(),
		ResourceID:   s.resource.ResourceID(),
		Key:          key,
		Value:        encoded,
	}); err != nil {
		return err
	}
	recordWrite(ctx, s.resource.ResourceType(), opCreate)
	logctx.FromContext(ctx).Debug("Created setting", slog.String("key", key))
	return s.svc.flushInstance(ctx, s.resource)
}

// updateRecord rewrites the stored row of key, creating it when the
// snapshot was stale and the row is gone.
func (s *Settings) updateRecord(ctx context.Context, key string, v value.Value) error {
	_, err := s.svc.querier.GetResourceSetting(ctx, settingsdb.GetResourceSettingParams{
		ResourceType: s.resource.ResourceType(),
		ResourceID:   s.resource.ResourceID(),
		Key:          key,
	})
	if isNoRows(err) {
		return s.createRecord(ctx, key, v)
	}
	if err != nil {
		return err
	}

	encoded, err := value.Encode(v)
	if err != nil {
		return err
	}
	if _, err := s.svc.querier.UpdateResourceSetting(ctx, settingsdb.UpdateResourceSettingParams{
		ResourceType: s.resource.ResourceType(),
		ResourceID:   s.resource.ResourceID(),
		Key:          key,
		Value:        encoded,
	}); err != nil {
		return err
	}
	recordWrite(ctx, s.resource.ResourceType(), opUpdate)
	logctx.FromContext(ctx).Debug("Updated setting", slog.String("key", key))
	return s.svc.flushInstance(ctx, s.resource)
}

func (s *Settings) deleteRecord(ctx context.Context, key string) error {
	if err := s.svc.querier.DeleteResourceSetting(ctx, settingsdb.DeleteResourceSettingParams{
		ResourceType: s.resource.ResourceType(),
		ResourceID:   s.resource.ResourceID(),
		Key:          key,
	}); err != nil {
		return err
	}
	recordWrite(ctx, s.resource.ResourceType(), opDelete)
	logctx.FromContext(ctx).Debug("Deleted setting", slog.String("key", key))
	return s.svc.flushInstance(ctx, s.resource)
}

// sync reloads the stored overrides through the saved cache entry.
func (s *Settings) sync(ctx context.Context) error {
	saved, err := remember(ctx, s.svc, s.resource,
		SavedKey(s.resource.ResourceType(), s.resource.ResourceID()),
		coerceValues,
		func() (map[string]value.Value, error) {
			return s.svc.loadSaved(ctx, s.resource)
		})
	if err != nil {
		return err
	}
	s.saved = saved
	return nil
}

// reload reads the stored overrides straight from the store after a
// write and caches them under the saved key.
func (s *Settings) reload(ctx context.Context) error {
	saved, err := refresh(ctx, s.svc, s.resource,
		SavedKey(s.resource.ResourceType(), s.resource.ResourceID()),
		func() (map[string]value.Value, error) {
			return s.svc.loadSaved(ctx, s.resource)
		})
	if err != nil {
		return err
	}
	s.saved = saved
	return nil
}

// isNoRows matches the not-found error of both the pgx and the
// database/sql backed stores.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}
