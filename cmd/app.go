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

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/propertybag/cachestore"
	"github.com/cardinalhq/propertybag/config"
	"github.com/cardinalhq/propertybag/internal/dbopen"
	"github.com/cardinalhq/propertybag/internal/sqlitestore"
	"github.com/cardinalhq/propertybag/schema"
	"github.com/cardinalhq/propertybag/settings"
	"github.com/cardinalhq/propertybag/settingsdb"
)

// app holds the collaborators a command works with.
type app struct {
	cfg     *config.Config
	cache   cachestore.Store
	service *settings.Service
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// openStore opens the configured persisted-row store.
func openStore(ctx context.Context, cfg *config.Config) (settings.Querier, func() error, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		store, err := sqlitestore.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		store, err := settingsdb.Open(ctx, dbopen.WaitForMigrations())
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
}

// openCache builds the configured cache backend, or nil when caching is
// disabled.
func openCache(cfg *config.Config) (cachestore.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cachestore.New(cfg.Cache.StoreConfig())
}

// openApp loads configuration and builds the service. Without withStore
// the service has no persisted-row store and only serves cache flushes.
func openApp(ctx context.Context, withStore bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a := &app{cfg: cfg}

	source, err := schema.NewFileSource(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	var querier settings.Querier
	if withStore {
		q, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		querier = q
		a.closers = append(a.closers, closeStore)
	}

	cache, err := openCache(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	if closer, ok := cache.(cachestore.Closer); ok {
		a.closers = append(a.closers, closer.Close)
	}
	a.cache = cache

	a.service = settings.NewService(querier, source, cache,
		settings.WithCacheEnabled(cfg.Cache.Enabled),
		settings.WithTTL(cfg.Cache.TTL()),
	)
	slog.Debug("Opened settings service",
		slog.String("store", cfg.Store.Driver),
		slog.String("schema", cfg.Schema.Path),
		slog.Bool("cache", cfg.Cache.Enabled))
	return a, nil
}

type appFunc func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error

// runWithApp wraps a command body with telemetry setup and an app opened
// on the configured store.
func runWithApp(fn appFunc) func(*cobra.Command, []string) error {
	return runApp(true, fn)
}

// runWithCache is runWithApp for commands that only touch the cache or
// schema files.
func runWithCache(fn appFunc) func(*cobra.Command, []string) error {
	return runApp(false, fn)
}

func runApp(withStore bool, fn appFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx, doneFx, err := setupTelemetry(servicename)
		if err != nil {
			return fmt.Errorf("failed to setup telemetry: %w", err)
		}
		defer func() {
			if err := doneFx(); err != nil {
				slog.Error("Error shutting down telemetry", slog.Any("error", err))
			}
		}()

		a, err := openApp(ctx, withStore)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, a.Close())
		}()

		return fn(ctx, cmd, a, args)
	}
}
