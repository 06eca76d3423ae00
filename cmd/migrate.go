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
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/propertybag/config"
	"github.com/cardinalhq/propertybag/internal/sqlitestore"
	"github.com/cardinalhq/propertybag/settingsdb"
)

func init() {
	rootCmd.AddCommand(MigrateCmd)
}

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  "Create or upgrade the property_bag table of the configured store",
	RunE:  migrate,
}

func migrate(_ *cobra.Command, _ []string) error {
	ctx, doneFx, err := setupTelemetry(servicename)
	if err != nil {
		return err
	}
	defer func() { _ = doneFx() }()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithDeadline(ctx, time.Now().Add(5*time.Minute))
	defer cancel()

	switch cfg.Store.Driver {
	case config.StoreDriverSQLite:
		slog.Info("Running sqlite migrations", slog.String("path", cfg.Store.SQLitePath))
		store, err := sqlitestore.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		return store.Close()
	default:
		slog.Info("Running settingsdb migrations")
		if err := settingsdb.Migrate(ctx); err != nil {
			return err
		}
		slog.Info("settingsdb migrations completed successfully")
		return nil
	}
}
