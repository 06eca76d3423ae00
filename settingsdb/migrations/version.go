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

package migrations

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/propertybag/migrations"
)

// CheckVersion verifies that the settings database is at the migration
// version embedded in this binary. SETTINGSDB_MIGRATION_CHECK_ENABLED=false
// turns the check off.
func CheckVersion(ctx context.Context, pool *pgxpool.Pool, options ...migrations.CheckOption) error {
	if val := os.Getenv("SETTINGSDB_MIGRATION_CHECK_ENABLED"); val != "" && strings.ToLower(val) != "true" {
		slog.Debug("Migration version checking disabled for settingsdb")
		return nil
	}

	opts := migrations.Resolve(options...)
	if opts.Mode == migrations.CheckModeSkip {
		slog.Debug("Migration version checking skipped for settingsdb")
		return nil
	}

	expected, err := LatestVersion(migrationFiles)
	if err != nil {
		return fmt.Errorf("failed to extract expected migration version for settingsdb: %w", err)
	}

	return waitForVersion(ctx, expected, opts, func() (uint, bool, error) {
		return currentVersion(pool)
	})
}

// waitForVersion polls current until it reports expected, honoring the
// check mode.
func waitForVersion(ctx context.Context, expected uint, opts migrations.CheckOptions, current func() (uint, bool, error)) error {
	deadline := time.Now().Add(opts.Timeout)
	ticker := time.NewTicker(opts.RetryInterval)
	defer ticker.Stop()

	for {
		version, dirty, err := current()
		if err != nil {
			return fmt.Errorf("failed to get current migration version for settingsdb: %w", err)
		}

		if dirty && !opts.AllowDirty {
			return errors.New("database settingsdb migration is in dirty state, please fix before proceeding")
		}

		if version == expected {
			slog.Info("Migration version check passed",
				slog.String("database", "settingsdb"),
				slog.Uint64("version", uint64(version)))
			return nil
		}

		mismatch := fmt.Errorf("database settingsdb version %d does not match expected version %d", version, expected)
		if opts.Mode == migrations.CheckModeWarn {
			slog.Warn("Migration version mismatch, continuing",
				slog.String("database", "settingsdb"),
				slog.Uint64("current_version", uint64(version)),
				slog.Uint64("expected_version", uint64(expected)))
			return nil
		}

		if version > expected {
			return fmt.Errorf("%w - you may need to update the application", mismatch)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for settingsdb migration: %w", mismatch)
		}

		slog.Info("Waiting for migrations to complete",
			slog.String("database", "settingsdb"),
			slog.Uint64("current_version", uint64(version)),
			slog.Uint64("expected_version", uint64(expected)),
			slog.Duration("remaining_timeout", time.Until(deadline)))

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for settingsdb migrations: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func currentVersion(pool *pgxpool.Pool) (uint, bool, error) {
	m, closeFn, err := newMigrate(pool)
	if err != nil {
		return 0, false, err
	}
	defer closeFn()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, dirty, nil
}

// LatestVersion returns the highest "<version>_<name>.up.sql" version in fsys.
func LatestVersion(fsys fs.ReadDirFS) (uint, error) {
	entries, err := fsys.ReadDir(".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var maxVersion uint
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		if uint(version) > maxVersion {
			maxVersion = uint(version)
		}
	}

	if maxVersion == 0 {
		return 0, errors.New("no valid migration files found")
	}
	return maxVersion, nil
}
