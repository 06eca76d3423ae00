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

package testhelpers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/propertybag/internal/dbopen"
	"github.com/cardinalhq/propertybag/settingsdb"
	settingsdbmigrations "github.com/cardinalhq/propertybag/settingsdb/migrations"
)

// SetupTestSettingsDB creates a clean database with migrations applied on
// the server described by the SETTINGSDB_* environment. The database is
// dropped by t.Cleanup.
func SetupTestSettingsDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	dbName := fmt.Sprintf("test_settingsdb_%d_%d", time.Now().Unix(), rand.Intn(10000))

	baseConnStr, err := dbopen.GetDatabaseURLFromEnv(settingsdb.EnvPrefix)
	if err != nil {
		t.Fatalf("Settings database is not configured: %v", err)
	}
	testConnStr, err := withDatabase(baseConnStr, dbName)
	if err != nil {
		t.Fatalf("Invalid settings database URL: %v", err)
	}

	basePool, err := pgxpool.New(ctx, baseConnStr)
	if err != nil {
		t.Fatalf("Failed to connect to base database: %v", err)
	}

	_, err = basePool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName))
	if err != nil {
		basePool.Close()
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}

	testPool, err := settingsdb.NewConnectionPool(ctx, testConnStr)
	if err != nil {
		basePool.Close()
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := settingsdbmigrations.RunMigrationsUp(ctx, testPool); err != nil {
		testPool.Close()
		basePool.Close()
		t.Fatalf("Failed to run settingsdb migrations: %v", err)
	}

	t.Cleanup(func() {
		testPool.Close()

		_, err := basePool.Exec(context.Background(), fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
		if err != nil {
			slog.Error("Failed to drop test database", slog.String("dbName", dbName), slog.Any("error", err))
		}

		basePool.Close()
	})

	return testPool
}

// NewTestSettingsStore returns a Store over a fresh test database.
func NewTestSettingsStore(t *testing.T) *settingsdb.Store {
	t.Helper()
	return settingsdb.NewStore(SetupTestSettingsDB(t))
}

// withDatabase returns connStr pointing at database name.
func withDatabase(connStr, name string) (string, error) {
	u, err := url.Parse(connStr)
	if err != nil {
		return "", err
	}
	u.Path = "/" + name
	return u.String(), nil
}
