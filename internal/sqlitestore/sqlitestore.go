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

// Package sqlitestore keeps property bag rows in an embedded SQLite
// database. It serves the same queries as settingsdb.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cardinalhq/propertybag/settingsdb"
)

const driverName = "sqlite"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS property_bag (
  id            TEXT    PRIMARY KEY,
  resource_type TEXT    NOT NULL,
  resource_id   TEXT    NOT NULL,
  key           TEXT    NOT NULL,
  value         TEXT    NOT NULL,
  created_at    INTEGER NOT NULL,
  updated_at    INTEGER NOT NULL,
  UNIQUE (resource_type, resource_id, key)
);
CREATE INDEX IF NOT EXISTS property_bag_resource_idx
  ON property_bag (resource_type, resource_id);
`

const columns = `id, resource_type, resource_id, key, value, created_at, updated_at`

// Store implements settingsdb.Querier on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ settingsdb.Querier = (*Store)(nil)

// Open opens (creating when needed) the database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(row rowScanner) (settingsdb.PropertyBag, error) {
	var (
		item      settingsdb.PropertyBag
		id, value string
		created   int64
		updated   int64
	)
	if err := row.Scan(&id, &item.ResourceType, &item.ResourceID, &item.Key, &value, &created, &updated); err != nil {
		return settingsdb.PropertyBag{}, err
	}
	if err := item.ID.UnmarshalText([]byte(id)); err != nil {
		return settingsdb.PropertyBag{}, fmt.Errorf("invalid property_bag id %q: %w", id, err)
	}
	item.Value = []byte(value)
	item.CreatedAt = time.Unix(0, created).UTC()
	item.UpdatedAt = time.Unix(0, updated).UTC()
	return item, nil
}

func (s *Store) ListResourceSettings(ctx context.Context, arg settingsdb.ListResourceSettingsParams) ([]settingsdb.PropertyBag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM property_bag WHERE resource_type = ? AND resource_id = ? ORDER BY key`,
		arg.ResourceType, arg.ResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []settingsdb.PropertyBag
	for rows.Next() {
		item, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetResourceSetting(ctx context.Context, arg settingsdb.GetResourceSettingParams) (settingsdb.PropertyBag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM property_bag WHERE resource_type = ? AND resource_id = ? AND key = ?`,
		arg.ResourceType, arg.ResourceID, arg.Key)
	return scanRow(row)
}

func (s *Store) InsertResourceSetting(ctx context.Context, arg settingsdb.InsertResourceSettingParams) (settingsdb.PropertyBag, error) {
	now := s.now().UnixNano()
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO property_bag (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING `+columns,
		arg.ID.String(), arg.ResourceType, arg.ResourceID, arg.Key, string(arg.Value), now, now)
	return scanRow(row)
}

func (s *Store) UpdateResourceSetting(ctx context.Context, arg settingsdb.UpdateResourceSettingParams) (settingsdb.PropertyBag, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE property_bag SET value = ?, updated_at = ? WHERE resource_type = ? AND resource_id = ? AND key = ? RETURNING `+columns,
		string(arg.Value), s.now().UnixNano(), arg.ResourceType, arg.ResourceID, arg.Key)
	return scanRow(row)
}

func (s *Store) DeleteResourceSetting(ctx context.Context, arg settingsdb.DeleteResourceSettingParams) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM property_bag WHERE resource_type = ? AND resource_id = ? AND key = ?`,
		arg.ResourceType, arg.ResourceID, arg.Key)
	return err
}
