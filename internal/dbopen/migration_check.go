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

package dbopen

import "github.com/cardinalhq/propertybag/migrations"

// Options controls how a connection checks the schema version.
type Options struct {
	MigrationCheckOptions []migrations.CheckOption
}

// SkipMigrationCheck connects without checking the schema version.
func SkipMigrationCheck() Options {
	return Options{MigrationCheckOptions: []migrations.CheckOption{
		migrations.WithCheckMode(migrations.CheckModeSkip),
	}}
}

// WarnOnMigrationMismatch logs a version mismatch and continues.
func WarnOnMigrationMismatch() Options {
	return Options{MigrationCheckOptions: []migrations.CheckOption{
		migrations.WithCheckMode(migrations.CheckModeWarn),
	}}
}

// WaitForMigrations blocks until the schema reaches the expected version.
func WaitForMigrations() Options {
	return Options{MigrationCheckOptions: []migrations.CheckOption{
		migrations.WithCheckMode(migrations.CheckModeWait),
	}}
}

// CheckOptions returns the migration options of the first element of
// opts, or nil.
func CheckOptions(opts ...Options) []migrations.CheckOption {
	if len(opts) == 0 {
		return nil
	}
	return opts[0].MigrationCheckOptions
}
