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

// Package cachestore is the cache backend the settings engine writes
// through. Backends are selected by name; every backend is a plain
// string-keyed store with a per-entry TTL.
//
// # Backends
//
//   - "memory": process-local, backed by ttlcache. The default.
//   - "file": one CBOR file per key under a directory, shared by every
//     process that points at the same directory.
//
// Values are whatever the caller put in for the memory backend. The file
// backend round-trips through CBOR, so slices come back as []any, maps
// as map[string]any and integers as int64.
package cachestore

import (
	"context"
	"fmt"
	"time"
)

// Store is a string-keyed cache with TTLs. A ttl <= 0 keeps the entry
// until it is forgotten.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Put(ctx context.Context, key string, value any, ttl time.Duration) error
	Forget(ctx context.Context, key string) error
}

// Closer is implemented by backends holding background resources.
type Closer interface {
	Close() error
}

const (
	BackendMemory = "memory"
	BackendFile   = "file"
)

// Config selects and configures a backend.
type Config struct {
	Store string `mapstructure:"store"`
	Dir   string `mapstructure:"dir"`
}

// New builds the backend named by cfg.Store. An empty name selects the
// memory backend.
func New(cfg Config) (Store, error) {
	switch cfg.Store {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendFile:
		if cfg.Dir == "" {
			return nil, fmt.Errorf("cache store %q requires a directory", cfg.Store)
		}
		return NewFile(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown cache store: %s", cfg.Store)
	}
}
