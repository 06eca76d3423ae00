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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cardinalhq/propertybag/cachestore"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config aggregates configuration for the application.
type Config struct {
	Cache  CacheConfig  `mapstructure:"cache"`
	Schema SchemaConfig `mapstructure:"schema"`
	Store  StoreConfig  `mapstructure:"store"`
}

// CacheConfig controls the settings cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Duration is the entry lifetime in seconds.
	Duration int    `mapstructure:"duration"`
	Store    string `mapstructure:"store"`
	Dir      string `mapstructure:"dir"`
}

// TTL returns Duration as a time.Duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.Duration) * time.Second
}

// StoreConfig selects the cache backend.
func (c CacheConfig) StoreConfig() cachestore.Config {
	return cachestore.Config{Store: c.Store, Dir: c.Dir}
}

// SchemaConfig locates the settings schema documents. Path is a directory
// or "env:VAR".
type SchemaConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig selects where stored settings live.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled:  true,
			Duration: 86400,
			Dir:      filepath.Join(os.TempDir(), "propertybag-cache"),
		},
		Schema: SchemaConfig{
			Path: "./settings",
		},
		Store: StoreConfig{
			Driver:     StoreDriverPostgres,
			SQLitePath: "propertybag.db",
		},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "PROPERTYBAG" and the dot character
// in keys is replaced by an underscore. For example, "cache.duration"
// becomes "PROPERTYBAG_CACHE_DURATION".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("propertybag")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PROPERTYBAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.Cache.Duration < 0 {
		return fmt.Errorf("cache.duration must not be negative, got %d", c.Cache.Duration)
	}
	switch c.Store.Driver {
	case StoreDriverPostgres:
	case StoreDriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the %s driver", StoreDriverSQLite)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
