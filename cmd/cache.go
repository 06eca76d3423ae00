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
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/propertybag/cachestore"
)

var (
	flushType string
	flushIDs  []string
	flushAll  bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the settings cache",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Forget cached settings of a resource type, some of its resources, or everything",
	Long:  "Flushes the shared file cache. The memory cache lives inside each process and is rejected.",
	Args:  cobra.NoArgs,
	RunE: runWithCache(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		if !a.service.CacheEnabled() {
			slog.Info("Settings cache is disabled, nothing to flush")
			return nil
		}
		if _, ok := a.cache.(*cachestore.File); !ok {
			return fmt.Errorf("cache store %q is local to each process and cannot be flushed from the command line", cacheStoreName(a))
		}
		switch {
		case flushAll:
			if err := a.service.FlushAllCache(ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "flushed all settings caches")
			return err
		case flushType != "":
			if err := a.service.FlushCacheForResourceType(ctx, flushType, flushIDs...); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "flushed settings cache for %s\n", flushType)
			return err
		default:
			return fmt.Errorf("either --type or --all is required")
		}
	}),
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired and unreadable entries from the file cache",
	Args:  cobra.NoArgs,
	RunE: runWithCache(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
		file, ok := a.cache.(*cachestore.File)
		if !ok {
			return fmt.Errorf("cache store %q cannot be pruned", cacheStoreName(a))
		}
		removed, err := file.Prune(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache entries\n", removed)
		return err
	}),
}

func cacheStoreName(a *app) string {
	if a.cfg.Cache.Store == "" {
		return cachestore.BackendMemory
	}
	return a.cfg.Cache.Store
}

func init() {
	cacheFlushCmd.Flags().StringVar(&flushType, "type", "", "Resource type to flush")
	cacheFlushCmd.Flags().StringSliceVar(&flushIDs, "id", nil, "Resource ids to flush; all resources of --type when empty")
	cacheFlushCmd.Flags().BoolVar(&flushAll, "all", false, "Flush every resource type")
	cacheFlushCmd.MarkFlagsMutuallyExclusive("type", "all")

	cacheCmd.AddCommand(cacheFlushCmd, cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
