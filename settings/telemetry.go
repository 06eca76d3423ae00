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
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

var tracer = otel.Tracer("github.com/cardinalhq/propertybag/settings")

var (
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
	cacheFlushes metric.Int64Counter
	writes       metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/propertybag/settings")

	var err error

	cacheHits, err = meter.Int64Counter(
		"propertybag.cache.hits",
		metric.WithDescription("Number of settings lookups served from the cache"),
	)
	if err != nil {
		log.Fatalf("failed to create cache.hits counter: %v", err)
	}

	cacheMisses, err = meter.Int64Counter(
		"propertybag.cache.misses",
		metric.WithDescription("Number of settings lookups computed from the store"),
	)
	if err != nil {
		log.Fatalf("failed to create cache.misses counter: %v", err)
	}

	cacheFlushes, err = meter.Int64Counter(
		"propertybag.cache.flushes",
		metric.WithDescription("Number of cache keys forgotten by invalidation"),
	)
	if err != nil {
		log.Fatalf("failed to create cache.flushes counter: %v", err)
	}

	writes, err = meter.Int64Counter(
		"propertybag.settings.writes",
		metric.WithDescription("Number of stored setting rows created, updated or deleted"),
	)
	if err != nil {
		log.Fatalf("failed to create settings.writes counter: %v", err)
	}
}

func recordWrite(ctx context.Context, resourceType, op string) {
	writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource_type", resourceType),
		attribute.String("op", op),
	))
}

func recordLookup(ctx context.Context, hit bool) {
	if hit {
		cacheHits.Add(ctx, 1)
		return
	}
	cacheMisses.Add(ctx, 1)
}

func recordFlush(ctx context.Context, n int) {
	if n > 0 {
		cacheFlushes.Add(ctx, int64(n))
	}
}
