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

package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaNotFound is returned by a Source when a resource type has no
// schema document. An empty schema is not an error.
var ErrSchemaNotFound = errors.New("settings schema not found")

// Source resolves the schema for a resource type.
type Source interface {
	Schema(ctx context.Context, resourceType string) (Schema, error)
}

// StaticSource serves schemas declared in code, keyed by resource type.
type StaticSource map[string]Schema

var _ Source = StaticSource(nil)

func (s StaticSource) Schema(_ context.Context, resourceType string) (Schema, error) {
	schema, ok := s[resourceType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, SchemaName(resourceType))
	}
	return schema, nil
}

// SchemaName derives the schema identifier for a resource type:
// lowercase, runs of anything outside [a-z0-9] collapsed to "_".
// "App\Models\User" becomes "app_models_user".
func SchemaName(resourceType string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(resourceType) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}
