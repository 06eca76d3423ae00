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
	"regexp"
	"strings"
)

const keyPrefix = "property_bag"

// resourceTypesKey tracks every resource type with cached entries.
const resourceTypesKey = keyPrefix + ":resource_types"

const (
	allSuffix   = "all"
	savedSuffix = "saved"
)

func joinKey(parts ...string) string {
	return strings.Join(parts, ":")
}

// ValueKey is the cache key of one setting of one resource instance.
func ValueKey(resourceType, resourceID, key string) string {
	return joinKey(keyPrefix, resourceType, resourceID, key)
}

// AllKey is the cache key of the resolved settings of a resource instance.
func AllKey(resourceType, resourceID string) string {
	return joinKey(keyPrefix, resourceType, resourceID, allSuffix)
}

// SavedKey is the cache key of the stored overrides of a resource instance.
func SavedKey(resourceType, resourceID string) string {
	return joinKey(keyPrefix, resourceType, resourceID, savedSuffix)
}

// InstanceKeysKey holds the cache keys written for one resource instance.
func InstanceKeysKey(resourceType, resourceID string) string {
	return joinKey(keyPrefix, "keys", resourceType, resourceID)
}

// TypeKeysKey holds the cache keys written for a resource type.
func TypeKeysKey(resourceType string) string {
	return joinKey(keyPrefix, "keys", resourceType)
}

// instancePattern captures the resource id segment of keys belonging to
// resourceType.
func instancePattern(resourceType string) *regexp.Regexp {
	return regexp.MustCompile("^" + regexp.QuoteMeta(keyPrefix+":"+resourceType+":") + "([^:]+):")
}
