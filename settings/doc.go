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

// Package settings resolves per-resource settings against a declared
// schema. Stored rows hold only the values that differ from their
// defaults; reads are served through a tagged cache that is invalidated
// on every write.
//
// Cache keys live under the property_bag namespace:
//
//	property_bag:{type}:{id}:{key}    one setting
//	property_bag:{type}:{id}:all      resolved settings
//	property_bag:{type}:{id}:saved    stored overrides
//	property_bag:keys:{type}:{id}     keys cached for one resource
//	property_bag:keys:{type}          keys cached for a resource type
//	property_bag:resource_types       types with cached keys
package settings
