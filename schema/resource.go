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
)

// Resource is anything that carries settings: an addressable entity of
// some type with a primary identifier.
type Resource interface {
	ResourceType() string
	ResourceID() string
}

// Ref is a plain Resource value.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) ResourceType() string { return r.Type }
func (r Ref) ResourceID() string   { return r.ID }

// ResourceNotFoundError means no schema document exists for a resource
// type. It is a deployment problem and is never retried.
type ResourceNotFoundError struct {
	ResourceType string
	SchemaName   string
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("settings schema %s for resource type %s not found", e.SchemaName, e.ResourceType)
}

func (e *ResourceNotFoundError) Unwrap() error {
	return ErrSchemaNotFound
}

// ResourceConfig binds a resource instance to its type's schema.
type ResourceConfig struct {
	resource   Resource
	registered Schema
}

// NewResourceConfig loads the schema for resource's type from src.
func NewResourceConfig(ctx context.Context, src Source, resource Resource) (*ResourceConfig, error) {
	registered, err := src.Schema(ctx, resource.ResourceType())
	if errors.Is(err, ErrSchemaNotFound) {
		return nil, &ResourceNotFoundError{
			ResourceType: resource.ResourceType(),
			SchemaName:   SchemaName(resource.ResourceType()),
		}
	}
	if err != nil {
		return nil, err
	}
	if registered == nil {
		registered = Schema{}
	}
	return &ResourceConfig{resource: resource, registered: registered}, nil
}

// RegisteredSettings returns the schema for the bound resource's type.
func (c *ResourceConfig) RegisteredSettings() Schema {
	return c.registered
}

// Resource returns the bound resource instance.
func (c *ResourceConfig) Resource() Resource {
	return c.resource
}
