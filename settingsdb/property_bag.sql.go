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

package settingsdb

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

const deleteResourceSetting = `-- name: DeleteResourceSetting :exec
DELETE FROM property_bag
WHERE resource_type = $1 AND resource_id = $2 AND key = $3
`

type DeleteResourceSettingParams struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Key          string `json:"key"`
}

func (q *Queries) DeleteResourceSetting(ctx context.Context, arg DeleteResourceSettingParams) error {
	_, err := q.db.Exec(ctx, deleteResourceSetting, arg.ResourceType, arg.ResourceID, arg.Key)
	return err
}

const getResourceSetting = `-- name: GetResourceSetting :one
SELECT id, resource_type, resource_id, key, value, created_at, updated_at
FROM property_bag
WHERE resource_type = $1 AND resource_id = $2 AND key = $3
`

type GetResourceSettingParams struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Key          string `json:"key"`
}

func (q *Queries) GetResourceSetting(ctx context.Context, arg GetResourceSettingParams) (PropertyBag, error) {
	row := q.db.QueryRow(ctx, getResourceSetting, arg.ResourceType, arg.ResourceID, arg.Key)
	var i PropertyBag
	err := row.Scan(
		&i.ID,
		&i.ResourceType,
		&i.ResourceID,
		&i.Key,
		&i.Value,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const insertResourceSetting = `-- name: InsertResourceSetting :one
INSERT INTO property_bag (id, resource_type, resource_id, key, value)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, resource_type, resource_id, key, value, created_at, updated_at
`

type InsertResourceSettingParams struct {
	ID           uuid.UUID       `json:"id"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Key          string          `json:"key"`
	Value        json.RawMessage `json:"value"`
}

func (q *Queries) InsertResourceSetting(ctx context.Context, arg InsertResourceSettingParams) (PropertyBag, error) {
	row := q.db.QueryRow(ctx, insertResourceSetting,
		arg.ID,
		arg.ResourceType,
		arg.ResourceID,
		arg.Key,
		arg.Value,
	)
	var i PropertyBag
	err := row.Scan(
		&i.ID,
		&i.ResourceType,
		&i.ResourceID,
		&i.Key,
		&i.Value,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listResourceSettings = `-- name: ListResourceSettings :many
SELECT id, resource_type, resource_id, key, value, created_at, updated_at
FROM property_bag
WHERE resource_type = $1 AND resource_id = $2
ORDER BY key
`

type ListResourceSettingsParams struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
}

func (q *Queries) ListResourceSettings(ctx context.Context, arg ListResourceSettingsParams) ([]PropertyBag, error) {
	rows, err := q.db.Query(ctx, listResourceSettings, arg.ResourceType, arg.ResourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PropertyBag
	for rows.Next() {
		var i PropertyBag
		if err := rows.Scan(
			&i.ID,
			&i.ResourceType,
			&i.ResourceID,
			&i.Key,
			&i.Value,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateResourceSetting = `-- name: UpdateResourceSetting :one
UPDATE property_bag
SET value = $4, updated_at = now()
WHERE resource_type = $1 AND resource_id = $2 AND key = $3
RETURNING id, resource_type, resource_id, key, value, created_at, updated_at
`

type UpdateResourceSettingParams struct {
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Key          string          `json:"key"`
	Value        json.RawMessage `json:"value"`
}

func (q *Queries) UpdateResourceSetting(ctx context.Context, arg UpdateResourceSettingParams) (PropertyBag, error) {
	row := q.db.QueryRow(ctx, updateResourceSetting,
		arg.ResourceType,
		arg.ResourceID,
		arg.Key,
		arg.Value,
	)
	var i PropertyBag
	err := row.Scan(
		&i.ID,
		&i.ResourceType,
		&i.ResourceID,
		&i.Key,
		&i.Value,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
