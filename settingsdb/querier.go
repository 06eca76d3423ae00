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
)

type Querier interface {
	DeleteResourceSetting(ctx context.Context, arg DeleteResourceSettingParams) error
	GetResourceSetting(ctx context.Context, arg GetResourceSettingParams) (PropertyBag, error)
	InsertResourceSetting(ctx context.Context, arg InsertResourceSettingParams) (PropertyBag, error)
	ListResourceSettings(ctx context.Context, arg ListResourceSettingsParams) ([]PropertyBag, error)
	UpdateResourceSetting(ctx context.Context, arg UpdateResourceSettingParams) (PropertyBag, error)
}

var _ Querier = (*Queries)(nil)
