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
	"errors"
	"fmt"
)

// ErrInvalidSettingsValue matches every *InvalidSettingsValueError.
var ErrInvalidSettingsValue = errors.New("invalid settings value")

// InvalidSettingsValueError reports a key/value pair rejected by Set.
type InvalidSettingsValueError struct {
	Key string
	// Err is set when the value could not be represented at all.
	Err error
}

func (e *InvalidSettingsValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%q is not a registered setting or the given value is not allowed: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("%q is not a registered setting or the given value is not allowed", e.Key)
}

// FailedKey returns the rejected key.
func (e *InvalidSettingsValueError) FailedKey() string {
	return e.Key
}

func (e *InvalidSettingsValueError) Is(target error) bool {
	return target == ErrInvalidSettingsValue
}

func (e *InvalidSettingsValueError) Unwrap() error {
	return e.Err
}
