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
	"github.com/cardinalhq/propertybag/internal/value"
)

// Backends that serialize entries hand back generic shapes, so cached
// payloads are coerced into the types the engine stored. A payload that
// cannot be coerced is treated as a miss.

func coerceValue(raw any) (value.Value, bool) {
	v, err := value.Normalize(raw)
	return v, err == nil
}

func coerceValues(raw any) (map[string]value.Value, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		nv, err := value.Normalize(v)
		if err != nil {
			return nil, false
		}
		out[k] = nv
	}
	return out, true
}

func coerceStrings(raw any) ([]string, bool) {
	switch list := raw.(type) {
	case nil:
		return nil, true
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
