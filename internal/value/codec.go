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

package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encode wraps v in a single-element JSON array, e.g. [true], [1] or
// ["1"]. The wrapper keeps the scalar's type intact through text
// columns. Floats are written in fixed notation with a fractional part,
// so a JSONB column keeps them at a non-zero scale and they decode as
// floats again.
func Encode(v Value) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return nil, err
	}

	if f, ok := n.(float64); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %v is not representable", ErrUnsupportedType, f)
		}
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return []byte("[" + s + "]"), nil
	}

	return json.Marshal([]any{n})
}

// Decode reverses Encode.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var wrapped []any
	if err := dec.Decode(&wrapped); err != nil {
		return nil, fmt.Errorf("decode setting value %q: %w", data, err)
	}
	if len(wrapped) != 1 {
		return nil, fmt.Errorf("decode setting value %q: expected one element, got %d", data, len(wrapped))
	}

	switch t := wrapped[0].(type) {
	case json.Number:
		return numberValue(t)
	case nil, bool, string:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: decoded %T", ErrUnsupportedType, t)
	}
}

func numberValue(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("decode number %q: %w", s, err)
	}
	return f, nil
}
