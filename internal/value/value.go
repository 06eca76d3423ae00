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

// Package value defines the scalar values a setting can hold and the
// wrapper encoding used to persist them.
package value

import (
	"errors"
	"fmt"
	"math"
)

// Value is a setting value. After Normalize it is always one of nil,
// bool, int64, float64 or string.
type Value = any

// ErrUnsupportedType is returned for values that are not scalars.
var ErrUnsupportedType = errors.New("unsupported setting value type")

// Normalize folds Go scalar kinds onto the canonical set so that
// comparisons are not sensitive to int vs int64 and the like.
func Normalize(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case string:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return uintToInt(uint64(t))
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return uintToInt(t)
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}

func uintToInt(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d overflows int64", ErrUnsupportedType, u)
	}
	return int64(u), nil
}

// MustNormalize is Normalize for literals known to be scalars.
func MustNormalize(v any) Value {
	n, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return n
}

// Equal reports strict equality: same kind and same value. true, 1 and
// "1" are all different.
func Equal(a, b Value) bool {
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return na == nb
}

// Contains reports whether v is strictly equal to one of list.
func Contains(list []Value, v Value) bool {
	for _, item := range list {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Kind names the type of a normalized value for messages and logs.
func Kind(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64:
		return "integer"
	case float64:
		return "float"
	case string:
		return "string"
	default:
		return fmt.Sprintf("%T", v)
	}
}
