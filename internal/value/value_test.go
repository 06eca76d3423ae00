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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"int", 7, int64(7)},
		{"int32", int32(-3), int64(-3)},
		{"uint8", uint8(9), int64(9)},
		{"float32", float32(1.5), float64(1.5)},
		{"string", "1", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Unsupported(t *testing.T) {
	_, err := Normalize([]string{"a"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Normalize(uint64(1 << 63))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestEqual_IsStrict(t *testing.T) {
	assert.True(t, Equal(1, int64(1)))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal(true, 1))
	assert.False(t, Equal(1, "1"))
	assert.False(t, Equal(true, "true"))
	assert.False(t, Equal(int64(1), float64(1)))
	assert.False(t, Equal(nil, false))
	assert.True(t, Equal(nil, nil))
}

func TestContains(t *testing.T) {
	list := []Value{"bananas", "grapes", int64(8), "monkey"}
	assert.True(t, Contains(list, 8))
	assert.False(t, Contains(list, "8"))
	assert.False(t, Contains(list, "apple"))
}

func TestCodec_PreservesKinds(t *testing.T) {
	tests := []struct {
		in      Value
		encoded string
	}{
		{true, `[true]`},
		{false, `[false]`},
		{int64(1), `[1]`},
		{int64(-42), `[-42]`},
		{"1", `["1"]`},
		{"true", `["true"]`},
		{"bananas", `["bananas"]`},
		{float64(2), `[2.0]`},
		{float64(2.5), `[2.5]`},
		{float64(1e6), `[1000000.0]`},
		{float64(1.5e6), `[1500000.0]`},
		{float64(1e21), `[1000000000000000000000.0]`},
		{float64(-3e7), `[-30000000.0]`},
		{float64(1.5e-7), `[0.00000015]`},
		{nil, `[null]`},
	}

	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			data, err := Encode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.encoded, string(data))

			got, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestDecode_ExponentForms(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`[1e+06]`, float64(1e6)},
		{`[1E6]`, float64(1e6)},
		{`[1000000]`, int64(1000000)},
		{`[1000000.0]`, float64(1e6)},
	}
	for _, tt := range tests {
		got, err := Decode([]byte(tt.in))
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, in := range []string{``, `"bare"`, `[]`, `[1,2]`, `[{"a":1}]`} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, "bool", Kind(true))
	assert.Equal(t, "integer", Kind(int64(1)))
	assert.Equal(t, "string", Kind("x"))
	assert.Equal(t, "null", Kind(nil))
}
