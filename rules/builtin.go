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

package rules

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/cardinalhq/propertybag/internal/value"
)

var builtins = map[string]Func{
	"any":      ruleAny,
	"alpha":    ruleAlpha,
	"alphanum": ruleAlphanum,
	"bool":     ruleBool,
	"integer":  ruleInteger,
	"numeric":  ruleNumeric,
	"range":    ruleRange,
	"string":   ruleString,
}

var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

func ruleAny(value.Value, []string) (bool, error) {
	return true, nil
}

func ruleAlpha(v value.Value, _ []string) (bool, error) {
	return stringOf(v, unicode.IsLetter), nil
}

func ruleAlphanum(v value.Value, _ []string) (bool, error) {
	return stringOf(v, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}), nil
}

func ruleBool(v value.Value, _ []string) (bool, error) {
	_, ok := v.(bool)
	return ok, nil
}

func ruleInteger(v value.Value, _ []string) (bool, error) {
	_, ok := v.(int64)
	return ok, nil
}

func ruleNumeric(v value.Value, _ []string) (bool, error) {
	_, ok := toNumber(v)
	return ok, nil
}

func ruleString(v value.Value, _ []string) (bool, error) {
	_, ok := v.(string)
	return ok, nil
}

// ruleRange checks low <= v <= high, inclusive.
func ruleRange(v value.Value, args []string) (bool, error) {
	if len(args) != 2 {
		return false, fmt.Errorf("rule range: expected 2 arguments, got %d", len(args))
	}
	low, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return false, fmt.Errorf("rule range: low bound %q: %w", args[0], err)
	}
	high, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return false, fmt.Errorf("rule range: high bound %q: %w", args[1], err)
	}

	n, ok := toNumber(v)
	if !ok {
		return false, nil
	}
	return low <= n && n <= high, nil
}

func stringOf(v value.Value, accept func(rune) bool) bool {
	s, ok := v.(string)
	if !ok || s == "" {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return !accept(r) }) < 0
}

// toNumber accepts integers, finite floats and numeric strings. Booleans
// are not numbers.
func toNumber(v value.Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if !numericPattern.MatchString(s) {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
