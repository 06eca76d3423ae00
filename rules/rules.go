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

// Package rules recognizes rule references in allowed-value specs and
// dispatches them to named validation handlers.
//
// A rule reference is a string wrapped in colons, optionally carrying
// comma-separated arguments:
//
//	:bool:
//	:range=1,5:
//
// Handlers are looked up by name in a Registry. NewRegistry seeds the
// built-in rules; hosts add their own with Register.
package rules

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Delimiter wraps a rule reference on both ends.
const Delimiter = ":"

// ErrRuleNotFound is matched by RuleNotFoundError.
var ErrRuleNotFound = errors.New("rule not found")

// RuleNotFoundError reports a rule name with no registered handler.
type RuleNotFoundError struct {
	Rule    string
	Handler string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("handler %s for rule %s not found: check rule spelling or register %s",
		e.Handler, e.Rule, e.Handler)
}

func (e *RuleNotFoundError) Is(target error) bool {
	return target == ErrRuleNotFound
}

// IsRule returns the inner rule text if spec is a rule reference.
// ":test:" yields "test"; "test", ":test" and "test:" are not rules.
func IsRule(spec string) (string, bool) {
	if len(spec) < 2*len(Delimiter) {
		return "", false
	}
	if !strings.HasPrefix(spec, Delimiter) || !strings.HasSuffix(spec, Delimiter) {
		return "", false
	}
	return spec[len(Delimiter) : len(spec)-len(Delimiter)], true
}

// Parse splits "name=arg1,arg2" into its name and trimmed arguments.
func Parse(rule string) (string, []string) {
	name, rawArgs, found := strings.Cut(rule, "=")
	name = strings.TrimSpace(name)
	if !found {
		return name, nil
	}

	parts := strings.Split(rawArgs, ",")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		args = append(args, strings.TrimSpace(p))
	}
	return name, args
}

// HandlerName is the identifier a handler for name is expected under,
// "nope" -> "ruleNope", "user_defined" -> "ruleUserDefined".
func HandlerName(name string) string {
	var b strings.Builder
	b.WriteString("rule")
	upper := true
	for _, r := range name {
		if r == '_' || r == '-' || r == ' ' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
