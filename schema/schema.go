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

// Package schema holds the registered-settings model: which keys a
// resource type declares, the values each key allows and its default.
package schema

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cardinalhq/propertybag/internal/value"
	"github.com/cardinalhq/propertybag/rules"
)

// AllowedSpec is either a list of literal values or a rule reference.
type AllowedSpec struct {
	Values []value.Value
	Rule   string
}

// ParseAllowed builds an AllowedSpec from a decoded document value.
// A string is a rule reference only when it is wrapped in the rule
// delimiter; any other scalar becomes a one-element literal list.
func ParseAllowed(raw any) (AllowedSpec, error) {
	switch t := raw.(type) {
	case nil:
		return AllowedSpec{}, nil
	case string:
		if _, ok := rules.IsRule(t); ok {
			return AllowedSpec{Rule: t}, nil
		}
		return AllowedSpec{Values: []value.Value{t}}, nil
	case []any:
		values := make([]value.Value, 0, len(t))
		for i, item := range t {
			v, err := value.Normalize(item)
			if err != nil {
				return AllowedSpec{}, fmt.Errorf("allowed[%d]: %w", i, err)
			}
			values = append(values, v)
		}
		return AllowedSpec{Values: values}, nil
	default:
		v, err := value.Normalize(t)
		if err != nil {
			return AllowedSpec{}, fmt.Errorf("allowed: %w", err)
		}
		return AllowedSpec{Values: []value.Value{v}}, nil
	}
}

// Literal returns a literal-list spec.
func Literal(values ...any) AllowedSpec {
	spec, err := ParseAllowed(values)
	if err != nil {
		panic(err)
	}
	return spec
}

// RuleSpec returns a rule-reference spec for rule, e.g. RuleSpec("range=1,5").
func RuleSpec(rule string) AllowedSpec {
	return AllowedSpec{Rule: rules.Delimiter + rule + rules.Delimiter}
}

// IsRule reports whether the spec names a rule.
func (a AllowedSpec) IsRule() bool {
	return a.Rule != ""
}

// Raw returns the spec in its document form: the rule string or the
// literal list.
func (a AllowedSpec) Raw() any {
	if a.IsRule() {
		return a.Rule
	}
	return append([]value.Value(nil), a.Values...)
}

func (a *AllowedSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	spec, err := ParseAllowed(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*a = spec
	return nil
}

func (a AllowedSpec) MarshalYAML() (any, error) {
	return a.Raw(), nil
}

// RegisteredSetting is one declared key.
type RegisteredSetting struct {
	Key     string
	Allowed AllowedSpec
	Default value.Value
}

// Allows reports whether v is legal for the setting. Literal lists use
// strict equality; rule references are dispatched through validator.
func (s RegisteredSetting) Allows(validator rules.Validator, v value.Value) (bool, error) {
	if s.Allowed.IsRule() {
		if rule, ok := validator.IsRule(s.Allowed.Rule); ok {
			return validator.Validate(rule, v)
		}
		return value.Equal(s.Allowed.Rule, v), nil
	}
	return value.Contains(s.Allowed.Values, v), nil
}

// Schema maps keys to their registered settings.
type Schema map[string]RegisteredSetting

// New builds a schema from settings, keyed by each setting's Key.
// Defaults are normalized.
func New(settings ...RegisteredSetting) (Schema, error) {
	s := make(Schema, len(settings))
	for _, rs := range settings {
		if rs.Key == "" {
			return nil, fmt.Errorf("registered setting with empty key")
		}
		if _, dup := s[rs.Key]; dup {
			return nil, fmt.Errorf("duplicate registered setting %q", rs.Key)
		}
		def, err := value.Normalize(rs.Default)
		if err != nil {
			return nil, fmt.Errorf("default for %q: %w", rs.Key, err)
		}
		rs.Default = def
		s[rs.Key] = rs
	}
	return s, nil
}

// MustNew is New for schemas declared in code.
func MustNew(settings ...RegisteredSetting) Schema {
	s, err := New(settings...)
	if err != nil {
		panic(err)
	}
	return s
}

// Keys returns the registered keys in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the registered setting for key.
func (s Schema) Get(key string) (RegisteredSetting, bool) {
	rs, ok := s[key]
	return rs, ok
}

// LintIssue describes a default that its own allowed spec rejects.
type LintIssue struct {
	Key string
	Err error
}

func (i LintIssue) String() string {
	if i.Err != nil {
		return fmt.Sprintf("%s: %v", i.Key, i.Err)
	}
	return fmt.Sprintf("%s: default is not an allowed value", i.Key)
}

// Lint reports settings whose default does not satisfy their allowed
// spec. Nothing enforces this at load time.
func (s Schema) Lint(validator rules.Validator) []LintIssue {
	var issues []LintIssue
	for _, key := range s.Keys() {
		rs := s[key]
		ok, err := rs.Allows(validator, rs.Default)
		if err != nil || !ok {
			issues = append(issues, LintIssue{Key: key, Err: err})
		}
	}
	return issues
}
