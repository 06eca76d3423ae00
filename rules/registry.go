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
	"sort"
	"sync"

	"github.com/cardinalhq/propertybag/internal/value"
)

// Func validates a normalized value against a rule's arguments.
type Func func(v value.Value, args []string) (bool, error)

// Validator is what the settings engine needs from a rule registry.
type Validator interface {
	IsRule(spec string) (string, bool)
	Validate(rule string, v value.Value) (bool, error)
}

// Registry maps rule names to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Func
}

var _ Validator = (*Registry)(nil)

// NewRegistry returns a registry holding the built-in rules.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Func, len(builtins))}
	for name, fn := range builtins {
		r.handlers[name] = fn
	}
	return r
}

// Register binds fn to name, replacing any existing handler.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Names lists registered rule names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRule implements Validator.
func (r *Registry) IsRule(spec string) (string, bool) {
	return IsRule(spec)
}

// Validate runs the handler named by rule against v.
func (r *Registry) Validate(rule string, v value.Value) (bool, error) {
	name, args := Parse(rule)

	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return false, &RuleNotFoundError{Rule: name, Handler: HandlerName(name)}
	}

	n, err := value.Normalize(v)
	if err != nil {
		return false, nil
	}
	return fn(n, args)
}
