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

package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/propertybag/internal/value"
	"github.com/cardinalhq/propertybag/rules"
)

func TestSchemaName(t *testing.T) {
	tests := map[string]string{
		`App\Models\User`:     "app_models_user",
		"comment":             "comment",
		"github.com/acme.Org": "github_com_acme_org",
		"--Weird  Type--":     "weird_type",
		"Team42":              "team42",
	}
	for in, want := range tests {
		assert.Equal(t, want, SchemaName(in), in)
	}
}

func TestParseAllowed(t *testing.T) {
	spec, err := ParseAllowed(":range=1,5:")
	require.NoError(t, err)
	assert.True(t, spec.IsRule())
	assert.Equal(t, ":range=1,5:", spec.Raw())

	spec, err = ParseAllowed(":plain")
	require.NoError(t, err)
	assert.False(t, spec.IsRule())
	assert.Equal(t, []value.Value{":plain"}, spec.Values)

	spec, err = ParseAllowed([]any{true, 1, "1"})
	require.NoError(t, err)
	assert.Equal(t, []value.Value{true, int64(1), "1"}, spec.Values)

	spec, err = ParseAllowed(7)
	require.NoError(t, err)
	assert.Equal(t, []value.Value{int64(7)}, spec.Values)

	_, err = ParseAllowed([]any{map[string]any{}})
	assert.Error(t, err)
}

func TestRegisteredSetting_Allows(t *testing.T) {
	validator := rules.NewRegistry()

	literal := RegisteredSetting{Key: "k", Allowed: Literal(true, "1")}
	ok, err := literal.Allows(validator, true)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = literal.Allows(validator, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ruled := RegisteredSetting{Key: "k", Allowed: RuleSpec("range=1,5")}
	ok, err = ruled.Allows(validator, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = ruled.Allows(validator, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	missing := RegisteredSetting{Key: "k", Allowed: RuleSpec("nope")}
	_, err = missing.Allows(validator, 1)
	assert.ErrorIs(t, err, rules.ErrRuleNotFound)
}

func TestNew(t *testing.T) {
	s, err := New(
		RegisteredSetting{Key: "b", Allowed: Literal(1, 2), Default: 1},
		RegisteredSetting{Key: "a", Allowed: Literal("x"), Default: "x"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, int64(1), s["b"].Default)

	_, err = New(RegisteredSetting{Key: "a"}, RegisteredSetting{Key: "a"})
	assert.Error(t, err)

	_, err = New(RegisteredSetting{})
	assert.Error(t, err)
}

func TestLint(t *testing.T) {
	s := MustNew(
		RegisteredSetting{Key: "good", Allowed: Literal("a", "b"), Default: "a"},
		RegisteredSetting{Key: "bad", Allowed: Literal("a", "b"), Default: "c"},
		RegisteredSetting{Key: "norule", Allowed: RuleSpec("nope"), Default: "c"},
	)

	issues := s.Lint(rules.NewRegistry())
	require.Len(t, issues, 2)
	assert.Equal(t, "bad", issues[0].Key)
	assert.NoError(t, issues[0].Err)
	assert.Equal(t, "norule", issues[1].Key)
	assert.ErrorIs(t, issues[1].Err, rules.ErrRuleNotFound)
}

func TestFileSource_Directory(t *testing.T) {
	src, err := NewFileSource("testdata")
	require.NoError(t, err)

	s, err := src.Schema(context.Background(), `App\Models\User`)
	require.NoError(t, err)
	assert.Equal(t, []string{"test_settings1", "test_settings2", "test_settings3"}, s.Keys())
	assert.Equal(t, "monkey", s["test_settings1"].Default)
	assert.Equal(t, []value.Value{"bananas", "grapes", int64(8), "monkey"}, s["test_settings1"].Allowed.Values)
	assert.Equal(t, false, s["test_settings3"].Default)
	assert.Equal(t, []value.Value{true, false, "true", "false", int64(0), int64(1), "0", "1"}, s["test_settings3"].Allowed.Values)

	c, err := src.Schema(context.Background(), `App\Models\Comment`)
	require.NoError(t, err)
	assert.True(t, c["range"].Allowed.IsRule())
	assert.Equal(t, ":range=-10,-5:", c["range2"].Allowed.Rule)
	assert.Equal(t, int64(-10), c["range2"].Default)
}

func TestFileSource_Missing(t *testing.T) {
	src, err := NewFileSource("testdata")
	require.NoError(t, err)

	_, err = src.Schema(context.Background(), `App\Models\Admin`)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestFileSource_EmptyDocumentIsNotMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "group.yaml"), []byte("settings: {}\n"), 0644))

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	s, err := src.Schema(context.Background(), "Group")
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestFileSource_UnknownFieldsRejected(t *testing.T) {
	dir := t.TempDir()
	contents := "settings:\n  a:\n    allowed: [1]\n    default: 1\n    defualt: 2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.yaml"), []byte(contents), 0644))

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	_, err = src.Schema(context.Background(), "post")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSchemaNotFound))
}

func TestFileSource_Env(t *testing.T) {
	t.Setenv("TEST_SETTINGS_SCHEMAS", `
post:
  settings:
    status:
      allowed: [draft, published]
      default: draft
`)

	src, err := NewFileSource("env:TEST_SETTINGS_SCHEMAS")
	require.NoError(t, err)

	s, err := src.Schema(context.Background(), "Post")
	require.NoError(t, err)
	assert.Equal(t, "draft", s["status"].Default)

	_, err = src.Schema(context.Background(), "Comment")
	assert.ErrorIs(t, err, ErrSchemaNotFound)

	_, err = NewFileSource("env:TEST_SETTINGS_SCHEMAS_UNSET")
	assert.Error(t, err)
}

func TestFileSource_NotADirectory(t *testing.T) {
	_, err := NewFileSource(filepath.Join("testdata", "app_models_user.yaml"))
	assert.Error(t, err)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestNewResourceConfig(t *testing.T) {
	src := StaticSource{
		"user": MustNew(RegisteredSetting{Key: "a", Allowed: Literal(1), Default: 1}),
	}
	user := Ref{Type: "user", ID: "42"}

	cfg, err := NewResourceConfig(context.Background(), src, user)
	require.NoError(t, err)
	assert.Equal(t, user, cfg.Resource())
	assert.Contains(t, cfg.RegisteredSettings(), "a")

	_, err = NewResourceConfig(context.Background(), src, Ref{Type: `App\Models\Admin`, ID: "1"})
	require.Error(t, err)
	var notFound *ResourceNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "app_models_admin", notFound.SchemaName)
	assert.Equal(t, `App\Models\Admin`, notFound.ResourceType)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
}

func TestAllowedSpec_MarshalYAML(t *testing.T) {
	raw, err := RuleSpec("bool").MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, ":bool:", raw)

	raw, err = Literal("a", 1).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, []value.Value{"a", int64(1)}, raw)
}
