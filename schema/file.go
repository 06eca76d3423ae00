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
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type settingDocument struct {
	Allowed AllowedSpec `yaml:"allowed"`
	Default any         `yaml:"default"`
}

type document struct {
	Settings map[string]settingDocument `yaml:"settings"`
}

// FileSource loads schemas from YAML documents. Each call reads the
// document again, so edits are picked up without a restart.
type FileSource struct {
	dir    string
	bundle map[string]document
}

var _ Source = (*FileSource)(nil)

// NewFileSource serves schemas from dir, one "<schema name>.yaml" per
// resource type. A path of the form "env:VAR" instead reads a bundle
// from the environment variable VAR, mapping schema names to documents.
func NewFileSource(path string) (*FileSource, error) {
	if envVar, ok := strings.CutPrefix(path, "env:"); ok {
		contents := os.Getenv(envVar)
		if contents == "" {
			return nil, fmt.Errorf("environment variable %s is not set", envVar)
		}
		bundle := map[string]document{}
		dec := yaml.NewDecoder(strings.NewReader(contents))
		dec.KnownFields(true)
		if err := dec.Decode(&bundle); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings schemas from %s: %w", path, err)
		}
		return &FileSource{bundle: bundle}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("settings schema directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("settings schema path %s is not a directory", path)
	}
	return &FileSource{dir: path}, nil
}

func (s *FileSource) Schema(_ context.Context, resourceType string) (Schema, error) {
	name := SchemaName(resourceType)

	if s.bundle != nil {
		doc, ok := s.bundle[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
		}
		return doc.schema(name)
	}

	for _, ext := range []string{".yaml", ".yml"} {
		filename := filepath.Join(s.dir, name+ext)
		contents, err := os.ReadFile(filename)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read settings schema %s: %w", filename, err)
		}
		return parseDocument(filename, contents)
	}
	return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
}

func parseDocument(filename string, contents []byte) (Schema, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings schema from file %s: %w", filename, err)
	}
	return doc.schema(filename)
}

func (d document) schema(origin string) (Schema, error) {
	settings := make([]RegisteredSetting, 0, len(d.Settings))
	for key, sd := range d.Settings {
		settings = append(settings, RegisteredSetting{
			Key:     key,
			Allowed: sd.Allowed,
			Default: sd.Default,
		})
	}
	s, err := New(settings...)
	if err != nil {
		return nil, fmt.Errorf("settings schema %s: %w", origin, err)
	}
	return s, nil
}
