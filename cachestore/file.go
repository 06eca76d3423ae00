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

package cachestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/natefinch/atomic"
)

const fileSuffix = ".cbor"

var errCorruptEntry = errors.New("corrupt cache entry")

// fileEntry is the on-disk form of one cache entry. Key is kept to
// detect hash collisions.
type fileEntry struct {
	Key       string `cbor:"k"`
	ExpiresAt int64  `cbor:"e"`
	Value     any    `cbor:"v"`
}

func (e *fileEntry) expired(now time.Time) bool {
	return e.ExpiresAt != 0 && now.UnixNano() >= e.ExpiresAt
}

// File is a Store keeping each entry in its own file. Writes replace the
// file atomically, so concurrent readers see either the old or the new
// entry.
type File struct {
	dir string
	em  cbor.EncMode
	dm  cbor.DecMode
	now func() time.Time
}

var _ Store = (*File)(nil)

// NewFile opens (and creates if needed) a file store rooted at dir.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR encoder: %w", err)
	}
	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		MaxNestedLevels: 16,
		IntDec:          cbor.IntDecConvertSignedOrFail,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("create CBOR decoder: %w", err)
	}

	return &File{dir: dir, em: em, dm: dm, now: time.Now}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, strconv.FormatUint(xxhash.Sum64String(key), 16)+fileSuffix)
}

func (f *File) Get(_ context.Context, key string) (any, bool, error) {
	path := f.path(key)
	entry, err := f.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if errors.Is(err, errCorruptEntry) {
		return nil, false, removeIfExists(path)
	}
	if err != nil {
		return nil, false, err
	}
	if entry.Key != key {
		return nil, false, nil
	}
	if entry.expired(f.now()) {
		if err := removeIfExists(path); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (f *File) Put(_ context.Context, key string, value any, ttl time.Duration) error {
	entry := fileEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = f.now().Add(ttl).UnixNano()
	}
	data, err := f.em.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %s: %w", key, err)
	}
	if err := atomic.WriteFile(f.path(key), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}
	return nil
}

func (f *File) Forget(_ context.Context, key string) error {
	path := f.path(key)
	entry, err := f.read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err == nil && entry.Key != key {
		return nil
	}
	return removeIfExists(path)
}

// Prune deletes expired and unreadable entries and returns how many
// files were removed. It keeps going past individual failures.
func (f *File) Prune(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache directory %s: %w", f.dir, err)
	}

	now := f.now()
	removed := 0
	var errs *multierror.Error
	for _, de := range entries {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(f.dir, de.Name())
		entry, err := f.read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err == nil && !entry.expired(now) {
			continue
		}
		if rmErr := removeIfExists(path); rmErr != nil {
			errs = multierror.Append(errs, rmErr)
			continue
		}
		removed++
	}
	return removed, errs.ErrorOrNil()
}

func (f *File) read(path string) (*fileEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entry fileEntry
	if err := f.dm.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errCorruptEntry, path, err)
	}
	return &entry, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
