// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package securestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// File is a Backend that keeps each record in its own file inside dir.
type File struct {
	dir    string
	logger hclog.Logger
}

// NewFile returns a File backend rooted at dir, creating it with owner-only
// permissions when it does not exist.  The logger may be nil.
func NewFile(dir string, logger hclog.Logger) (*File, error) {
	const op = "securestore.NewFile"
	if dir == "" {
		return nil, fmt.Errorf("%s: dir is empty: %w", op, ErrInvalidKey)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("%s: unable to create %s: %w", op, dir, err)
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &File{dir: dir, logger: logger.Named("file")}, nil
}

// Dir returns the directory records are stored in.
func (f *File) Dir() string { return f.dir }

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key)
}

// Read implements Backend.
func (f *File) Read(key string) ([]byte, error) {
	const op = "File.Read"
	if err := validKey(key); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	data, err := os.ReadFile(f.path(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%s: %q: %w", op, key, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return data, nil
}

// Write implements Backend.  The record is written to a temp file in the
// same directory, synced and renamed over the old record.  The directory is
// synced after the rename so the new entry survives a crash.
func (f *File) Write(key string, data []byte) error {
	const op = "File.Write"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tmp, err := os.CreateTemp(f.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("%s: create temp: %w", op, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("unable to remove temp file", "path", tmpName, "error", err)
		}
	}
	if err := tmp.Chmod(filePerm); err != nil {
		cleanup()
		return fmt.Errorf("%s: set temp file permissions: %w", op, err)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("%s: sync: %w", op, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%s: close: %w", op, err)
	}
	if err := os.Rename(tmpName, f.path(key)); err != nil {
		cleanup()
		return fmt.Errorf("%s: rename: %w", op, err)
	}
	if err := syncDir(f.dir); err != nil {
		return fmt.Errorf("%s: sync dir: %w", op, err)
	}
	return nil
}

// syncDir flushes dir's entries to disk.  Windows cannot fsync a directory
// handle, so it is a no-op there.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return err
	}
	return d.Close()
}

// Delete implements Backend.
func (f *File) Delete(key string) error {
	const op = "File.Delete"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Watch calls onChange every time the record stored under key is created,
// replaced or removed by anyone sharing the directory, this process
// included.  It blocks until ctx is done or the watcher fails.
func (f *File) Watch(ctx context.Context, key string, onChange func()) error {
	const op = "File.Watch"
	if err := validKey(key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if onChange == nil {
		return fmt.Errorf("%s: onChange is nil", op)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s: unable to create watcher: %w", op, err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			f.logger.Warn("failed to close watcher", "error", err)
		}
	}()

	// renames replace the file, so the directory is watched rather than the
	// record itself
	if err := watcher.Add(f.dir); err != nil {
		return fmt.Errorf("%s: unable to watch %s: %w", op, f.dir, err)
	}
	target := f.path(key)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("%s: watcher closed unexpectedly", op)
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.logger.Debug("record changed", "key", key, "op", event.Op.String())
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("%s: watcher closed unexpectedly", op)
			}
			return fmt.Errorf("%s: watcher error: %w", op, err)
		}
	}
}
