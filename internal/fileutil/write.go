// Package fileutil writes remit's state files: the config, the balance
// cache and the encrypted keystore entries.
package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DirPerm is used for directories created on demand.
const DirPerm = 0o750

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// Write replaces path with data so readers see either the old or the new
// content, never a partial file. Missing parent directories are created.
func Write(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: paths come from config
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	committed = true

	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir is derived from path
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// WriteJSON writes v as indented JSON through Write.
func WriteJSON(path string, v any, perm os.FileMode) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return Write(path, data, perm)
}

// Quarantine renames an unreadable file out of the way and returns its new
// name, so the next write starts fresh while the old bytes stay inspectable.
func Quarantine(path string, now time.Time) (string, error) {
	moved := fmt.Sprintf("%s.corrupt.%d", path, now.UTC().UnixNano())
	if err := os.Rename(path, moved); err != nil {
		return "", err
	}
	return moved, nil
}
