// Package baseline persists the monitor's single baseline Snapshot as a JSON file.
package baseline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ids-go/internal/ids"
)

// FileStore keeps the baseline in one file, replaced atomically on every build.
type FileStore struct {
	path string
}

// NewFileStore creates a store for the baseline at path. The parent
// directory is created on the first Persist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the path of the baseline file.
func (s *FileStore) Location() string {
	return s.path
}

// Exists reports whether a baseline has been persisted.
func (s *FileStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Persist replaces the baseline with snapshot.
// The artifact is written to a temp file in the same directory, synced, then
// renamed over the old one, so readers see either the old or the new baseline.
func (s *FileStore) Persist(snapshot *ids.Snapshot, format ids.Format) error {
	data, err := ids.EncodeSnapshot(snapshot, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create baseline directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-baseline-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	if err := tmpFile.Chmod(0640); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to set baseline permissions: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync baseline: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Load reads and decodes the baseline.
func (s *FileStore) Load() (*ids.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ids.ErrBaselineMissing, s.path)
		}
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}
	snapshot, err := ids.DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return snapshot, nil
}

// Compile-time check that FileStore implements ids.BaselineStore interface
var _ ids.BaselineStore = (*FileStore)(nil)
