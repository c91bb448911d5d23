package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"ids-go/internal/ids"
)

// OSFilesystemManager is the real filesystem implementation of ids.FilesystemManager.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager that operates on the real filesystem.
// ignorePatterns are applied by FindFiles in addition to each directory's .idsignore file.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(ignorePatterns)}
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (fs.File, error) {
	return os.Open(path)
}

// Stat returns fresh file info for a path. Symlinks are followed, so a
// monitored link is fingerprinted through its target.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// FindFiles discovers regular files under dir in lexical order, skipping
// anything matched by the ignore patterns.
func (m *OSFilesystemManager) FindFiles(dir string, recursive bool) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	local, err := ParseIgnoreFile(filepath.Join(dir, ignoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := m.ignore.With(local)

	var paths []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dir {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive || matcher.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matcher.Match(rel) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", dir, err)
	}
	return paths, nil
}

// Compile-time check that OSFilesystemManager implements ids.FilesystemManager interface
var _ ids.FilesystemManager = (*OSFilesystemManager)(nil)
