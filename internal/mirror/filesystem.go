// Package mirror keeps an off-host copy of the baseline.
package mirror

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ids-go/internal/ids"
)

// FileSystemMirror stores one baseline per host under a root directory,
// typically a mount of another machine or removable media:
//
//	<root>/
//	  <hostID>.baseline
type FileSystemMirror struct {
	root string
}

// NewFileSystemMirror creates a mirror rooted at the given path.
func NewFileSystemMirror(root string) (*FileSystemMirror, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}
	return &FileSystemMirror{root: root}, nil
}

func (m *FileSystemMirror) baselinePath(hostID string) string {
	return filepath.Join(m.root, hostID+".baseline")
}

// PutBaseline replaces the host's mirrored baseline using an atomic write.
func (m *FileSystemMirror) PutBaseline(hostID string, r io.Reader, size int64) error {
	destPath := m.baselinePath(hostID)
	tmpFile, err := os.CreateTemp(m.root, ".tmp-*")
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

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

// GetBaseline copies the host's mirrored baseline to w.
func (m *FileSystemMirror) GetBaseline(hostID string, w io.Writer) error {
	f, err := os.Open(m.baselinePath(hostID))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w for host: %s", ids.ErrMirrorEmpty, hostID)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the mirror root is an accessible directory.
func (m *FileSystemMirror) ValidateSetup() error {
	info, err := os.Stat(m.root)
	if err != nil {
		return fmt.Errorf("mirror root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mirror root is not a directory: %s", m.root)
	}
	return nil
}

// Compile-time check that FileSystemMirror implements ids.Mirror interface
var _ ids.Mirror = (*FileSystemMirror)(nil)
