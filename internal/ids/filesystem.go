package ids

import "io/fs"

// FilesystemManager provides an interface for filesystem operations.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Open opens a file for reading. The returned handle's Stat describes
	// the opened file itself, not whatever the path points to later.
	Open(path string) (fs.File, error)

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// ExtractStatData extracts ownership, size and timestamps from info.
	ExtractStatData(info fs.FileInfo) (*StatData, error)

	// FindFiles discovers regular files under dir, in lexical order.
	// When recursive is true, files in subdirectories are included.
	FindFiles(dir string, recursive bool) ([]string, error)
}
