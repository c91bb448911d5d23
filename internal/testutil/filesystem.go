package testutil

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"ids-go/internal/ids"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Mode        fs.FileMode
	ModTime     time.Time
	Ctime       time.Time
	UID         int64
	GID         int64
	IsDirectory bool
	// Unreadable makes Open fail with fs.ErrPermission.
	Unreadable bool
	// ChangesDuringRead is the number of upcoming reads during which the
	// file's ctime moves, as if another process touched it mid-read.
	ChangesDuringRead int
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Every file starts owned by 0:0 with FixedTime as mtime and ctime.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	opens map[string]int
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
		opens: make(map[string]int),
	}
}

// AddFile adds a regular file to the mock filesystem and returns it for tweaking.
func (m *MockFilesystemManager) AddFile(p string, content []byte) *MockFile {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &MockFile{
		Content: content,
		Mode:    0644,
		ModTime: FixedTime,
		Ctime:   FixedTime,
	}
	m.files[p] = f
	return f
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = &MockFile{
		Mode:        fs.ModeDir | 0755,
		ModTime:     FixedTime,
		Ctime:       FixedTime,
		IsDirectory: true,
	}
}

// WriteFile replaces a file's content the way a write would: size, mtime and
// ctime follow.
func (m *MockFilesystemManager) WriteFile(p string, content []byte, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[p]
	if !ok {
		f = &MockFile{Mode: 0644}
		m.files[p] = f
	}
	f.Content = content
	f.ModTime = at
	f.Ctime = at
}

// Chown changes ownership and bumps ctime.
func (m *MockFilesystemManager) Chown(p string, uid, gid int64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[p]; ok {
		f.UID, f.GID = uid, gid
		f.Ctime = at
	}
}

// Remove deletes a path.
func (m *MockFilesystemManager) Remove(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
}

// Opens returns how many times p was opened.
func (m *MockFilesystemManager) Opens(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[p]
}

func (m *MockFilesystemManager) Open(p string) (fs.File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	if f.Unreadable {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrPermission}
	}
	m.opens[p]++
	return &mockHandle{
		fsys: m,
		path: p,
		file: f,
		r:    bytes.NewReader(f.Content),
		info: m.infoLocked(p, f),
	}, nil
}

func (m *MockFilesystemManager) Stat(p string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	return m.infoLocked(p, f), nil
}

func (m *MockFilesystemManager) ExtractStatData(info fs.FileInfo) (*ids.StatData, error) {
	sd, ok := info.Sys().(*ids.StatData)
	if !ok {
		return nil, fmt.Errorf("cannot extract stat data: expected *ids.StatData, got %T", info.Sys())
	}
	out := *sd
	return &out, nil
}

// FindFiles lists the regular files below dir in lexical order.
func (m *MockFilesystemManager) FindFiles(dir string, recursive bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.files[dir]
	if !ok || !d.IsDirectory {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for p, f := range m.files {
		if f.IsDirectory || !strings.HasPrefix(p, prefix) {
			continue
		}
		if !recursive && strings.Contains(strings.TrimPrefix(p, prefix), "/") {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// infoLocked captures the current metadata of f. m.mu must be held.
func (m *MockFilesystemManager) infoLocked(p string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    path.Base(p),
		mode:    f.Mode,
		modTime: f.ModTime,
		stat: ids.StatData{
			Size:    int64(len(f.Content)),
			UID:     f.UID,
			GID:     f.GID,
			ModTime: f.ModTime,
			Ctime:   f.Ctime,
		},
	}
}

// mockHandle implements fs.File over a snapshot of the content at open time.
type mockHandle struct {
	fsys *MockFilesystemManager
	path string
	file *MockFile
	r    *bytes.Reader
	info *mockFileInfo
}

func (h *mockHandle) Stat() (fs.FileInfo, error) { return h.info, nil }
func (h *mockHandle) Close() error               { return nil }

func (h *mockHandle) Read(b []byte) (int, error) {
	if h.file.IsDirectory {
		return 0, &fs.PathError{Op: "read", Path: h.path, Err: fmt.Errorf("is a directory")}
	}
	n, err := h.r.Read(b)
	if err != nil {
		h.fsys.mu.Lock()
		if h.file.ChangesDuringRead > 0 {
			h.file.ChangesDuringRead--
			h.file.Ctime = h.file.Ctime.Add(time.Second)
		}
		h.fsys.mu.Unlock()
	}
	return n, err
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	mode    fs.FileMode
	modTime time.Time
	stat    ids.StatData
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.stat.Size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.mode.IsDir() }
func (m *mockFileInfo) Sys() any           { return &m.stat }

// Compile-time check
var _ ids.FilesystemManager = (*MockFilesystemManager)(nil)
