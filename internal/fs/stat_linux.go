//go:build linux

package fs

import (
	"fmt"
	"io/fs"
	"syscall"
	"time"

	"ids-go/internal/ids"
)

// ExtractStatData extracts ownership, size and timestamps from a FileInfo
// backed by *syscall.Stat_t.
func (m *OSFilesystemManager) ExtractStatData(info fs.FileInfo) (*ids.StatData, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("cannot extract stat data: expected *syscall.Stat_t, got %T", info.Sys())
	}

	return &ids.StatData{
		Size:    stat.Size,
		UID:     int64(stat.Uid),
		GID:     int64(stat.Gid),
		ModTime: time.Unix(stat.Mtim.Sec, stat.Mtim.Nsec),
		Ctime:   time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec),
	}, nil
}
