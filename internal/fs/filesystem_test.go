package fs

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"hosts":              "127.0.0.1 localhost\n",
		"passwd":             "root:x:0:0::/root:/bin/sh\n",
		"passwd.swp":         "swap",
		"cron.d/daily":       "job",
		"cron.d/cache/index": "x",
		ignoreFileName:       "cache/*\n",
	})
	if err := os.Symlink(filepath.Join(root, "hosts"), filepath.Join(root, "hosts.link")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	m := NewOSFilesystemManager([]string{"*.swp"})

	t.Run("non-recursive lists top level regular files", func(t *testing.T) {
		got, err := m.FindFiles(root, false)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		want := []string{filepath.Join(root, "hosts"), filepath.Join(root, "passwd")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("recursive descends and applies the ignore file", func(t *testing.T) {
		got, err := m.FindFiles(root, true)
		if err != nil {
			t.Fatalf("FindFiles() error = %v", err)
		}
		want := []string{
			filepath.Join(root, "cron.d", "cache", "index"),
			filepath.Join(root, "cron.d", "daily"),
			filepath.Join(root, "hosts"),
			filepath.Join(root, "passwd"),
		}
		// "cache/*" is relative to root, so cron.d/cache/index survives.
		if !reflect.DeepEqual(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("not a directory", func(t *testing.T) {
		if _, err := m.FindFiles(filepath.Join(root, "hosts"), false); err == nil {
			t.Error("expected error for a regular file")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := m.FindFiles(filepath.Join(root, "nope"), false); err == nil {
			t.Error("expected error for a missing directory")
		}
	})
}

func TestOSFilesystemManager_OpenAndStat(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "motd")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mtime := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	m := NewOSFilesystemManager(nil)
	f, err := m.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadAll() = %q, %v", data, err)
	}

	info, err := m.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	sd, err := m.ExtractStatData(info)
	if err != nil {
		t.Fatalf("ExtractStatData() error = %v", err)
	}
	if sd.Size != 5 {
		t.Errorf("Size = %d, want 5", sd.Size)
	}
	if !sd.ModTime.Equal(mtime) {
		t.Errorf("ModTime = %v, want %v", sd.ModTime, mtime)
	}
	if sd.UID != int64(os.Getuid()) {
		t.Errorf("UID = %d, want %d", sd.UID, os.Getuid())
	}
	if sd.Ctime.IsZero() {
		t.Error("Ctime should be set")
	}
}
