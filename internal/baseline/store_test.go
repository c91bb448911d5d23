package baseline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ids-go/internal/ids"
	"ids-go/internal/testutil"
)

func sampleSnapshot() *ids.Snapshot {
	ports := ids.NewPortSet()
	ports.TCP = []int{22, 8080}
	ports.UDP = []int{68}
	return &ids.Snapshot{
		BuildTime: "2024-01-15 10:30:00.000000",
		Files: map[string]*ids.FileRecord{
			"/etc/passwd": {
				SHA512:       testutil.HelloSHA512,
				SHA256:       testutil.HelloSHA256,
				MD5:          testutil.HelloMD5,
				LastModified: "2024-01-15 10:30:00.000000",
				CreationTime: "2024-01-15 10:30:00.000000",
				Owner:        "0",
				GroupOwner:   "0",
				Size:         "5",
			},
			"/etc/hosts": {
				SHA512:       testutil.EmptySHA512,
				SHA256:       testutil.EmptySHA256,
				MD5:          testutil.EmptyMD5,
				LastModified: "2024-01-15 10:30:00.000000",
				CreationTime: "2024-01-15 10:30:00.000000",
				Owner:        "0",
				GroupOwner:   "0",
				Size:         "0",
			},
		},
		ListeningPorts: ports,
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	for _, format := range []ids.Format{ids.FormatReadable, ids.FormatCompact} {
		t.Run(format.String(), func(t *testing.T) {
			t.Parallel()
			store := NewFileStore(filepath.Join(t.TempDir(), "var", "ids", "db.json"))
			want := sampleSnapshot()

			require.NoError(t, store.Persist(want, format))
			assert.True(t, store.Exists())

			got, err := store.Load()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestFileStore_Formats(t *testing.T) {
	dir := t.TempDir()
	readable := NewFileStore(filepath.Join(dir, "readable.json"))
	compact := NewFileStore(filepath.Join(dir, "compact.json"))
	s := sampleSnapshot()

	require.NoError(t, readable.Persist(s, ids.FormatReadable))
	require.NoError(t, compact.Persist(s, ids.FormatCompact))

	r, err := os.ReadFile(readable.Location())
	require.NoError(t, err)
	c, err := os.ReadFile(compact.Location())
	require.NoError(t, err)

	assert.Contains(t, string(r), "\n  \"build_time\"")
	assert.NotContains(t, string(c), "\n")
	assert.NotContains(t, string(c), ": ")
	assert.Less(t, len(c), len(r))

	// File keys are sorted, so the artifact is stable across builds.
	assert.Less(t, bytes.Index(c, []byte("/etc/hosts")), bytes.Index(c, []byte("/etc/passwd")))

	fromR, err := readable.Load()
	require.NoError(t, err)
	fromC, err := compact.Load()
	require.NoError(t, err)
	assert.Equal(t, fromR, fromC)
}

func TestFileStore_PortFailureSurvivesRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "db.json"))
	s := sampleSnapshot()
	s.ListeningPorts = ids.FailedPortSet()

	require.NoError(t, store.Persist(s, ids.FormatCompact))
	data, err := os.ReadFile(store.Location())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"listening_ports":"Error retrieving listening ports"`)

	got, err := store.Load()
	require.NoError(t, err)
	assert.True(t, got.ListeningPorts.Failed())
}

func TestFileStore_Load(t *testing.T) {
	t.Run("missing baseline", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "db.json"))
		assert.False(t, store.Exists())

		_, err := store.Load()
		assert.True(t, errors.Is(err, ids.ErrBaselineMissing), "got %v", err)
	})

	tests := map[string]string{
		"not json":           "{files",
		"empty":              "",
		"missing build_time": `{"files":{},"listening_ports":{"TCP":[],"UDP":[]}}`,
		"missing files":      `{"build_time":"2024-01-15 10:30:00.000000"}`,
		"null record":        `{"build_time":"x","files":{"/etc/passwd":null}}`,
		"files is a list":    `{"build_time":"x","files":[]}`,
		"ports is a number":  `{"build_time":"x","files":{},"listening_ports":7}`,
		"ports missing":      `{"build_time":"x","files":{}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "db.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0640))

			_, err := NewFileStore(path).Load()
			assert.True(t, errors.Is(err, ids.ErrSerialization), "got %v", err)
		})
	}
}

func TestFileStore_PersistReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "db.json"))

	first := sampleSnapshot()
	require.NoError(t, store.Persist(first, ids.FormatReadable))

	second := sampleSnapshot()
	second.BuildTime = "2024-01-16 08:00:00.000000"
	delete(second.Files, "/etc/hosts")
	require.NoError(t, store.Persist(second, ids.FormatCompact))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, second, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	info, err := os.Stat(store.Location())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Load()
	assert.ErrorIs(t, err, ids.ErrBaselineMissing)
	assert.Nil(t, store.Bytes())

	s := sampleSnapshot()
	require.NoError(t, store.Persist(s, ids.FormatCompact))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.NotSame(t, s, got)
}
