package ids

import "sort"

// Change pairs the expected record of a monitored path with what was found.
// Current is nil when the path could no longer be fingerprinted; Error then
// says why.
type Change struct {
	Expected *FileRecord `json:"expected"`
	Current  *FileRecord `json:"current"`
	Error    string      `json:"error,omitempty"`
}

// Absent reports whether the current side is the "absent" sentinel.
func (c *Change) Absent() bool {
	return c.Current == nil
}

// ChangeReport maps every divergent path to its Change.
// An empty report is the "ok" state.
type ChangeReport map[string]*Change

// OK reports whether no monitored path diverged.
func (r ChangeReport) OK() bool {
	return len(r) == 0
}

// Paths returns the divergent paths in sorted order.
func (r ChangeReport) Paths() []string {
	paths := make([]string, 0, len(r))
	for p := range r {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Compare diffs the file sections of two snapshots.
// Only the paths of expected are considered: a path missing from current is
// reported with a nil current record, and paths that only appear in current
// are ignored.
func Compare(expected, current map[string]*FileRecord) ChangeReport {
	report := ChangeReport{}
	for path, want := range expected {
		got, ok := current[path]
		if !ok || got == nil {
			report[path] = &Change{Expected: want}
			continue
		}
		if !want.Equal(got) {
			report[path] = &Change{Expected: want, Current: got}
		}
	}
	return report
}
