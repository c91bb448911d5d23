package ids

import "sort"

// Snapshot is a timestamped fingerprint of every monitored path plus the
// host's listening ports. A Snapshot is not modified after it is built.
type Snapshot struct {
	BuildTime      string                 `json:"build_time"`
	Files          map[string]*FileRecord `json:"files"`
	ListeningPorts PortSet                `json:"listening_ports"`
}

// Paths returns the monitored paths in sorted order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for p := range s.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Format selects the serialized form of a persisted Snapshot.
type Format int

const (
	// FormatReadable pretty-prints with two-space indentation.
	FormatReadable Format = iota
	// FormatCompact removes all insignificant whitespace.
	FormatCompact
)

func (f Format) String() string {
	if f == FormatCompact {
		return "compact"
	}
	return "readable"
}

// BaselineStore persists the single baseline slot.
type BaselineStore interface {
	// Persist replaces the baseline with snapshot, serialized in format.
	Persist(snapshot *Snapshot, format Format) error

	// Load reads the baseline. It returns an error matching ErrBaselineMissing
	// when no baseline has been built yet, and ErrSerialization when the
	// artifact cannot be decoded.
	Load() (*Snapshot, error)

	// Location describes where the baseline lives, for operator messages.
	Location() string
}
