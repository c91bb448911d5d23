package baseline

import (
	"sync"

	"ids-go/internal/ids"
)

// MemoryStore holds the serialized baseline in memory. Snapshots go through
// the same codec as FileStore, so a loaded Snapshot never aliases a persisted one.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Location() string { return "memory" }

func (s *MemoryStore) Persist(snapshot *ids.Snapshot, format ids.Format) error {
	data, err := ids.EncodeSnapshot(snapshot, format)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

func (s *MemoryStore) Load() (*ids.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data == nil {
		return nil, ids.ErrBaselineMissing
	}
	return ids.DecodeSnapshot(s.data)
}

// Bytes returns the serialized baseline, or nil if none was persisted.
func (s *MemoryStore) Bytes() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.data...)
}

var _ ids.BaselineStore = (*MemoryStore)(nil)
