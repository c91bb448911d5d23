package mirror

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"ids-go/internal/ids"
)

// MemoryMirror is an in-memory implementation of the Mirror interface,
// useful for testing. This implementation is safe for concurrent use.
type MemoryMirror struct {
	mu        sync.RWMutex
	baselines map[string][]byte // hostID -> serialized baseline
}

// NewMemoryMirror creates an empty in-memory mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{baselines: make(map[string][]byte)}
}

// PutBaseline stores the baseline for hostID.
func (m *MemoryMirror) PutBaseline(hostID string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read baseline: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselines[hostID] = data
	return nil
}

// GetBaseline writes the stored baseline for hostID to w.
func (m *MemoryMirror) GetBaseline(hostID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.baselines[hostID]
	if !ok {
		return fmt.Errorf("%w for host: %s", ids.ErrMirrorEmpty, hostID)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write baseline: %w", err)
	}
	return nil
}

// ValidateSetup always succeeds for in-memory mirror.
func (m *MemoryMirror) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryMirror implements ids.Mirror interface
var _ ids.Mirror = (*MemoryMirror)(nil)
