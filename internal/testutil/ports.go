package testutil

import (
	"context"
	"sync"

	"ids-go/internal/ids"
)

// StubPortEnumerator returns a preset PortSet and counts calls.
type StubPortEnumerator struct {
	mu    sync.Mutex
	set   ids.PortSet
	calls int
}

func NewStubPortEnumerator(set ids.PortSet) *StubPortEnumerator {
	return &StubPortEnumerator{set: set}
}

func (s *StubPortEnumerator) ListeningPorts(context.Context) ids.PortSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.set
}

// Calls returns how many times ListeningPorts ran.
func (s *StubPortEnumerator) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ ids.PortEnumerator = (*StubPortEnumerator)(nil)
