package testutil

import "ids-go/internal/mirror"

// NewTestMirror creates an empty in-memory mirror.
func NewTestMirror() *mirror.MemoryMirror {
	return mirror.NewMemoryMirror()
}
