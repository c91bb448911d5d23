package ids

import (
	"errors"
	"io"
)

// ErrMirrorEmpty is returned by GetBaseline when no baseline was pushed for the host.
var ErrMirrorEmpty = errors.New("no baseline in mirror")

// Mirror keeps an off-host copy of the baseline so a local rewrite of the
// baseline file can be detected and undone.
// All operations use io.Reader/io.Writer for streaming.
type Mirror interface {
	// PutBaseline stores the serialized baseline for hostID, replacing any previous copy.
	// size is the number of bytes that will be read from r.
	PutBaseline(hostID string, r io.Reader, size int64) error

	// GetBaseline retrieves the baseline for hostID and writes it to w.
	// It returns an error matching ErrMirrorEmpty if there is none.
	GetBaseline(hostID string, w io.Writer) error

	// ValidateSetup verifies that the mirror is accessible and properly configured.
	ValidateSetup() error
}
