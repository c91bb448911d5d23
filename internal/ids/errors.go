package ids

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing means there is no monitored-path list to work from.
	ErrConfigurationMissing = errors.New("no files configured for monitoring")

	// ErrBaselineMissing means check was requested before any build.
	ErrBaselineMissing = errors.New("baseline does not exist")

	// ErrSerialization means the baseline artifact is not well-formed.
	ErrSerialization = errors.New("baseline is not well-formed")

	// ErrPathUnreadable is matched by every fingerprinting failure.
	ErrPathUnreadable = errors.New("path unreadable")

	ErrNotFound          = errors.New("path does not exist")
	ErrPermission        = errors.New("permission denied")
	ErrNotRegular        = errors.New("not a regular file")
	ErrChangedDuringRead = errors.New("file changed while it was being read")
)

// PathError records a fingerprinting failure for one path.
// It matches ErrPathUnreadable as well as its Kind and the underlying cause.
type PathError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *PathError) Unwrap() []error {
	errs := []error{ErrPathUnreadable, e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
