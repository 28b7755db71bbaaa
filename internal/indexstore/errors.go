package indexstore

import (
	"errors"
	"fmt"
)

// ErrIndexNotFound matches any *IndexNotFoundError via errors.Is.
var ErrIndexNotFound = errors.New("index not found")

// IndexNotFoundError means the course has no usable index on disk, either
// because it was never indexed or because it is not configured.
type IndexNotFoundError struct {
	Course string
	Err    error
}

func (e *IndexNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no index for course %q: %v", e.Course, e.Err)
	}
	return fmt.Sprintf("no index for course %q", e.Course)
}

func (e *IndexNotFoundError) Unwrap() error { return e.Err }

func (e *IndexNotFoundError) Is(target error) bool { return target == ErrIndexNotFound }

// CorruptIndexError means the stored index and chunk list cannot be paired:
// unreadable files, a count mismatch or out-of-order chunk ids.
type CorruptIndexError struct {
	Course  string
	Version string
	Err     error
}

func (e *CorruptIndexError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("corrupt index for course %q: %v", e.Course, e.Err)
	}
	return fmt.Sprintf("corrupt index for course %q (version %s): %v", e.Course, e.Version, e.Err)
}

func (e *CorruptIndexError) Unwrap() error { return e.Err }
