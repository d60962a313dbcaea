package directory

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID   = errors.New("candidate id already exists")
	ErrNotFound      = errors.New("candidate not found")
	ErrNoSelection   = errors.New("no candidate picked")
	ErrInvalidRating = errors.New("rating out of range")

	// ErrInvalidCandidate covers values the snapshot loader would refuse.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrCorruptState is matched by every *CorruptStateError.
	ErrCorruptState = errors.New("corrupt directory snapshot")
)

// CorruptStateError reports a snapshot file that exists but cannot be used.
type CorruptStateError struct {
	Path string
	Err  error
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("corrupt directory snapshot %s: %v", e.Path, e.Err)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

func (e *CorruptStateError) Is(target error) bool {
	return target == ErrCorruptState
}
