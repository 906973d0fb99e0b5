package luhmann

import (
	"errors"
	"fmt"
)

var (
	// ErrNotALuhmannNote is matched by *NotALuhmannNoteError.
	ErrNotALuhmannNote = errors.New("not a luhmann note")
	// ErrEmptyLine signals "no ID context". It is not a failure.
	ErrEmptyLine = errors.New("empty line")
	// ErrInvalidDepth is returned for depth windows outside 1..9.
	ErrInvalidDepth = errors.New("depth must be between 1 and 9")
)

// NotALuhmannNoteError reports a non-empty display line without a Luhmann ID.
type NotALuhmannNoteError struct {
	Line string
}

func (e *NotALuhmannNoteError) Error() string {
	return fmt.Sprintf("not a luhmann note: %q", e.Line)
}

// Is makes errors.Is(err, ErrNotALuhmannNote) hold.
func (e *NotALuhmannNoteError) Is(target error) bool {
	return target == ErrNotALuhmannNote
}
