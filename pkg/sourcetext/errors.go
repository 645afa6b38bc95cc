package sourcetext

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a recorded line cannot be relocated within the search bound.
	ErrNotFound = errors.New("source line not found")
	// ErrLineOutOfRange is returned when a requested line is outside the file.
	ErrLineOutOfRange = errors.New("line out of range")
)

// ReadError reports that a source file could not be used to build context.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("unable to read source %q: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
