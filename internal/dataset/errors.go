package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when a named column is not in the table.
	ErrColumnNotFound = errors.New("column not found")
	// ErrNotNumeric is returned when a numeric column was requested but the
	// column holds text.
	ErrNotNumeric = errors.New("column is not numeric")
)

// LoadError reports a source that is missing, malformed, or empty. It is
// fatal for the whole dashboard.
type LoadError struct {
	Source string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("load %s: %s", e.Source, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErrorf(source string, err error, format string, args ...interface{}) *LoadError {
	return &LoadError{Source: source, Reason: fmt.Sprintf(format, args...), Err: err}
}
