package ingest

import (
	"errors"
	"fmt"
)

// ErrEmptyJudgeName is returned when a judge assignment has no name.
var ErrEmptyJudgeName = errors.New("empty judge name")

// IOFailure wraps a storage or file-system failure that aborts one file's
// unit of work.
type IOFailure struct {
	Op   string
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error {
	return e.Err
}

// FieldError records a best-effort step that failed for one row without
// aborting the rest of it.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
