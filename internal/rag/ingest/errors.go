package ingest

import (
	"fmt"
)

// ValidationError reports invalid caller input (missing filename,
// unsupported extension). It is raised before any side effect, so a
// rejected upload never touches the index.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NewValidationError formats a new ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ProcessingError reports a failure while loading or splitting a file that
// passed validation. Temporary resources are cleaned up before it is
// returned.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
