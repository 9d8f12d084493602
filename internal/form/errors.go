package form

import (
	"errors"
	"fmt"
)

var (
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrUnknownField     = errors.New("unknown draft field")
	ErrDraftNotFound    = errors.New("draft not found")
)

// ValidationError names the first draft field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func required(field string) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("%s is required", field)}
}
