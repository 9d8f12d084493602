package repository

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrUnauthenticated = errors.New("caller is not authenticated")
)

// StoreError is returned by every failing DocumentStore operation. Err is one
// of the sentinels above or the underlying driver error.
type StoreError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the addressed document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
