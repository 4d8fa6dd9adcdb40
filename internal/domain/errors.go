package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors. Concrete error types below match them through errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrWriteFailure = errors.New("write failure")
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError reports a missing document.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Collection, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFound builds a NotFoundError for the given document.
func NewNotFound(collection, id string) error {
	return &NotFoundError{Collection: collection, ID: id}
}

// IsUserNotFound reports whether err is a missing user document.
func IsUserNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Collection == CollectionUsers
}

// WriteError reports a failed single-document write.
// Sibling writes issued alongside it are not undone.
type WriteError struct {
	Op         string
	Collection string
	ID         string
	Field      string
	Err        error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s/%s.%s: %v", e.Op, e.Collection, e.ID, e.Field, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWriteFailure }
