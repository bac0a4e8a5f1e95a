package store

import (
	"errors"
	"fmt"
)

// Store error kinds.
var (
	ErrNotFound   = errors.New("todo not found")
	ErrUnexpected = errors.New("unexpected store error")
)

// Kind classifies a store error.
type Kind int

// Store error kinds. Every error returned by a Store is one of these.
const (
	KindNotFound Kind = iota + 1
	KindUnexpected
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// NotFoundError is returned when no todo has the requested ID.
type NotFoundError struct {
	ID int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("todo %d not found", e.ID)
}

// Is reports ErrNotFound as a match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// UnexpectedError wraps any other failure of the underlying store.
type UnexpectedError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *UnexpectedError) Unwrap() error {
	return e.Err
}

// Is reports ErrUnexpected as a match.
func (e *UnexpectedError) Is(target error) bool {
	return target == ErrUnexpected
}

func notFound(id int64) error {
	return &NotFoundError{ID: id}
}

func unexpected(op string, err error) error {
	return &UnexpectedError{Op: op, Err: err}
}

// KindOf returns the kind of a store error. Anything that is not a
// NotFoundError is reported as KindUnexpected.
func KindOf(err error) Kind {
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindUnexpected
}
