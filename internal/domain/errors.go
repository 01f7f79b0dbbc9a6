package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage signals a read or write failure against the corpus or result store.
	ErrStorage = errors.New("storage error")
	// ErrProvider signals an embedding or completion provider failure, including malformed responses.
	ErrProvider = errors.New("provider error")
	// ErrDimensionMismatch signals that two compared vectors differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNotFound signals that an expected header or metadata row is absent.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a caller-supplied value that cannot be processed.
	ErrInvalidInput = errors.New("invalid input")
)

// NotFoundError wraps ErrNotFound with the entity kind and id that was looked up.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a not-found error for the given entity.
func NewNotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}
