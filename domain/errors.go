package domain

import (
	"errors"
	"strings"
)

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the created item already exists
	ErrConflict = errors.New("Your Item already exist")
	// ErrStateConflict will throw if the operation does not fit the item's current status
	ErrStateConflict = errors.New("Your Item is in a conflicting state")
	// ErrExpired will throw if a time-bound item is acted on past its window
	ErrExpired = errors.New("Your Item has expired")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	ErrUnimplemented = errors.New("Unimplemented")
)

// ValidationError reports every violated rule of an operation, not just the
// first one. It matches ErrBadParamInput under errors.Is so callers can
// branch on the class without losing the detail.
type ValidationError struct {
	Violations []string
}

func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrBadParamInput
}
