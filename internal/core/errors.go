package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("expense not found")
	ErrInvalidAmount = NewValidationError("amount", "amount must be a non-negative number")
	ErrInvalidDate   = NewValidationError("date", "date must be YYYY-MM-DD or RFC 3339")

	ErrRequiredFields = NewValidationError("", "Title, amount, and category are required")
)

// ValidationError reports a missing or invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports an unknown expense id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("expense not found: %s", e.ID)
}

// Is makes errors.Is(err, ErrNotFound) hold for every NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// StoreError wraps a connectivity or query failure of a store backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore wraps err as a StoreError unless it already carries a domain error.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsNotFound(err) || IsStore(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
