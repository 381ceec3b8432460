package core

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("transaction not found")
	ErrStorageCorrupt     = errors.New("stored ledger is corrupt")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidDate        = errors.New("invalid date")
	ErrEmptyCategory      = errors.New("empty category")
	ErrUnknownCategory    = errors.New("category not allowed for transaction type")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyID            = errors.New("empty transaction id")
	ErrEmptyUser          = errors.New("empty user id")
)

// ValidationError names the draft field that failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrValidation) match any field failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CorruptionError reports a persisted ledger payload that could not be decoded.
type CorruptionError struct {
	UserID string
	Err    error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("ledger for user %q is corrupt: %v", e.UserID, e.Err)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

func (e *CorruptionError) Is(target error) bool {
	return target == ErrStorageCorrupt
}
