package errors

import (
	"errors"
	"fmt"
)

// Domain error kinds for the ledger service. The boundary layer maps
// these to 400 responses carrying the exact message; anything else is a
// storage fault and maps to a generic 500.
var (
	ErrAccountNotFound            = errors.New("account not found")
	ErrSourceAccountNotFound      = errors.New("source account not found")
	ErrDestinationAccountNotFound = errors.New("destination account not found")
	ErrInsufficientFunds          = errors.New("insufficient funds")
)

// ValidationError reports caller-supplied input that violates a
// precondition. The message is returned to the caller verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// StorageError wraps any fault from the storage layer that is not one
// of the modeled domain conditions.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during '%s': %v", e.Op, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func NewStorageError(op string, cause error) error {
	return &StorageError{Op: op, Cause: cause}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrSourceAccountNotFound) ||
		errors.Is(err, ErrDestinationAccountNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
