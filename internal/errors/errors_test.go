package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	for _, err := range []error{
		ErrAccountNotFound,
		ErrSourceAccountNotFound,
		ErrDestinationAccountNotFound,
		fmt.Errorf("lookup: %w", ErrAccountNotFound),
	} {
		if !IsNotFound(err) {
			t.Errorf("IsNotFound(%v) = false", err)
		}
	}
	if IsNotFound(ErrInsufficientFunds) {
		t.Error("IsNotFound(ErrInsufficientFunds) = true")
	}
	if IsNotFound(stderrors.New("other")) {
		t.Error("IsNotFound(other) = true")
	}
}

func TestIsValidation(t *testing.T) {
	err := NewValidationError("deposit amount must be positive")
	if !IsValidation(err) {
		t.Error("IsValidation = false for a ValidationError")
	}
	if err.Error() != "deposit amount must be positive" {
		t.Errorf("message=%q", err.Error())
	}
	if !IsValidation(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsValidation = false for a wrapped ValidationError")
	}
	if IsValidation(ErrAccountNotFound) {
		t.Error("IsValidation(ErrAccountNotFound) = true")
	}
}

func TestStorageErrorUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewStorageError("begin", cause)
	if !stderrors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if IsNotFound(err) || IsValidation(err) || IsInsufficientFunds(err) {
		t.Error("StorageError must not classify as a domain error")
	}
}
