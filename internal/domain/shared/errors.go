// Package shared contains common domain types, errors, and events that are
// used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Storage errors
	ErrStorage = errors.New("storage error")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "codec", "inventory", "gradebook"
	Op      string // Operation that failed, e.g., "Encode", "Sell"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Codec domain errors
var (
	ErrInvalidSymbol       = NewDomainError("codec", "Encode", ErrInvalidInput, "symbol is not in the alphabet")
	ErrMalformedCiphertext = NewDomainError("codec", "Decode", ErrInvalidFormat, "malformed ciphertext")
	ErrInvalidAlphabet     = NewDomainError("codec", "NewTable", ErrValidation, "invalid alphabet")
)

// Envelope errors
var (
	ErrMalformedEnvelope = NewDomainError("envelope", "Unmarshal", ErrInvalidFormat, "malformed envelope")
	ErrInvalidSeed       = NewDomainError("envelope", "Marshal", ErrValueOutOfRange, "seed must be in [0, 999999]")
)

// Inventory domain errors
var (
	ErrItemNotFound      = NewDomainError("inventory", "Find", ErrNotFound, "item not found")
	ErrItemAlreadyExists = NewDomainError("inventory", "Add", ErrAlreadyExists, "item already exists")
	ErrInsufficientStock = NewDomainError("inventory", "Sell", ErrInvalidState, "not enough stock left")
	ErrInvalidQuantity   = NewDomainError("inventory", "Sell", ErrValueOutOfRange, "quantity must be positive")
	ErrInvalidItem       = NewDomainError("inventory", "Validate", ErrValidation, "invalid item")
	ErrInvalidRecord     = NewDomainError("inventory", "Parse", ErrInvalidFormat, "invalid inventory record")
)

// Gradebook domain errors
var (
	ErrStudentNotFound      = NewDomainError("gradebook", "Find", ErrNotFound, "student not found")
	ErrStudentAlreadyExists = NewDomainError("gradebook", "Enroll", ErrAlreadyExists, "student already exists")
	ErrInvalidStudent       = NewDomainError("gradebook", "Validate", ErrValidation, "invalid student")
	ErrInvalidMark          = NewDomainError("gradebook", "SetMark", ErrValueOutOfRange, "mark must be between -1 and 100")
	ErrMarkIndexOutOfRange  = NewDomainError("gradebook", "SetMark", ErrValueOutOfRange, "assignment index out of range")
	ErrNoMarks              = NewDomainError("gradebook", "Average", ErrInvalidState, "student has no recorded marks")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsMalformed checks if the error reports unreadable stored or encoded data.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrInvalidFormat)
}
