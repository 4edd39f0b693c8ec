package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code and message so sentinel values work
// with errors.Is even when a cause has been attached.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code && e.Message == other.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeProvider    = "PROVIDER_ERROR"
	ErrCodeDelivery    = "DELIVERY_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeUnsupported = "UNSUPPORTED"
)

// Validation errors
var (
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query is empty")
	ErrMissingInterfaceKey  = NewDomainError(ErrCodeValidation, "interface key is required")
	ErrInvalidConversion    = NewDomainError(ErrCodeValidation, "conversion event name is required")
	ErrUnsupportedProvider  = NewDomainError(ErrCodeUnsupported, "unsupported search provider")
	ErrUnknownRank          = NewDomainError(ErrCodeNotFound, "no displayed result at rank")
	ErrStaleResult          = NewDomainError(ErrCodeNotFound, "displayed results changed")
	ErrTelemetryQueueFull   = NewDomainError(ErrCodeDelivery, "telemetry queue full")
	ErrTelemetryUndelivered = NewDomainError(ErrCodeDelivery, "telemetry event not delivered")
)

// IsValidationSkip reports whether err is the silent empty-query skip.
func IsValidationSkip(err error) bool {
	return errors.Is(err, ErrEmptyQuery)
}
