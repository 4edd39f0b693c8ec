package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	assert.Equal(t, "[VALIDATION_ERROR] query is empty", ErrEmptyQuery.Error())

	wrapped := NewDomainErrorWithCause(ErrCodeDelivery, "post failed", errors.New("connection refused"))
	assert.Equal(t, "[DELIVERY_ERROR] post failed: connection refused", wrapped.Error())
}

func TestDomainError_IsAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewDomainErrorWithCause(ErrCodeDelivery, "telemetry event not delivered", cause)

	assert.ErrorIs(t, err, ErrTelemetryUndelivered)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTelemetryQueueFull)

	var de *DomainError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &de))
	assert.Equal(t, ErrCodeDelivery, de.Code)
}

func TestIsValidationSkip(t *testing.T) {
	assert.True(t, IsValidationSkip(ErrEmptyQuery))
	assert.True(t, IsValidationSkip(fmt.Errorf("search: %w", ErrEmptyQuery)))
	assert.False(t, IsValidationSkip(ErrInvalidConversion))
	assert.False(t, IsValidationSkip(nil))
}
