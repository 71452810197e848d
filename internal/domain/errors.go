package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrInvalidInput indicates that the input document or request is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that a request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExhausted indicates a hard provider quota or billing limit.
	// Calls failing with this error must not be retried.
	ErrQuotaExhausted = errors.New("quota exhausted")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrEmptyResponse indicates that a provider returned no usable output.
	ErrEmptyResponse = errors.New("empty response")

	// ErrRunTimeout indicates that the global run deadline expired.
	ErrRunTimeout = errors.New("run timeout")
)

// ConfigurationError is a fatal pre-flight error: the run never starts.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ValidationError is a pre-flight error for a bad input document or request.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// RateLimitError carries a provider-supplied retry hint for a transient
// rate-limit rejection.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Service, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// QuotaError represents daily-quota or billing exhaustion for a service.
// It is fatal for the affected call and spends no retry budget.
type QuotaError struct {
	Service string
	Used    int
	Limit   int
	Cause   error
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("quota exhausted for %s: used %d/%d in the last 24h", e.Service, e.Used, e.Limit)
	}
	return fmt.Sprintf("quota exhausted for %s: %v", e.Service, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *QuotaError) Unwrap() error {
	return ErrQuotaExhausted
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(service string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Service: service, RetryAfter: retryAfter}
}
