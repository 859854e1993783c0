package errors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common cases
var (
	// ErrTransient indicates a temporary error that should be retried
	ErrTransient = errors.New("transient error")

	// ErrPermanent indicates a permanent error that should not be retried
	ErrPermanent = errors.New("permanent error")

	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("timeout")

	// ErrRateLimit indicates the upstream quota is exhausted
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrInvalidQuery indicates the upstream rejected the search query
	ErrInvalidQuery = errors.New("invalid query")

	// ErrServiceUnavailable indicates the upstream returned a server error
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNetwork indicates a transport failure before any response was read
	ErrNetwork = errors.New("network error")
)

// TransientError wraps an error to mark it as transient (retryable)
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient error: %v", e.Cause)
	}
	return "transient error"
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// NewTransient creates a new transient error
func NewTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Cause: err}
}

// NewTransientf creates a new transient error with formatting
func NewTransientf(format string, args ...interface{}) error {
	return &TransientError{Cause: fmt.Errorf(format, args...)}
}

// PermanentError wraps an error to mark it as permanent (not retryable)
type PermanentError struct {
	Cause error
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("permanent error: %v", e.Cause)
	}
	return "permanent error"
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// NewPermanent creates a new permanent error
func NewPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Cause: err}
}

// NewPermanentf creates a new permanent error with formatting
func NewPermanentf(format string, args ...interface{}) error {
	return &PermanentError{Cause: fmt.Errorf(format, args...)}
}

// RateLimitError is returned for a 403 carrying a zero remaining quota.
// It is resolved by callers through cache fallback or a scheduled retry and
// is never shown to users directly.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return ErrRateLimit.Error()
	}
	return fmt.Sprintf("%s (resets at %s)", ErrRateLimit.Error(), e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimit
}

// InvalidQueryError is returned for 422 responses and for 403 responses that
// are not caused by quota exhaustion.
type InvalidQueryError struct {
	Status int
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("%s (status %d): %s", ErrInvalidQuery.Error(), e.Status, e.Reason)
}

func (e *InvalidQueryError) Unwrap() error {
	return ErrInvalidQuery
}

// ServiceUnavailableError is returned for 5xx responses
type ServiceUnavailableError struct {
	Status int
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s (status %d)", ErrServiceUnavailable.Error(), e.Status)
}

func (e *ServiceUnavailableError) Unwrap() error {
	return ErrServiceUnavailable
}

// StatusError is returned for any other non-2xx response
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("unexpected status %d", e.Status)
}

// NetworkError wraps a transport failure
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", ErrNetwork.Error(), e.Cause)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Cause}
}

// ClassifyStatus maps an upstream HTTP status to the error taxonomy.
// remaining is the parsed X-RateLimit-Remaining header, or -1 when absent.
func ClassifyStatus(status int, remaining int, resetAt time.Time, message string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 403 && remaining == 0:
		return &RateLimitError{ResetAt: resetAt}
	case status == 403:
		return &InvalidQueryError{Status: status, Reason: "query too complex"}
	case status == 422:
		return &InvalidQueryError{Status: status, Reason: "invalid query"}
	case status == 404:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case status >= 500:
		return &ServiceUnavailableError{Status: status}
	default:
		return &StatusError{Status: status, Message: message}
	}
}

// IsRateLimit reports whether err signals an exhausted quota
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// IsNotFound reports whether err is an upstream 404
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsServiceUnavailable reports whether err is an upstream 5xx
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsCancellation reports whether err only means a newer request superseded this one
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// ResetTime extracts the reset time carried by a rate limit error
func ResetTime(err error) (time.Time, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && !rl.ResetAt.IsZero() {
		return rl.ResetAt, true
	}
	return time.Time{}, false
}

// IsTransient checks if an error is transient using errors.As
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Check if explicitly marked as transient
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	// Check if explicitly marked as permanent
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	// Check for known sentinel errors
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidQuery) {
		return false
	}

	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrNetwork) {
		return true
	}

	// Default to non-transient for safety (don't retry unknown errors)
	return false
}

// IsPermanent checks if an error is permanent (not retryable)
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}
