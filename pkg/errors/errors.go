package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Caller errors
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeConflict   ErrorType = "CONFLICT"

	// Store errors
	ErrorTypeRateLimit   ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"

	// Everything else
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// Conflict and unavailability codes
const (
	CodeCreateFailed            = "CREATE_FAILED"
	CodeLineageExists           = "LINEAGE_EXISTS"
	CodePreconditionFailed      = "PRECONDITION_FAILED"
	CodeTransactionConflict     = "TRANSACTION_CONFLICT"
	CodeLineageInconsistent     = "LINEAGE_INCONSISTENT"
	CodeVersionRetriesExhausted = "VERSION_RETRIES_EXHAUSTED"
	CodeReconcileRequired       = "RECONCILE_REQUIRED"
	CodeTimeout                 = "TIMEOUT"
	CodeCircuitOpen             = "CIRCUIT_OPEN"
	CodeThrottled               = "THROTTLED"
)

// DefaultRetryAfter is used when the store does not supply a hint.
const DefaultRetryAfter = time.Second

// AppError represents an application-specific error
type AppError struct {
	Type         ErrorType              `json:"type"`
	Message      string                 `json:"message"`
	Code         string                 `json:"code,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Operation    string                 `json:"operation,omitempty"`
	PartitionKey string                 `json:"partitionKey,omitempty"`
	RetryAfter   time.Duration          `json:"-"`
	Cause        error                  `json:"-"`
	StackTrace   string                 `json:"-"`
	HTTPStatus   int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Operation != "" {
		msg = fmt.Sprintf("%s [op=%s", msg, e.Operation)
		if e.PartitionKey != "" {
			msg = fmt.Sprintf("%s key=%s", msg, e.PartitionKey)
		}
		msg += "]"
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// WithOperation records which store operation failed and against which partition
func (e *AppError) WithOperation(operation, partitionKey string) *AppError {
	e.Operation = operation
	e.PartitionKey = partitionKey
	return e
}

// WithRetryAfter sets the back-off hint for throttled requests
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	e.RetryAfter = d
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

// Constructor functions for common error types

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		StackTrace: captureStackTrace(),
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		StackTrace: captureStackTrace(),
	}
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewThrottledError creates a rate limit error carrying the store's retry hint
func NewThrottledError(retryAfter time.Duration) *AppError {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("request throttled, retry after %s", retryAfter),
		Code:       CodeThrottled,
		RetryAfter: retryAfter,
		HTTPStatus: http.StatusTooManyRequests,
		StackTrace: captureStackTrace(),
	}
}

// NewUnavailableError creates a service unavailable error
func NewUnavailableError(service string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    fmt.Sprintf("service '%s' is unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		StackTrace: captureStackTrace(),
	}
}

// NewTimeoutError creates an unavailable error for an operation that ran out of time
func NewTimeoutError(operation string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnavailable,
		Message:    fmt.Sprintf("operation '%s' timed out", operation),
		Code:       CodeTimeout,
		HTTPStatus: http.StatusServiceUnavailable,
		StackTrace: captureStackTrace(),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// HasCode checks if an error carries a specific code
func HasCode(err error, code string) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, ErrorTypeConflict)
}

// IsThrottled checks if an error is a rate limit error
func IsThrottled(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

// IsUnavailable checks if an error is a store unavailable error
func IsUnavailable(err error) bool {
	return IsType(err, ErrorTypeUnavailable)
}

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool {
	return IsType(err, ErrorTypeInternal)
}

// RetryAfter returns the back-off hint of a throttled error, or zero
func RetryAfter(err error) time.Duration {
	if appErr := GetAppError(err); appErr != nil && appErr.Type == ErrorTypeRateLimit {
		return appErr.RetryAfter
	}
	return 0
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, add context to message
	if appErr := GetAppError(err); appErr != nil {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}

	// Otherwise create a new internal error
	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
