// Package errors defines AppError, the error type shared by streams, the
// Redis bridge and the HTTP surface. Each code carries its HTTP status and
// whether a retry can help; JSON bodies follow RFC 7807 field naming.
package errors

import (
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

// WithDetail sets one detail and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with an explicit status. Retryability follows
// the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// newCode creates an AppError whose status and retryability come from the
// code table.
func newCode(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...), StatusOf(code))
}

func ServiceUnavailable(service string) *AppError {
	return newCode(ErrCodeServiceUnavailable, "The %s is temporarily unavailable. Please try again.", service).
		WithDetail("service", service)
}

func ConnectionFailed(service string) *AppError {
	return newCode(ErrCodeConnectionFailed, "Unable to connect to %s. Please verify the service is running.", service).
		WithDetail("service", service)
}

// NotFound reports a missing resource; id is omitted from details when empty.
func NotFound(resource, id string) *AppError {
	e := newCode(ErrCodeNotFound, "The requested %s was not found.", resource).WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// InvalidInput reports a bad value for field.
func InvalidInput(field, reason string) *AppError {
	e := newCode(ErrCodeInvalidInput, "Invalid input: %s", reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// PayloadTooLarge rejects a request body over limit bytes.
func PayloadTooLarge(limit int64) *AppError {
	return newCode(ErrCodePayloadTooLarge, "The request body exceeds %d bytes.", limit).
		WithDetail("limit", limit)
}

// RateLimited rejects a caller that used its allowance of perMinute requests.
func RateLimited(perMinute int) *AppError {
	return newCode(ErrCodeRateLimited, "Rate limit of %d requests per minute exceeded.", perMinute).
		WithDetail("limit", perMinute)
}

// Validation reports an INVALID_INPUT error with a free-form message.
func Validation(message string) *AppError {
	return newCode(ErrCodeInvalidInput, "%s", message)
}

// Internal wraps an unexpected failure without exposing it to clients.
func Internal(cause error) *AppError {
	return newCode(ErrCodeInternal, "An unexpected error occurred. Please try again or contact support.").
		WithCause(cause)
}

// EventNotFound reports a registry lookup of an unregistered event name.
func EventNotFound(name string) *AppError {
	return newCode(ErrCodeEventNotFound, "Event %q is not defined.", name).WithDetail("event", name)
}

// ProducerFailure wraps the error returned by the producer of event.
func ProducerFailure(event string, cause error) *AppError {
	return newCode(ErrCodeProducerFailure, "Producer for event %q failed.", event).
		WithDetail("event", event).
		WithCause(cause)
}

// ConnectionLost wraps the write error that revealed a gone client.
func ConnectionLost(cause error) *AppError {
	return newCode(ErrCodeConnectionLost, "The client connection was lost.").WithCause(cause)
}

// StreamNotRunning rejects an operation on a stream in state.
func StreamNotRunning(state string) *AppError {
	return newCode(ErrCodeStreamNotRunning, "The stream is not running (state: %s).", state).
		WithDetail("state", state)
}
