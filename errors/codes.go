package errors

import "net/http"

// ErrorCode is a machine-readable error code.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodePayloadTooLarge    ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"

	// ErrCodeEventNotFound is a registry lookup of an unregistered name.
	ErrCodeEventNotFound ErrorCode = "EVENT_NOT_FOUND"
	// ErrCodeProducerFailure ends the stream whose producer failed.
	ErrCodeProducerFailure ErrorCode = "PRODUCER_FAILURE"
	// ErrCodeConnectionLost is recorded when the client goes away mid-stream.
	ErrCodeConnectionLost ErrorCode = "CONNECTION_LOST"
	// ErrCodeStreamNotRunning rejects operations that need a running stream.
	ErrCodeStreamNotRunning ErrorCode = "STREAM_NOT_RUNNING"
)

type codeInfo struct {
	status    int
	retryable bool
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeConnectionFailed:   {http.StatusServiceUnavailable, true},
	ErrCodeConnectionLost:     {http.StatusServiceUnavailable, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeEventNotFound:      {http.StatusNotFound, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodePayloadTooLarge:    {http.StatusRequestEntityTooLarge, false},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeStreamNotRunning:   {http.StatusConflict, false},
	ErrCodeProducerFailure:    {http.StatusInternalServerError, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether errors with code may succeed on retry.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}

// StatusOf returns the HTTP status for code, 500 for unknown codes.
func StatusOf(code ErrorCode) int {
	if info, ok := codes[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
