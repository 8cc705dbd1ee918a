package types

import "fmt"

// ErrorCode represents a unified error code across the services.
type ErrorCode string

const (
	// ErrValidation marks bad user input: empty prompt, non-positive price
	// or quantity, unknown farm. Never retried.
	ErrValidation ErrorCode = "VALIDATION"
	// ErrPeerCommunication marks transport or peer-side failures.
	ErrPeerCommunication ErrorCode = "PEER_COMMUNICATION"
	// ErrConfiguration marks unusable configuration (unsupported transport,
	// missing credentials). Fatal, never retried.
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrTimeout marks a request that exceeded its wall-clock budget.
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrInternal marks any other unhandled internal failure.
	ErrInternal ErrorCode = "INTERNAL"
	// ErrProvider marks an LLM provider failure for the current turn.
	ErrProvider ErrorCode = "PROVIDER"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message, HTTPStatus: defaultStatus(code)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

func defaultStatus(code ErrorCode) int {
	switch code {
	case ErrValidation:
		return 400
	case ErrTimeout:
		return 504
	case ErrPeerCommunication, ErrConfiguration, ErrInternal, ErrProvider:
		return 500
	default:
		return 500
	}
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}
