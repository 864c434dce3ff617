package rpc

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeUsage represents a local misuse of the API, raised before any
	// request is sent to the remote engine
	ErrorTypeUsage
	// ErrorTypeTransport represents network-related errors while talking to
	// the debug server
	ErrorTypeTransport
	// ErrorTypeRPC represents errors reported by the remote engine for a
	// forwarded call
	ErrorTypeRPC
)

// Error represents a structured error with type information
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsType checks if the error is of a specific type
func (e *Error) IsType(errorType ErrorType) bool {
	return e.Type == errorType
}

// NewUsageError creates an error for a local misuse of the API
func NewUsageError(format string, args ...interface{}) *Error {
	return &Error{
		Type:    ErrorTypeUsage,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewTransportError creates a network-related error
func NewTransportError(message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeTransport,
		Message: message,
		Cause:   cause,
	}
}

// NewRPCError creates an error carrying a failure reported by the remote
// engine. The remote message is preserved unchanged.
func NewRPCError(message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeRPC,
		Message: message,
		Cause:   cause,
	}
}

// IsUsageError checks if an error is a local API misuse
func IsUsageError(err error) bool {
	if rErr, ok := err.(*Error); ok {
		return rErr.IsType(ErrorTypeUsage)
	}
	return false
}

// IsTransportError checks if an error is network-related
func IsTransportError(err error) bool {
	if rErr, ok := err.(*Error); ok {
		return rErr.IsType(ErrorTypeTransport)
	}
	return false
}

// IsRPCError checks if an error was reported by the remote engine
func IsRPCError(err error) bool {
	if rErr, ok := err.(*Error); ok {
		return rErr.IsType(ErrorTypeRPC)
	}
	return false
}
