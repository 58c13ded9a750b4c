package errors

import (
	"fmt"

	"google.golang.org/grpc/status"
)

// Error is a domain error carrying a machine-readable code and optional
// metadata used when formatting localized messages.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	cause    error
}

// New creates a domain error with the given code and developer message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted developer message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithMetadata returns a copy of the error with metadata attached.
func (e *Error) WithMetadata(metadata map[string]string) *Error {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Metadata = make(map[string]string, len(metadata))
	for k, v := range metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// ToGRPCStatus converts the error to a gRPC status with a user-facing message.
func (e *Error) ToGRPCStatus(userMessage string) error {
	if e == nil {
		return nil
	}
	if userMessage == "" {
		userMessage = e.Message
	}
	return status.Error(e.Code.GRPCCode(), userMessage)
}

// Internal creates an internal error wrapping a cause.
func Internal(message string, cause error) *Error {
	return &Error{Code: CodeUnknown, Message: message, cause: cause}
}
