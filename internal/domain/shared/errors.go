package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Status is the HTTP status reported by the authority, zero for local errors
	Status int `json:"status,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so sentinel errors match
// errors created later with a more specific message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes. The first four form the client error taxonomy: missing
// credentials, transport failure, remote rejection and local validation.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeTransport      = "TRANSPORT_ERROR"
	CodeRemoteRejected = "REMOTE_REJECTED"
	CodeValidation     = "VALIDATION_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeInvalidState   = "INVALID_STATE"
	CodeNotLoaded      = "NOT_LOADED"
)

// Common domain errors
var (
	ErrNotAuthenticated = NewDomainError(CodeUnauthorized, "Not authenticated")
	ErrTransport        = NewDomainError(CodeTransport, "Could not reach the invoicing service")
	ErrRemoteRejected   = NewDomainError(CodeRemoteRejected, "The invoicing service rejected the request")
	ErrValidation       = NewDomainError(CodeValidation, "Invalid input provided")
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidState     = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrNotLoaded        = NewDomainError(CodeNotLoaded, "Company data has not been loaded")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewRemoteError creates a remote rejection error for a non-2xx response
func NewRemoteError(status int, message string) *DomainError {
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}
	return &DomainError{
		Code:    CodeRemoteRejected,
		Message: message,
		Status:  status,
	}
}

// NewTransportError wraps a transport failure into a transport domain error
func NewTransportError(err error) *DomainError {
	return NewDomainError(CodeTransport, fmt.Sprintf("network error: %v", err))
}

// ErrorCode returns the domain error code carried by err, or "" when err is not
// a domain error.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Message converts any error into the human-readable string shown to users.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
