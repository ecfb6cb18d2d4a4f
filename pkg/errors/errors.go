package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType classifies application errors into the engine's taxonomy.
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeFetch          ErrorType = "fetch"
	ErrorTypeCache          ErrorType = "cache"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeInternal       ErrorType = "internal"
)

// AppError is a structured application error.
type AppError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Internal error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// FetchError reports a failed traffic fetch. AuthExpired distinguishes the
// backend's session-expiry responses so the caller knows to invalidate its
// token; other fetch failures leave the session alone.
type FetchError struct {
	AppError
	AuthExpired bool
	StatusCode  int
}

// NewAuthenticationError creates an authentication error (login failed or
// returned no token).
func NewAuthenticationError(message string, internal error) *AppError {
	return &AppError{
		Type:     ErrorTypeAuthentication,
		Message:  message,
		Internal: internal,
	}
}

// NewFetchError creates a fetch error tagged with the auth-expiry flag.
func NewFetchError(message string, authExpired bool, internal error) *FetchError {
	return &FetchError{
		AppError: AppError{
			Type:     ErrorTypeFetch,
			Message:  message,
			Internal: internal,
		},
		AuthExpired: authExpired,
	}
}

// NewMalformedCacheError creates an error for an undecodable cache entry.
// These are logged and swallowed, never surfaced to callers.
func NewMalformedCacheError(message string, internal error) *AppError {
	return &AppError{
		Type:     ErrorTypeCache,
		Message:  message,
		Internal: internal,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:     ErrorTypeInternal,
		Message:  message,
		Internal: internal,
	}
}

// IsAuthExpired reports whether err is a fetch error carrying the backend's
// auth-expiry tag.
func IsAuthExpired(err error) bool {
	var fe *FetchError
	return stderrors.As(err, &fe) && fe.AuthExpired
}
