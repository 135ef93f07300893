package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError carries a stable code and the HTTP status handlers should answer with.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code so wrapped copies of a sentinel compare equal.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

const (
	CodeUnsupportedCapability = "UNSUPPORTED_CAPABILITY"
	CodeValidationFailed      = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeInternal              = "INTERNAL_ERROR"
)

// ErrUnsupportedCapability is returned by SLA and priority operations when no
// extension providing them is installed.
var ErrUnsupportedCapability = &DomainError{
	Code:       CodeUnsupportedCapability,
	Message:    "method not implemented on the community edition",
	HTTPStatus: http.StatusNotImplemented,
}

// ErrInvalidArgument is the sentinel behind NewValidationError.
var ErrInvalidArgument = &DomainError{
	Code:       CodeValidationFailed,
	Message:    "invalid argument",
	HTTPStatus: http.StatusBadRequest,
}

// Unsupported wraps ErrUnsupportedCapability with the operation name.
func Unsupported(operation string) error {
	return &DomainError{
		Code:       CodeUnsupportedCapability,
		Message:    fmt.Sprintf("%s: %s", operation, ErrUnsupportedCapability.Message),
		HTTPStatus: http.StatusNotImplemented,
	}
}

func NewValidationError(message string) error {
	return &DomainError{Code: CodeValidationFailed, Message: message, HTTPStatus: http.StatusBadRequest}
}

func NewNotFound(resource string) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts any error to a DomainError, defaulting to internal.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}

// IsUnsupported reports whether err signals a capability missing from this edition.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedCapability)
}
