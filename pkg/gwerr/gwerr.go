// Package gwerr holds the gateway's classified failures. Every error the
// dispatch pipeline hands to the normalizer is either a *Error or treated as
// an unclassified internal failure.
package gwerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the failure class. Kinds double as sentinels for errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrContractLoad        Kind = "CONTRACT_LOAD_ERROR"
	ErrInventoryLoad       Kind = "INVENTORY_LOAD_ERROR"
	ErrUnknownRoute        Kind = "UNKNOWN_ROUTE"
	ErrValidation          Kind = "VALIDATION_ERROR"
	ErrNoBackendConfigured Kind = "NO_BACKEND_CONFIGURED"
	ErrHandlerNotFound     Kind = "HANDLER_NOT_FOUND"
	ErrResponseContract    Kind = "RESPONSE_CONTRACT_ERROR"
	ErrBackend             Kind = "BACKEND_ERROR"
	ErrMissingIdentity     Kind = "MISSING_CALLER_IDENTITY"
)

// FieldError is one structural mismatch reported by a validator.
type FieldError struct {
	Field       string `json:"field"`
	Description string `json:"description"`
}

// Error is a pre-classified failure. Status is the HTTP status the
// normalizer will try to emit; Code defaults to the kind.
type Error struct {
	Kind    Kind         `json:"-"`
	Status  int          `json:"status"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// WithCause attaches an underlying error (not serialized).
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// WithDetails attaches field-level validation details.
func (e *Error) WithDetails(d []FieldError) *Error {
	e.Details = d
	return e
}

func newErr(k Kind, status int, format string, args ...any) *Error {
	return &Error{Kind: k, Status: status, Code: string(k), Message: fmt.Sprintf(format, args...)}
}

func ContractLoad(format string, args ...any) *Error {
	return newErr(ErrContractLoad, http.StatusInternalServerError, format, args...)
}

func InventoryLoad(format string, args ...any) *Error {
	return newErr(ErrInventoryLoad, http.StatusInternalServerError, format, args...)
}

// UnknownRoute takes an explicit status: 404 for a missing path, 405 for a
// missing method and 500 when the route exists but is misconfigured.
func UnknownRoute(status int, format string, args ...any) *Error {
	return newErr(ErrUnknownRoute, status, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newErr(ErrValidation, http.StatusBadRequest, format, args...)
}

func NoBackendConfigured(format string, args ...any) *Error {
	return newErr(ErrNoBackendConfigured, http.StatusInternalServerError, format, args...)
}

func HandlerNotFound(format string, args ...any) *Error {
	return newErr(ErrHandlerNotFound, http.StatusInternalServerError, format, args...)
}

func ResponseContract(format string, args ...any) *Error {
	return newErr(ErrResponseContract, http.StatusInternalServerError, format, args...)
}

func MissingIdentity(format string, args ...any) *Error {
	return newErr(ErrMissingIdentity, http.StatusUnauthorized, format, args...)
}

// Backend classifies a failure reported by the transaction-execution
// collaborator. Client-class statuses pass through; anything else is a 502.
func Backend(status int, code, message string) *Error {
	if status < 400 || status >= 500 {
		status = http.StatusBadGateway
	}
	e := newErr(ErrBackend, status, "%s", message)
	if code != "" {
		e.Code = code
	}
	return e
}

// As extracts a classified error from a chain.
func As(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
