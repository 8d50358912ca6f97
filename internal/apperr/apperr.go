// Package apperr defines the typed failure results the service layer returns.
// Business failures carry a user-facing message and a kind the HTTP layer maps
// to a status code; unexpected faults stay generic server errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind categorizes an error for HTTP mapping.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound indicates a missing entity.
	KindNotFound
	// KindValidation indicates a business-rule violation (insufficient stock,
	// wrong intervention status, duplicate invoice, unknown part).
	KindValidation
	// KindForbidden indicates cross-tenant access.
	KindForbidden
	// KindConflict indicates the entity is locked by a concurrent operation.
	KindConflict
	// KindRemoteCall indicates a collaborator was unreachable or returned a
	// non-success response.
	KindRemoteCall
	// KindCompensation indicates a compensating restore/deduct itself failed.
	KindCompensation
	// KindInternal indicates an unexpected fault.
	KindInternal
)

// Error is a typed domain error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus returns the status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindRemoteCall, KindCompensation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NotFound creates a missing-entity error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a business-rule violation.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Forbidden creates a cross-tenant access error.
func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict creates a concurrent-operation error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// RemoteCall wraps a collaborator failure.
func RemoteCall(message string, err error) *Error {
	return &Error{Kind: KindRemoteCall, Message: message, Err: err}
}

// Compensation wraps a failed compensating call.
func Compensation(message string, err error) *Error {
	return &Error{Kind: KindCompensation, Message: message, Err: err}
}

// Internal wraps an unexpected fault.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
