package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the coarse failure class surfaced to clients.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindDuplicate    Kind = "DUPLICATE"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL"
)

// Codes refining a Kind. Clients branch on these.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeAccountLocked      = "ACCOUNT_LOCKED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeWeakPassword       = "WEAK_PASSWORD"
)

// Error carries a kind, a client-facing code and message, and an optional
// server-side cause that is never serialized.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	return Status(e.Kind)
}

// Body is the JSON envelope written for a failed request. The cause is
// never included.
func (e *Error) Body() map[string]any {
	return map[string]any{
		"success": false,
		"code":    e.Code,
		"message": e.Message,
	}
}

func Status(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindDuplicate:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code, message string) *Error {
	if code == "" {
		code = string(kind)
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(KindValidation, "", message)
}

func Duplicate(message string) *Error {
	return New(KindDuplicate, "", message)
}

func NotFound(message string) *Error {
	return New(KindNotFound, "", message)
}

func Unauthorized(code, message string) *Error {
	return New(KindUnauthorized, code, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, "", message)
}

// Internal wraps an unexpected failure. The message returned to clients is
// always generic; err is kept for logging.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: string(KindInternal), Message: "internal server error", Err: err}
}

// As extracts an *Error from err. Anything that is not already tagged is
// treated as internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// HasCode reports whether err is a tagged error with the given code.
func HasCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsKind reports whether err is a tagged error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
