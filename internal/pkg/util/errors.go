package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel kinds. Test with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
	ErrIO         = errors.New("io failure")
)

// Error carries a failure kind plus the context rendered to API clients.
type Error struct {
	Kind    error             `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// WithDetail returns e after setting a single detail entry.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// NotFound reports a missing entity.
func NotFound(resource string, id any) *Error {
	return &Error{
		Kind:    ErrNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %v not found", resource, id),
		Details: map[string]string{"resource": resource, "id": fmt.Sprint(id)},
	}
}

// Conflict reports a transition blocked by the current status.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Code: "CONFLICT", Message: fmt.Sprintf(format, args...)}
}

// Validation reports a request-level precondition failure.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: ErrValidation, Code: "VALIDATION_ERROR", Message: fmt.Sprintf(format, args...)}
}

// IO wraps a persistence or transport failure.
func IO(err error, format string, args ...any) *Error {
	return &Error{Kind: ErrIO, Code: "IO_ERROR", Message: fmt.Sprintf(format, args...), Err: err}
}

// HTTPStatus maps an error to the status code served for it.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrIO):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsError returns err as *Error, wrapping unknown errors as internal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: "INTERNAL_ERROR", Message: "internal server error", Err: err}
}
