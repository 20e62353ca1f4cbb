package errs

import (
	"errors"
	"net/http"
)

// Code classifies a failure raised by the browser layer or the fixture portal.
type Code string

const (
	InvalidArgument Code = "invalid_argument"
	NotFound        Code = "not_found"
	// ElementNotFound means a locator resolved to no DOM node before the runtime timeout.
	ElementNotFound Code = "element_not_found"
	// URLMismatch means the browser location never equaled the expected URL.
	URLMismatch Code = "url_mismatch"
	Unavailable Code = "unavailable"
	Internal    Code = "internal"
)

// Error is a coded error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
// A nil cause yields a nil error so call sites can wrap unconditionally.
func Wrap(code Code, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) && coded.Code != "" {
		return coded.Code
	}
	return Internal
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the outermost coded message, or "internal error" for
// uncoded errors so raw driver output never reaches an HTTP response body.
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps error code to HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case InvalidArgument:
		return http.StatusBadRequest
	case NotFound, ElementNotFound:
		return http.StatusNotFound
	case URLMismatch:
		return http.StatusConflict
	case Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
