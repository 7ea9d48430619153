package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry and HTTP mapping decisions.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation - bad client input, job never created.
	KindValidation
	// KindNotFound - no job owned by the caller.
	KindNotFound
	// KindInvalidState - operation against a job in the wrong lifecycle state.
	KindInvalidState
	// KindUnauthorized - caller identity could not be established.
	KindUnauthorized
	// KindUnsupportedMedia - source file unreadable or not a video. Fatal, never retried.
	KindUnsupportedMedia
	// KindEncoding - external encoder failure. Retried with backoff.
	KindEncoding
	// KindTransientIO - blob store / network failure. Retried with backoff.
	KindTransientIO
)

type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

func NewValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, nil, format, args...)
}

func NewNotFoundError(format string, args ...interface{}) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func NewInvalidStateError(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, nil, format, args...)
}

func NewUnauthorizedError(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, nil, format, args...)
}

func NewUnsupportedMediaError(err error, format string, args ...interface{}) *Error {
	return newError(KindUnsupportedMedia, err, format, args...)
}

func NewEncodingError(err error, format string, args ...interface{}) *Error {
	return newError(KindEncoding, err, format, args...)
}

func NewTransientIOError(err error, format string, args ...interface{}) *Error {
	return newError(KindTransientIO, err, format, args...)
}

// KindOf walks the chain and returns the outermost classified kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

func IsValidation(err error) bool       { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool         { return KindOf(err) == KindNotFound }
func IsInvalidState(err error) bool     { return KindOf(err) == KindInvalidState }
func IsUnauthorized(err error) bool     { return KindOf(err) == KindUnauthorized }
func IsUnsupportedMedia(err error) bool { return KindOf(err) == KindUnsupportedMedia }

// Retryable reports whether the queue should schedule another attempt.
// Unclassified errors are retried: transient infrastructure failures
// usually surface as plain wrapped errors.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUnsupportedMedia, KindValidation, KindNotFound, KindInvalidState, KindUnauthorized:
		return false
	}
	return true
}

// HTTPStatus maps an error to the response code the delivery layer returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-visible text for an error: classified errors
// expose their message, everything else collapses to a generic string so
// internals never leak to clients.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return "internal server error"
}
