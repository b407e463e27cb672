package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an application error and decides its HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidCredentials
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// NonFieldErrors is the key used for validation messages not tied to a single field.
const NonFieldErrors = "non_field_errors"

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgForbidden        = "You do not have permission to perform this action."
	msgNotFound         = "Not found."
	msgInternal         = "Internal server error."
)

// Error is the error type surfaced by services and rendered by the HTTP error handler.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "; %s: %s", k, strings.Join(e.Fields[k], ", "))
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " (%v)", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperrors.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Fields == nil
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindInvalidCredentials:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Body returns the JSON payload clients receive for the error.
func (e *Error) Body() map[string]any {
	switch e.Kind {
	case KindValidation, KindInvalidCredentials:
		body := make(map[string]any, len(e.Fields)+1)
		for k, v := range e.Fields {
			body[k] = v
		}
		if len(body) == 0 {
			body[NonFieldErrors] = []string{e.Message}
		}
		return body
	case KindInternal:
		return map[string]any{"detail": msgInternal}
	default:
		return map[string]any{"detail": e.Message}
	}
}

// Kind sentinels for errors.Is comparisons.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrUnauthenticated    = &Error{Kind: KindUnauthenticated}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
)

// Validation builds a validation error from a field -> messages map.
func Validation(fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// FieldError builds a validation error for one field.
func FieldError(field, message string) *Error {
	return Validation(map[string][]string{field: {message}})
}

// InvalidCredentials reports a failed login without revealing which part was wrong.
func InvalidCredentials(message string) *Error {
	return &Error{Kind: KindInvalidCredentials, Message: message, Fields: map[string][]string{NonFieldErrors: {message}}}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(message string) *Error {
	if message == "" {
		message = msgNotAuthenticated
	}
	return &Error{Kind: KindUnauthenticated, Message: message}
}

// Forbidden reports a failed permission check. The message never names the predicate.
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Message: msgForbidden}
}

// NotFound reports a missing resource with a generic message.
func NotFound() *Error {
	return &Error{Kind: KindNotFound, Message: msgNotFound}
}

// Conflict reports a request that collides with in-flight state.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Internal wraps an unexpected failure. The cause is logged, not returned to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: msgInternal, Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
