// Package apperr defines the error kinds the API distinguishes and how each
// one is reported over HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation                Kind = "validation_error"
	KindNotFound                  Kind = "not_found"
	KindConflict                  Kind = "conflict"
	KindInsufficientStock         Kind = "insufficient_stock"
	KindEmptyCart                 Kind = "empty_cart"
	KindItemNotFound              Kind = "item_not_found"
	KindCancellationWindowExpired Kind = "cancellation_window_expired"
	KindOrderNotCancellable       Kind = "order_not_cancellable"
	KindInvalidStatusTransition   Kind = "invalid_status_transition"
	KindUnauthorized              Kind = "unauthorized"
	KindForbidden                 Kind = "forbidden"
	KindInternal                  Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindValidation:                http.StatusBadRequest,
	KindNotFound:                  http.StatusNotFound,
	KindConflict:                  http.StatusConflict,
	KindInsufficientStock:         http.StatusBadRequest,
	KindEmptyCart:                 http.StatusBadRequest,
	KindItemNotFound:              http.StatusBadRequest,
	KindCancellationWindowExpired: http.StatusBadRequest,
	KindOrderNotCancellable:       http.StatusBadRequest,
	KindInvalidStatusTransition:   http.StatusBadRequest,
	KindUnauthorized:              http.StatusUnauthorized,
	KindForbidden:                 http.StatusForbidden,
	KindInternal:                  http.StatusInternalServerError,
}

// HTTPStatus maps a kind to its response code.
func (k Kind) HTTPStatus() int {
	if s, ok := statusByKind[k]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Error is a classified failure. Message is safe to show to clients except
// for KindInternal, whose details stay in Err.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.EmptyCart)
// style sentinels work.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps an unexpected failure (usually persistence).
func Internal(err error, op string) *Error {
	return &Error{Kind: KindInternal, Message: op, Err: err}
}

// KindOf returns the kind carried by err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is what a client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal Server Error"
}
