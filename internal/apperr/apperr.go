// Package apperr carries the error taxonomy shared by the services and the
// HTTP boundary: a stable machine-readable Kind, a client-safe message and
// optional structured details.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindNotFound           Kind = "NOT_FOUND"
	KindInsufficientStock  Kind = "INSUFFICIENT_STOCK"
	KindStockShortfall     Kind = "POST_PAYMENT_STOCK_SHORTFALL"
	KindInvalidSignature   Kind = "INVALID_SIGNATURE"
	KindGateway            Kind = "GATEWAY_ERROR"
	KindPersistence        Kind = "PERSISTENCE_ERROR"
	KindStoreUnavailable   Kind = "STORE_UNAVAILABLE"
	KindAlreadyPaid        Kind = "ORDER_ALREADY_PAID"
	KindNotificationFailed Kind = "NOTIFICATION_PROCESSING_FAILED"
	KindRateLimited        Kind = "RATE_LIMIT_EXCEEDED"
	KindInternal           Kind = "INTERNAL_ERROR"
)

type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock}
	ErrStockShortfall     = &Error{Kind: KindStockShortfall}
	ErrInvalidSignature   = &Error{Kind: KindInvalidSignature}
	ErrGateway            = &Error{Kind: KindGateway}
	ErrPersistence        = &Error{Kind: KindPersistence}
	ErrStoreUnavailable   = &Error{Kind: KindStoreUnavailable}
	ErrAlreadyPaid        = &Error{Kind: KindAlreadyPaid}
	ErrNotificationFailed = &Error{Kind: KindNotificationFailed}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func WithDetails(kind Kind, msg string, details any) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

// KindOf returns the outermost Kind in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether a caller may retry the failed operation.
func Retryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrGateway) || errors.Is(err, ErrStoreUnavailable)
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInsufficientStock, KindAlreadyPaid:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStockShortfall:
		return http.StatusConflict
	case KindInvalidSignature:
		return http.StatusForbidden
	case KindGateway:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
