// Package apperr defines the error taxonomy shared by the store, service and
// HTTP layers. Errors are classified where they originate and matched with
// errors.Is / errors.As downstream.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error
type Kind string

const (
	KindAuth              Kind = "auth"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindValidation        Kind = "validation"
	KindInsufficientStock Kind = "insufficient_stock"
	KindNotEligible       Kind = "not_eligible"
	KindDuplicateReview   Kind = "duplicate_review"
	KindEmptyCart         Kind = "empty_cart"
	KindStockUnavailable  Kind = "stock_unavailable"
	KindConflict          Kind = "conflict"
)

// AuthReason refines KindAuth errors.
type AuthReason string

const (
	ReasonInvalidCredentials AuthReason = "invalid_credentials"
	ReasonWrongRole          AuthReason = "wrong_role"
	ReasonSessionExpired     AuthReason = "session_expired"
	ReasonSessionInvalid     AuthReason = "session_invalid"
)

// Error is a classified application error
type Error struct {
	Kind    Kind
	Reason  AuthReason
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Reason when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrAuth              = &Error{Kind: KindAuth, Message: "authentication failed"}
	ErrSessionExpired    = &Error{Kind: KindAuth, Reason: ReasonSessionExpired, Message: "session expired"}
	ErrSessionInvalid    = &Error{Kind: KindAuth, Reason: ReasonSessionInvalid, Message: "session invalid"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Message: "not allowed"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrNotEligible       = &Error{Kind: KindNotEligible, Message: "not eligible to review"}
	ErrDuplicateReview   = &Error{Kind: KindDuplicateReview, Message: "order item already reviewed"}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart, Message: "cart is empty"}
	ErrStockUnavailable  = &Error{Kind: KindStockUnavailable, Message: "stock unavailable"}
	ErrConflict          = &Error{Kind: KindConflict, Message: "conflict"}
)

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return newf(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newf(KindUnauthorized, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return newf(KindValidation, format, args...)
}

func InsufficientStock(format string, args ...interface{}) error {
	return newf(KindInsufficientStock, format, args...)
}

func NotEligible(format string, args ...interface{}) error {
	return newf(KindNotEligible, format, args...)
}

func DuplicateReview(format string, args ...interface{}) error {
	return newf(KindDuplicateReview, format, args...)
}

func StockUnavailable(format string, args ...interface{}) error {
	return newf(KindStockUnavailable, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return newf(KindConflict, format, args...)
}

// Auth builds an authentication error with a reason.
func Auth(reason AuthReason, message string, cause error) error {
	return &Error{Kind: KindAuth, Reason: reason, Message: message, Err: cause}
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the auth reason carried by err, if any.
func ReasonOf(err error) AuthReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Message returns the client-safe message of a classified error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
