package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConditionNotMet    = errors.New("conditional update matched no rows")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// ErrorKind is the stable, machine-readable class of a promo failure.
type ErrorKind string

const (
	KindInvalidArgument   ErrorKind = "INVALID_ARGUMENT"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInactive          ErrorKind = "INACTIVE"
	KindExpired           ErrorKind = "EXPIRED"
	KindCapacityExhausted ErrorKind = "CAPACITY_EXHAUSTED"
	KindAlreadyRedeemed   ErrorKind = "ALREADY_REDEEMED"
	KindUserNotFound      ErrorKind = "USER_NOT_FOUND"
	KindStoreUnavailable  ErrorKind = "STORE_UNAVAILABLE"
)

// PromoError is a classified validation or redemption failure.
// Message is safe to show to end users; the wrapped cause is not.
type PromoError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *PromoError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *PromoError) Unwrap() error { return e.cause }

// Is matches any PromoError of the same kind, so errors.Is(err, ErrPromoExpired)
// works regardless of the wrapped cause.
func (e *PromoError) Is(target error) bool {
	t, ok := target.(*PromoError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrPromoInvalidCode       = &PromoError{Kind: KindInvalidArgument, Message: "Promo code is required"}
	ErrPromoInvalidUser       = &PromoError{Kind: KindInvalidArgument, Message: "User ID is required"}
	ErrPromoNotFound          = &PromoError{Kind: KindNotFound, Message: "Invalid promo code"}
	ErrPromoInactive          = &PromoError{Kind: KindInactive, Message: "This promo code is no longer active"}
	ErrPromoExpired           = &PromoError{Kind: KindExpired, Message: "This promo code has expired"}
	ErrPromoCapacityExhausted = &PromoError{Kind: KindCapacityExhausted, Message: "This promo code has reached its usage limit"}
	ErrPromoAlreadyRedeemed   = &PromoError{Kind: KindAlreadyRedeemed, Message: "You have already used a promo code"}
	ErrPromoUserNotFound      = &PromoError{Kind: KindUserNotFound, Message: "User not found"}
	ErrPromoStoreUnavailable  = &PromoError{Kind: KindStoreUnavailable, Message: "Failed to apply promo code, please try again later"}
)

// StoreUnavailable wraps an infrastructure fault. The cause stays available
// to logs via errors.Unwrap but is never rendered to callers.
func StoreUnavailable(cause error) *PromoError {
	return &PromoError{
		Kind:    KindStoreUnavailable,
		Message: ErrPromoStoreUnavailable.Message,
		cause:   cause,
	}
}

// KindOf returns the classified kind of err. Unclassified errors are
// reported as StoreUnavailable.
func KindOf(err error) ErrorKind {
	var pe *PromoError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindStoreUnavailable
}

// PublicMessage returns the caller-safe message for err.
func PublicMessage(err error) string {
	var pe *PromoError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return ErrPromoStoreUnavailable.Message
}
