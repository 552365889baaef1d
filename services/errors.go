package services

import (
	"errors"
	"fmt"

	"loyalty-backend/models"
)

var (
	ErrCouponNotFound   = errors.New("coupon not found or not available")
	ErrAccountNotFound  = errors.New("loyalty account not found")
	ErrNoLoyaltyAccount = errors.New("no loyalty account found for this shop")
	ErrInvalidAmount    = errors.New("amount must be non-negative")

	// ErrIDGenerationExhausted is operational: ten draws in a row collided.
	ErrIDGenerationExhausted = errors.New("failed to generate unique redemption id")
	// ErrReservationFailed wraps a persistence failure after which the debit
	// was rolled back.
	ErrReservationFailed = errors.New("failed to activate coupon")

	ErrRedemptionNotFound      = errors.New("redemption not found")
	ErrShopMismatch            = errors.New("coupon does not belong to this shop")
	ErrExpired                 = errors.New("coupon redemption has expired")
	ErrInvalidAPIKey           = errors.New("invalid POS API key")
	ErrShopNotAssociated       = errors.New("shop not found or doesn't belong to this POS provider")
	ErrMalformedRedemptionCode = errors.New("invalid redemption code format")

	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrShopNotFound       = errors.New("shop not found")
)

// InsufficientPointsError carries the points breakdown a client needs to tell
// the customer how many points are missing.
type InsufficientPointsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient loyalty points: required=%d available=%d", e.Required, e.Available)
}

func (e *InsufficientPointsError) Shortfall() int64 {
	return e.Required - e.Available
}

// AlreadyFinalizedError is returned when a redemption is already in a
// terminal state other than expired.
type AlreadyFinalizedError struct {
	Status models.RedemptionStatus
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("coupon redemption has already been %s", e.Status)
}

// InvalidCouponSpecError names the first field that failed validation.
type InvalidCouponSpecError struct {
	Field   string
	Message string
}

func (e *InvalidCouponSpecError) Error() string {
	return fmt.Sprintf("invalid coupon %s: %s", e.Field, e.Message)
}

// CompensationFailedError means points were debited, no redemption exists
// and the refund failed too. It needs manual reconciliation.
type CompensationFailedError struct {
	Amount          int64
	Cause           error
	CompensationErr error
}

func (e *CompensationFailedError) Error() string {
	return fmt.Sprintf("reservation failed (%v) and refund of %d points failed: %v", e.Cause, e.Amount, e.CompensationErr)
}

func (e *CompensationFailedError) Unwrap() []error {
	return []error{e.Cause, e.CompensationErr}
}
