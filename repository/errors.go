package repository

import "errors"

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientBalance is returned by Debit when the balance is lower
	// than the requested amount. The balance is left untouched.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrDuplicateCode is returned when another active redemption already
	// holds the code.
	ErrDuplicateCode = errors.New("redemption code already active")
)
