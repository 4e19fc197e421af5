package chain

import (
	"errors"
	"fmt"
)

// Every mutating operation across the core either fully applies or fully
// reverts; these sentinels classify why a call was rejected.
var (
	ErrValidation          = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateHash       = errors.New("hash already registered")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrListingInactive     = errors.New("listing inactive")
	ErrListingExpired      = errors.New("listing expired")
	ErrListingActive       = errors.New("listing already active")
	ErrTransferFailed      = errors.New("transfer failed")
)

// Errorf wraps a sentinel with call-site detail so callers can still match
// with errors.Is.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
