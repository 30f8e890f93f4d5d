package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")

	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrStoreUnavailable      = errors.New("store unavailable")

	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("expired token")
	ErrRevokedToken      = errors.New("revoked token")
	ErrUnknownUser       = errors.New("unknown user")
)

var (
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", ErrConflict)
)

// InsufficientInventoryError reports the remaining count at the moment the
// purchase was refused so the caller can react without re-reading.
type InsufficientInventoryError struct {
	EventID   int64
	Requested int
	Remaining int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for event %d: requested %d, %d remaining",
		e.EventID, e.Requested, e.Remaining)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// InvalidInput wraps a validation message so errors.Is(err, ErrInvalidInput)
// holds.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func storeUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
