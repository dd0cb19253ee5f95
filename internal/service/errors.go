package service

import (
	"errors"
	"fmt"
)

// Error kinds returned by every service. Repository errors are wrapped in
// one of these so callers can branch with errors.Is without knowing about
// storage.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidInput       = errors.New("invalid input")
)

func wrap(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
