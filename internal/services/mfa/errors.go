package mfa

import (
	"fmt"
	"time"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

var (
	ErrDeviceAlreadyExists = fmt.Errorf("totp device already exists: %w", repository.ErrConflict)
	ErrUnknownDevice       = fmt.Errorf("unknown totp device: %w", repository.ErrNotFound)
	ErrUnknownTOTPUser     = fmt.Errorf("unknown totp user: %w", repository.ErrNotFound)
)

// LimitReachedError el usuario agotó los intentos; RetryAfter es lo que
// falta del cooldown. Se compara con errors.Is(err, repository.ErrRateLimited).
type LimitReachedError struct {
	RetryAfter      time.Duration
	CurrentAttempts int
	MaxAttempts     int
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("totp limit reached: %d/%d invalid attempts, retry after %s",
		e.CurrentAttempts, e.MaxAttempts, e.RetryAfter)
}

func (e *LimitReachedError) Unwrap() error { return repository.ErrRateLimited }

// InvalidTOTPError el código no es válido (no coincide, ya fue usado o chocó
// con otro intento). CurrentAttempts incluye este intento.
type InvalidTOTPError struct {
	CurrentAttempts int
	MaxAttempts     int
}

func (e *InvalidTOTPError) Error() string {
	return fmt.Sprintf("invalid totp: %d/%d invalid attempts", e.CurrentAttempts, e.MaxAttempts)
}

func (e *InvalidTOTPError) Unwrap() error { return repository.ErrInvalidInput }
