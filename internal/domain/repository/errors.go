package repository

import "errors"

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un conflicto (ej: duplicado, constraint violation).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indica que el usuario superó el máximo de intentos permitidos.
	ErrRateLimited = errors.New("rate limited")

	// ErrFeatureDisabled indica que la feature no está habilitada para la app.
	ErrFeatureDisabled = errors.New("feature not enabled")

	// ErrCapabilityMissing indica que un storage configurado no implementa
	// una capacidad requerida por el núcleo.
	ErrCapabilityMissing = errors.New("storage capability missing")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidInput verifica si el error es ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
