package store

import (
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// Errores del resolver.
var (
	// ErrTenantOrAppNotFound indica que no hay storage configurado para el identificador.
	ErrTenantOrAppNotFound = fmt.Errorf("tenant or app not found: %w", repository.ErrNotFound)

	// ErrUnknownUserID indica que el usuario no existe en ningún storage de la app.
	ErrUnknownUserID = fmt.Errorf("unknown user id: %w", repository.ErrNotFound)

	// ErrStorageNotConfigured indica que una ruta de tenant referencia un storage inexistente.
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// IsTenantOrAppNotFound helper para verificar si el identificador no tiene storage.
func IsTenantOrAppNotFound(err error) bool {
	return errors.Is(err, ErrTenantOrAppNotFound)
}
