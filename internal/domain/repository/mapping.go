package repository

import "context"

// UserIDType indica qué se sabe del user id recibido.
type UserIDType int

const (
	// UserIDTypeAny el id puede ser interno o externo.
	UserIDTypeAny UserIDType = iota
	// UserIDTypeInternal el id fue asignado por este sistema.
	UserIDTypeInternal
	// UserIDTypeExternal el id viene de un sistema integrado vía mapping.
	UserIDTypeExternal
)

func (t UserIDType) String() string {
	switch t {
	case UserIDTypeInternal:
		return "internal"
	case UserIDTypeExternal:
		return "external"
	default:
		return "any"
	}
}

// UserIDMapping relaciona un user id interno con uno externo dentro de una app.
// Como máximo existe un mapping por id interno y uno por id externo.
type UserIDMapping struct {
	InternalUserID     string
	ExternalUserID     string
	ExternalUserIDInfo string
}

// UserIDMappingRepository define operaciones sobre mappings de user id.
type UserIDMappingRepository interface {
	// Create crea un mapping.
	// Retorna ErrConflict si alguno de los ids ya está mapeado,
	// ErrNotFound si el usuario interno no existe.
	Create(ctx context.Context, app AppIdentifier, m UserIDMapping) error

	// Get busca el mapping del user id según su tipo. Con UserIDTypeAny se busca
	// primero como id interno y luego como externo.
	// Retorna ErrNotFound si no hay mapping.
	Get(ctx context.Context, app AppIdentifier, userID string, idType UserIDType) (*UserIDMapping, error)

	// Delete elimina el mapping. Retorna true si existía.
	Delete(ctx context.Context, app AppIdentifier, userID string, idType UserIDType) (bool, error)
}
