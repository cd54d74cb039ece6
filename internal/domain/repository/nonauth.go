package repository

import "context"

// Recipes que guardan datos del usuario pero no lo autentican.
// El núcleo sólo necesita poder borrarlos.

// UserMetadataRepository metadata libre asociada a un user id.
type UserMetadataRepository interface {
	// DeleteUserMetadata retorna la cantidad de filas borradas.
	DeleteUserMetadata(ctx context.Context, app AppIdentifier, userID string) (int, error)
}

// SessionRepository sesiones activas.
type SessionRepository interface {
	// DeleteSessionsOfUser borra las sesiones del usuario en todos los tenants de la app.
	DeleteSessionsOfUser(ctx context.Context, app AppIdentifier, userID string) error
}

// EmailVerificationRepository emails verificados y tokens de verificación.
type EmailVerificationRepository interface {
	DeleteEmailVerificationUserInfo(ctx context.Context, app AppIdentifier, userID string) error
}

// UserRolesRepository asignaciones de roles.
type UserRolesRepository interface {
	// DeleteAllRolesForUser retorna la cantidad de asignaciones borradas.
	DeleteAllRolesForUser(ctx context.Context, app AppIdentifier, userID string) (int, error)
}
