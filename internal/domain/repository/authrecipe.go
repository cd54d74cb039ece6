package repository

import (
	"context"
	"fmt"
	"strings"
)

// RecipeID identifica una recipe de autenticación.
type RecipeID string

const (
	RecipeEmailPassword RecipeID = "emailpassword"
	RecipeThirdParty    RecipeID = "thirdparty"
	RecipePasswordless  RecipeID = "passwordless"
)

// AuthRecipes lista las recipes de autenticación conocidas.
var AuthRecipes = []RecipeID{RecipeEmailPassword, RecipeThirdParty, RecipePasswordless}

// ParseRecipeID valida un recipe id.
func ParseRecipeID(s string) (RecipeID, error) {
	r := RecipeID(strings.TrimSpace(s))
	for _, known := range AuthRecipes {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown recipe id %q", ErrInvalidInput, s)
}

// SortOrder define el orden por time_joined.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

// ParseSortOrder acepta "asc" / "desc" (case-insensitive). Vacío = ASC.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return SortAsc, nil
	case "DESC":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("%w: timeJoinedOrder must be ASC or DESC", ErrInvalidInput)
	}
}

// AuthUser es la vista de listado de un usuario de cualquier recipe de auth.
type AuthUser struct {
	ID         string
	RecipeID   RecipeID
	TenantIDs  []string
	TimeJoined int64 // unix ms
}

// UserCursor es la posición desde la cual reanudar un listado.
// La fila del cursor se incluye en la página reanudada.
type UserCursor struct {
	UserID     string
	TimeJoined int64
}

// ListUsersQuery opciones para listar usuarios de un tenant.
//
// Orden ASC: time_joined ASC, user_id DESC.
// Orden DESC: time_joined DESC, user_id DESC.
type ListUsersQuery struct {
	Limit   int
	Order   SortOrder
	Recipes []RecipeID // vacío = todas
	After   *UserCursor
}

// AuthRecipeRepository define operaciones comunes a todas las recipes de auth.
type AuthRecipeRepository interface {
	// DoesUserIDExist indica si userID es un usuario interno de la app.
	DoesUserIDExist(ctx context.Context, app AppIdentifier, userID string) (bool, error)

	// ListUsers lista usuarios del tenant según la query.
	ListUsers(ctx context.Context, tenant TenantIdentifier, q ListUsersQuery) ([]AuthUser, error)

	// CountUsers cuenta usuarios del tenant.
	CountUsers(ctx context.Context, tenant TenantIdentifier, recipes []RecipeID) (int64, error)

	// CountUsersInApp cuenta usuarios de la app en este storage (todos los tenants).
	CountUsersInApp(ctx context.Context, app AppIdentifier, recipes []RecipeID) (int64, error)
}

// EmailPasswordRepository capacidades de la recipe emailpassword usadas por el núcleo.
type EmailPasswordRepository interface {
	// DeleteUser elimina el usuario y sus filas de auth. No falla si no existe.
	DeleteUser(ctx context.Context, app AppIdentifier, userID string) error
}

// ThirdPartyRepository capacidades de la recipe thirdparty usadas por el núcleo.
type ThirdPartyRepository interface {
	DeleteUser(ctx context.Context, app AppIdentifier, userID string) error
}

// PasswordlessRepository capacidades de la recipe passwordless usadas por el núcleo.
type PasswordlessRepository interface {
	DeleteUser(ctx context.Context, app AppIdentifier, userID string) error
}
