// Package users contiene el controller de listado, conteo y borrado de usuarios.
package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	httperrors "github.com/dropDatabas3/hellojohn-identity/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/helpers"
	svc "github.com/dropDatabas3/hellojohn-identity/internal/services/users"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// DefaultLimit tamaño de página cuando no se manda limit.
const DefaultLimit = 100

// Resolver lo que el controller necesita del store.
type Resolver interface {
	ForTenant(ctx context.Context, tenant repository.TenantIdentifier) (*store.TenantStorage, error)
	ForApp(ctx context.Context, app repository.AppIdentifier) (*store.AppStorage, error)
	ForAppUser(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (*store.AppUser, error)
}

// Controller maneja las rutas /users.
type Controller struct {
	resolver Resolver
	users    *svc.Service
}

// NewController crea el controller.
func NewController(resolver Resolver, users *svc.Service) *Controller {
	return &Controller{resolver: resolver, users: users}
}

type userResponse struct {
	ID         string   `json:"id"`
	RecipeID   string   `json:"recipeId"`
	TenantIDs  []string `json:"tenantIds"`
	TimeJoined int64    `json:"timeJoined"`
}

type removeRequest struct {
	UserID string `json:"userId"`
}

// List maneja GET /apps/{appID}/tenants/{tenantID}/users
func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := helpers.QueryInt(r, "limit", DefaultLimit)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("limit must be an integer"))
		return
	}
	order, err := repository.ParseSortOrder(r.URL.Query().Get("timeJoinedOrder"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	recipes, err := parseRecipes(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	h, err := c.resolver.ForTenant(r.Context(), helpers.TenantFromRequest(r))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	page, err := c.users.ListUsers(r.Context(), h, svc.ListRequest{
		Limit:   limit,
		Order:   order,
		Token:   strings.TrimSpace(r.URL.Query().Get("paginationToken")),
		Recipes: recipes,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	out := make([]userResponse, 0, len(page.Users))
	for _, u := range page.Users {
		out = append(out, userResponse{ID: u.ID, RecipeID: string(u.RecipeID), TenantIDs: u.TenantIDs, TimeJoined: u.TimeJoined})
	}
	extra := map[string]any{"users": out}
	if page.NextToken != "" {
		extra["nextPaginationToken"] = page.NextToken
	}
	helpers.OK(w, extra)
}

// Count maneja GET /apps/{appID}/tenants/{tenantID}/users/count
// Con includeAllTenants=true suma todos los storages de la app.
func (c *Controller) Count(w http.ResponseWriter, r *http.Request) {
	recipes, err := parseRecipes(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	var n int64
	if helpers.QueryBool(r, "includeAllTenants") {
		h, err := c.resolver.ForApp(r.Context(), helpers.AppFromRequest(r))
		if err != nil {
			httperrors.WriteError(w, err)
			return
		}
		n, err = c.users.CountUsersAcrossApp(r.Context(), h, recipes)
		if err != nil {
			httperrors.WriteError(w, err)
			return
		}
	} else {
		h, err := c.resolver.ForTenant(r.Context(), helpers.TenantFromRequest(r))
		if err != nil {
			httperrors.WriteError(w, err)
			return
		}
		n, err = c.users.CountUsers(r.Context(), h, recipes)
		if err != nil {
			httperrors.WriteError(w, err)
			return
		}
	}
	helpers.OK(w, map[string]any{"count": n})
}

// Remove maneja POST /apps/{appID}/users/remove
// Un usuario desconocido no es error: el borrado es idempotente.
func (c *Controller) Remove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId is required"))
		return
	}

	h, err := c.resolver.ForAppUser(r.Context(), helpers.AppFromRequest(r), req.UserID, repository.UserIDTypeAny)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.users.DeleteUser(r.Context(), h, req.UserID); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.OK(w, nil)
}

func parseRecipes(r *http.Request) ([]repository.RecipeID, error) {
	raw := helpers.QueryCSV(r, "includeRecipeIds")
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]repository.RecipeID, 0, len(raw))
	for _, s := range raw {
		id, err := repository.ParseRecipeID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
