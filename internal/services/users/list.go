package users

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// MaxPageSize límite máximo de usuarios por página.
const MaxPageSize = 500

// ListRequest parámetros de ListUsers.
type ListRequest struct {
	Limit   int
	Order   repository.SortOrder // vacío = ASC
	Token   string               // vacío = primera página
	Recipes []repository.RecipeID
}

// UserPage una página del listado. NextToken vacío = última página.
type UserPage struct {
	Users     []repository.AuthUser
	NextToken string
}

// ListUsers lista usuarios del tenant de a una página.
//
// Pide Limit+1 filas: si vuelven todas, la última no se retorna y su
// posición queda en NextToken.
func (s *Service) ListUsers(ctx context.Context, h *store.TenantStorage, req ListRequest) (*UserPage, error) {
	if req.Limit < 1 || req.Limit > MaxPageSize {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", repository.ErrInvalidInput, MaxPageSize)
	}
	order := req.Order
	if order == "" {
		order = repository.SortAsc
	}

	q := repository.ListUsersQuery{Limit: req.Limit + 1, Order: order, Recipes: req.Recipes}
	if req.Token != "" {
		tok, err := DecodePaginationToken(req.Token)
		if err != nil {
			return nil, err
		}
		q.After = &repository.UserCursor{UserID: tok.UserID, TimeJoined: tok.TimeJoined}
	}

	users, err := h.Conn.AuthRecipe().ListUsers(ctx, h.Tenant, q)
	if err != nil {
		return nil, err
	}

	page := &UserPage{Users: users}
	if len(users) == req.Limit+1 {
		next := users[req.Limit]
		page.Users = users[:req.Limit]
		page.NextToken = PaginationToken{UserID: next.ID, TimeJoined: next.TimeJoined}.Encode()
	}
	return page, nil
}

// CountUsers cuenta los usuarios del tenant. recipes vacío = todas.
func (s *Service) CountUsers(ctx context.Context, h *store.TenantStorage, recipes []repository.RecipeID) (int64, error) {
	return h.Conn.AuthRecipe().CountUsers(ctx, h.Tenant, recipes)
}

// CountUsersAcrossApp suma los usuarios de la app en todos sus storages.
func (s *Service) CountUsersAcrossApp(ctx context.Context, h *store.AppStorage, recipes []repository.RecipeID) (int64, error) {
	var total int64
	for _, sc := range h.All {
		n, err := sc.Conn.AuthRecipe().CountUsersInApp(ctx, h.App, recipes)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
