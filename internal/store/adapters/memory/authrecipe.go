package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

type authRecipeRepo struct{ db *DB }

func (r *authRecipeRepo) DoesUserIDExist(ctx context.Context, app repository.AppIdentifier, userID string) (bool, error) {
	var exists bool
	err := r.db.do(ctx, func(s *state) error {
		_, exists = s.users[appUser{app, userID}]
		return nil
	})
	return exists, err
}

func (r *authRecipeRepo) ListUsers(ctx context.Context, tenant repository.TenantIdentifier, q repository.ListUsersQuery) ([]repository.AuthUser, error) {
	var out []repository.AuthUser
	err := r.db.do(ctx, func(s *state) error {
		app := tenant.AppIdentifier()
		for k, u := range s.users {
			if k.app != app || !slices.Contains(u.tenants, tenant.TenantID) || !recipeMatch(q.Recipes, u.recipe) {
				continue
			}
			if q.After != nil && !afterCursor(u, q.After, q.Order) {
				continue
			}
			out = append(out, toAuthUser(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TimeJoined != b.TimeJoined {
			if q.Order == repository.SortDesc {
				return a.TimeJoined > b.TimeJoined
			}
			return a.TimeJoined < b.TimeJoined
		}
		return a.ID > b.ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *authRecipeRepo) CountUsers(ctx context.Context, tenant repository.TenantIdentifier, recipes []repository.RecipeID) (int64, error) {
	var n int64
	err := r.db.do(ctx, func(s *state) error {
		for k, u := range s.users {
			if k.app == tenant.AppIdentifier() && slices.Contains(u.tenants, tenant.TenantID) && recipeMatch(recipes, u.recipe) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *authRecipeRepo) CountUsersInApp(ctx context.Context, app repository.AppIdentifier, recipes []repository.RecipeID) (int64, error) {
	var n int64
	err := r.db.do(ctx, func(s *state) error {
		for k, u := range s.users {
			if k.app == app && recipeMatch(recipes, u.recipe) {
				n++
			}
		}
		return nil
	})
	return n, err
}

// afterCursor replica el WHERE de la query paginada: la fila del cursor se incluye.
func afterCursor(u *userRow, c *repository.UserCursor, order repository.SortOrder) bool {
	if u.timeJoined == c.TimeJoined {
		return u.id <= c.UserID
	}
	if order == repository.SortDesc {
		return u.timeJoined < c.TimeJoined
	}
	return u.timeJoined > c.TimeJoined
}

func recipeMatch(filter []repository.RecipeID, r repository.RecipeID) bool {
	return len(filter) == 0 || slices.Contains(filter, r)
}

func toAuthUser(u *userRow) repository.AuthUser {
	return repository.AuthUser{
		ID:         u.id,
		RecipeID:   u.recipe,
		TenantIDs:  append([]string(nil), u.tenants...),
		TimeJoined: u.timeJoined,
	}
}

// recipeUserRepo borra usuarios de una recipe de auth. El borrado arrastra el
// mapping de user id, como el ON DELETE CASCADE del schema SQL.
type recipeUserRepo struct {
	db     *DB
	recipe repository.RecipeID
}

func (r *recipeUserRepo) DeleteUser(ctx context.Context, app repository.AppIdentifier, userID string) error {
	return r.db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		u, ok := s.users[k]
		if !ok || u.recipe != r.recipe {
			return nil
		}
		delete(s.users, k)
		s.mappings = slices.DeleteFunc(s.mappings, func(m mappingRow) bool {
			return m.app == app && m.m.InternalUserID == userID
		})
		return nil
	})
}
