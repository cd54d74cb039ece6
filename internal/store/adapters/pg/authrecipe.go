package pg

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// ─── AuthRecipeRepository ───

type authRecipeRepo struct{ c *pgConnection }

func (r *authRecipeRepo) DoesUserIDExist(ctx context.Context, app repository.AppIdentifier, userID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM app_id_to_user_id
			WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3
		)`
	var exists bool
	err := r.c.q(ctx).QueryRow(ctx, query, app.ConnectionURIDomain, app.AppID, userID).Scan(&exists)
	return exists, mapErr("does user id exist", err)
}

func (r *authRecipeRepo) ListUsers(ctx context.Context, tenant repository.TenantIdentifier, q repository.ListUsersQuery) ([]repository.AuthUser, error) {
	var sb strings.Builder
	args := []any{tenant.ConnectionURIDomain, tenant.AppID, tenant.TenantID}

	sb.WriteString(`
		SELECT u.user_id, u.recipe_id, u.time_joined,
		       ARRAY(
		           SELECT t.tenant_id FROM all_auth_recipe_users t
		           WHERE t.connection_uri_domain = u.connection_uri_domain AND t.app_id = u.app_id AND t.user_id = u.user_id
		           ORDER BY t.tenant_id
		       )
		FROM all_auth_recipe_users u
		WHERE u.connection_uri_domain = $1 AND u.app_id = $2 AND u.tenant_id = $3`)

	if len(q.Recipes) > 0 {
		args = append(args, recipeStrings(q.Recipes))
		fmt.Fprintf(&sb, " AND u.recipe_id = ANY($%d)", len(args))
	}

	cmp, dir := ">", "ASC"
	if q.Order == repository.SortDesc {
		cmp, dir = "<", "DESC"
	}
	if q.After != nil {
		args = append(args, q.After.TimeJoined, q.After.UserID)
		t, id := len(args)-1, len(args)
		fmt.Fprintf(&sb, " AND (u.time_joined %s $%d OR (u.time_joined = $%d AND u.user_id <= $%d))", cmp, t, t, id)
	}
	fmt.Fprintf(&sb, " ORDER BY u.time_joined %s, u.user_id DESC", dir)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.c.q(ctx).Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, mapErr("list users", err)
	}
	defer rows.Close()

	var out []repository.AuthUser
	for rows.Next() {
		var (
			u      repository.AuthUser
			recipe string
		)
		if err := rows.Scan(&u.ID, &recipe, &u.TimeJoined, &u.TenantIDs); err != nil {
			return nil, mapErr("scan user", err)
		}
		u.RecipeID = repository.RecipeID(recipe)
		out = append(out, u)
	}
	return out, mapErr("list users", rows.Err())
}

func (r *authRecipeRepo) CountUsers(ctx context.Context, tenant repository.TenantIdentifier, recipes []repository.RecipeID) (int64, error) {
	query := `
		SELECT COUNT(*) FROM all_auth_recipe_users
		WHERE connection_uri_domain = $1 AND app_id = $2 AND tenant_id = $3`
	args := []any{tenant.ConnectionURIDomain, tenant.AppID, tenant.TenantID}
	if len(recipes) > 0 {
		query += ` AND recipe_id = ANY($4)`
		args = append(args, recipeStrings(recipes))
	}
	var n int64
	err := r.c.q(ctx).QueryRow(ctx, query, args...).Scan(&n)
	return n, mapErr("count users", err)
}

func (r *authRecipeRepo) CountUsersInApp(ctx context.Context, app repository.AppIdentifier, recipes []repository.RecipeID) (int64, error) {
	query := `
		SELECT COUNT(*) FROM app_id_to_user_id
		WHERE connection_uri_domain = $1 AND app_id = $2`
	args := []any{app.ConnectionURIDomain, app.AppID}
	if len(recipes) > 0 {
		query += ` AND recipe_id = ANY($3)`
		args = append(args, recipeStrings(recipes))
	}
	var n int64
	err := r.c.q(ctx).QueryRow(ctx, query, args...).Scan(&n)
	return n, mapErr("count users in app", err)
}

func recipeStrings(rs []repository.RecipeID) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = string(r)
	}
	return out
}

// ─── Recipes de auth ───

// recipeUserRepo borra la fila raíz del usuario; el schema borra en cascada
// las filas de la recipe, los tenants y el mapping de user id.
type recipeUserRepo struct {
	c      *pgConnection
	recipe repository.RecipeID
}

func (r *recipeUserRepo) DeleteUser(ctx context.Context, app repository.AppIdentifier, userID string) error {
	const query = `
		DELETE FROM app_id_to_user_id
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3 AND recipe_id = $4`
	_, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID, string(r.recipe))
	return mapErr("delete "+string(r.recipe)+" user", err)
}
