package pg

import (
	"context"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// nonAuthRepo metadata, sesiones, verificación de email y roles.
type nonAuthRepo struct{ c *pgConnection }

func (r *nonAuthRepo) DeleteUserMetadata(ctx context.Context, app repository.AppIdentifier, userID string) (int, error) {
	const query = `DELETE FROM user_metadata WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID)
	if err != nil {
		return 0, mapErr("delete user metadata", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *nonAuthRepo) DeleteSessionsOfUser(ctx context.Context, app repository.AppIdentifier, userID string) error {
	const query = `DELETE FROM session_info WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3`
	_, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID)
	return mapErr("delete sessions", err)
}

func (r *nonAuthRepo) DeleteEmailVerificationUserInfo(ctx context.Context, app repository.AppIdentifier, userID string) error {
	return r.c.atomic(ctx, func(ctx context.Context) error {
		for _, query := range []string{
			`DELETE FROM emailverification_verified_emails WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3`,
			`DELETE FROM emailverification_tokens WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3`,
		} {
			if _, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID); err != nil {
				return mapErr("delete email verification", err)
			}
		}
		return nil
	})
}

func (r *nonAuthRepo) DeleteAllRolesForUser(ctx context.Context, app repository.AppIdentifier, userID string) (int, error) {
	const query = `DELETE FROM user_roles WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID)
	if err != nil {
		return 0, mapErr("delete user roles", err)
	}
	return int(tag.RowsAffected()), nil
}
