package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

type mappingRepo struct{ c *pgConnection }

func (r *mappingRepo) Create(ctx context.Context, app repository.AppIdentifier, m repository.UserIDMapping) error {
	const query = `
		INSERT INTO userid_mapping
			(connection_uri_domain, app_id, supertokens_user_id, external_user_id, external_user_id_info)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.c.q(ctx).Exec(ctx, query,
		app.ConnectionURIDomain, app.AppID, m.InternalUserID, m.ExternalUserID, nullIfEmpty(m.ExternalUserIDInfo))
	return mapErr("create user id mapping", err)
}

func (r *mappingRepo) Get(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (*repository.UserIDMapping, error) {
	const base = `
		SELECT supertokens_user_id, external_user_id, COALESCE(external_user_id_info, '')
		FROM userid_mapping
		WHERE connection_uri_domain = $1 AND app_id = $2 AND `

	var query string
	switch idType {
	case repository.UserIDTypeInternal:
		query = base + `supertokens_user_id = $3`
	case repository.UserIDTypeExternal:
		query = base + `external_user_id = $3`
	default:
		// un id puede aparecer como interno en un mapping y externo en otro: gana el interno
		query = base + `(supertokens_user_id = $3 OR external_user_id = $3)
			ORDER BY (supertokens_user_id = $3) DESC LIMIT 1`
	}

	var m repository.UserIDMapping
	err := r.c.q(ctx).QueryRow(ctx, query, app.ConnectionURIDomain, app.AppID, userID).
		Scan(&m.InternalUserID, &m.ExternalUserID, &m.ExternalUserIDInfo)
	if err == pgx.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, mapErr("get user id mapping", err)
	}
	return &m, nil
}

func (r *mappingRepo) Delete(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (bool, error) {
	m, err := r.Get(ctx, app, userID, idType)
	if repository.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	const query = `
		DELETE FROM userid_mapping
		WHERE connection_uri_domain = $1 AND app_id = $2 AND supertokens_user_id = $3`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, m.InternalUserID)
	if err != nil {
		return false, mapErr("delete user id mapping", err)
	}
	return tag.RowsAffected() > 0, nil
}

// nullIfEmpty retorna nil si s es vacío, para columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
