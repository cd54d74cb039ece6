package pg

import (
	"context"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

type totpRepo struct{ c *pgConnection }

func (r *totpRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.c.RunInTx(ctx, fn)
}

// lockUser toma el lock de fila del registro MFA del usuario. Fuera de una
// transacción no hace nada. Serializa register/verify/remove del mismo usuario.
func (r *totpRepo) lockUser(ctx context.Context, app repository.AppIdentifier, userID string) error {
	if _, ok := r.c.tx(ctx); !ok {
		return nil
	}
	const query = `
		SELECT 1 FROM totp_users
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3
		FOR UPDATE`
	rows, err := r.c.q(ctx).Query(ctx, query, app.ConnectionURIDomain, app.AppID, userID)
	if err != nil {
		return mapErr("lock totp user", err)
	}
	rows.Close()
	return mapErr("lock totp user", rows.Err())
}

// ─── Devices ───

const deviceColumns = `user_id, device_name, secret_key, period, skew, verified, created_at`

func (r *totpRepo) GetDevices(ctx context.Context, app repository.AppIdentifier, userID string) ([]repository.TOTPDevice, error) {
	if err := r.lockUser(ctx, app, userID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + deviceColumns + ` FROM totp_user_devices
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3
		ORDER BY created_at, device_name` + r.c.forUpdate(ctx)

	rows, err := r.c.q(ctx).Query(ctx, query, app.ConnectionURIDomain, app.AppID, userID)
	if err != nil {
		return nil, mapErr("get devices", err)
	}
	defer rows.Close()

	var out []repository.TOTPDevice
	for rows.Next() {
		var d repository.TOTPDevice
		if err := rows.Scan(&d.UserID, &d.Name, &d.Secret, &d.Period, &d.Skew, &d.Verified, &d.CreatedAt); err != nil {
			return nil, mapErr("scan device", err)
		}
		out = append(out, d)
	}
	return out, mapErr("get devices", rows.Err())
}

func (r *totpRepo) GetDeviceByName(ctx context.Context, app repository.AppIdentifier, userID, name string) (*repository.TOTPDevice, error) {
	query := `
		SELECT ` + deviceColumns + ` FROM totp_user_devices
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3 AND device_name = $4` + r.c.forUpdate(ctx)

	var d repository.TOTPDevice
	err := r.c.q(ctx).QueryRow(ctx, query, app.ConnectionURIDomain, app.AppID, userID, name).
		Scan(&d.UserID, &d.Name, &d.Secret, &d.Period, &d.Skew, &d.Verified, &d.CreatedAt)
	if err != nil {
		return nil, mapErr("get device", err)
	}
	return &d, nil
}

func (r *totpRepo) CreateDevice(ctx context.Context, app repository.AppIdentifier, d repository.TOTPDevice) error {
	return r.c.atomic(ctx, func(ctx context.Context) error {
		const upsertUser = `
			INSERT INTO totp_users (connection_uri_domain, app_id, user_id)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`
		if _, err := r.c.q(ctx).Exec(ctx, upsertUser, app.ConnectionURIDomain, app.AppID, d.UserID); err != nil {
			return mapErr("create totp user", err)
		}

		const insertDevice = `
			INSERT INTO totp_user_devices
				(connection_uri_domain, app_id, user_id, device_name, secret_key, period, skew, verified, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err := r.c.q(ctx).Exec(ctx, insertDevice,
			app.ConnectionURIDomain, app.AppID, d.UserID, d.Name, d.Secret, d.Period, d.Skew, d.Verified, d.CreatedAt)
		return mapErr("create device", err)
	})
}

func (r *totpRepo) DeleteDevice(ctx context.Context, app repository.AppIdentifier, userID, name string) (int, error) {
	const query = `
		DELETE FROM totp_user_devices
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3 AND device_name = $4`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID, name)
	if err != nil {
		return 0, mapErr("delete device", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *totpRepo) MarkDeviceAsVerified(ctx context.Context, app repository.AppIdentifier, userID, name string) error {
	const query = `
		UPDATE totp_user_devices SET verified = true
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3 AND device_name = $4`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID, name)
	if err != nil {
		return mapErr("verify device", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *totpRepo) UpdateDeviceName(ctx context.Context, app repository.AppIdentifier, userID, oldName, newName string) error {
	const query = `
		UPDATE totp_user_devices SET device_name = $5
		WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3 AND device_name = $4`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID, oldName, newName)
	if err != nil {
		return mapErr("rename device", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *totpRepo) RemoveUser(ctx context.Context, app repository.AppIdentifier, userID string) (bool, error) {
	const query = `DELETE FROM totp_users WHERE connection_uri_domain = $1 AND app_id = $2 AND user_id = $3`
	tag, err := r.c.q(ctx).Exec(ctx, query, app.ConnectionURIDomain, app.AppID, userID)
	if err != nil {
		return false, mapErr("remove totp user", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ─── Used codes ───

func (r *totpRepo) GetAllUsedCodesDescOrder(ctx context.Context, tenant repository.TenantIdentifier, userID string) ([]repository.TOTPUsedCode, error) {
	if err := r.lockUser(ctx, tenant.AppIdentifier(), userID); err != nil {
		return nil, err
	}
	const query = `
		SELECT user_id, code, is_valid, expiry_time_ms, created_time_ms
		FROM totp_used_codes
		WHERE connection_uri_domain = $1 AND app_id = $2 AND tenant_id = $3 AND user_id = $4
		ORDER BY created_time_ms DESC`

	rows, err := r.c.q(ctx).Query(ctx, query, tenant.ConnectionURIDomain, tenant.AppID, tenant.TenantID, userID)
	if err != nil {
		return nil, mapErr("get used codes", err)
	}
	defer rows.Close()

	var out []repository.TOTPUsedCode
	for rows.Next() {
		var c repository.TOTPUsedCode
		if err := rows.Scan(&c.UserID, &c.Code, &c.IsValid, &c.ExpiresAt, &c.CreatedAt); err != nil {
			return nil, mapErr("scan used code", err)
		}
		out = append(out, c)
	}
	return out, mapErr("get used codes", rows.Err())
}

// InsertUsedCode inserta sólo si no hay un código válido idéntico sin expirar.
// Cero filas insertadas es un conflicto de unicidad.
func (r *totpRepo) InsertUsedCode(ctx context.Context, tenant repository.TenantIdentifier, code repository.TOTPUsedCode) error {
	const query = `
		INSERT INTO totp_used_codes
			(connection_uri_domain, app_id, tenant_id, user_id, code, is_valid, expiry_time_ms, created_time_ms)
		SELECT $1, $2, $3, $4, $5, $6::boolean, $7, $8
		WHERE NOT ($6::boolean AND EXISTS (
			SELECT 1 FROM totp_used_codes
			WHERE connection_uri_domain = $1 AND app_id = $2 AND tenant_id = $3 AND user_id = $4
			  AND code = $5 AND is_valid AND expiry_time_ms > $8
		))`
	tag, err := r.c.q(ctx).Exec(ctx, query,
		tenant.ConnectionURIDomain, tenant.AppID, tenant.TenantID, code.UserID,
		code.Code, code.IsValid, code.ExpiresAt, code.CreatedAt)
	if err != nil {
		return mapErr("insert used code", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *totpRepo) RemoveExpiredCodes(ctx context.Context, beforeMs int64) (int64, error) {
	const query = `DELETE FROM totp_used_codes WHERE expiry_time_ms < $1`
	tag, err := r.c.q(ctx).Exec(ctx, query, beforeMs)
	if err != nil {
		return 0, mapErr("remove expired codes", err)
	}
	return tag.RowsAffected(), nil
}
