package repository

import "context"

// TOTPDevice es un dispositivo TOTP registrado por un usuario dentro de una app.
// (UserID, Name) es único; Name es case-sensitive.
type TOTPDevice struct {
	UserID    string
	Name      string
	Secret    string // 20 bytes en Base32
	Period    int    // segundos por time-step
	Skew      int    // time-steps aceptados antes/después de ahora
	Verified  bool
	CreatedAt int64 // unix ms
}

// TOTPUsedCode es una entrada del log append-only de intentos de verificación.
// Se usa tanto para detectar replay como para el rate limiting.
type TOTPUsedCode struct {
	UserID    string
	Code      string
	IsValid   bool
	ExpiresAt int64 // unix ms
	CreatedAt int64 // unix ms
}

// TOTPRepository define operaciones sobre dispositivos y códigos usados TOTP.
//
// Los métodos respetan la transacción que transporte ctx (ver Transactor).
// Dentro de una transacción, las lecturas de dispositivos y códigos toman
// lock de fila sobre los registros del usuario.
type TOTPRepository interface {
	Transactor

	// ─── Devices ───

	// GetDevices lista los dispositivos del usuario (vacío si no tiene).
	GetDevices(ctx context.Context, app AppIdentifier, userID string) ([]TOTPDevice, error)

	// GetDeviceByName busca un dispositivo por nombre.
	// Retorna ErrNotFound si no existe.
	GetDeviceByName(ctx context.Context, app AppIdentifier, userID, name string) (*TOTPDevice, error)

	// CreateDevice crea el dispositivo (y el registro MFA del usuario si falta).
	// Retorna ErrConflict si ya existe uno con el mismo nombre.
	CreateDevice(ctx context.Context, app AppIdentifier, device TOTPDevice) error

	// DeleteDevice elimina un dispositivo y retorna cuántos se borraron.
	DeleteDevice(ctx context.Context, app AppIdentifier, userID, name string) (int, error)

	// MarkDeviceAsVerified marca el dispositivo como verificado.
	// Retorna ErrNotFound si no existe.
	MarkDeviceAsVerified(ctx context.Context, app AppIdentifier, userID, name string) error

	// UpdateDeviceName renombra un dispositivo.
	// Retorna ErrNotFound si oldName no existe, ErrConflict si newName ya existe.
	UpdateDeviceName(ctx context.Context, app AppIdentifier, userID, oldName, newName string) error

	// RemoveUser elimina el registro MFA del usuario junto con sus dispositivos
	// y códigos usados. Retorna true si existía.
	RemoveUser(ctx context.Context, app AppIdentifier, userID string) (bool, error)

	// ─── Used codes ───

	// GetAllUsedCodesDescOrder retorna todos los códigos usados del usuario en
	// el tenant (expirados incluidos), del más reciente al más antiguo.
	GetAllUsedCodesDescOrder(ctx context.Context, tenant TenantIdentifier, userID string) ([]TOTPUsedCode, error)

	// InsertUsedCode agrega un intento al log.
	// Retorna ErrConflict si viola la unicidad (mismo instante, o código válido
	// idéntico aún no expirado). Retorna ErrNotFound si el usuario no tiene
	// registro MFA.
	InsertUsedCode(ctx context.Context, tenant TenantIdentifier, code TOTPUsedCode) error

	// RemoveExpiredCodes borra los códigos con expiración anterior a beforeMs.
	RemoveExpiredCodes(ctx context.Context, beforeMs int64) (int64, error)
}
