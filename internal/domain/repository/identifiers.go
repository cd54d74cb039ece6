package repository

import "strings"

const (
	// DefaultAppID es el app implícito cuando no se especifica uno.
	DefaultAppID = "public"

	// DefaultTenantID es el tenant implícito cuando no se especifica uno.
	DefaultTenantID = "public"
)

// AppIdentifier identifica una aplicación lógica. Todos los tenants de una app
// comparten el mismo pool de usuarios.
type AppIdentifier struct {
	ConnectionURIDomain string
	AppID               string
}

// TenantIdentifier identifica un tenant dentro de una app.
type TenantIdentifier struct {
	ConnectionURIDomain string
	AppID               string
	TenantID            string
}

// NewAppIdentifier normaliza y construye un AppIdentifier.
// Valores vacíos toman el default.
func NewAppIdentifier(connectionURIDomain, appID string) AppIdentifier {
	return AppIdentifier{
		ConnectionURIDomain: normalizeDomain(connectionURIDomain),
		AppID:               normalizeID(appID, DefaultAppID),
	}
}

// NewTenantIdentifier normaliza y construye un TenantIdentifier.
// Valores vacíos toman el default.
func NewTenantIdentifier(connectionURIDomain, appID, tenantID string) TenantIdentifier {
	return TenantIdentifier{
		ConnectionURIDomain: normalizeDomain(connectionURIDomain),
		AppID:               normalizeID(appID, DefaultAppID),
		TenantID:            normalizeID(tenantID, DefaultTenantID),
	}
}

// AppIdentifier proyecta el tenant a su app. Cada tenant pertenece a exactamente una app.
func (t TenantIdentifier) AppIdentifier() AppIdentifier {
	return AppIdentifier{ConnectionURIDomain: t.ConnectionURIDomain, AppID: t.AppID}
}

// IsPublic indica si es el tenant default de su app.
func (t TenantIdentifier) IsPublic() bool {
	return t.TenantID == DefaultTenantID
}

func (t TenantIdentifier) String() string {
	return t.ConnectionURIDomain + "|" + t.AppID + "|" + t.TenantID
}

// PublicTenant retorna el tenant default de la app.
func (a AppIdentifier) PublicTenant() TenantIdentifier {
	return TenantIdentifier{ConnectionURIDomain: a.ConnectionURIDomain, AppID: a.AppID, TenantID: DefaultTenantID}
}

func (a AppIdentifier) String() string {
	return a.ConnectionURIDomain + "|" + a.AppID
}

func normalizeDomain(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeID(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}
