package memory

import (
	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

type appUser struct {
	app    repository.AppIdentifier
	userID string
}

type tenantUser struct {
	tenant repository.TenantIdentifier
	userID string
}

type userRow struct {
	id         string
	recipe     repository.RecipeID
	tenants    []string
	timeJoined int64
}

type mappingRow struct {
	app repository.AppIdentifier
	m   repository.UserIDMapping
}

// state son todas las "tablas" de una instancia.
type state struct {
	users    map[appUser]*userRow
	mappings []mappingRow

	metadata       map[appUser]string
	sessions       map[tenantUser][]string
	verifiedEmails map[appUser][]string
	emailTokens    map[appUser][]string
	roles          map[tenantUser][]string

	totpUsers map[appUser]bool
	devices   map[appUser][]repository.TOTPDevice
	usedCodes map[tenantUser][]repository.TOTPUsedCode
}

func newState() *state {
	return &state{
		users:          make(map[appUser]*userRow),
		metadata:       make(map[appUser]string),
		sessions:       make(map[tenantUser][]string),
		verifiedEmails: make(map[appUser][]string),
		emailTokens:    make(map[appUser][]string),
		roles:          make(map[tenantUser][]string),
		totpUsers:      make(map[appUser]bool),
		devices:        make(map[appUser][]repository.TOTPDevice),
		usedCodes:      make(map[tenantUser][]repository.TOTPUsedCode),
	}
}

// clone copia profunda, usada como snapshot de rollback.
func (s *state) clone() *state {
	c := newState()
	for k, u := range s.users {
		cu := *u
		cu.tenants = append([]string(nil), u.tenants...)
		c.users[k] = &cu
	}
	c.mappings = append([]mappingRow(nil), s.mappings...)
	for k, v := range s.metadata {
		c.metadata[k] = v
	}
	cloneSlices(c.sessions, s.sessions)
	cloneSlices(c.verifiedEmails, s.verifiedEmails)
	cloneSlices(c.emailTokens, s.emailTokens)
	cloneSlices(c.roles, s.roles)
	for k, v := range s.totpUsers {
		c.totpUsers[k] = v
	}
	cloneSlices(c.devices, s.devices)
	cloneSlices(c.usedCodes, s.usedCodes)
	return c
}

func cloneSlices[K comparable, V any](dst, src map[K][]V) {
	for k, v := range src {
		dst[k] = append([]V(nil), v...)
	}
}

// deleteAppUser borra de un mapa por tenant todas las filas del usuario en la app.
func deleteAppUser[V any](m map[tenantUser]V, app repository.AppIdentifier, userID string) int {
	n := 0
	for k := range m {
		if k.userID == userID && k.tenant.AppIdentifier() == app {
			delete(m, k)
			n++
		}
	}
	return n
}
