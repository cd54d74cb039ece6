package memory

import (
	"context"
	"slices"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// Helpers de carga e inspección. Las recipes completas (signup, sesiones,
// roles) viven fuera del núcleo; esto permite poblar sus datos en dev y tests.

// AddUser crea un usuario de auth en los tenants dados.
// Retorna ErrConflict si el id ya existe en la app.
func (db *DB) AddUser(ctx context.Context, app repository.AppIdentifier, recipe repository.RecipeID, userID string, timeJoined int64, tenantIDs ...string) error {
	if len(tenantIDs) == 0 {
		tenantIDs = []string{repository.DefaultTenantID}
	}
	return db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		if _, ok := s.users[k]; ok {
			return repository.ErrConflict
		}
		s.users[k] = &userRow{id: userID, recipe: recipe, tenants: slices.Clone(tenantIDs), timeJoined: timeJoined}
		return nil
	})
}

func (db *DB) SetUserMetadata(ctx context.Context, app repository.AppIdentifier, userID, metadata string) error {
	return db.do(ctx, func(s *state) error {
		s.metadata[appUser{app, userID}] = metadata
		return nil
	})
}

func (db *DB) AddSession(ctx context.Context, tenant repository.TenantIdentifier, userID, sessionHandle string) error {
	return db.do(ctx, func(s *state) error {
		k := tenantUser{tenant, userID}
		s.sessions[k] = append(s.sessions[k], sessionHandle)
		return nil
	})
}

func (db *DB) AddVerifiedEmail(ctx context.Context, app repository.AppIdentifier, userID, email string) error {
	return db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		s.verifiedEmails[k] = append(s.verifiedEmails[k], email)
		return nil
	})
}

func (db *DB) AddRole(ctx context.Context, tenant repository.TenantIdentifier, userID, role string) error {
	return db.do(ctx, func(s *state) error {
		k := tenantUser{tenant, userID}
		s.roles[k] = append(s.roles[k], role)
		return nil
	})
}

// UserData resume lo que la instancia guarda de un user id.
type UserData struct {
	AuthUser       bool
	Metadata       bool
	Sessions       int
	VerifiedEmails int
	Roles          int
	TOTPEnrolled   bool
	Devices        int
}

// Inspect retorna lo que la instancia guarda de userID en la app.
func (db *DB) Inspect(ctx context.Context, app repository.AppIdentifier, userID string) UserData {
	var d UserData
	_ = db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		_, d.AuthUser = s.users[k]
		_, d.Metadata = s.metadata[k]
		d.VerifiedEmails = len(s.verifiedEmails[k])
		d.TOTPEnrolled = s.totpUsers[k]
		d.Devices = len(s.devices[k])
		for tk, v := range s.sessions {
			if tk.userID == userID && tk.tenant.AppIdentifier() == app {
				d.Sessions += len(v)
			}
		}
		for tk, v := range s.roles {
			if tk.userID == userID && tk.tenant.AppIdentifier() == app {
				d.Roles += len(v)
			}
		}
		return nil
	})
	return d
}

// UsedCodeCount cantidad de códigos usados registrados para el usuario en el tenant.
func (db *DB) UsedCodeCount(ctx context.Context, tenant repository.TenantIdentifier, userID string) int {
	var n int
	_ = db.do(ctx, func(s *state) error {
		n = len(s.usedCodes[tenantUser{tenant, userID}])
		return nil
	})
	return n
}
