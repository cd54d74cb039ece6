package memory

import (
	"context"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// nonAuthRepo cubre metadata, sesiones, verificación de email y roles.
type nonAuthRepo struct{ db *DB }

func (r *nonAuthRepo) DeleteUserMetadata(ctx context.Context, app repository.AppIdentifier, userID string) (int, error) {
	var n int
	err := r.db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		if _, ok := s.metadata[k]; ok {
			delete(s.metadata, k)
			n = 1
		}
		return nil
	})
	return n, err
}

func (r *nonAuthRepo) DeleteSessionsOfUser(ctx context.Context, app repository.AppIdentifier, userID string) error {
	return r.db.do(ctx, func(s *state) error {
		deleteAppUser(s.sessions, app, userID)
		return nil
	})
}

func (r *nonAuthRepo) DeleteEmailVerificationUserInfo(ctx context.Context, app repository.AppIdentifier, userID string) error {
	return r.db.do(ctx, func(s *state) error {
		k := appUser{app, userID}
		delete(s.verifiedEmails, k)
		delete(s.emailTokens, k)
		return nil
	})
}

func (r *nonAuthRepo) DeleteAllRolesForUser(ctx context.Context, app repository.AppIdentifier, userID string) (int, error) {
	var n int
	err := r.db.do(ctx, func(s *state) error {
		for k, roles := range s.roles {
			if k.userID == userID && k.tenant.AppIdentifier() == app {
				n += len(roles)
				delete(s.roles, k)
			}
		}
		return nil
	})
	return n, err
}
