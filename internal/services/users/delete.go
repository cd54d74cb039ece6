package users

import (
	"context"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// Casos de borrado, usados como label de métricas.
const (
	deleteNoMapping          = "no_mapping"
	deleteExternalIsInternal = "external_is_internal"
	deleteMapped             = "mapped"
)

// DeleteUser borra al usuario de todas las recipes de la app.
//
// h es el resultado de resolver userID: h.Conn es el storage dueño y
// h.Mapping el mapping encontrado (nil si no hay). Los datos de recipes sin
// auth (metadata, sesiones, verificación de email, roles) y el registro MFA
// se borran antes que los de auth, así un fallo a mitad deja al usuario
// todavía existente.
//
// Con mapping, si el id externo es a su vez un usuario interno sólo se
// borran las filas de auth de userID; si no, las filas sin auth se borran
// bajo el id externo y las de auth bajo el interno.
func (s *Service) DeleteUser(ctx context.Context, h *store.AppUser, userID string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("users.DeleteUser"),
		logger.AppID(h.App.String()), logger.UserID(userID))

	var plan deletionPlan
	switch m := h.Mapping; {
	case m == nil:
		plan = deletionPlan{kind: deleteNoMapping, nonAuthID: userID, authID: userID}
	default:
		externalIsInternal, err := h.Conn.AuthRecipe().DoesUserIDExist(ctx, h.App, m.ExternalUserID)
		if err != nil {
			return err
		}
		if externalIsInternal {
			plan = deletionPlan{kind: deleteExternalIsInternal, authID: userID}
		} else {
			plan = deletionPlan{kind: deleteMapped, nonAuthID: m.ExternalUserID, authID: m.InternalUserID}
		}
	}

	// storages secundarios primero; el dueño al final, en una sola transacción
	for _, sc := range h.All {
		if sc.Name == h.Storage {
			continue
		}
		err := sc.Conn.RunInTx(ctx, func(ctx context.Context) error {
			return plan.nonAuth(ctx, sc.Conn, h.App)
		})
		if err != nil {
			err = repository.UnwrapTx(err)
			log.Error("user deletion failed", logger.Storage(sc.Name), logger.Err(err))
			return err
		}
	}

	err := h.Conn.RunInTx(ctx, func(ctx context.Context) error {
		if err := plan.nonAuth(ctx, h.Conn, h.App); err != nil {
			return err
		}
		return plan.auth(ctx, h.Conn, h.App)
	})
	if err != nil {
		err = repository.UnwrapTx(err)
		log.Error("user deletion failed", logger.Storage(h.Storage), logger.Err(err))
		return err
	}

	if s.locations != nil {
		ids := []string{userID}
		if h.Mapping != nil {
			ids = append(ids, h.Mapping.InternalUserID, h.Mapping.ExternalUserID)
		}
		s.locations.Forget(ctx, h.App, ids...)
	}
	s.metrics.ObserveUserDeletion(plan.kind)
	log.Info("user deleted", logger.String("case", plan.kind))
	return nil
}

// deletionPlan ids bajo los que se borra cada grupo de recipes.
// nonAuthID vacío = no se tocan las recipes sin auth.
type deletionPlan struct {
	kind      string
	nonAuthID string
	authID    string
}

// nonAuth borra las recipes sin auth y el registro MFA.
// Los dispositivos TOTP están indexados por el id interno.
func (p deletionPlan) nonAuth(ctx context.Context, conn store.AdapterConnection, app repository.AppIdentifier) error {
	if p.nonAuthID != "" {
		if _, err := conn.UserMetadata().DeleteUserMetadata(ctx, app, p.nonAuthID); err != nil {
			return err
		}
		if err := conn.Sessions().DeleteSessionsOfUser(ctx, app, p.nonAuthID); err != nil {
			return err
		}
		if err := conn.EmailVerification().DeleteEmailVerificationUserInfo(ctx, app, p.nonAuthID); err != nil {
			return err
		}
		if _, err := conn.UserRoles().DeleteAllRolesForUser(ctx, app, p.nonAuthID); err != nil {
			return err
		}
	}
	_, err := conn.TOTP().RemoveUser(ctx, app, p.authID)
	return err
}

// auth borra al usuario de las recipes de auth (y su mapping con él).
func (p deletionPlan) auth(ctx context.Context, conn store.AdapterConnection, app repository.AppIdentifier) error {
	if err := conn.EmailPassword().DeleteUser(ctx, app, p.authID); err != nil {
		return err
	}
	if err := conn.ThirdParty().DeleteUser(ctx, app, p.authID); err != nil {
		return err
	}
	return conn.Passwordless().DeleteUser(ctx, app, p.authID)
}
