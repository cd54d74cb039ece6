// Package users implementa las operaciones transversales a todas las recipes
// de autenticación: listado paginado, conteos y borrado de usuarios.
package users

import (
	"context"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
)

// Forgetter invalida ubicaciones cacheadas de usuarios (lo implementa store.Resolver).
type Forgetter interface {
	Forget(ctx context.Context, app repository.AppIdentifier, userIDs ...string)
}

// Deps dependencias del servicio.
type Deps struct {
	Locations Forgetter // opcional
	Metrics   *metrics.Metrics
}

// Service operaciones sobre usuarios de una app.
type Service struct {
	locations Forgetter
	metrics   *metrics.Metrics
}

// NewService crea el servicio.
func NewService(d Deps) *Service {
	return &Service{locations: d.Locations, metrics: d.Metrics}
}
