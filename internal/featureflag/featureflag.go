// Package featureflag decide qué features pagas/opcionales están habilitadas por app.
package featureflag

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// Feature identificador de feature.
type Feature string

// FeatureMFA habilita el motor TOTP.
const FeatureMFA Feature = "mfa"

// Checker indica si una feature está habilitada para una app.
type Checker interface {
	Enabled(ctx context.Context, app repository.AppIdentifier, f Feature) (bool, error)
}

// Static Checker en memoria, cargado desde config.
type Static struct {
	// All habilita la feature para cualquier app.
	All map[Feature]bool
	// Apps habilita la feature por app.
	Apps map[Feature]map[repository.AppIdentifier]bool
}

// NewStatic crea un Checker estático.
func NewStatic() *Static {
	return &Static{
		All:  make(map[Feature]bool),
		Apps: make(map[Feature]map[repository.AppIdentifier]bool),
	}
}

// EnableAll habilita f para todas las apps.
func (s *Static) EnableAll(f Feature) *Static {
	s.All[f] = true
	return s
}

// Enable habilita f para las apps dadas.
func (s *Static) Enable(f Feature, apps ...repository.AppIdentifier) *Static {
	if s.Apps[f] == nil {
		s.Apps[f] = make(map[repository.AppIdentifier]bool)
	}
	for _, a := range apps {
		s.Apps[f][a] = true
	}
	return s
}

func (s *Static) Enabled(_ context.Context, app repository.AppIdentifier, f Feature) (bool, error) {
	return s.All[f] || s.Apps[f][app], nil
}

// Require retorna ErrFeatureDisabled si f no está habilitada para app.
func Require(ctx context.Context, c Checker, app repository.AppIdentifier, f Feature) error {
	ok, err := c.Enabled(ctx, app, f)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", repository.ErrFeatureDisabled, f)
	}
	return nil
}
