// Package mfa implementa el motor TOTP: registro de dispositivos y
// verificación de códigos con rate limiting y protección contra replay.
//
// El servicio no guarda estado propio ni toma locks: toda secuencia
// leer-decidir-escribir corre en una transacción del storage del usuario.
package mfa

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dropDatabas3/hellojohn-identity/internal/featureflag"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

const (
	DefaultMaxAttempts       = 5
	DefaultRateLimitCooldown = 15 * time.Minute
	DefaultIssuer            = "HelloJohn"
)

// Config parámetros del motor.
type Config struct {
	// MaxAttempts intentos inválidos consecutivos que disparan el rate limit.
	MaxAttempts int
	// RateLimitCooldown espera desde el último intento inválido.
	RateLimitCooldown time.Duration
	// Issuer para la URL otpauth://.
	Issuer string
}

// Deps dependencias del servicio.
type Deps struct {
	Features featureflag.Checker
	Clock    clockwork.Clock // nil = reloj real
	Config   Config
	Metrics  *metrics.Metrics
}

// Service motor TOTP.
type Service struct {
	features featureflag.Checker
	clock    clockwork.Clock
	cfg      Config
	metrics  *metrics.Metrics
}

// NewService crea el servicio aplicando defaults a la config.
func NewService(d Deps) *Service {
	cfg := d.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = DefaultRateLimitCooldown
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	features := d.Features
	if features == nil {
		features = featureflag.NewStatic()
	}
	return &Service{features: features, clock: clock, cfg: cfg, metrics: d.Metrics}
}

// Config retorna la config efectiva.
func (s *Service) Config() Config { return s.cfg }

// PruneExpiredCodes borra de cada storage los códigos usados que expiraron
// hace más de grace. Lo invoca un job externo; el servicio no agenda nada.
func (s *Service) PruneExpiredCodes(ctx context.Context, storages []store.StorageConn, grace time.Duration) (int64, error) {
	before := s.clock.Now().Add(-grace).UnixMilli()
	var total int64
	for _, sc := range storages {
		n, err := sc.Conn.TOTP().RemoveExpiredCodes(ctx, before)
		if err != nil {
			return total, err
		}
		logger.From(ctx).Info("expired totp codes removed",
			logger.Layer("service"), logger.Op("mfa.PruneExpiredCodes"), logger.Storage(sc.Name), logger.Int64("removed", n))
		total += n
	}
	return total, nil
}
