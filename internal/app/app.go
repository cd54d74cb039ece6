// Package app arma el contenedor de dependencias a partir de la config.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/hellojohn-identity/internal/cache"
	"github.com/dropDatabas3/hellojohn-identity/internal/config"
	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/featureflag"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/mfa"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/users"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"

	// adapters registrados vía init()
	_ "github.com/dropDatabas3/hellojohn-identity/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/hellojohn-identity/internal/store/adapters/pg"
)

// Container dependencias compartidas por los comandos.
type Container struct {
	Config   *config.Config
	Resolver *store.Resolver
	Cache    cache.Client
	Metrics  *metrics.Metrics // nil si metrics.enabled=false
	MFA      *mfa.Service
	Users    *users.Service
}

// Options ajustes que no vienen de la config.
type Options struct {
	// Registerer para las métricas; default prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// Build arma el contenedor. Las conexiones a storages se abren bajo demanda.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		if err := m.Register(opts.Registerer); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	cc, err := cache.New(ctx, cache.Config{
		Driver:     cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.CacheTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}

	r, err := store.NewResolver(ResolverConfig(cfg, cc, m))
	if err != nil {
		_ = cc.Close()
		return nil, err
	}

	flags, err := Features(cfg)
	if err != nil {
		_ = r.Close()
		_ = cc.Close()
		return nil, err
	}

	return &Container{
		Config:   cfg,
		Resolver: r,
		Cache:    cc,
		Metrics:  m,
		MFA: mfa.NewService(mfa.Deps{
			Features: flags,
			Config: mfa.Config{
				MaxAttempts:       cfg.TOTP.MaxAttempts,
				RateLimitCooldown: cfg.TOTP.RateLimitCooldown,
				Issuer:            cfg.TOTP.Issuer,
			},
			Metrics: m,
		}),
		Users: users.NewService(users.Deps{Locations: r, Metrics: m}),
	}, nil
}

// Close cierra storages y cache.
func (c *Container) Close() error {
	return errors.Join(c.Resolver.Close(), c.Cache.Close())
}

// ResolverConfig traduce la tabla de storages/tenants de la config.
func ResolverConfig(cfg *config.Config, cc cache.Client, m *metrics.Metrics) store.ResolverConfig {
	rc := store.ResolverConfig{Cache: cc, CacheTTL: cfg.CacheTTL(), Metrics: m}
	for _, name := range cfg.StorageNames() {
		s := cfg.Storages[name]
		rc.Storages = append(rc.Storages, store.StorageConfig{
			Name: name,
			Adapter: store.AdapterConfig{
				Name:         s.Driver,
				DSN:          s.DSN,
				MaxOpenConns: s.MaxOpenConns,
				MaxIdleConns: s.MaxIdleConns,
			},
		})
	}
	for _, t := range cfg.Tenants {
		rc.Tenants = append(rc.Tenants, store.TenantRoute{
			Tenant:  repository.NewTenantIdentifier(t.ConnectionURIDomain, t.AppID, t.TenantID),
			Storage: t.Storage,
		})
	}
	return rc
}

// Features arma el checker de features. Cada app se escribe "domain|app" o "app".
func Features(cfg *config.Config) (*featureflag.Static, error) {
	f := featureflag.NewStatic()
	if cfg.Features.MFAEnabledAll {
		f.EnableAll(featureflag.FeatureMFA)
	}
	for _, s := range cfg.Features.MFAEnabledApps {
		app, err := ParseApp(s)
		if err != nil {
			return nil, fmt.Errorf("features.mfa_enabled_apps: %w", err)
		}
		f.Enable(featureflag.FeatureMFA, app)
	}
	return f, nil
}

// ParseApp parsea "domain|app" o "app".
func ParseApp(s string) (repository.AppIdentifier, error) {
	parts := strings.Split(s, "|")
	switch len(parts) {
	case 1:
		return repository.NewAppIdentifier("", parts[0]), nil
	case 2:
		return repository.NewAppIdentifier(parts[0], parts[1]), nil
	default:
		return repository.AppIdentifier{}, fmt.Errorf("%w: app %q must be \"domain|app\" or \"app\"", repository.ErrInvalidInput, s)
	}
}
