package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-identity/internal/config"
	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/featureflag"
	"github.com/dropDatabas3/hellojohn-identity/internal/store/adapters/memory"
)

func TestParseApp(t *testing.T) {
	a, err := ParseApp("acme")
	require.NoError(t, err)
	assert.Equal(t, repository.NewAppIdentifier("", "acme"), a)

	a, err = ParseApp("Example.com|Acme")
	require.NoError(t, err)
	assert.Equal(t, repository.AppIdentifier{ConnectionURIDomain: "example.com", AppID: "acme"}, a)

	_, err = ParseApp("a|b|c")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestFeatures(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Features.MFAEnabledApps = []string{"acme", "example.com|shop"}

	f, err := Features(cfg)
	require.NoError(t, err)

	on, _ := f.Enabled(ctx, repository.NewAppIdentifier("", "acme"), featureflag.FeatureMFA)
	assert.True(t, on)
	on, _ = f.Enabled(ctx, repository.NewAppIdentifier("example.com", "shop"), featureflag.FeatureMFA)
	assert.True(t, on)
	on, _ = f.Enabled(ctx, repository.NewAppIdentifier("", "shop"), featureflag.FeatureMFA)
	assert.False(t, on)
}

func TestBuild_Memory(t *testing.T) {
	dsn := t.Name()
	t.Cleanup(func() { memory.Drop(dsn) })

	cfg, err := config.Parse([]byte(`
storages:
  main: {driver: memory, dsn: "` + dsn + `"}
tenants:
  - {storage: main}
  - {tenant_id: eu, storage: main}
metrics:
  enabled: true
features:
  mfa_enabled_all: true
`))
	require.NoError(t, err)

	c, err := Build(context.Background(), cfg, Options{Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NotNil(t, c.Metrics)
	h, err := c.Resolver.ForTenant(context.Background(), repository.NewTenantIdentifier("", "", "eu"))
	require.NoError(t, err)
	assert.Equal(t, "main", h.Storage)
	assert.Equal(t, 5, c.MFA.Config().MaxAttempts)
}
