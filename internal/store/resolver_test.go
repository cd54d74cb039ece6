package store_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-identity/internal/cache"
	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
	"github.com/dropDatabas3/hellojohn-identity/internal/store/adapters/memory"
)

var (
	app = repository.NewAppIdentifier("", "")
	eu  = repository.NewTenantIdentifier("", "", "eu")
	us  = repository.NewTenantIdentifier("", "", "us")
)

func memStorage(t *testing.T, name string) store.StorageConfig {
	dsn := t.Name() + "/" + name
	t.Cleanup(func() { memory.Drop(dsn) })
	return store.StorageConfig{Name: name, Adapter: store.AdapterConfig{Name: memory.AdapterName, DSN: dsn}}
}

type fixture struct {
	r       *store.Resolver
	metrics *metrics.Metrics
	main    *memory.DB
	shard   *memory.DB
}

// public → main, eu → shard, us → main
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mainCfg, shardCfg := memStorage(t, "main"), memStorage(t, "shard")
	m := metrics.New()

	r, err := store.NewResolver(store.ResolverConfig{
		Storages: []store.StorageConfig{mainCfg, shardCfg},
		Tenants: []store.TenantRoute{
			{Tenant: eu, Storage: "shard"},
			{Tenant: app.PublicTenant(), Storage: "main"},
			{Tenant: us, Storage: "main"},
		},
		Cache:   cache.NewMemory("", 0),
		Metrics: m,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return &fixture{r: r, metrics: m, main: memory.Open(mainCfg.Adapter.DSN), shard: memory.Open(shardCfg.Adapter.DSN)}
}

func lookups(m *metrics.Metrics, idType repository.UserIDType, result string) float64 {
	return testutil.ToFloat64(m.ResolverLookups.WithLabelValues(idType.String(), result))
}

func TestNewResolver_Validation(t *testing.T) {
	main := memStorage(t, "main")

	_, err := store.NewResolver(store.ResolverConfig{
		Storages: []store.StorageConfig{main},
		Tenants:  []store.TenantRoute{{Tenant: app.PublicTenant(), Storage: "other"}},
	})
	assert.ErrorIs(t, err, store.ErrStorageNotConfigured)

	_, err = store.NewResolver(store.ResolverConfig{
		Storages: []store.StorageConfig{main},
		Tenants:  []store.TenantRoute{{Tenant: eu, Storage: "main"}},
	})
	assert.ErrorContains(t, err, "no public tenant")

	_, err = store.NewResolver(store.ResolverConfig{Storages: []store.StorageConfig{main, main}})
	assert.ErrorContains(t, err, "duplicated storage")

	_, err = store.NewResolver(store.ResolverConfig{
		Storages: []store.StorageConfig{main},
		Tenants: []store.TenantRoute{
			{Tenant: app.PublicTenant(), Storage: "main"},
			{Tenant: repository.NewTenantIdentifier("", "PUBLIC", " Public "), Storage: "main"},
		},
	})
	assert.ErrorContains(t, err, "duplicated tenant")
}

func TestResolver_ForTenantAndApp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ts, err := f.r.ForTenant(ctx, eu)
	require.NoError(t, err)
	assert.Equal(t, "shard", ts.Storage)
	assert.Same(t, f.shard, ts.Conn)

	_, err = f.r.ForTenant(ctx, repository.NewTenantIdentifier("", "", "nope"))
	assert.ErrorIs(t, err, store.ErrTenantOrAppNotFound)
	assert.True(t, repository.IsNotFound(err))

	as, err := f.r.ForApp(ctx, app)
	require.NoError(t, err)
	assert.Equal(t, "main", as.Storage)
	require.Len(t, as.All, 2)
	assert.Equal(t, "main", as.All[0].Name)
	assert.Equal(t, "shard", as.All[1].Name)

	_, err = f.r.ForApp(ctx, repository.NewAppIdentifier("", "other"))
	assert.True(t, store.IsTenantOrAppNotFound(err))
}

func TestResolver_ForAppUser_AnyFallsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	h, err := f.r.ForAppUser(ctx, app, "ghost", repository.UserIDTypeAny)
	require.NoError(t, err)
	assert.Nil(t, h.Mapping)
	assert.Equal(t, "main", h.Storage)
	assert.Equal(t, 1.0, lookups(f.metrics, repository.UserIDTypeAny, "fallback"))

	th, err := f.r.ForTenantUser(ctx, eu, "ghost", repository.UserIDTypeAny)
	require.NoError(t, err)
	assert.Nil(t, th.Mapping)
	assert.Equal(t, "shard", th.Storage)
	assert.Equal(t, eu, th.Tenant)
}

func TestResolver_ForAppUser_UnknownWithStrictHint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, idType := range []repository.UserIDType{repository.UserIDTypeInternal, repository.UserIDTypeExternal} {
		_, err := f.r.ForAppUser(ctx, app, "ghost", idType)
		assert.ErrorIs(t, err, store.ErrUnknownUserID)
		assert.True(t, repository.IsNotFound(err))
	}
}

func TestResolver_ForAppUser_FindsOwningStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.shard.AddUser(ctx, app, repository.RecipeEmailPassword, "u1", 1, "eu"))

	h, err := f.r.ForAppUser(ctx, app, "u1", repository.UserIDTypeInternal)
	require.NoError(t, err)
	assert.Equal(t, "shard", h.Storage)
	assert.Same(t, f.shard, h.Conn)
	assert.Nil(t, h.Mapping)
	assert.Len(t, h.All, 2)

	// ligado al tenant pedido aunque el dueño sea otro storage
	th, err := f.r.ForTenantUser(ctx, us, "u1", repository.UserIDTypeAny)
	require.NoError(t, err)
	assert.Equal(t, us, th.Tenant)
	assert.Equal(t, "shard", th.Storage)
}

func TestResolver_ForAppUser_Mapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.shard.AddUser(ctx, app, repository.RecipeThirdParty, "int1", 1, "eu"))
	require.NoError(t, f.shard.UserIDMapping().Create(ctx, app, repository.UserIDMapping{InternalUserID: "int1", ExternalUserID: "ext1"}))

	for _, tc := range []struct {
		id     string
		idType repository.UserIDType
	}{
		{"ext1", repository.UserIDTypeExternal},
		{"ext1", repository.UserIDTypeAny},
		{"int1", repository.UserIDTypeInternal},
		{"int1", repository.UserIDTypeAny},
	} {
		h, err := f.r.ForAppUser(ctx, app, tc.id, tc.idType)
		require.NoError(t, err, tc)
		require.NotNil(t, h.Mapping, tc)
		assert.Equal(t, "int1", h.Mapping.InternalUserID)
		assert.Equal(t, "ext1", h.Mapping.ExternalUserID)
		assert.Equal(t, "shard", h.Storage)
	}

	// un id interno no es externo
	_, err := f.r.ForAppUser(ctx, app, "int1", repository.UserIDTypeExternal)
	assert.ErrorIs(t, err, store.ErrUnknownUserID)
}

func TestResolver_LocationCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.shard.AddUser(ctx, app, repository.RecipeEmailPassword, "u1", 1, "eu"))

	_, err := f.r.ForAppUser(ctx, app, "u1", repository.UserIDTypeInternal)
	require.NoError(t, err)
	_, err = f.r.ForAppUser(ctx, app, "u1", repository.UserIDTypeInternal)
	require.NoError(t, err)
	assert.Equal(t, 1.0, lookups(f.metrics, repository.UserIDTypeInternal, "hit"))
	assert.Equal(t, 1.0, lookups(f.metrics, repository.UserIDTypeInternal, "cached"))

	// la ubicación cacheada se confirma contra el storage
	require.NoError(t, f.shard.EmailPassword().DeleteUser(ctx, app, "u1"))
	_, err = f.r.ForAppUser(ctx, app, "u1", repository.UserIDTypeInternal)
	assert.ErrorIs(t, err, store.ErrUnknownUserID)

	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeEmailPassword, "u1", 2))
	h, err := f.r.ForAppUser(ctx, app, "u1", repository.UserIDTypeInternal)
	require.NoError(t, err)
	assert.Equal(t, "main", h.Storage)
}

func TestResolver_StoragesAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.Zero(t, f.r.Stats().TotalActive)

	all, err := f.r.Storages(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "main", all[0].Name)
	assert.Equal(t, "shard", all[1].Name)

	stats := f.r.Stats()
	assert.Equal(t, 2, stats.TotalActive)
	assert.Equal(t, memory.AdapterName, stats.Connections["main"].Driver)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.StorageConns))

	require.NoError(t, f.r.Close())
	assert.Zero(t, f.r.Stats().TotalActive)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.StorageConns))
}
