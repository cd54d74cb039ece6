package users

import (
	"context"
	"encoding/base64"
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

var app = repository.NewAppIdentifier("", "")

type fixture struct {
	resolver *store.Resolver
	svc      *Service
	metrics  *metrics.Metrics
	main     *memory.DB
	shard    *memory.DB
}

// newFixture app con el tenant public en "main" y el tenant "eu" en "shard".
func newFixture(t *testing.T) *fixture {
	t.Helper()
	mainDSN, shardDSN := t.Name()+"/main", t.Name()+"/shard"
	t.Cleanup(func() {
		memory.Drop(mainDSN)
		memory.Drop(shardDSN)
	})

	m := metrics.New()
	r, err := store.NewResolver(store.ResolverConfig{
		Storages: []store.StorageConfig{
			{Name: "main", Adapter: store.AdapterConfig{Name: memory.AdapterName, DSN: mainDSN}},
			{Name: "shard", Adapter: store.AdapterConfig{Name: memory.AdapterName, DSN: shardDSN}},
		},
		Tenants: []store.TenantRoute{
			{Tenant: app.PublicTenant(), Storage: "main"},
			{Tenant: repository.NewTenantIdentifier("", "", "eu"), Storage: "shard"},
		},
		Cache:   cache.NewMemory("test", 0),
		Metrics: m,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return &fixture{
		resolver: r,
		svc:      NewService(Deps{Locations: r, Metrics: m}),
		metrics:  m,
		main:     memory.Open(mainDSN),
		shard:    memory.Open(shardDSN),
	}
}

// seedAll carga datos de todas las recipes para userID en db.
func seedAll(t *testing.T, db *memory.DB, userID string, withAuth bool) {
	t.Helper()
	ctx := context.Background()
	if withAuth {
		require.NoError(t, db.AddUser(ctx, app, repository.RecipeEmailPassword, userID, 1))
	}
	require.NoError(t, db.SetUserMetadata(ctx, app, userID, `{"plan":"pro"}`))
	require.NoError(t, db.AddSession(ctx, app.PublicTenant(), userID, "s-"+userID))
	require.NoError(t, db.AddVerifiedEmail(ctx, app, userID, userID+"@example.com"))
	require.NoError(t, db.AddRole(ctx, app.PublicTenant(), userID, "admin"))
}

func addDevice(t *testing.T, db *memory.DB, userID string) {
	t.Helper()
	require.NoError(t, db.TOTP().CreateDevice(context.Background(), app, repository.TOTPDevice{
		UserID: userID, Name: "phone", Secret: "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP", Period: 30, Skew: 1, Verified: true,
	}))
}

func (f *fixture) delete(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	h, err := f.resolver.ForAppUser(ctx, app, userID, repository.UserIDTypeAny)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteUser(ctx, h, userID))
}

// ─── DeleteUser ───

func TestDeleteUser_NoMapping(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedAll(t, f.main, "u1", true)
	addDevice(t, f.main, "u1")
	require.NoError(t, f.shard.AddSession(ctx, repository.NewTenantIdentifier("", "", "eu"), "u1", "s-eu"))

	f.delete(t, "u1")

	assert.Equal(t, memory.UserData{}, f.main.Inspect(ctx, app, "u1"))
	assert.Equal(t, memory.UserData{}, f.shard.Inspect(ctx, app, "u1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UserDeletions.WithLabelValues(deleteNoMapping)))
}

func TestDeleteUser_MappedToExternalID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeThirdParty, "int1", 1))
	require.NoError(t, f.main.UserIDMapping().Create(ctx, app, repository.UserIDMapping{InternalUserID: "int1", ExternalUserID: "ext1"}))
	// las recipes sin auth ven el id externo; MFA el interno
	seedAll(t, f.main, "ext1", false)
	addDevice(t, f.main, "int1")

	f.delete(t, "ext1")

	assert.Equal(t, memory.UserData{}, f.main.Inspect(ctx, app, "ext1"))
	assert.Equal(t, memory.UserData{}, f.main.Inspect(ctx, app, "int1"))
	_, err := f.main.UserIDMapping().Get(ctx, app, "int1", repository.UserIDTypeInternal)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UserDeletions.WithLabelValues(deleteMapped)))
}

func TestDeleteUser_ExternalIDIsInternalUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeEmailPassword, "int1", 1))
	require.NoError(t, f.main.UserIDMapping().Create(ctx, app, repository.UserIDMapping{InternalUserID: "int1", ExternalUserID: "ext1"}))
	// ext1 es otro usuario interno, con sus propios datos
	seedAll(t, f.main, "ext1", true)

	f.delete(t, "int1")

	assert.False(t, f.main.Inspect(ctx, app, "int1").AuthUser)
	assert.Equal(t, memory.UserData{
		AuthUser: true, Metadata: true, Sessions: 1, VerifiedEmails: 1, Roles: 1,
	}, f.main.Inspect(ctx, app, "ext1"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.UserDeletions.WithLabelValues(deleteExternalIsInternal)))
}

func TestDeleteUser_OwnerOnSecondaryStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	eu := repository.NewTenantIdentifier("", "", "eu")
	require.NoError(t, f.shard.AddUser(ctx, app, repository.RecipePasswordless, "u2", 1, "eu"))
	require.NoError(t, f.shard.AddRole(ctx, eu, "u2", "viewer"))
	require.NoError(t, f.main.SetUserMetadata(ctx, app, "u2", "{}"))

	h, err := f.resolver.ForAppUser(ctx, app, "u2", repository.UserIDTypeAny)
	require.NoError(t, err)
	assert.Equal(t, "shard", h.Storage)

	require.NoError(t, f.svc.DeleteUser(ctx, h, "u2"))
	assert.Equal(t, memory.UserData{}, f.shard.Inspect(ctx, app, "u2"))
	assert.Equal(t, memory.UserData{}, f.main.Inspect(ctx, app, "u2"))

	// la ubicación cacheada se invalidó: ya no se encuentra
	_, err = f.resolver.ForAppUser(ctx, app, "u2", repository.UserIDTypeInternal)
	assert.ErrorIs(t, err, store.ErrUnknownUserID)
}

// ─── ListUsers ───

func TestListUsers_Pagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeEmailPassword, id, int64(100+i)))
	}
	h, err := f.resolver.ForTenant(ctx, app.PublicTenant())
	require.NoError(t, err)

	page, err := f.svc.ListUsers(ctx, h, ListRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "a", page.Users[0].ID)
	assert.Equal(t, "b", page.Users[1].ID)
	require.NotEmpty(t, page.NextToken)

	page, err = f.svc.ListUsers(ctx, h, ListRequest{Limit: 2, Token: page.NextToken})
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "c", page.Users[0].ID)
	assert.Empty(t, page.NextToken)
}

func TestListUsers_DescAndRecipeFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeEmailPassword, "a", 100))
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeThirdParty, "b", 200))
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeEmailPassword, "c", 300))
	h, err := f.resolver.ForTenant(ctx, app.PublicTenant())
	require.NoError(t, err)

	page, err := f.svc.ListUsers(ctx, h, ListRequest{
		Limit:   10,
		Order:   repository.SortDesc,
		Recipes: []repository.RecipeID{repository.RecipeEmailPassword},
	})
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "c", page.Users[0].ID)
	assert.Equal(t, "a", page.Users[1].ID)
	assert.Empty(t, page.NextToken)
}

func TestListUsers_InvalidInput(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h, err := f.resolver.ForTenant(ctx, app.PublicTenant())
	require.NoError(t, err)

	for _, limit := range []int{0, MaxPageSize + 1} {
		_, err := f.svc.ListUsers(ctx, h, ListRequest{Limit: limit})
		assert.ErrorIs(t, err, repository.ErrInvalidInput)
	}

	for _, tok := range []string{
		"not base64!",
		base64.StdEncoding.EncodeToString([]byte("no-separator")),
		base64.StdEncoding.EncodeToString([]byte("u1;notanumber")),
		base64.StdEncoding.EncodeToString([]byte(";100")),
	} {
		_, err := f.svc.ListUsers(ctx, h, ListRequest{Limit: 1, Token: tok})
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}
}

func TestPaginationToken_RoundTrip(t *testing.T) {
	tok := PaginationToken{UserID: "7f9c-user", TimeJoined: 1700000000123}
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("7f9c-user;1700000000123")), tok.Encode())

	got, err := DecodePaginationToken(tok.Encode())
	require.NoError(t, err)
	assert.Equal(t, tok, got)
}

// ─── Counts ───

func TestCountUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeEmailPassword, "a", 1))
	require.NoError(t, f.main.AddUser(ctx, app, repository.RecipeThirdParty, "b", 2))
	require.NoError(t, f.shard.AddUser(ctx, app, repository.RecipeEmailPassword, "c", 3, "eu"))

	th, err := f.resolver.ForTenant(ctx, app.PublicTenant())
	require.NoError(t, err)
	n, err := f.svc.CountUsers(ctx, th, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ah, err := f.resolver.ForApp(ctx, app)
	require.NoError(t, err)
	n, err = f.svc.CountUsersAcrossApp(ctx, ah, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = f.svc.CountUsersAcrossApp(ctx, ah, []repository.RecipeID{repository.RecipeEmailPassword})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
