package pg

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	migrations "github.com/dropDatabas3/hellojohn-identity/migrations/postgres"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

func TestAdapterRegistered(t *testing.T) {
	a, ok := store.GetAdapter(AdapterName)
	require.True(t, ok)
	assert.Equal(t, "postgres", a.Name())
}

func TestConnectRequiresDSN(t *testing.T) {
	_, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: AdapterName})
	assert.Error(t, err)
}

func TestParseMigrations_Ordered(t *testing.T) {
	migs, err := ParseMigrations(migrations.CoreFS, migrations.CoreDir)
	require.NoError(t, err)
	require.Len(t, migs, 3)
	assert.Equal(t, 1, migs[0].Version)
	assert.Equal(t, "totp", migs[2].Name)
}

// Tests contra una base real; requieren IDENTITY_PG_TEST_DSN.
func openTestDB(t *testing.T) *pgConnection {
	t.Helper()
	dsn := os.Getenv("IDENTITY_PG_TEST_DSN")
	if dsn == "" {
		t.Skip("IDENTITY_PG_TEST_DSN not set")
	}
	conn, err := store.OpenAdapter(context.Background(), store.AdapterConfig{Name: AdapterName, DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := conn.(*pgConnection)
	_, err = c.Migrate(context.Background())
	require.NoError(t, err)
	return c
}

func TestTOTP_UsedCodeReplayConstraint(t *testing.T) {
	c := openTestDB(t)
	ctx := context.Background()
	app := repository.NewAppIdentifier("", "pg-test-"+uuid.NewString()[:8])
	tenant := app.PublicTenant()
	repo := c.TOTP()

	code := repository.TOTPUsedCode{UserID: "u1", Code: "123456", IsValid: true, ExpiresAt: 2000, CreatedAt: 1000}
	assert.ErrorIs(t, repo.InsertUsedCode(ctx, tenant, code), repository.ErrNotFound)

	require.NoError(t, repo.CreateDevice(ctx, app, repository.TOTPDevice{UserID: "u1", Name: "d1", Secret: "S", Period: 30, Skew: 1}))
	assert.ErrorIs(t, repo.CreateDevice(ctx, app, repository.TOTPDevice{UserID: "u1", Name: "d1", Secret: "S", Period: 30}), repository.ErrConflict)
	require.NoError(t, repo.InsertUsedCode(ctx, tenant, code))

	replay := code
	replay.CreatedAt = 1500
	assert.ErrorIs(t, repo.InsertUsedCode(ctx, tenant, replay), repository.ErrConflict)

	existed, err := repo.RemoveUser(ctx, app, "u1")
	require.NoError(t, err)
	assert.True(t, existed)

	codes, err := repo.GetAllUsedCodesDescOrder(ctx, tenant, "u1")
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestRunInTx_SavepointRollback(t *testing.T) {
	c := openTestDB(t)
	ctx := context.Background()
	app := repository.NewAppIdentifier("", "pg-test-"+uuid.NewString()[:8])
	repo := c.TOTP()

	err := c.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repo.CreateDevice(ctx, app, repository.TOTPDevice{UserID: "u1", Name: "kept", Secret: "S", Period: 30}))
		inner := c.RunInTx(ctx, func(ctx context.Context) error {
			require.NoError(t, repo.CreateDevice(ctx, app, repository.TOTPDevice{UserID: "u1", Name: "dropped", Secret: "S", Period: 30}))
			return repository.ErrConflict
		})
		assert.ErrorIs(t, inner, repository.ErrConflict)
		return nil
	})
	require.NoError(t, err)

	devs, err := repo.GetDevices(ctx, app, "u1")
	require.NoError(t, err)
	require.Len(t, devs, 1)
	assert.Equal(t, "kept", devs[0].Name)
}
