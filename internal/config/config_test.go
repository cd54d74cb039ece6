package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
app:
  env: staging
server:
  addr: ":9090"
  api_keys: [k1]
storages:
  primary:
    driver: postgres
    dsn: postgres://localhost/identity
    max_open_conns: 20
  archive:
    driver: memory
    dsn: archive
tenants:
  - storage: primary
  - app_id: public
    tenant_id: eu
    storage: archive
totp:
  max_attempts: 3
  rate_limit_cooldown: 5m
features:
  mfa_enabled_apps: [public]
cache:
  kind: redis
  ttl: 1m
  redis:
    addr: localhost:6379
`

func TestParse_Sample(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "staging", c.App.Env)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, []string{"archive", "primary"}, c.StorageNames())
	assert.Equal(t, 20, c.Storages["primary"].MaxOpenConns)
	require.Len(t, c.Tenants, 2)
	assert.Equal(t, "eu", c.Tenants[1].TenantID)
	assert.Equal(t, 3, c.TOTP.MaxAttempts)
	assert.Equal(t, 5*time.Minute, c.TOTP.RateLimitCooldown)
	assert.Equal(t, []string{"public"}, c.Features.MFAEnabledApps)
	assert.Equal(t, time.Minute, c.CacheTTL())
	assert.Equal(t, "identity", c.Cache.Redis.Prefix)
}

func TestParse_DevDefaults(t *testing.T) {
	c, err := Parse([]byte(""))
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, 5, c.TOTP.MaxAttempts)
	assert.Equal(t, 15*time.Minute, c.TOTP.RateLimitCooldown)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.Equal(t, map[string]Storage{"default": {Driver: "memory", DSN: "default"}}, c.Storages)
	assert.Equal(t, []Tenant{{Storage: "default"}}, c.Tenants)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7000")
	t.Setenv("API_KEYS", "a, b,")
	t.Setenv("TOTP_MAX_ATTEMPTS", "10")
	t.Setenv("TOTP_RATE_LIMIT_COOLDOWN", "30s")
	t.Setenv("CACHE_KIND", "memory")
	t.Setenv("LOG_LEVEL", "DEBUG")

	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, ":7000", c.Server.Addr)
	assert.Equal(t, []string{"a", "b"}, c.Server.APIKeys)
	assert.Equal(t, 10, c.TOTP.MaxAttempts)
	assert.Equal(t, 30*time.Second, c.TOTP.RateLimitCooldown)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestValidate_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown driver":       "storages: {a: {driver: mongo}}\ntenants: [{storage: a}]",
		"dsn is required":      "storages: {a: {driver: postgres}}\ntenants: [{storage: a}]",
		`unknown storage "b"`:  "storages: {a: {driver: memory}}\ntenants: [{storage: b}]",
		"at least one tenant":  "storages: {a: {driver: memory}}",
		"cache.redis.addr":     "cache: {kind: redis}",
		"cache.kind":           "cache: {kind: memcached}",
		"max_attempts":         "totp: {max_attempts: -1}",
		"api_keys is required": "app: {env: prod}\nstorages: {a: {driver: memory}}\ntenants: [{storage: a}]",
	}
	for want, doc := range cases {
		t.Run(want, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorContains(t, err, want)
		})
	}
}
