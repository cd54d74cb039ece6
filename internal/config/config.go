package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		// debug | info | warn | error
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr"`
		// API keys aceptadas en el header api-key. Vacío = sin auth (sólo dev).
		APIKeys []string `yaml:"api_keys"`
	} `yaml:"server"`

	// Storages físicos por nombre.
	Storages map[string]Storage `yaml:"storages"`

	// Tabla de ruteo tenant → storage. Cada app necesita su tenant public.
	Tenants []Tenant `yaml:"tenants"`

	TOTP struct {
		MaxAttempts       int           `yaml:"max_attempts"`
		RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
		Issuer            string        `yaml:"issuer"`
		// Retención extra de códigos expirados antes de que prune-codes los borre.
		PruneGrace time.Duration `yaml:"prune_grace"`
	} `yaml:"totp"`

	Features struct {
		MFAEnabledAll  bool     `yaml:"mfa_enabled_all"`
		MFAEnabledApps []string `yaml:"mfa_enabled_apps"` // "domain|app" o "app"
	} `yaml:"features"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		TTL   string `yaml:"ttl"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Storage un backend físico.
type Storage struct {
	Driver       string `yaml:"driver"` // postgres | memory
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// Tenant una entrada de la tabla de ruteo.
type Tenant struct {
	ConnectionURIDomain string `yaml:"connection_uri_domain"`
	AppID               string `yaml:"app_id"`
	TenantID            string `yaml:"tenant_id"`
	Storage             string `yaml:"storage"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodifica YAML, aplica defaults y overrides por env, y valida.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// sane defaults
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "10m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "identity"
	}
	if c.TOTP.MaxAttempts == 0 {
		c.TOTP.MaxAttempts = 5
	}
	if c.TOTP.RateLimitCooldown == 0 {
		c.TOTP.RateLimitCooldown = 15 * time.Minute
	}
	if c.TOTP.Issuer == "" {
		c.TOTP.Issuer = "HelloJohn"
	}
	if c.TOTP.PruneGrace == 0 {
		c.TOTP.PruneGrace = time.Hour
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}

	// dev sin storages: uno en memoria para el app public
	if len(c.Storages) == 0 && len(c.Tenants) == 0 && c.App.Env == "dev" {
		c.Storages = map[string]Storage{"default": {Driver: "memory", DSN: "default"}}
		c.Tenants = []Tenant{{Storage: "default"}}
	}

	// Overrides por env
	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// CacheTTL TTL de las ubicaciones cacheadas (validado en Validate).
func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

// StorageNames nombres de storages en orden estable.
func (c *Config) StorageNames() []string {
	names := make([]string, 0, len(c.Storages))
	for name := range c.Storages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		if strings.TrimSpace(s) == "" {
			return []string{}, true
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("API_KEYS"); ok {
		c.Server.APIKeys = v
	}

	// TOTP
	if v, ok := getEnvInt("TOTP_MAX_ATTEMPTS"); ok {
		c.TOTP.MaxAttempts = v
	}
	if v, ok := getEnvDur("TOTP_RATE_LIMIT_COOLDOWN"); ok {
		c.TOTP.RateLimitCooldown = v
	}

	// FEATURES
	if v, ok := getEnvBool("FEATURES_MFA_ENABLED_ALL"); ok {
		c.Features.MFAEnabledAll = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}

	// METRICS
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

// Validate verifica la tabla de ruteo y los valores numéricos.
// La unicidad de tenants la vuelve a chequear el resolver al armarse.
func (c *Config) Validate() error {
	var errs []error

	for name, s := range c.Storages {
		switch s.Driver {
		case "postgres":
			if strings.TrimSpace(s.DSN) == "" {
				errs = append(errs, fmt.Errorf("storages.%s: dsn is required for postgres", name))
			}
		case "memory":
		default:
			errs = append(errs, fmt.Errorf("storages.%s: unknown driver %q", name, s.Driver))
		}
	}
	for i, t := range c.Tenants {
		if _, ok := c.Storages[t.Storage]; !ok {
			errs = append(errs, fmt.Errorf("tenants[%d]: unknown storage %q", i, t.Storage))
		}
	}
	if len(c.Storages) > 0 && len(c.Tenants) == 0 {
		errs = append(errs, errors.New("tenants: at least one tenant route is required"))
	}

	if c.TOTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("totp.max_attempts must be >= 1"))
	}
	if c.TOTP.RateLimitCooldown < 0 {
		errs = append(errs, errors.New("totp.rate_limit_cooldown must be >= 0"))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind: unknown kind %q", c.Cache.Kind))
	}
	if _, err := time.ParseDuration(c.Cache.TTL); err != nil {
		errs = append(errs, fmt.Errorf("cache.ttl: %w", err))
	}

	// en prod no se levanta sin auth
	if strings.EqualFold(c.App.Env, "prod") && len(c.Server.APIKeys) == 0 {
		errs = append(errs, errors.New("server.api_keys is required in prod"))
	}

	return errors.Join(errs...)
}
