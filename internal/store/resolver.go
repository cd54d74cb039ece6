package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/hellojohn-identity/internal/cache"
	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
)

// StorageConfig un storage físico con nombre.
type StorageConfig struct {
	Name    string
	Adapter AdapterConfig
}

// TenantRoute asigna un tenant a un storage configurado.
type TenantRoute struct {
	Tenant  repository.TenantIdentifier
	Storage string
}

// ResolverConfig configuración del Resolver.
type ResolverConfig struct {
	Storages []StorageConfig
	Tenants  []TenantRoute

	// Cache opcional de ubicación usuario → storage.
	Cache    cache.Client
	CacheTTL time.Duration

	Metrics *metrics.Metrics

	// Factory opcional; default OpenAdapter.
	Factory ConnectionFactory
}

// StorageConn una conexión con el nombre del storage que la respalda.
type StorageConn struct {
	Name string
	Conn AdapterConnection
}

// TenantStorage es un tenant ligado al storage que lo atiende.
// Vive lo que dura una operación lógica; nunca se persiste.
type TenantStorage struct {
	Tenant  repository.TenantIdentifier
	Storage string
	Conn    AdapterConnection
}

// AppStorage es una app ligada a su storage principal, más el set de storages
// de todos sus tenants (el principal primero).
type AppStorage struct {
	App     repository.AppIdentifier
	Storage string
	Conn    AdapterConnection
	All     []StorageConn
}

// TenantUser resultado de resolver un usuario en el contexto de un tenant.
// Mapping nil significa "sin mapping", no un error.
type TenantUser struct {
	TenantStorage
	Mapping *repository.UserIDMapping
}

// AppUser resultado de resolver un usuario en el contexto de una app.
// Conn es el storage dueño del usuario.
type AppUser struct {
	AppStorage
	Mapping *repository.UserIDMapping
}

// Resolver mapea tenant/app/usuario al storage que lo atiende.
type Resolver struct {
	storages map[string]StorageConfig
	order    []string
	routes   map[repository.TenantIdentifier]string
	apps     map[repository.AppIdentifier][]string

	pool     *ConnectionPool
	cache    cache.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewResolver valida la tabla de ruteo y crea el Resolver.
// Las conexiones se abren bajo demanda.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	r := &Resolver{
		storages: make(map[string]StorageConfig, len(cfg.Storages)),
		routes:   make(map[repository.TenantIdentifier]string, len(cfg.Tenants)),
		apps:     make(map[repository.AppIdentifier][]string),
		cache:    cfg.Cache,
		cacheTTL: cfg.CacheTTL,
		metrics:  cfg.Metrics,
	}

	for _, s := range cfg.Storages {
		if s.Name == "" {
			return nil, errors.New("resolver: storage name is required")
		}
		if _, dup := r.storages[s.Name]; dup {
			return nil, fmt.Errorf("resolver: duplicated storage %q", s.Name)
		}
		r.storages[s.Name] = s
		r.order = append(r.order, s.Name)
	}

	for _, route := range cfg.Tenants {
		t := repository.NewTenantIdentifier(route.Tenant.ConnectionURIDomain, route.Tenant.AppID, route.Tenant.TenantID)
		if _, ok := r.storages[route.Storage]; !ok {
			return nil, fmt.Errorf("resolver: tenant %s: %w: %q", t, ErrStorageNotConfigured, route.Storage)
		}
		if _, dup := r.routes[t]; dup {
			return nil, fmt.Errorf("resolver: duplicated tenant %s", t)
		}
		r.routes[t] = route.Storage
	}

	// set de storages por app: el del tenant public primero, luego en orden de config
	for _, route := range cfg.Tenants {
		t := repository.NewTenantIdentifier(route.Tenant.ConnectionURIDomain, route.Tenant.AppID, route.Tenant.TenantID)
		app := t.AppIdentifier()
		if _, done := r.apps[app]; done {
			continue
		}
		primary, ok := r.routes[app.PublicTenant()]
		if !ok {
			return nil, fmt.Errorf("resolver: app %s has no public tenant", app)
		}
		names := []string{primary}
		seen := map[string]bool{primary: true}
		for _, other := range cfg.Tenants {
			ot := repository.NewTenantIdentifier(other.Tenant.ConnectionURIDomain, other.Tenant.AppID, other.Tenant.TenantID)
			if ot.AppIdentifier() != app || seen[other.Storage] {
				continue
			}
			seen[other.Storage] = true
			names = append(names, other.Storage)
		}
		r.apps[app] = names
	}

	r.pool = NewConnectionPool(cfg.Factory, PoolConfig{
		OnConnect: func(storage string, conn AdapterConnection) {
			r.metrics.StorageConnected()
			logger.L().Info("storage connected", logger.Storage(storage), logger.String("driver", conn.Name()))
		},
		OnDisconnect: func(storage string) {
			r.metrics.StorageDisconnected()
			logger.L().Info("storage disconnected", logger.Storage(storage))
		},
	})
	return r, nil
}

// ─── Tenant / App ───

// ForTenant retorna el storage del tenant.
// Retorna ErrTenantOrAppNotFound si el tenant no está configurado.
func (r *Resolver) ForTenant(ctx context.Context, tenant repository.TenantIdentifier) (*TenantStorage, error) {
	name, ok := r.routes[tenant]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTenantOrAppNotFound, tenant)
	}
	conn, err := r.conn(ctx, name)
	if err != nil {
		return nil, err
	}
	return &TenantStorage{Tenant: tenant, Storage: name, Conn: conn}, nil
}

// ForApp retorna el storage principal de la app y el set de storages de sus tenants.
// Retorna ErrTenantOrAppNotFound si la app no está configurada.
func (r *Resolver) ForApp(ctx context.Context, app repository.AppIdentifier) (*AppStorage, error) {
	names, ok := r.apps[app]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTenantOrAppNotFound, app)
	}
	all := make([]StorageConn, 0, len(names))
	for _, name := range names {
		conn, err := r.conn(ctx, name)
		if err != nil {
			return nil, err
		}
		all = append(all, StorageConn{Name: name, Conn: conn})
	}
	return &AppStorage{App: app, Storage: all[0].Name, Conn: all[0].Conn, All: all}, nil
}

// ─── Usuarios ───

// ForAppUser ubica el storage dueño del usuario dentro de la app.
//
// Con UserIDTypeAny, si ningún storage conoce el id se retorna el storage
// principal de la app con Mapping nil. Con Internal/External se retorna
// ErrUnknownUserID.
func (r *Resolver) ForAppUser(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (*AppUser, error) {
	as, idx, mapping, err := r.resolveUser(ctx, app, userID, idType)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return &AppUser{AppStorage: *as}, nil
	}

	owner := *as
	owner.Storage = as.All[idx].Name
	owner.Conn = as.All[idx].Conn
	return &AppUser{AppStorage: owner, Mapping: mapping}, nil
}

// ForTenantUser como ForAppUser pero ligado al tenant pedido.
// El fallback de UserIDTypeAny es el storage del tenant.
func (r *Resolver) ForTenantUser(ctx context.Context, tenant repository.TenantIdentifier, userID string, idType repository.UserIDType) (*TenantUser, error) {
	ts, err := r.ForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	as, idx, mapping, err := r.resolveUser(ctx, tenant.AppIdentifier(), userID, idType)
	if err != nil {
		return nil, err
	}
	if idx < 0 {
		return &TenantUser{TenantStorage: *ts}, nil
	}
	return &TenantUser{
		TenantStorage: TenantStorage{Tenant: tenant, Storage: as.All[idx].Name, Conn: as.All[idx].Conn},
		Mapping:       mapping,
	}, nil
}

// resolveUser retorna idx -1 sólo para UserIDTypeAny sin hit.
func (r *Resolver) resolveUser(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (*AppStorage, int, *repository.UserIDMapping, error) {
	as, err := r.ForApp(ctx, app)
	if err != nil {
		return nil, -1, nil, err
	}
	idx, mapping, err := r.locate(ctx, app, as.All, userID, idType)
	if err != nil {
		return nil, -1, nil, err
	}
	if idx < 0 {
		if idType != repository.UserIDTypeAny {
			r.metrics.ObserveResolverLookup(idType.String(), "not_found")
			return nil, -1, nil, ErrUnknownUserID
		}
		r.metrics.ObserveResolverLookup(idType.String(), "fallback")
	}
	return as, idx, mapping, nil
}

// Forget invalida la ubicación cacheada del usuario (ej: tras borrarlo).
func (r *Resolver) Forget(ctx context.Context, app repository.AppIdentifier, userIDs ...string) {
	if r.cache == nil {
		return
	}
	for _, id := range userIDs {
		for _, t := range []repository.UserIDType{repository.UserIDTypeAny, repository.UserIDTypeInternal, repository.UserIDTypeExternal} {
			if err := r.cache.Delete(ctx, locationKey(app, id, t)); err != nil {
				logger.From(ctx).Warn("resolver cache delete failed", logger.Layer("store"), logger.Err(err))
			}
		}
	}
}

// Storages retorna todos los storages configurados, en orden de configuración.
func (r *Resolver) Storages(ctx context.Context) ([]StorageConn, error) {
	out := make([]StorageConn, 0, len(r.order))
	for _, name := range r.order {
		conn, err := r.conn(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, StorageConn{Name: name, Conn: conn})
	}
	return out, nil
}

// Stats estadísticas del pool de conexiones.
func (r *Resolver) Stats() PoolStats {
	return r.pool.Stats()
}

// Close cierra todas las conexiones abiertas.
func (r *Resolver) Close() error {
	return r.pool.CloseAll()
}

// ─── internos ───

func (r *Resolver) conn(ctx context.Context, name string) (AdapterConnection, error) {
	sc, ok := r.storages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageNotConfigured, name)
	}
	return r.pool.Get(ctx, name, sc.Adapter)
}

// locate retorna el índice en candidates del storage dueño del usuario, o -1.
func (r *Resolver) locate(ctx context.Context, app repository.AppIdentifier, candidates []StorageConn, userID string, idType repository.UserIDType) (int, *repository.UserIDMapping, error) {
	key := locationKey(app, userID, idType)

	// ubicación cacheada: se confirma contra el storage; si no confirma se sondea todo
	if r.cache != nil {
		if name, err := r.cache.Get(ctx, key); err == nil {
			for i, c := range candidates {
				if c.Name != name {
					continue
				}
				hit, m, err := probe(ctx, c.Conn, app, userID, idType)
				if err != nil {
					return -1, nil, err
				}
				if hit {
					r.metrics.ObserveResolverLookup(idType.String(), "cached")
					return i, m, nil
				}
			}
		}
	}

	type result struct {
		hit     bool
		mapping *repository.UserIDMapping
	}
	results := make([]result, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			hit, m, err := probe(gctx, c.Conn, app, userID, idType)
			if err != nil {
				return fmt.Errorf("storage %q: %w", c.Name, err)
			}
			results[i] = result{hit: hit, mapping: m}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return -1, nil, err
	}

	for i, res := range results {
		if !res.hit {
			continue
		}
		r.metrics.ObserveResolverLookup(idType.String(), "hit")
		if r.cache != nil {
			if err := r.cache.Set(ctx, key, candidates[i].Name, r.cacheTTL); err != nil {
				logger.From(ctx).Warn("resolver cache set failed", logger.Layer("store"), logger.Err(err))
			}
		}
		return i, res.mapping, nil
	}
	return -1, nil, nil
}

// probe indica si el storage conoce al usuario: tiene un mapping para el id
// o, salvo que el id sea externo, el id es un usuario interno del storage.
func probe(ctx context.Context, conn AdapterConnection, app repository.AppIdentifier, userID string, idType repository.UserIDType) (bool, *repository.UserIDMapping, error) {
	m, err := conn.UserIDMapping().Get(ctx, app, userID, idType)
	switch {
	case err == nil:
		return true, m, nil
	case !repository.IsNotFound(err):
		return false, nil, err
	}

	if idType == repository.UserIDTypeExternal {
		return false, nil, nil
	}
	exists, err := conn.AuthRecipe().DoesUserIDExist(ctx, app, userID)
	if err != nil {
		return false, nil, err
	}
	return exists, nil, nil
}

func locationKey(app repository.AppIdentifier, userID string, idType repository.UserIDType) string {
	return "userloc:" + app.String() + "|" + idType.String() + "|" + userID
}
