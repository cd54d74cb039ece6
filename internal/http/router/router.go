// Package router arma el árbol de rutas HTTP sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/hellojohn-identity/internal/cache"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/controllers/health"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/controllers/totp"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/controllers/users"
	httperrors "github.com/dropDatabas3/hellojohn-identity/internal/http/errors"
	mw "github.com/dropDatabas3/hellojohn-identity/internal/http/middlewares"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/mfa"
	usersvc "github.com/dropDatabas3/hellojohn-identity/internal/services/users"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// Deps dependencias del router.
type Deps struct {
	Resolver *store.Resolver
	MFA      *mfa.Service
	Users    *usersvc.Service
	Cache    cache.Client // opcional, para /health

	APIKeys []string
	Version string

	// Metrics nil deshabilita métricas HTTP y /metrics.
	Metrics     *metrics.Metrics
	MetricsPath string
	Gatherer    prometheus.Gatherer // default prometheus.DefaultGatherer
}

// New construye el handler raíz.
//
//	GET    /health
//	GET    {MetricsPath}
//	POST   /apps/{appID}/totp/devices
//	GET    /apps/{appID}/totp/devices
//	PUT    /apps/{appID}/totp/devices
//	DELETE /apps/{appID}/totp/devices
//	POST   /apps/{appID}/users/remove
//	POST   /apps/{appID}/tenants/{tenantID}/totp/devices/verify
//	POST   /apps/{appID}/tenants/{tenantID}/totp/verify
//	GET    /apps/{appID}/tenants/{tenantID}/users
//	GET    /apps/{appID}/tenants/{tenantID}/users/count
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.Std(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithMetrics(d.Metrics),
	)...)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	hc := health.NewController(d.Resolver, d.Cache, d.Version)
	r.Get("/health", hc.Health)

	if d.Metrics != nil {
		g := d.Gatherer
		if g == nil {
			g = prometheus.DefaultGatherer
		}
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}

	tc := totp.NewController(d.Resolver, d.MFA)
	uc := users.NewController(d.Resolver, d.Users)

	r.Route("/apps/{appID}", func(r chi.Router) {
		r.Use(mw.WithAPIKey(d.APIKeys))

		r.Route("/totp/devices", func(r chi.Router) {
			r.Post("/", tc.RegisterDevice)
			r.Get("/", tc.ListDevices)
			r.Put("/", tc.RenameDevice)
			r.Delete("/", tc.RemoveDevice)
		})
		r.Post("/users/remove", uc.Remove)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Post("/totp/devices/verify", tc.VerifyDevice)
			r.Post("/totp/verify", tc.VerifyCode)
			r.Get("/users", uc.List)
			r.Get("/users/count", uc.Count)
		})
	})

	return r
}
