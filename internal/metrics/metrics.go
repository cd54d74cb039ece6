// Package metrics define las métricas Prometheus del núcleo de identidad.
// Vive en un paquete propio para que store, services y http lo importen sin ciclos.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes de verificación TOTP.
const (
	OutcomeValid        = "valid"
	OutcomeInvalid      = "invalid"
	OutcomeLimitReached = "limit_reached"
	OutcomeUnknownUser  = "unknown_user"
)

// Metrics agrupa los collectors. Un *Metrics nil es válido y no registra nada,
// así los servicios no necesitan chequear si las métricas están habilitadas.
type Metrics struct {
	TOTPVerifications *prometheus.CounterVec
	TOTPRegistrations *prometheus.CounterVec
	UserDeletions     *prometheus.CounterVec
	ResolverLookups   *prometheus.CounterVec
	StorageConns      prometheus.Gauge

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New crea los collectors sin registrarlos.
func New() *Metrics {
	return &Metrics{
		TOTPVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_totp_verifications_total",
			Help: "Verificaciones TOTP por tipo (device|code) y resultado",
		}, []string{"kind", "outcome"}),

		TOTPRegistrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_totp_registrations_total",
			Help: "Registros de dispositivos TOTP por resultado",
		}, []string{"outcome"}),

		UserDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_user_deletions_total",
			Help: "Borrados de usuario por caso de mapping",
		}, []string{"case"}),

		ResolverLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_resolver_lookups_total",
			Help: "Resoluciones de usuario a storage por tipo de id y resultado",
		}, []string{"id_type", "result"}),

		StorageConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "identity_storage_connections",
			Help: "Conexiones de storage abiertas",
		}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"route", "method", "status"}),

		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identity_http_request_duration_seconds",
			Help:    "Duración de requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Register registra los collectors en reg (o el default si es nil).
// Un collector ya registrado no es error.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		m.TOTPVerifications, m.TOTPRegistrations, m.UserDeletions, m.ResolverLookups, m.StorageConns,
		m.HTTPRequests, m.HTTPDuration,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

func (m *Metrics) ObserveTOTPVerification(kind, outcome string) {
	if m == nil {
		return
	}
	m.TOTPVerifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveTOTPRegistration(outcome string) {
	if m == nil {
		return
	}
	m.TOTPRegistrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUserDeletion(mappingCase string) {
	if m == nil {
		return
	}
	m.UserDeletions.WithLabelValues(mappingCase).Inc()
}

func (m *Metrics) ObserveResolverLookup(idType, result string) {
	if m == nil {
		return
	}
	m.ResolverLookups.WithLabelValues(idType, result).Inc()
}

func (m *Metrics) StorageConnected() {
	if m == nil {
		return
	}
	m.StorageConns.Inc()
}

func (m *Metrics) StorageDisconnected() {
	if m == nil {
		return
	}
	m.StorageConns.Dec()
}

func (m *Metrics) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
