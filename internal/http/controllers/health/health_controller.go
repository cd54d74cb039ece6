// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/hellojohn-identity/internal/cache"
	httperrors "github.com/dropDatabas3/hellojohn-identity/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/helpers"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

const pingTimeout = 2 * time.Second

// Storages provee los storages configurados.
type Storages interface {
	Storages(ctx context.Context) ([]store.StorageConn, error)
}

// Controller maneja /health.
type Controller struct {
	storages Storages
	cache    cache.Client // opcional
	version  string
}

// NewController crea el controller. c puede ser nil.
func NewController(storages Storages, c cache.Client, version string) *Controller {
	return &Controller{storages: storages, cache: c, version: version}
}

type component struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type response struct {
	Status     string      `json:"status"` // ready | unavailable
	Version    string      `json:"version,omitempty"`
	Components []component `json:"components"`
}

// Health maneja GET /health: ping a cada storage y a la cache.
func (c *Controller) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("health.Health"))

	resp := response{Status: "ready", Version: c.version}
	add := func(name string, err error) {
		comp := component{Name: name, Status: "ok"}
		if err != nil {
			comp.Status, comp.Error = "down", err.Error()
			resp.Status = "unavailable"
		}
		resp.Components = append(resp.Components, comp)
	}

	conns, err := c.storages.Storages(ctx)
	if err != nil {
		add("storages", err)
	}
	for _, sc := range conns {
		add("storage:"+sc.Name, sc.Conn.Ping(ctx))
	}
	if c.cache != nil {
		add("cache", c.cache.Ping(ctx))
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
		log.Warn("health check failed", logger.Int("components_count", len(resp.Components)))
	}
	helpers.WriteJSON(w, status, resp)
}
