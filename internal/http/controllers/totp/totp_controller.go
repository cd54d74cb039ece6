// Package totp contiene el controller de dispositivos y verificación TOTP.
package totp

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	httperrors "github.com/dropDatabas3/hellojohn-identity/internal/http/errors"
	"github.com/dropDatabas3/hellojohn-identity/internal/http/helpers"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/mfa"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

const (
	defaultSkew   = 1
	defaultPeriod = 30
)

// Resolver lo que el controller necesita del store.
type Resolver interface {
	ForAppUser(ctx context.Context, app repository.AppIdentifier, userID string, idType repository.UserIDType) (*store.AppUser, error)
	ForTenantUser(ctx context.Context, tenant repository.TenantIdentifier, userID string, idType repository.UserIDType) (*store.TenantUser, error)
}

// Controller maneja las rutas /totp.
type Controller struct {
	resolver Resolver
	mfa      *mfa.Service
}

// NewController crea el controller.
func NewController(resolver Resolver, svc *mfa.Service) *Controller {
	return &Controller{resolver: resolver, mfa: svc}
}

// ─── DTOs ───

type registerRequest struct {
	UserID     string `json:"userId"`
	DeviceName string `json:"deviceName"`
	Skew       *int   `json:"skew"`
	Period     *int   `json:"period"`
}

type renameRequest struct {
	UserID             string `json:"userId"`
	ExistingDeviceName string `json:"existingDeviceName"`
	NewDeviceName      string `json:"newDeviceName"`
}

type verifyRequest struct {
	UserID     string `json:"userId"`
	DeviceName string `json:"deviceName"`
	TOTP       string `json:"totp"`
}

type deviceResponse struct {
	Name     string `json:"name"`
	Period   int    `json:"period"`
	Skew     int    `json:"skew"`
	Verified bool   `json:"verified"`
}

// ─── Devices ───

// RegisterDevice maneja POST /apps/{appID}/totp/devices
func (c *Controller) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId is required"))
		return
	}
	skew, period := defaultSkew, defaultPeriod
	if req.Skew != nil {
		skew = *req.Skew
	}
	if req.Period != nil {
		period = *req.Period
	}

	h, userID, err := c.appUser(r, req.UserID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	dev, err := c.mfa.RegisterDevice(r.Context(), h, userID, strings.TrimSpace(req.DeviceName), skew, period)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.OK(w, map[string]any{
		"deviceName":   dev.Name,
		"secret":       dev.Secret,
		"qrCodeString": dev.OTPAuthURL,
	})
}

// ListDevices maneja GET /apps/{appID}/totp/devices?userId=
func (c *Controller) ListDevices(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("userId"))
	if raw == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId is required"))
		return
	}
	h, userID, err := c.appUser(r, raw)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	devices, err := c.mfa.GetDevices(r.Context(), h, userID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{Name: d.Name, Period: d.Period, Skew: d.Skew, Verified: d.Verified})
	}
	helpers.OK(w, map[string]any{"devices": out})
}

// RenameDevice maneja PUT /apps/{appID}/totp/devices
func (c *Controller) RenameDevice(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.ExistingDeviceName == "" || req.NewDeviceName == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId, existingDeviceName and newDeviceName are required"))
		return
	}
	h, userID, err := c.appUser(r, req.UserID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.mfa.UpdateDeviceName(r.Context(), h, userID, req.ExistingDeviceName, req.NewDeviceName); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.OK(w, nil)
}

// RemoveDevice maneja DELETE /apps/{appID}/totp/devices?userId=&deviceName=
// Un dispositivo inexistente no es error: responde didDeviceExist=false.
func (c *Controller) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw, name := strings.TrimSpace(q.Get("userId")), q.Get("deviceName")
	if raw == "" || name == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId and deviceName are required"))
		return
	}
	h, userID, err := c.appUser(r, raw)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	err = c.mfa.RemoveDevice(r.Context(), h, userID, name)
	switch {
	case err == nil:
		helpers.OK(w, map[string]any{"didDeviceExist": true})
	case repository.IsNotFound(err):
		helpers.OK(w, map[string]any{"didDeviceExist": false})
	default:
		httperrors.WriteError(w, err)
	}
}

// ─── Verify ───

// VerifyDevice maneja POST /apps/{appID}/tenants/{tenantID}/totp/devices/verify
func (c *Controller) VerifyDevice(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.DeviceName == "" || req.TOTP == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId, deviceName and totp are required"))
		return
	}
	h, userID, err := c.tenantUser(r, req.UserID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	newly, err := c.mfa.VerifyDevice(r.Context(), h, userID, req.DeviceName, req.TOTP)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.OK(w, map[string]any{"wasAlreadyVerified": !newly})
}

// VerifyCode maneja POST /apps/{appID}/tenants/{tenantID}/totp/verify
func (c *Controller) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.TOTP == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("userId and totp are required"))
		return
	}
	h, userID, err := c.tenantUser(r, req.UserID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.mfa.VerifyCode(r.Context(), h, userID, req.TOTP); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.OK(w, nil)
}

// ─── internos ───

// appUser ubica el storage del usuario y traduce un id externo al interno;
// TOTP siempre se guarda bajo el id interno.
func (c *Controller) appUser(r *http.Request, rawID string) (*store.AppStorage, string, error) {
	app := helpers.AppFromRequest(r)
	au, err := c.resolver.ForAppUser(r.Context(), app, rawID, repository.UserIDTypeAny)
	if err != nil {
		return nil, "", err
	}
	logger.From(r.Context()).Debug("totp user resolved",
		logger.Layer("controller"), logger.AppID(app.String()), logger.Storage(au.Storage))
	return &au.AppStorage, internalID(rawID, au.Mapping), nil
}

func (c *Controller) tenantUser(r *http.Request, rawID string) (*store.TenantStorage, string, error) {
	tu, err := c.resolver.ForTenantUser(r.Context(), helpers.TenantFromRequest(r), rawID, repository.UserIDTypeAny)
	if err != nil {
		return nil, "", err
	}
	return &tu.TenantStorage, internalID(rawID, tu.Mapping), nil
}

func internalID(rawID string, m *repository.UserIDMapping) string {
	if m != nil {
		return m.InternalUserID
	}
	return rawID
}
