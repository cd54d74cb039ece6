package mfa

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/featureflag"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/security/totp"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// autoNamePrefix nombre de los dispositivos registrados sin nombre.
const autoNamePrefix = "TOTP Device "

// RegisteredDevice resultado de RegisterDevice.
type RegisteredDevice struct {
	repository.TOTPDevice
	// OTPAuthURL para el QR de la app autenticadora.
	OTPAuthURL string
}

// RegisterDevice crea un dispositivo TOTP sin verificar.
//
// Con deviceName vacío se prueba "TOTP Device N" desde la cantidad de
// dispositivos verificados, incrementando N mientras el nombre esté tomado.
// Un dispositivo existente sin verificar con el mismo nombre se reemplaza;
// uno verificado retorna ErrDeviceAlreadyExists.
func (s *Service) RegisterDevice(ctx context.Context, h *store.AppStorage, userID, deviceName string, skew, period int) (*RegisteredDevice, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("mfa.RegisterDevice"),
		logger.AppID(h.App.String()), logger.UserID(userID))

	if err := featureflag.Require(ctx, s.features, h.App, featureflag.FeatureMFA); err != nil {
		return nil, err
	}
	if period <= 0 || skew < 0 {
		return nil, fmt.Errorf("%w: period must be > 0 and skew >= 0", repository.ErrInvalidInput)
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		log.Error("totp secret generation failed", logger.Err(err))
		return nil, err
	}

	device := repository.TOTPDevice{
		UserID:    userID,
		Secret:    secret,
		Period:    period,
		Skew:      skew,
		CreatedAt: s.clock.Now().UnixMilli(),
	}
	repo := h.Conn.TOTP()

	// sin nombre: se reintenta si otro registro concurrente tomó el mismo
	for {
		device.Name = deviceName
		err := s.createDevice(ctx, repo, h.App, &device)
		if err == nil {
			break
		}
		if deviceName != "" || !errors.Is(err, ErrDeviceAlreadyExists) {
			s.metrics.ObserveTOTPRegistration("rejected")
			return nil, err
		}
	}

	s.metrics.ObserveTOTPRegistration("created")
	log.Debug("totp device registered", logger.DeviceName(device.Name))

	return &RegisteredDevice{
		TOTPDevice: device,
		OTPAuthURL: totp.OTPAuthURL(s.cfg.Issuer, userID, secret, period),
	}, nil
}

// createDevice crea el dispositivo reemplazando uno sin verificar del mismo nombre.
// Con device.Name vacío elige el nombre dentro de la misma transacción.
func (s *Service) createDevice(ctx context.Context, repo repository.TOTPRepository, app repository.AppIdentifier, device *repository.TOTPDevice) error {
	err := repo.RunInTx(ctx, func(ctx context.Context) error {
		if device.Name == "" {
			devices, err := repo.GetDevices(ctx, app, device.UserID)
			if err != nil {
				return err
			}
			device.Name = autoName(devices)
		}

		existing, err := repo.GetDeviceByName(ctx, app, device.UserID, device.Name)
		switch {
		case repository.IsNotFound(err):
		case err != nil:
			return err
		case existing.Verified:
			return ErrDeviceAlreadyExists
		default:
			if _, err := repo.DeleteDevice(ctx, app, device.UserID, device.Name); err != nil {
				return err
			}
		}
		return repo.CreateDevice(ctx, app, *device)
	})

	err = repository.UnwrapTx(err)
	if err != nil && repository.IsConflict(err) {
		// ErrDeviceAlreadyExists o carrera con otro registro del mismo nombre
		return ErrDeviceAlreadyExists
	}
	return err
}

// RemoveDevice elimina el dispositivo. Si era el último, elimina también el
// registro MFA del usuario en la misma transacción.
func (s *Service) RemoveDevice(ctx context.Context, h *store.AppStorage, userID, deviceName string) error {
	repo := h.Conn.TOTP()
	var userRemoved bool

	err := repo.RunInTx(ctx, func(ctx context.Context) error {
		n, err := repo.DeleteDevice(ctx, h.App, userID, deviceName)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUnknownDevice
		}

		remaining, err := repo.GetDevices(ctx, h.App, userID)
		if err != nil {
			return err
		}
		if len(remaining) == 0 {
			userRemoved, err = repo.RemoveUser(ctx, h.App, userID)
			return err
		}
		return nil
	})
	if err != nil {
		return repository.UnwrapTx(err)
	}

	logger.From(ctx).Debug("totp device removed",
		logger.Layer("service"), logger.Op("mfa.RemoveDevice"),
		logger.UserID(userID), logger.DeviceName(deviceName), logger.Bool("user_removed", userRemoved))
	return nil
}

// UpdateDeviceName renombra un dispositivo.
func (s *Service) UpdateDeviceName(ctx context.Context, h *store.AppStorage, userID, oldName, newName string) error {
	err := h.Conn.TOTP().UpdateDeviceName(ctx, h.App, userID, oldName, newName)
	switch {
	case err == nil:
		return nil
	case repository.IsNotFound(err):
		return ErrUnknownDevice
	case repository.IsConflict(err):
		return ErrDeviceAlreadyExists
	default:
		return err
	}
}

// GetDevices lista los dispositivos del usuario (vacío si no tiene MFA).
func (s *Service) GetDevices(ctx context.Context, h *store.AppStorage, userID string) ([]repository.TOTPDevice, error) {
	return h.Conn.TOTP().GetDevices(ctx, h.App, userID)
}

// autoName "TOTP Device N" con N desde la cantidad de verificados, salteando
// nombres de dispositivos verificados. Uno sin verificar se reemplaza.
func autoName(devices []repository.TOTPDevice) string {
	verified := make(map[string]bool, len(devices))
	for _, d := range devices {
		if d.Verified {
			verified[d.Name] = true
		}
	}
	for n := len(verified); ; n++ {
		name := fmt.Sprintf("%s%d", autoNamePrefix, n)
		if !verified[name] {
			return name
		}
	}
}
