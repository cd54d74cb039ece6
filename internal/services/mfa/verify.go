package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/featureflag"
	"github.com/dropDatabas3/hellojohn-identity/internal/metrics"
	"github.com/dropDatabas3/hellojohn-identity/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-identity/internal/security/totp"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// VerifyDevice verifica el código contra el dispositivo y lo marca como
// verificado. Retorna false sin efectos si ya estaba verificado.
func (s *Service) VerifyDevice(ctx context.Context, h *store.TenantStorage, userID, deviceName, code string) (bool, error) {
	app := h.Tenant.AppIdentifier()
	repo := h.Conn.TOTP()

	devices, err := repo.GetDevices(ctx, app, userID)
	if err != nil {
		return false, err
	}
	var device *repository.TOTPDevice
	for i := range devices {
		if devices[i].Name == deviceName {
			device = &devices[i]
			break
		}
	}
	if device == nil {
		return false, ErrUnknownDevice
	}
	if device.Verified {
		return false, nil
	}

	if err := s.checkAndStoreCode(ctx, h, userID, []repository.TOTPDevice{*device}, code, "device"); err != nil {
		// el usuario MFA desapareció entre la lectura y el registro del intento
		if errors.Is(err, ErrUnknownTOTPUser) {
			return false, ErrUnknownDevice
		}
		return false, err
	}

	// renombrado o borrado en paralelo: el código quedó registrado pero el dispositivo no
	if err := repo.MarkDeviceAsVerified(ctx, app, userID, deviceName); err != nil {
		if repository.IsNotFound(err) {
			return false, ErrUnknownDevice
		}
		return false, err
	}
	return true, nil
}

// VerifyCode verifica el código contra todos los dispositivos verificados del usuario.
func (s *Service) VerifyCode(ctx context.Context, h *store.TenantStorage, userID, code string) error {
	app := h.Tenant.AppIdentifier()
	if err := featureflag.Require(ctx, s.features, app, featureflag.FeatureMFA); err != nil {
		return err
	}

	devices, err := h.Conn.TOTP().GetDevices(ctx, app, userID)
	if err != nil {
		return err
	}
	verified := devices[:0:0]
	for _, d := range devices {
		if d.Verified {
			verified = append(verified, d)
		}
	}
	if len(verified) == 0 {
		s.metrics.ObserveTOTPVerification("code", metrics.OutcomeUnknownUser)
		return ErrUnknownTOTPUser
	}
	return s.checkAndStoreCode(ctx, h, userID, verified, code, "code")
}

type outcomeKind int

const (
	outcomeValid outcomeKind = iota
	outcomeInvalid
	outcomeLimitReached
)

// codeOutcome resultado de la transacción de verificación. Los inválidos se
// retornan como valor para que el intento quede persistido con el commit.
type codeOutcome struct {
	kind       outcomeKind
	streak     int
	retryAfter time.Duration
}

// checkAndStoreCode corre el algoritmo de verificación en una transacción:
// rate limit por racha de inválidos, match en la ventana de skew, replay,
// y registro del intento.
func (s *Service) checkAndStoreCode(ctx context.Context, h *store.TenantStorage, userID string, devices []repository.TOTPDevice, code, kind string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("mfa.checkAndStoreCode"),
		logger.TenantID(h.Tenant.String()), logger.UserID(userID))

	repo := h.Conn.TOTP()
	maxAttempts := s.cfg.MaxAttempts
	now := s.clock.Now()
	nowMs := now.UnixMilli()

	// lo que se compara, se busca en el log y se guarda es el mismo string;
	// un código malformado cuenta como intento inválido y se guarda vacío
	stored := code
	if !totp.WellFormed(code) {
		stored = ""
	}

	out, err := repository.InTx(ctx, repo, func(ctx context.Context) (codeOutcome, error) {
		used, err := repo.GetAllUsedCodesDescOrder(ctx, h.Tenant, userID)
		if err != nil {
			return codeOutcome{}, err
		}

		// incluye expirados: la racha no depende de la expiración de cada código
		streak := invalidStreak(used, maxAttempts)
		if streak == maxAttempts {
			elapsed := time.Duration(nowMs-used[0].CreatedAt) * time.Millisecond
			if elapsed < s.cfg.RateLimitCooldown {
				return codeOutcome{kind: outcomeLimitReached, streak: streak, retryAfter: s.cfg.RateLimitCooldown - elapsed}, nil
			}
		}

		var matched *repository.TOTPDevice
		if stored != "" {
			if matched, err = matchDevice(devices, stored, now); err != nil {
				return codeOutcome{}, err
			}
		}
		valid := matched != nil

		if valid {
			for _, u := range used {
				if u.IsValid && u.Code == stored && u.ExpiresAt > nowMs {
					valid = false
					break
				}
			}
		}

		var lifetime time.Duration
		if matched != nil {
			lifetime = codeLifetime(*matched)
		} else {
			for _, d := range devices {
				lifetime = max(lifetime, codeLifetime(d))
			}
		}

		err = repo.InsertUsedCode(ctx, h.Tenant, repository.TOTPUsedCode{
			UserID:    userID,
			Code:      stored,
			IsValid:   valid,
			ExpiresAt: now.Add(lifetime).UnixMilli(),
			CreatedAt: nowMs,
		})
		switch {
		case err == nil:
		case repository.IsConflict(err):
			return codeOutcome{}, &InvalidTOTPError{CurrentAttempts: streak, MaxAttempts: maxAttempts}
		case repository.IsNotFound(err):
			return codeOutcome{}, ErrUnknownTOTPUser
		default:
			return codeOutcome{}, err
		}

		if !valid {
			return codeOutcome{kind: outcomeInvalid, streak: streak}, nil
		}
		return codeOutcome{kind: outcomeValid}, nil
	})
	if err != nil {
		var invalid *InvalidTOTPError
		if errors.As(err, &invalid) {
			s.metrics.ObserveTOTPVerification(kind, metrics.OutcomeInvalid)
			log.Warn("totp code collided with a previous attempt", logger.Attempts(invalid.CurrentAttempts, maxAttempts))
		} else if !errors.Is(err, ErrUnknownTOTPUser) {
			log.Error("totp verification failed", logger.Err(err))
		}
		return err
	}

	switch out.kind {
	case outcomeLimitReached:
		s.metrics.ObserveTOTPVerification(kind, metrics.OutcomeLimitReached)
		log.Warn("totp rate limited", logger.Attempts(out.streak, maxAttempts), logger.RetryAfter(out.retryAfter))
		return &LimitReachedError{RetryAfter: out.retryAfter, CurrentAttempts: out.streak, MaxAttempts: maxAttempts}
	case outcomeInvalid:
		s.metrics.ObserveTOTPVerification(kind, metrics.OutcomeInvalid)
		log.Debug("invalid totp code", logger.Attempts(out.streak+1, maxAttempts))
		return &InvalidTOTPError{CurrentAttempts: out.streak + 1, MaxAttempts: maxAttempts}
	default:
		s.metrics.ObserveTOTPVerification(kind, metrics.OutcomeValid)
		return nil
	}
}

// invalidStreak cuenta intentos inválidos consecutivos desde el más reciente,
// hasta el primer válido o hasta limit registros.
func invalidStreak(used []repository.TOTPUsedCode, limit int) int {
	n := 0
	for _, u := range used {
		if u.IsValid || n == limit {
			break
		}
		n++
	}
	return n
}

// matchDevice retorna el primer dispositivo para el que code es válido ahora.
func matchDevice(devices []repository.TOTPDevice, code string, now time.Time) (*repository.TOTPDevice, error) {
	for i := range devices {
		secret, err := totp.DecodeSecret(devices[i].Secret)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", devices[i].Name, err)
		}
		if totp.Matches(secret, code, now, devices[i].Period, devices[i].Skew) {
			return &devices[i], nil
		}
	}
	return nil, nil
}

// codeLifetime período*(2*skew+1): la ventana completa en la que el código es aceptado.
func codeLifetime(d repository.TOTPDevice) time.Duration {
	return time.Duration(d.Period*(2*d.Skew+1)) * time.Second
}
