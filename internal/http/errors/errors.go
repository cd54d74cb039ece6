// Package errors traduce los errores de dominio a respuestas HTTP.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/mfa"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/users"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

// errorResponse structura interna para la serialización JSON.
type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  string         `json:"detail,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// WriteError escribe la respuesta HTTP para err.
// Maneja *AppError, errores de dominio conocidos y errores genéricos (500).
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(appErr.RetryAfter))
	}
	w.WriteHeader(appErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
		Meta:    appErr.Meta,
	})
}

// FromError convierte err en un AppError. Los errores tipados del motor TOTP
// llevan sus contadores en Meta; lo desconocido es 500 con la causa conservada.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var limit *mfa.LimitReachedError
	if stderrors.As(err, &limit) {
		e := ErrLimitReached.WithCause(err).
			WithMeta("currentAttempts", limit.CurrentAttempts).
			WithMeta("maxAttempts", limit.MaxAttempts).
			WithMeta("retryAfterMs", limit.RetryAfter.Milliseconds())
		e.RetryAfter = int(math.Ceil(limit.RetryAfter.Seconds()))
		return e
	}
	var invalid *mfa.InvalidTOTPError
	if stderrors.As(err, &invalid) {
		return ErrInvalidTOTP.WithCause(err).
			WithMeta("currentAttempts", invalid.CurrentAttempts).
			WithMeta("maxAttempts", invalid.MaxAttempts)
	}

	switch {
	case stderrors.Is(err, mfa.ErrUnknownDevice):
		return ErrUnknownDevice.WithCause(err)
	case stderrors.Is(err, mfa.ErrUnknownTOTPUser):
		return ErrUnknownTOTPUser.WithCause(err)
	case stderrors.Is(err, mfa.ErrDeviceAlreadyExists):
		return ErrDeviceAlreadyExists.WithCause(err)
	case stderrors.Is(err, users.ErrInvalidToken):
		return ErrInvalidPaginationToken.WithCause(err)
	case stderrors.Is(err, store.ErrTenantOrAppNotFound):
		return ErrTenantOrAppNotFound.WithCause(err)
	case stderrors.Is(err, store.ErrUnknownUserID):
		return ErrUnknownUserID.WithCause(err)
	case stderrors.Is(err, repository.ErrRateLimited):
		return ErrLimitReached.WithCause(err)
	case stderrors.Is(err, repository.ErrFeatureDisabled):
		return ErrFeatureDisabled.WithCause(err)
	case stderrors.Is(err, repository.ErrInvalidInput):
		return ErrBadRequest.WithCause(err).WithDetail(err.Error())
	case stderrors.Is(err, repository.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case stderrors.Is(err, repository.ErrConflict):
		return ErrConflict.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}
