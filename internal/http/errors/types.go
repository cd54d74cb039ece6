package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores HTTP.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Detail     string         `json:"detail,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"` // datos para que el cliente arme feedback (intentos, cooldown)
	HTTPStatus int            `json:"-"`
	RetryAfter int            `json:"-"` // segundos; 0 = sin header Retry-After
	Err        error          `json:"-"` // causa, sólo para logs
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// WithDetail agrega detalles adicionales al error.
// Devuelve una COPIA del error para no mutar las variables globales base
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa)
// Devuelve una COPIA del error
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// WithMeta agrega un dato estructurado. Devuelve una COPIA.
func (e *AppError) WithMeta(key string, v any) *AppError {
	newErr := *e
	newErr.Meta = make(map[string]any, len(e.Meta)+1)
	for k, mv := range e.Meta {
		newErr.Meta[k] = mv
	}
	newErr.Meta[key] = v
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

// ─── 400 ───

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Faltan campos requeridos en la solicitud.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidTOTP = &AppError{
		Code:       "INVALID_TOTP",
		Message:    "El código TOTP es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidPaginationToken = &AppError{
		Code:       "INVALID_PAGINATION_TOKEN",
		Message:    "El token de paginación es inválido.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ─── 401 / 403 ───

var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "No autorizado. Se requiere una API key válida.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrFeatureDisabled = &AppError{
		Code:       "FEATURE_NOT_ENABLED",
		Message:    "La feature no está habilitada para esta app.",
		HTTPStatus: http.StatusForbidden,
	}
)

// ─── 404 ───

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrTenantOrAppNotFound = &AppError{
		Code:       "TENANT_OR_APP_NOT_FOUND",
		Message:    "El tenant o la app no existen.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUnknownUserID = &AppError{
		Code:       "UNKNOWN_USER_ID",
		Message:    "El usuario especificado no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUnknownDevice = &AppError{
		Code:       "UNKNOWN_DEVICE",
		Message:    "El dispositivo TOTP no existe.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrUnknownTOTPUser = &AppError{
		Code:       "UNKNOWN_USER_ID",
		Message:    "El usuario no tiene dispositivos TOTP verificados.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "Método HTTP no permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

// ─── 409 / 429 ───

var (
	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "El recurso ya existe.",
		HTTPStatus: http.StatusConflict,
	}

	ErrDeviceAlreadyExists = &AppError{
		Code:       "DEVICE_ALREADY_EXISTS",
		Message:    "Ya existe un dispositivo TOTP con ese nombre.",
		HTTPStatus: http.StatusConflict,
	}

	ErrLimitReached = &AppError{
		Code:       "LIMIT_REACHED",
		Message:    "Demasiados intentos inválidos. Intente más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ─── 5xx ───

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "Ocurrió un error interno en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
