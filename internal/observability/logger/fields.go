package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// ─── Identidad ───

// AppID app lógica (incluye el connection uri domain si no es vacío).
func AppID(v string) zap.Field { return zap.String("app_id", v) }

func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

func UserID(v string) zap.Field { return zap.String("user_id", v) }

// Storage nombre del storage configurado que atendió la operación.
func Storage(v string) zap.Field { return zap.String("storage", v) }

// IDType hint del tipo de user id (any, internal, external).
func IDType(v string) zap.Field { return zap.String("id_type", v) }

// ─── MFA ───

// DeviceName nombre del dispositivo TOTP. Nunca loguear el secreto.
func DeviceName(v string) zap.Field { return zap.String("device", v) }

// Attempts intentos inválidos consecutivos sobre el máximo.
func Attempts(current, max int) zap.Field {
	return zap.Dict("attempts", zap.Int("current", current), zap.Int("max", max))
}

func RetryAfter(v time.Duration) zap.Field { return zap.Duration("retry_after", v) }

// ─── Sistema ───

func Component(v string) zap.Field { return zap.String("component", v) }

// Op operación actual, ej: "mfa.RegisterDevice".
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer capa (handler, service, repository).
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Int64(key string, v int64) zap.Field { return zap.Int64(key, v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }
