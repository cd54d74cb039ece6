// Package logger provee un logger Zap singleton con scoping por contexto.
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context scoping: cada request lleva un logger con request_id, app_id y
//     tenant_id sin crear un core nuevo.
//   - Entornos: "dev" usa consola con colores, "prod" usa JSON.
//
// Uso en services:
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("mfa.VerifyCode"))
//	log.Warn("totp rate limited", logger.UserID(userID), logger.Attempts(n, max))
//
// Los secretos TOTP y los códigos ingresados nunca se loguean.
package logger
