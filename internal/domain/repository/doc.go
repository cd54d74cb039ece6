// Package repository define el contrato de capacidades de almacenamiento.
//
// Estas interfaces representan lo que el núcleo de identidad necesita de cada
// storage, independientes del motor subyacente (PostgreSQL, memoria, etc.).
// Cada recipe expone su propio set de capacidades; un storage que no implemente
// alguna se rechaza al conectarse (ver internal/store).
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│     services/mfa          services/users            │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│   store.Resolver  (tenant/app/user → storage)       │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  TOTP, AuthRecipe, UserIDMapping, non-auth recipes  │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	         ┌──────────────┴──────────────┐
//	         ▼                             ▼
//	┌─────────────┐                 ┌─────────────┐
//	│  adapters/  │                 │  adapters/  │
//	│     pg      │                 │   memory    │
//	└─────────────┘                 └─────────────┘
//
// Convenciones:
//   - AppIdentifier / TenantIdentifier se pasan explícitamente
//   - Context siempre es el primer parámetro y transporta la transacción activa
//   - Errores de dominio están en errors.go
package repository
