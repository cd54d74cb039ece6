// Package migrations embebe el schema SQL del núcleo de identidad.
package migrations

import "embed"

// CoreFS contiene las migraciones de cada storage PostgreSQL.
// Formato de archivo: {version}_{name}.sql
//
//go:embed core/*.sql
var CoreFS embed.FS

// CoreDir directorio dentro de CoreFS donde viven las migraciones.
const CoreDir = "core"
