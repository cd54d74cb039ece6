package store

import (
	"fmt"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// Capability nombra un set de operaciones de una recipe.
type Capability string

const (
	CapAuthRecipe        Capability = "authrecipe"
	CapEmailPassword     Capability = "emailpassword"
	CapThirdParty        Capability = "thirdparty"
	CapPasswordless      Capability = "passwordless"
	CapUserIDMapping     Capability = "useridmapping"
	CapUserMetadata      Capability = "usermetadata"
	CapSession           Capability = "session"
	CapEmailVerification Capability = "emailverification"
	CapUserRoles         Capability = "userroles"
	CapTOTP              Capability = "totp"
)

// MissingCapabilities retorna las capacidades que la conexión no implementa.
func MissingCapabilities(conn AdapterConnection) []Capability {
	checks := []struct {
		cap Capability
		ok  bool
	}{
		{CapAuthRecipe, conn.AuthRecipe() != nil},
		{CapEmailPassword, conn.EmailPassword() != nil},
		{CapThirdParty, conn.ThirdParty() != nil},
		{CapPasswordless, conn.Passwordless() != nil},
		{CapUserIDMapping, conn.UserIDMapping() != nil},
		{CapUserMetadata, conn.UserMetadata() != nil},
		{CapSession, conn.Sessions() != nil},
		{CapEmailVerification, conn.EmailVerification() != nil},
		{CapUserRoles, conn.UserRoles() != nil},
		{CapTOTP, conn.TOTP() != nil},
	}

	var missing []Capability
	for _, c := range checks {
		if !c.ok {
			missing = append(missing, c.cap)
		}
	}
	return missing
}

// ValidateCapabilities falla si la conexión no implementa todas las capacidades
// que el núcleo consume. Se llama al abrir la conexión, así un backend mal
// configurado falla al resolverse y no a mitad de una operación.
func ValidateCapabilities(conn AdapterConnection) error {
	missing := MissingCapabilities(conn)
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, c := range missing {
		names[i] = string(c)
	}
	return fmt.Errorf("%w: adapter %q lacks %s", repository.ErrCapabilityMissing, conn.Name(), strings.Join(names, ", "))
}
