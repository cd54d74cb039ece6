package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/http/errors"
)

// HeaderAPIKey header con la API key del caller.
const HeaderAPIKey = "api-key"

// WithAPIKey exige una de keys en el header api-key.
// Sin keys configuradas deja pasar todo (dev).
func WithAPIKey(keys []string) Middleware {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(HeaderAPIKey))
			if got == "" || !matchKey(keys, got) {
				errors.WriteError(w, errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchKey(keys []string, got string) bool {
	ok := 0
	for _, k := range keys {
		ok |= subtle.ConstantTimeCompare([]byte(k), []byte(got))
	}
	return ok == 1
}
