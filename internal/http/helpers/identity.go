package helpers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// HeaderConnectionURIDomain dominio de conexión opcional del caller.
const HeaderConnectionURIDomain = "X-Connection-Uri-Domain"

// AppFromRequest arma el AppIdentifier desde {appID} y el header de dominio.
func AppFromRequest(r *http.Request) repository.AppIdentifier {
	return repository.NewAppIdentifier(r.Header.Get(HeaderConnectionURIDomain), chi.URLParam(r, "appID"))
}

// TenantFromRequest como AppFromRequest más {tenantID}.
func TenantFromRequest(r *http.Request) repository.TenantIdentifier {
	return repository.NewTenantIdentifier(
		r.Header.Get(HeaderConnectionURIDomain),
		chi.URLParam(r, "appID"),
		chi.URLParam(r, "tenantID"),
	)
}

// QueryInt lee un entero del query string; def si falta.
// ok=false si está presente pero no es un entero.
func QueryInt(r *http.Request, key string, def int) (int, bool) {
	s := strings.TrimSpace(r.URL.Query().Get(key))
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// QueryBool lee un bool del query string; false si falta o es inválido.
func QueryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return b
}

// QueryCSV lee una lista separada por comas, sin vacíos.
func QueryCSV(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
