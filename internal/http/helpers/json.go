package helpers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/http/errors"
)

const maxJSONBody = 64 << 10 // 64KB

// ReadJSON decodifica el body estricto (sin campos desconocidos ni datos extra).
// Devuelve false si ya escribió el error HTTP.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(ct, "application/json") {
		errors.WriteError(w, errors.ErrBadRequest.WithDetail("se requiere Content-Type: application/json"))
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		detail := "json inválido"
		if err == io.EOF {
			detail = "body vacío"
		}
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail(detail))
		return false
	}
	if dec.More() {
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("sobran datos en el body"))
		return false
	}
	return true
}

// WriteJSON escribe una respuesta JSON estándar.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK escribe {"status":"OK"} más los campos extra.
func OK(w http.ResponseWriter, extra map[string]any) {
	body := map[string]any{"status": "OK"}
	for k, v := range extra {
		body[k] = v
	}
	WriteJSON(w, http.StatusOK, body)
}
