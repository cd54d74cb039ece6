package users

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
)

// ErrInvalidToken el token de paginación no tiene el formato esperado.
var ErrInvalidToken = fmt.Errorf("invalid pagination token: %w", repository.ErrInvalidInput)

// PaginationToken posición de reanudación de un listado: la primera fila de
// la página siguiente.
type PaginationToken struct {
	UserID     string
	TimeJoined int64
}

// Encode serializa el token como base64("userId;timeJoined").
func (t PaginationToken) Encode() string {
	return base64.StdEncoding.EncodeToString([]byte(t.UserID + ";" + strconv.FormatInt(t.TimeJoined, 10)))
}

// DecodePaginationToken parsea un token generado por Encode.
func DecodePaginationToken(s string) (PaginationToken, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return PaginationToken{}, ErrInvalidToken
	}
	parts := strings.Split(string(raw), ";")
	if len(parts) != 2 || parts[0] == "" {
		return PaginationToken{}, ErrInvalidToken
	}
	tj, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return PaginationToken{}, ErrInvalidToken
	}
	return PaginationToken{UserID: parts[0], TimeJoined: tj}, nil
}
