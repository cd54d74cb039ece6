// Package totp implementa las primitivas RFC 6238 (HOTP/HMAC-SHA1, 6 dígitos).
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// SecretSize 160 bits.
	SecretSize = 20
	// Digits largo de los códigos.
	Digits = 6
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret retorna SecretSize bytes del CSPRNG en base32 sin padding.
// Un error acá es de configuración del sistema y no debe reintentarse.
func GenerateSecret() (string, error) {
	raw := make([]byte, SecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("totp: csprng unavailable: %w", err)
	}
	return b32.EncodeToString(raw), nil
}

// DecodeSecret decodifica un secreto base32 (acepta minúsculas y padding).
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.TrimRight(strings.ToUpper(strings.TrimSpace(secret)), "=")
	raw, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("totp: invalid secret: %w", err)
	}
	return raw, nil
}

// GenerateCode código para el time-step que contiene t.
func GenerateCode(secret []byte, t time.Time, period int) string {
	return hotp(secret, uint64(t.Unix()/int64(period)))
}

// Matches indica si code es válido para algún offset en [-skew, +skew]
// steps de period segundos alrededor de now. El código se compara tal cual,
// sin recortar espacios.
func Matches(secret []byte, code string, now time.Time, period, skew int) bool {
	if !WellFormed(code) || period <= 0 {
		return false
	}
	for i := -skew; i <= skew; i++ {
		at := now.Add(time.Duration(i*period) * time.Second)
		if hmac.Equal([]byte(GenerateCode(secret, at, period)), []byte(code)) {
			return true
		}
	}
	return false
}

// WellFormed indica si code son exactamente Digits dígitos ASCII.
func WellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// OTPAuthURL construye otpauth:// para QR.
func OTPAuthURL(issuer, accountName, secret string, period int) string {
	label := url.PathEscape(issuer + ":" + accountName)
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", strconv.Itoa(Digits))
	q.Set("period", strconv.Itoa(period))
	return "otpauth://totp/" + label + "?" + q.Encode()
}

// hotp HOTP(K, C) con HMAC-SHA1 (RFC 4226).
func hotp(secret []byte, counter uint64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	m := hmac.New(sha1.New, secret)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", Digits, bin%1_000_000)
}
