package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/hellojohn-identity/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/mfa"
	"github.com/dropDatabas3/hellojohn-identity/internal/services/users"
	"github.com/dropDatabas3/hellojohn-identity/internal/store"
)

func TestFromError_Status(t *testing.T) {
	cases := []struct {
		err  error
		code string
		want int
	}{
		{mfa.ErrUnknownDevice, "UNKNOWN_DEVICE", http.StatusNotFound},
		{mfa.ErrUnknownTOTPUser, "UNKNOWN_USER_ID", http.StatusNotFound},
		{mfa.ErrDeviceAlreadyExists, "DEVICE_ALREADY_EXISTS", http.StatusConflict},
		{users.ErrInvalidToken, "INVALID_PAGINATION_TOKEN", http.StatusBadRequest},
		{fmt.Errorf("x: %w", store.ErrTenantOrAppNotFound), "TENANT_OR_APP_NOT_FOUND", http.StatusNotFound},
		{store.ErrUnknownUserID, "UNKNOWN_USER_ID", http.StatusNotFound},
		{repository.ErrFeatureDisabled, "FEATURE_NOT_ENABLED", http.StatusForbidden},
		{repository.ErrInvalidInput, "BAD_REQUEST", http.StatusBadRequest},
		{repository.ErrConflict, "CONFLICT", http.StatusConflict},
		{repository.ErrRateLimited, "LIMIT_REACHED", http.StatusTooManyRequests},
		{repository.ErrCapabilityMissing, "INTERNAL_ERROR", http.StatusInternalServerError},
		{stderrors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			e := FromError(tc.err)
			assert.Equal(t, tc.code, e.Code)
			assert.Equal(t, tc.want, e.HTTPStatus)
		})
	}
}

func TestFromError_DoesNotMutateBase(t *testing.T) {
	_ = FromError(&mfa.InvalidTOTPError{CurrentAttempts: 1, MaxAttempts: 5})
	assert.Nil(t, ErrInvalidTOTP.Meta)
	assert.Nil(t, ErrInvalidTOTP.Err)
}

func TestWriteError_LimitReached(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, &mfa.LimitReachedError{RetryAfter: 1500 * time.Millisecond, CurrentAttempts: 5, MaxAttempts: 5})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "LIMIT_REACHED", body.Code)
	assert.Equal(t, float64(1500), body.Meta["retryAfterMs"])
	assert.Equal(t, float64(5), body.Meta["currentAttempts"])
}

func TestWriteError_AppErrorPassthrough(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrMissingFields.WithDetail("userId is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"detail":"userId is required"`)
}
