package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:           "not found error",
			err:            services.NewNotFoundError("client", 3),
			expectedStatus: http.StatusNotFound,
			expectedError:  "not_found",
		},
		{
			name:           "validation error",
			err:            services.ErrInvalidInput,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "bad_request",
		},
		{
			name:           "authentication failure",
			err:            services.ErrAuthenticationFailed,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "expired token",
			err:            services.ErrTokenExpired,
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "unauthorized",
		},
		{
			name:           "forbidden error",
			err:            services.ErrForbidden,
			expectedStatus: http.StatusForbidden,
			expectedError:  "forbidden",
		},
		{
			name:            "ownership violation",
			err:             services.NewOwnershipError("contract", 12),
			expectedStatus:  http.StatusForbidden,
			expectedError:   "forbidden",
			expectedMessage: "contract 12 is not assigned to you",
		},
		{
			name:           "rate limit error",
			err:            services.ErrTooManyAttempts,
			expectedStatus: http.StatusTooManyRequests,
			expectedError:  "rate_limit_exceeded",
		},
		{
			name:           "conflict error",
			err:            services.ErrConflict,
			expectedStatus: http.StatusConflict,
			expectedError:  "conflict",
		},
		{
			name:            "business rule violation",
			err:             services.NewBusinessRuleError("contract is already signed"),
			expectedStatus:  http.StatusUnprocessableEntity,
			expectedError:   "business_rule_violation",
			expectedMessage: "contract is already signed",
		},
		{
			name:            "internal error hides its cause",
			err:             services.WrapInternal("contract store failure", errors.New("pq: connection refused")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "unexpected error",
		},
		{
			name:            "unknown error",
			err:             errors.New("some unknown error"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)

			assert.Equal(t, tt.expectedError, response.Error)
			assert.NotEmpty(t, response.Message)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, response.Message)
			}
		})
	}
}

func TestHandleServiceError_AuthReason(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, services.ErrTokenExpired, zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "token_expired", response.Details["reason"])
}

func TestHandleServiceError_RateLimitDetails(t *testing.T) {
	err := services.NewDomainError(services.ErrorTypeRateLimit, services.ErrTooManyAttempts.Message, nil).
		WithDetail("retry_after", "15m0s")

	w := httptest.NewRecorder()
	HandleServiceError(w, err, zap.NewNop())

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "15m0s", response.Details["retry_after"])
}

func TestHandleServiceError_LogsOnlyFaults(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	HandleServiceError(httptest.NewRecorder(), services.NewBusinessRuleError("event has ended"), logger)
	assert.Zero(t, logs.Len())

	HandleServiceError(httptest.NewRecorder(), services.WrapInternal("event store failure", errors.New("timeout")), logger)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}

func TestHandleServiceErrorNil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, zap.NewNop())

	// Should not write anything
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
