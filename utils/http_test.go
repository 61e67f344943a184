package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return response
}

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"username": "alice"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"username":"alice"}}`, w.Body.String())
}

func TestWriteList(t *testing.T) {
	t.Run("with items", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteList(w, []int{1, 2}, 2))
		assert.JSONEq(t, `{"data":[1,2],"count":2}`, w.Body.String())
	})

	t.Run("empty listing still reports a zero count", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteList(w, []int{}, 0))
		assert.JSONEq(t, `{"data":[],"count":0}`, w.Body.String())
	})
}

func TestWriteTooManyRequests(t *testing.T) {
	t.Run("retry after rounds up to seconds", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := WriteTooManyRequests(w, "", 1500*time.Millisecond, map[string]interface{}{"attempts": 5})
		require.NoError(t, err)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "2", w.Header().Get("Retry-After"))
		response := decodeError(t, w)
		assert.Equal(t, "rate_limit_exceeded", response.Error)
		assert.Equal(t, "Rate limit exceeded", response.Message)
		assert.Equal(t, float64(5), response.Details["attempts"])
	})

	t.Run("no header without a delay", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NoError(t, WriteTooManyRequests(w, "slow down", 0, nil))
		assert.Empty(t, w.Header().Get("Retry-After"))
	})
}

func TestDefaultMessages(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter) error
		status  int
		message string
	}{
		{"unauthorized", func(w http.ResponseWriter) error { return WriteUnauthorized(w, "") }, http.StatusUnauthorized, "Authentication required"},
		{"forbidden", func(w http.ResponseWriter) error { return WriteForbidden(w, "") }, http.StatusForbidden, "Access forbidden"},
		{"not found", func(w http.ResponseWriter) error { return WriteNotFound(w, "") }, http.StatusNotFound, "Resource not found"},
		{"internal", func(w http.ResponseWriter) error { return WriteInternalServerError(w, "") }, http.StatusInternalServerError, "Internal server error"},
		{"custom message kept", func(w http.ResponseWriter) error { return WriteNotFound(w, "client 3 not found") }, http.StatusNotFound, "client 3 not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			require.NoError(t, tt.write(w))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeError(t, w).Message)
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		status       int
		expectedType string
	}{
		{http.StatusBadRequest, "bad_request"},
		{http.StatusUnauthorized, "unauthorized"},
		{http.StatusForbidden, "forbidden"},
		{http.StatusNotFound, "not_found"},
		{http.StatusConflict, "conflict"},
		{http.StatusUnprocessableEntity, "business_rule_violation"},
		{http.StatusTooManyRequests, "rate_limit_exceeded"},
		{http.StatusServiceUnavailable, "unavailable"},
		{http.StatusInternalServerError, "internal_error"},
		{http.StatusTeapot, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.expectedType, func(t *testing.T) {
			w := httptest.NewRecorder()
			details := map[string]interface{}{"field": "email"}

			err := WriteError(w, tt.status, "message", details)
			require.NoError(t, err)

			assert.Equal(t, tt.status, w.Code)
			response := decodeError(t, w)
			assert.Equal(t, tt.expectedType, response.Error)
			assert.Equal(t, "message", response.Message)
			assert.Equal(t, "email", response.Details["field"])
		})
	}
}
