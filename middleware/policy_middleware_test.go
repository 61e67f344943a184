package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequirePermission(t *testing.T) {
	logger := zap.NewNop()
	gate, tokens := newGate(t, time.Now)
	authMW := NewAuthMiddleware(gate, logger)
	permMW := NewPermissionMiddleware(gate, logger)

	chain := func(next http.Handler, required ...policy.Permission) http.Handler {
		return authMW.RequireAuth(permMW.RequirePermission(required...)(next))
	}

	t.Run("granted permission passes with the granted subset", func(t *testing.T) {
		token := issue(t, tokens, 1, policy.DepartmentGestion)
		handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := GetAuthorizationFromContext(r.Context())
			require.NotNil(t, authz)
			assert.Equal(t, []policy.Permission{policy.CanModifyAllEvents}, authz.Granted)
			w.WriteHeader(http.StatusOK)
		}), policy.CanModifyOwnEvents, policy.CanModifyAllEvents)

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("department without the permission gets 403", func(t *testing.T) {
		token := issue(t, tokens, 9, policy.DepartmentSupport)
		handler := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}), policy.CanListUsers)

		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeError(t, rec).Error)
	})

	t.Run("without RequireAuth the token is missing", func(t *testing.T) {
		handler := permMW.RequirePermission(policy.CanListUsers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
