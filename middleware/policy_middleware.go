package middleware

import (
	"net/http"

	"github.com/epicevents/crm/internal/observability"
	"github.com/epicevents/crm/internal/policy"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/utils"
	"go.uber.org/zap"
)

// PermissionMiddleware runs the authorization gate in front of a route
type PermissionMiddleware struct {
	gate   services.Authorizer
	logger *zap.Logger
}

// NewPermissionMiddleware creates a new PermissionMiddleware
func NewPermissionMiddleware(gate services.Authorizer, logger *zap.Logger) *PermissionMiddleware {
	return &PermissionMiddleware{
		gate:   gate,
		logger: logger,
	}
}

// RequirePermission lets the request through when the caller's department
// holds at least one of required. The granted subset is stored in the
// request context. It must run after RequireAuth.
func (m *PermissionMiddleware) RequirePermission(required ...policy.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := observability.WithRequest(ctx, m.logger)

			token := GetTokenFromContext(ctx)
			if token == "" {
				logger.Error("token not found in context")
				_ = utils.WriteUnauthorized(w, "Authentication required")
				return
			}

			authz, err := services.Authorize(m.gate, token, required...)
			switch {
			case err == nil:
			case services.IsForbiddenError(err):
				logger.Warn("insufficient permissions",
					zap.Any("required", required),
					zap.Error(err))
				_ = utils.WriteForbidden(w, services.PublicMessage(err))
				return
			case services.IsAuthenticationError(err):
				_ = utils.WriteUnauthorized(w, services.PublicMessage(err))
				return
			default:
				logger.Error("permission check failed", zap.Error(err))
				_ = utils.WriteInternalServerError(w, "")
				return
			}

			logger.Debug("permission check passed", zap.Any("granted", authz.Granted))
			next.ServeHTTP(w, r.WithContext(WithAuthorization(ctx, authz)))
		})
	}
}
