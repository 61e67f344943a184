package middleware

import (
	"net/http"
	"strings"

	"github.com/epicevents/crm/internal/observability"
	"github.com/epicevents/crm/services"
	"github.com/epicevents/crm/utils"
	"go.uber.org/zap"
)

// AuthMiddleware verifies bearer tokens
type AuthMiddleware struct {
	gate   services.Authorizer
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(gate services.Authorizer, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		gate:   gate,
		logger: logger,
	}
}

// RequireAuth is a middleware that requires a valid, unexpired token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.WithRequest(ctx, m.logger)

		token := extractBearerToken(r)
		if token == "" {
			logger.Warn("missing token")
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := services.Authenticate(m.gate, token)
		if err != nil {
			logger.Warn("token validation failed", zap.Error(err))
			_ = utils.WriteError(w, http.StatusUnauthorized, services.PublicMessage(err), map[string]interface{}{
				"reason": string(services.GetErrorType(err)),
			})
			return
		}

		ctx = WithToken(ctx, token)
		ctx = WithClaims(ctx, claims)

		logger.Debug("authentication successful",
			zap.Int64("user_id", claims.UserID),
			zap.String("department", string(claims.Department)))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Check if it starts with "Bearer "
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
