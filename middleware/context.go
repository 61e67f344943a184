package middleware

import (
	"context"

	"github.com/epicevents/crm/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// TokenKey is the context key for the raw bearer token
	TokenKey contextKey = "token"

	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"

	// AuthorizationKey is the context key for the outcome of a permission check
	AuthorizationKey contextKey = "authorization"
)

// GetTokenFromContext retrieves the bearer token from context
func GetTokenFromContext(ctx context.Context) string {
	if val := ctx.Value(TokenKey); val != nil {
		if token, ok := val.(string); ok {
			return token
		}
	}
	return ""
}

// WithToken adds the bearer token to the context
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, TokenKey, token)
}

// GetClaimsFromContext retrieves verified claims from context
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds verified claims to the context
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetAuthorizationFromContext retrieves the granted permissions from context
func GetAuthorizationFromContext(ctx context.Context) *auth.Authorization {
	if val := ctx.Value(AuthorizationKey); val != nil {
		if authz, ok := val.(*auth.Authorization); ok {
			return authz
		}
	}
	return nil
}

// WithAuthorization adds the granted permissions to the context
func WithAuthorization(ctx context.Context, authz *auth.Authorization) context.Context {
	return context.WithValue(ctx, AuthorizationKey, authz)
}
