package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/epicevents/crm/internal/policy"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of tokens issued at login.
const DefaultTokenTTL = 30 * time.Minute

// Identity is what a token asserts about its bearer.
type Identity struct {
	UserID     int64
	Username   string
	Department policy.Department
}

// Claims is the token payload: a flat map with user_id, username,
// department and the registered exp/iat/jti claims.
type Claims struct {
	UserID     int64             `json:"user_id"`
	Username   string            `json:"username"`
	Department policy.Department `json:"department"`
	jwt.RegisteredClaims
}

// Identity returns the identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Username: c.Username, Department: c.Department}
}

// TokenService issues and verifies HS256 signed, time-limited tokens.
// Tokens are stateless; expiry is the only invalidation mechanism.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used to stamp and check tokens.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service signing with secret. A non-positive
// ttl falls back to DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime applied by Issue.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for id with the service's configured lifetime.
func (s *TokenService) Issue(id Identity) (string, error) {
	return s.IssueWithTTL(id, s.ttl)
}

// IssueWithTTL signs a token for id that expires after ttl.
func (s *TokenService) IssueWithTTL(id Identity, ttl time.Duration) (string, error) {
	if id.UserID <= 0 {
		return "", fmt.Errorf("issuing token: user id is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("issuing token: ttl must be positive")
	}

	now := s.now()
	claims := Claims{
		UserID:     id.UserID,
		Username:   id.Username,
		Department: id.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// It fails with ErrTokenExpired once exp has passed and ErrTokenInvalid for
// anything else.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrTokenInvalid)
	}
	if claims.Department == "" {
		return nil, fmt.Errorf("%w: missing department", ErrTokenInvalid)
	}

	return claims, nil
}
