package auth

import (
	"fmt"

	"github.com/epicevents/crm/internal/policy"
)

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Authorization is the outcome of a successful gate check: who the caller is
// and which of the requested permissions they hold.
type Authorization struct {
	Claims  *Claims
	Granted []policy.Permission
}

// ActorID returns the authenticated user's id.
func (a *Authorization) ActorID() int64 {
	return a.Claims.UserID
}

// Has reports whether p is among the granted permissions.
func (a *Authorization) Has(p policy.Permission) bool {
	for _, g := range a.Granted {
		if g == p {
			return true
		}
	}
	return false
}

// Gate composes token verification with the permission policy. It keeps no
// state between calls.
type Gate struct {
	tokens TokenVerifier
	policy policy.Policy
}

// NewGate creates a gate over the given verifier and policy.
func NewGate(tokens TokenVerifier, p policy.Policy) *Gate {
	return &Gate{tokens: tokens, policy: p}
}

// Authenticate verifies the token without checking any permission.
func (g *Gate) Authenticate(token string) (*Claims, error) {
	return g.tokens.Verify(token)
}

// Authorize verifies token and intersects the caller department's grants with
// required. It fails with ErrForbidden when the intersection is empty.
func (g *Gate) Authorize(token string, required ...policy.Permission) (*Authorization, error) {
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	granted := policy.Granted(g.policy, claims.Department, required...)
	if len(granted) == 0 {
		return nil, fmt.Errorf("%w: department %q holds none of %v", ErrForbidden, claims.Department, required)
	}

	return &Authorization{Claims: claims, Granted: granted}, nil
}
