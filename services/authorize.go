package services

import (
	"errors"

	"github.com/epicevents/crm/auth"
	"github.com/epicevents/crm/internal/policy"
)

// Authorizer is the gate every mutating operation passes through.
type Authorizer interface {
	Authenticate(token string) (*auth.Claims, error)
	Authorize(token string, required ...policy.Permission) (*auth.Authorization, error)
}

// Authenticate verifies token for operations open to every collaborator.
func Authenticate(gate Authorizer, token string) (*auth.Claims, error) {
	claims, err := gate.Authenticate(token)
	if err != nil {
		return nil, authError(err)
	}
	return claims, nil
}

// Authorize runs the gate and maps its failures onto domain errors.
func Authorize(gate Authorizer, token string, required ...policy.Permission) (*auth.Authorization, error) {
	authz, err := gate.Authorize(token, required...)
	if err != nil {
		return nil, authError(err)
	}
	return authz, nil
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return NewDomainError(ErrorTypeTokenExpired, ErrTokenExpired.Message, err)
	case errors.Is(err, auth.ErrTokenInvalid):
		return NewDomainError(ErrorTypeTokenInvalid, ErrInvalidToken.Message, err)
	case errors.Is(err, auth.ErrForbidden):
		return NewDomainError(ErrorTypeForbidden, ErrForbidden.Message, err)
	default:
		return WrapInternal("authorization failed", err)
	}
}
