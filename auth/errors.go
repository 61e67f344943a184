package auth

import "errors"

var (
	// ErrTokenExpired is returned when a token's exp claim has passed
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid is returned for any signature, structure or claim failure
	ErrTokenInvalid = errors.New("invalid token")

	// ErrForbidden is returned when the caller's department holds none of the
	// requested permissions
	ErrForbidden = errors.New("permission denied")
)
