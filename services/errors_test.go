package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/epicevents/crm/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeInternal,
				Message: "client store failure",
				Err:     errors.New("db error"),
			},
			wantMsg: "internal: client store failure (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeBusinessRule,
				Message: "contract is already signed",
			},
			wantMsg: "business_rule_violation: contract is already signed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error type",
			err:    NewNotFoundError("client", 3),
			target: ErrNotFound,
			want:   true,
		},
		{
			name:   "different error type",
			err:    NewValidationError("bad email"),
			target: ErrNotFound,
			want:   false,
		},
		{
			name:   "wrapped domain error",
			err:    fmt.Errorf("sign contract: %w", NewBusinessRuleError("remaining amount must be zero")),
			target: ErrBusinessRule,
			want:   true,
		},
		{
			name:   "non-domain target",
			err:    NewValidationError("bad"),
			target: errors.New("bad"),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := (&DomainError{Type: ErrorTypeValidation, Message: "invalid"}).
		WithDetail("field", "email").
		WithDetail("tag", "email")

	assert.Equal(t, map[string]interface{}{"field": "email", "tag": "email"}, err.Details)
}

func TestNewOwnershipError(t *testing.T) {
	err := NewOwnershipError("contract", 12)

	assert.True(t, IsOwnershipError(err))
	assert.Equal(t, "contract 12 is not assigned to you", err.Message)
	assert.Equal(t, int64(12), GetErrorDetails(err)["id"])
}

func TestFromRepository(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, FromRepository("client", 1, nil))
	})

	t.Run("not found", func(t *testing.T) {
		err := FromRepository("client", int64(9), fmt.Errorf("failed to get client: %w", repositories.ErrNotFound))
		assert.True(t, IsNotFoundError(err))
		assert.Equal(t, "client 9 not found", PublicMessage(err))
	})

	t.Run("duplicate becomes conflict", func(t *testing.T) {
		dup := &repositories.DuplicateError{Field: "email", Err: errors.New("pq: duplicate key")}
		err := FromRepository("user", "bob", fmt.Errorf("failed to create user: %w", dup))
		require.True(t, IsConflictError(err))
		assert.Equal(t, "user with this email already exists", PublicMessage(err))
		assert.Equal(t, "email", GetErrorDetails(err)["field"])
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		orig := NewBusinessRuleError("event already exists")
		assert.Same(t, orig, FromRepository("event", 1, orig))
	})

	t.Run("anything else is internal", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := FromRepository("contract", 4, cause)
		assert.True(t, IsInternalError(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "unexpected error", PublicMessage(err))
	})
}

func TestIsBusinessError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"business rule", NewBusinessRuleError("x"), true},
		{"ownership", NewOwnershipError("client", 1), true},
		{"token expired", ErrTokenExpired, true},
		{"rate limit", ErrTooManyAttempts, true},
		{"internal", WrapInternal("boom", errors.New("db down")), false},
		{"plain error", errors.New("plain"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBusinessError(tt.err))
		})
	}
}

func TestIsAuthenticationError(t *testing.T) {
	assert.True(t, IsAuthenticationError(ErrAuthenticationFailed))
	assert.True(t, IsAuthenticationError(ErrInvalidToken))
	assert.True(t, IsAuthenticationError(ErrTokenExpired))
	assert.False(t, IsAuthenticationError(ErrForbidden))
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeConflict, GetErrorType(fmt.Errorf("wrapped: %w", ErrConflict)))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "permission denied", PublicMessage(ErrForbidden))
	assert.Equal(t, "unexpected error", PublicMessage(errors.New("pq: password authentication failed")))
}
