package services

import (
	"errors"
	"fmt"

	"github.com/epicevents/crm/repositories"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeAuthentication ErrorType = "authentication_failed"
	ErrorTypeTokenInvalid   ErrorType = "token_invalid"
	ErrorTypeTokenExpired   ErrorType = "token_expired"
	ErrorTypeForbidden      ErrorType = "forbidden"
	ErrorTypeOwnership      ErrorType = "ownership_violation"
	ErrorTypeBusinessRule   ErrorType = "business_rule_violation"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInternal       ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables. They are matched with errors.Is by type and must
// not be decorated with WithDetail; build a fresh error for that.
var (
	ErrAuthenticationFailed = NewDomainError(ErrorTypeAuthentication, "invalid username or password", nil)
	ErrInvalidToken         = NewDomainError(ErrorTypeTokenInvalid, "invalid authentication token, please log in again", nil)
	ErrTokenExpired         = NewDomainError(ErrorTypeTokenExpired, "authentication token expired, please log in again", nil)
	ErrForbidden            = NewDomainError(ErrorTypeForbidden, "permission denied", nil)
	ErrNotOwner             = NewDomainError(ErrorTypeOwnership, "record is not assigned to you", nil)
	ErrBusinessRule         = NewDomainError(ErrorTypeBusinessRule, "business rule violated", nil)
	ErrConflict             = NewDomainError(ErrorTypeConflict, "value already in use", nil)
	ErrNotFound             = NewDomainError(ErrorTypeNotFound, "record not found", nil)
	ErrInvalidInput         = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrTooManyAttempts      = NewDomainError(ErrorTypeRateLimit, "too many failed login attempts, try again later", nil)
	ErrInternal             = NewDomainError(ErrorTypeInternal, "unexpected error", nil)
)

// NewBusinessRuleError reports a violated lifecycle invariant
func NewBusinessRuleError(message string) *DomainError {
	return NewDomainError(ErrorTypeBusinessRule, message, nil)
}

// NewOwnershipError reports that the actor does not own resource id
func NewOwnershipError(resource string, id int64) *DomainError {
	return NewDomainError(ErrorTypeOwnership, fmt.Sprintf("%s %d is not assigned to you", resource, id), nil).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource string, id interface{}) *DomainError {
	return NewDomainError(ErrorTypeNotFound, fmt.Sprintf("%s %v not found", resource, id), nil).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewValidationError reports invalid caller input
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, nil)
}

// FromRepository translates a repository failure once, at the service
// boundary. Absence becomes not_found, uniqueness violations become conflict
// and anything else an internal fault carrying the cause.
func FromRepository(resource string, id interface{}, err error) error {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if repositories.IsNotFound(err) {
		return NewNotFoundError(resource, id)
	}
	if dup, ok := repositories.IsDuplicate(err); ok {
		msg := fmt.Sprintf("%s already exists", resource)
		if dup.Field != "" {
			msg = fmt.Sprintf("%s with this %s already exists", resource, dup.Field)
		}
		return NewDomainError(ErrorTypeConflict, msg, err).WithDetail("field", dup.Field)
	}
	return WrapInternal(fmt.Sprintf("%s store failure", resource), err)
}

// Error type checking helper functions

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool { return hasType(err, ErrorTypeNotFound) }

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool { return hasType(err, ErrorTypeValidation) }

// IsForbiddenError checks if an error is a permission error
func IsForbiddenError(err error) bool { return hasType(err, ErrorTypeForbidden) }

// IsOwnershipError checks if an error is an ownership violation
func IsOwnershipError(err error) bool { return hasType(err, ErrorTypeOwnership) }

// IsBusinessRuleError checks if an error is a lifecycle rule violation
func IsBusinessRuleError(err error) bool { return hasType(err, ErrorTypeBusinessRule) }

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool { return hasType(err, ErrorTypeConflict) }

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool { return hasType(err, ErrorTypeRateLimit) }

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool { return hasType(err, ErrorTypeInternal) }

// IsAuthenticationError checks whether the caller has to (re)authenticate
func IsAuthenticationError(err error) bool {
	return hasType(err, ErrorTypeAuthentication) ||
		hasType(err, ErrorTypeTokenInvalid) ||
		hasType(err, ErrorTypeTokenExpired)
}

// IsBusinessError reports whether err is a domain error that is safe to show
// the caller verbatim. Internal faults and foreign errors are not.
func IsBusinessError(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Type != ErrorTypeInternal
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// PublicMessage returns what may be shown to the caller for err.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) && domainErr.Type != ErrorTypeInternal {
		return domainErr.Message
	}
	return ErrInternal.Message
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
