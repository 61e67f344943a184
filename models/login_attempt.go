package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LoginAttempt records one failed login for a username.
type LoginAttempt struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	AttemptedAt time.Time `json:"attempted_at" db:"attempted_at"`
}

// TableName returns the table name for the LoginAttempt model
func (LoginAttempt) TableName() string {
	return "login_attempts"
}

// NewLoginAttempt creates an attempt keyed by the normalized username
func NewLoginAttempt(username string, at time.Time) *LoginAttempt {
	return &LoginAttempt{
		ID:          uuid.New(),
		Username:    NormalizeUsername(username),
		AttemptedAt: at.UTC(),
	}
}

// NormalizeUsername lowercases and trims a username for throttle keys.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
