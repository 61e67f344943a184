package ratelimit

import (
	"context"
	"time"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
)

// RepositoryStore keeps attempts in the login_attempts table of the
// relational store.
type RepositoryStore struct {
	attempts repositories.LoginAttemptRepository
}

// NewRepositoryStore wraps a login attempt repository
func NewRepositoryStore(attempts repositories.LoginAttemptRepository) *RepositoryStore {
	return &RepositoryStore{attempts: attempts}
}

func (s *RepositoryStore) Record(ctx context.Context, username string, at time.Time) error {
	return s.attempts.Insert(ctx, models.NewLoginAttempt(username, at))
}

func (s *RepositoryStore) CountSince(ctx context.Context, username string, since time.Time) (int, error) {
	return s.attempts.CountSince(ctx, username, since)
}

func (s *RepositoryStore) Reset(ctx context.Context, username string) error {
	return s.attempts.DeleteByUsername(ctx, username)
}

func (s *RepositoryStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	return s.attempts.DeleteBefore(ctx, before)
}
