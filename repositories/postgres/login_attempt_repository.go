package postgres

import (
	"context"
	"time"

	"github.com/epicevents/crm/models"
	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

// LoginAttemptRepository implements the repositories.LoginAttemptRepository interface
type LoginAttemptRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLoginAttemptRepository creates a new login attempt repository
func NewLoginAttemptRepository(db *DB, logger *zap.Logger) repositories.LoginAttemptRepository {
	return &LoginAttemptRepository{db: db, logger: logger}
}

// Insert records a failed login
func (r *LoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `INSERT INTO login_attempts (id, username, attempted_at) VALUES ($1, $2, $3)`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, attempt.ID, attempt.Username, attempt.AttemptedAt); err != nil {
		return translate("record login attempt", err)
	}
	return nil
}

// CountSince counts the failed logins of a user inside the window
func (r *LoginAttemptRepository) CountSince(ctx context.Context, username string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM login_attempts
		WHERE username = $1
		  AND attempted_at >= $2
	`

	var count int
	executor := GetExecutor(ctx, r.db)
	if err := executor.QueryRowContext(ctx, query, username, since).Scan(&count); err != nil {
		return 0, translate("count login attempts", err)
	}
	return count, nil
}

// DeleteByUsername clears the failed logins of a user
func (r *LoginAttemptRepository) DeleteByUsername(ctx context.Context, username string) error {
	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, `DELETE FROM login_attempts WHERE username = $1`, username); err != nil {
		return translate("clear login attempts", err)
	}
	return nil
}

// DeleteBefore purges failed logins older than before
func (r *LoginAttemptRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, `DELETE FROM login_attempts WHERE attempted_at < $1`, before)
	if err != nil {
		return 0, translate("purge login attempts", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, translate("purge login attempts", err)
	}

	if deleted > 0 {
		r.logger.Info("purged login attempts", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
