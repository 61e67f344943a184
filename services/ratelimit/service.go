package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/epicevents/crm/models"
	"go.uber.org/zap"
)

// Store keeps failed login attempts per normalized username.
type Store interface {
	Record(ctx context.Context, username string, at time.Time) error
	CountSince(ctx context.Context, username string, since time.Time) (int, error)
	Reset(ctx context.Context, username string) error
	// Purge drops attempts older than before and returns how many went.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Throttle is what the login flow consumes.
type Throttle interface {
	Check(ctx context.Context, username string) (*Result, error)
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// Result represents the result of a throttle check
type Result struct {
	Allowed    bool
	Attempts   int
	Remaining  int
	RetryAfter time.Duration
}

// Config holds the sliding window settings
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// LoginThrottle counts failed logins per username in a sliding window
type LoginThrottle struct {
	store  Store
	config Config
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a LoginThrottle
type Option func(*LoginThrottle)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(t *LoginThrottle) { t.now = now }
}

// NewLoginThrottle creates a throttle over store
func NewLoginThrottle(store Store, config Config, logger *zap.Logger, opts ...Option) (*LoginThrottle, error) {
	if config.MaxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}
	if config.Window <= 0 {
		return nil, fmt.Errorf("window must be positive")
	}
	t := &LoginThrottle{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Check reports whether username may attempt a login now
func (t *LoginThrottle) Check(ctx context.Context, username string) (*Result, error) {
	key := models.NormalizeUsername(username)
	count, err := t.store.CountSince(ctx, key, t.now().Add(-t.config.Window))
	if err != nil {
		return nil, fmt.Errorf("failed to count login attempts: %w", err)
	}

	if count >= t.config.MaxAttempts {
		t.logger.Warn("login throttled",
			zap.String("username", key),
			zap.Int("attempts", count))
		return &Result{
			Allowed:    false,
			Attempts:   count,
			RetryAfter: t.config.Window,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Attempts:  count,
		Remaining: t.config.MaxAttempts - count,
	}, nil
}

// RecordFailure records a failed login for username
func (t *LoginThrottle) RecordFailure(ctx context.Context, username string) error {
	if err := t.store.Record(ctx, models.NormalizeUsername(username), t.now()); err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}
	return nil
}

// Reset forgets the failures of username after a successful login
func (t *LoginThrottle) Reset(ctx context.Context, username string) error {
	if err := t.store.Reset(ctx, models.NormalizeUsername(username)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// Cleanup removes attempts that fell out of the window
func (t *LoginThrottle) Cleanup(ctx context.Context) (int64, error) {
	cutoff := t.now().Add(-t.config.Window)
	removed, err := t.store.Purge(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}

	t.logger.Debug("cleaned up login attempts",
		zap.Int64("rows_deleted", removed),
		zap.Time("cutoff_time", cutoff))

	return removed, nil
}

// StartCleanupWorker periodically purges old attempts until ctx is done
func (t *LoginThrottle) StartCleanupWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.logger.Debug("started login attempt cleanup worker", zap.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			if _, err := t.Cleanup(ctx); err != nil {
				t.logger.Error("failed to cleanup login attempts", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Disabled never throttles. It backs RATE_LIMIT_BACKEND=none.
type Disabled struct{}

// Check always allows the attempt.
func (Disabled) Check(context.Context, string) (*Result, error) {
	return &Result{Allowed: true}, nil
}

// RecordFailure discards the failure.
func (Disabled) RecordFailure(context.Context, string) error { return nil }

// Reset is a no-op.
func (Disabled) Reset(context.Context, string) error { return nil }
