package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/epicevents/crm/config"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "login_attempts:"

// RedisStore keeps attempts in one sorted set per username, scored by the
// attempt time in nanoseconds. Keys expire one window after the last failure.
type RedisStore struct {
	client redis.Cmdable
	window time.Duration
}

// NewRedisStore creates a store over client
func NewRedisStore(client redis.Cmdable, window time.Duration) *RedisStore {
	return &RedisStore{client: client, window: window}
}

// NewRedisClient connects to redis and pings it with a short timeout
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

func redisKey(username string) string {
	return redisKeyPrefix + username
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func (s *RedisStore) Record(ctx context.Context, username string, at time.Time) error {
	key := redisKey(username)
	if err := s.client.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: score(at)}).Err(); err != nil {
		return fmt.Errorf("failed to add attempt: %w", err)
	}
	if err := s.client.ZRemRangeByScore(ctx, key, "-inf", "("+score(at.Add(-s.window))).Err(); err != nil {
		return fmt.Errorf("failed to trim attempts: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.window).Err(); err != nil {
		return fmt.Errorf("failed to set attempt expiry: %w", err)
	}
	return nil
}

func (s *RedisStore) CountSince(ctx context.Context, username string, since time.Time) (int, error) {
	n, err := s.client.ZCount(ctx, redisKey(username), score(since), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) Reset(ctx context.Context, username string) error {
	if err := s.client.Del(ctx, redisKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to clear attempts: %w", err)
	}
	return nil
}

// Purge is a no-op: keys expire on their own.
func (s *RedisStore) Purge(context.Context, time.Time) (int64, error) {
	return 0, nil
}
