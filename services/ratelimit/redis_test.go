package ratelimit

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_Record(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, 15*time.Minute)
	ctx := context.Background()
	at := testNow

	member := strconv.FormatInt(at.UnixNano(), 10)
	cutoff := strconv.FormatInt(at.Add(-15*time.Minute).UnixNano(), 10)

	mock.ExpectZAdd("login_attempts:alice", redis.Z{Score: float64(at.UnixNano()), Member: member}).SetVal(1)
	mock.ExpectZRemRangeByScore("login_attempts:alice", "-inf", "("+cutoff).SetVal(2)
	mock.ExpectExpire("login_attempts:alice", 15*time.Minute).SetVal(true)

	require.NoError(t, store.Record(ctx, "alice", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_RecordError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, time.Minute)
	at := testNow

	mock.ExpectZAdd("login_attempts:alice", redis.Z{Score: float64(at.UnixNano()), Member: strconv.FormatInt(at.UnixNano(), 10)}).
		SetErr(errors.New("READONLY"))

	err := store.Record(context.Background(), "alice", at)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add attempt")
}

func TestRedisStore_CountSince(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, 15*time.Minute)
	since := testNow.Add(-15 * time.Minute)

	mock.ExpectZCount("login_attempts:bob", strconv.FormatInt(since.UnixNano(), 10), "+inf").SetVal(4)

	n, err := store.CountSince(context.Background(), "bob", since)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ResetAndPurge(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, 15*time.Minute)
	ctx := context.Background()

	mock.ExpectDel("login_attempts:bob").SetVal(1)
	require.NoError(t, store.Reset(ctx, "bob"))

	removed, err := store.Purge(ctx, testNow)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginThrottle_OnRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	now := testNow
	throttle := newThrottle(t, NewRedisStore(db, 15*time.Minute), &now)

	mock.ExpectZCount("login_attempts:carol", strconv.FormatInt(now.Add(-15*time.Minute).UnixNano(), 10), "+inf").SetVal(3)

	result, err := throttle.Check(context.Background(), "Carol")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
