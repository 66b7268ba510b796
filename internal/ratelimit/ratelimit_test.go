package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_FirstRequestStartsWindow(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, "scan", 2, time.Minute)

	mock.ExpectIncr("ratelimit:scan:user-1").SetVal(1)
	mock.ExpectExpireNX("ratelimit:scan:user-1", time.Minute).SetVal(true)

	allowed, err := limiter.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_RejectsOverLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, "scan", 2, time.Minute)

	mock.ExpectIncr("ratelimit:scan:user-1").SetVal(2)
	mock.ExpectExpireNX("ratelimit:scan:user-1", time.Minute).SetVal(false)
	mock.ExpectIncr("ratelimit:scan:user-1").SetVal(3)
	mock.ExpectExpireNX("ratelimit:scan:user-1", time.Minute).SetVal(false)

	allowed, err := limiter.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLimiter_FailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, "scan", 2, time.Minute)

	mock.ExpectIncr("ratelimit:scan:user-1").SetErr(errors.New("connection refused"))

	allowed, err := limiter.Allow(context.Background(), "user-1")
	assert.Error(t, err)
	assert.True(t, allowed)
}

func TestLimiter_FailedExpireIsRetried(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, "scan", 2, time.Minute)
	ctx := context.Background()

	mock.ExpectIncr("ratelimit:scan:user-1").SetVal(1)
	mock.ExpectExpireNX("ratelimit:scan:user-1", time.Minute).SetErr(errors.New("i/o timeout"))
	allowed, err := limiter.Allow(ctx, "user-1")
	assert.Error(t, err)
	assert.True(t, allowed)

	// The key has no TTL yet; the next hit sets it.
	mock.ExpectIncr("ratelimit:scan:user-1").SetVal(2)
	mock.ExpectExpireNX("ratelimit:scan:user-1", time.Minute).SetVal(true)
	allowed, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	mock.ExpectIncr("ratelimit:scan:user-1").SetVal(3)
	mock.ExpectExpireNX("ratelimit:scan:user-1", time.Minute).SetVal(false)
	allowed, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.NoError(t, mock.ExpectationsWereMet())
}
