package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/interview-coach/pkg/config"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRedisLimiter_AllowsWithinLimit(t *testing.T) {
	client, _ := setupTestRedis(t)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "test:allows", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 4-i, result.Remaining)
	}
}

func TestRedisLimiter_BlocksWhenExceeded(t *testing.T) {
	client, mr := setupTestRedis(t)

	limiter := NewRedisLimiter(client, testLogger())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		result, err := limiter.Check(ctx, "test:blocks", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, result.Allowed, "request %d", i)
	}

	members, err := mr.ZMembers(keyPrefix + "test:blocks")
	require.NoError(t, err)
	assert.Len(t, members, 2, "rejected requests must not occupy the window")
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, _ := setupTestRedis(t)

	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = clock.now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "test:window", 2, time.Second)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 1, result.RetryAfter(clock.t))

	clock.advance(1100 * time.Millisecond)

	result, err = limiter.Check(ctx, "test:window", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiter(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter(testLogger())
	limiter.now = clock.now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, clock.t.Add(time.Minute), result.ResetAt)

	clock.advance(2 * time.Minute)
	assert.Equal(t, 1, limiter.Cleanup(time.Minute))

	result, err = limiter.Check(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestAdaptiveLimiter_FallsBackOnRedisErrors(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(testLogger()), testLogger())

	// go-redis retries LOADING and READONLY replies, so inject a plain ERR.
	mr.SetError("ERR injected failure")
	// The fallback allows half of the configured limit.
	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "user:1", 4, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i < 2, result.Allowed, "request %d", i)
	}

	mr.SetError("")
	result, err := limiter.Check(ctx, "user:1", 4, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestGuard(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	limiter := NewRedisLimiter(client, testLogger())

	rules := NewRules(config.RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute, Whitelist: []string{" 7 "}})
	guard := NewGuard(limiter, rules)

	_, err := guard.Allow(ctx, "1")
	require.NoError(t, err)
	result, err := guard.Allow(ctx, "1")
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)

	for i := 0; i < 3; i++ {
		_, err = guard.Allow(ctx, "7")
		assert.NoError(t, err, "whitelisted users bypass limits")
	}

	disabled := NewGuard(limiter, NewRules(config.RateLimitConfig{Enabled: false}))
	_, err = disabled.Allow(ctx, "1")
	assert.NoError(t, err)

	broken := NewGuard(limiter, NewRules(config.RateLimitConfig{Enabled: true, Limit: 1}))
	_, err = broken.Allow(ctx, "2")
	assert.ErrorContains(t, err, "window duration is not set")
}

func TestCleaner_Sweep(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = func() time.Time { return time.Now().Add(-time.Hour) }
	_, err := limiter.Check(ctx, "user:old", 5, 3*time.Hour)
	require.NoError(t, err)

	limiter.now = time.Now
	_, err = limiter.Check(ctx, "user:new", 5, time.Hour)
	require.NoError(t, err)

	removed, err := NewCleaner(client, nil, 5*time.Minute, testLogger()).Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, mr.Exists(keyPrefix+"user:old"))
	assert.True(t, mr.Exists(keyPrefix+"user:new"))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
