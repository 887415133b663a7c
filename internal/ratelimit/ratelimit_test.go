package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsBurst(t *testing.T) {
	limiter := NewMemoryLimiter(1, 3)
	defer func() { _ = limiter.Close() }()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := limiter.Allow(ctx, "acme|/defend")
		require.NoError(t, err)
		assert.True(t, v.Allowed, "request %d within burst", i)
		assert.Equal(t, 2-i, v.Remaining)
	}

	v, err := limiter.Allow(ctx, "acme|/defend")
	require.NoError(t, err)
	assert.False(t, v.Allowed, "burst exhausted")
	assert.GreaterOrEqual(t, v.RetryAfter, time.Second)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(1, 1)
	defer func() { _ = limiter.Close() }()
	ctx := context.Background()

	v, _ := limiter.Allow(ctx, "acme|/defend")
	assert.True(t, v.Allowed)
	v, _ = limiter.Allow(ctx, "acme|/defend")
	assert.False(t, v.Allowed)

	v, _ = limiter.Allow(ctx, "globex|/defend")
	assert.True(t, v.Allowed, "other tenant has its own bucket")
}

func TestMemoryLimiterRefillAndRetryAfter(t *testing.T) {
	limiter := NewMemoryLimiter(2, 1)
	defer func() { _ = limiter.Close() }()
	ctx := context.Background()

	clock := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	v, _ := limiter.Allow(ctx, "acme|/defend")
	require.True(t, v.Allowed)

	// Empty bucket at 2 tokens/s: next whole token within a second.
	v, _ = limiter.Allow(ctx, "acme|/defend")
	require.False(t, v.Allowed)
	assert.Equal(t, time.Second, v.RetryAfter)

	clock = clock.Add(600 * time.Millisecond)
	v, _ = limiter.Allow(ctx, "acme|/defend")
	assert.True(t, v.Allowed, "refilled after the wait")
}

func TestMiddlewareRejectsWithDetailBody(t *testing.T) {
	limiter := NewMemoryLimiter(1, 1)
	defer func() { _ = limiter.Close() }()

	handler := Middleware(limiter, 1, 1, func(*http.Request) string { return "acme|/defend" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/defend", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/defend", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"detail":"Rate limit exceeded"}`, second.Body.String())
}

func TestMiddlewareSkipsEmptyKey(t *testing.T) {
	limiter := NewMemoryLimiter(1, 1)
	defer func() { _ = limiter.Close() }()

	handler := Middleware(limiter, 1, 1, func(*http.Request) string { return "" })(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/defend", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
