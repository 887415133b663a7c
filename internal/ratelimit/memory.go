// Package ratelimit throttles decision traffic per tenant and route.
//
// Keys are "<tenant>|<route>" strings built by the HTTP layer. Each key
// owns an independent token bucket; verdicts carry the remaining budget
// and a retry hint so the transport can answer 429s honestly.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Verdict is the limiter's answer for one request.
type Verdict struct {
	Allowed   bool
	Remaining int

	// RetryAfter estimates when the next token lands. Zero when allowed.
	RetryAfter time.Duration
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Verdict, error)
}

// bucket tracks the token balance for one (tenant, route) key.
type bucket struct {
	tokens float64
	seen   time.Time
}

// refill credits tokens for the time elapsed since the last request,
// capped at the burst capacity.
func (b *bucket) refill(now time.Time, rate, burst float64) {
	b.tokens += now.Sub(b.seen).Seconds() * rate
	if b.tokens > burst {
		b.tokens = burst
	}
	b.seen = now
}

// MemoryLimiter is an in-process Limiter matching the single-node
// deployment model. A clustered deployment would swap a shared backend
// in behind the same interface.
type MemoryLimiter struct {
	rate  float64
	burst float64
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryLimiter creates a limiter refilling rate tokens per second
// per key, with bucket capacity burst. A background sweep drops keys
// idle for ten minutes; Close stops it.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Allow spends one token for key and reports the verdict.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{tokens: m.burst, seen: now}
		m.buckets[key] = b
	} else {
		b.refill(now, m.rate, m.burst)
	}

	if b.tokens < 1 {
		return Verdict{RetryAfter: m.retryAfter(b.tokens)}, nil
	}
	b.tokens--
	return Verdict{Allowed: true, Remaining: int(b.tokens)}, nil
}

// retryAfter estimates the wait until the bucket holds a whole token,
// rounded up to at least one second for the Retry-After header.
func (m *MemoryLimiter) retryAfter(tokens float64) time.Duration {
	if m.rate <= 0 {
		return time.Second
	}
	secs := math.Ceil((1 - tokens) / m.rate)
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// Close stops the eviction sweep. Safe to call more than once.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

// idleEviction bounds limiter memory: a tenant that stops sending
// telemetry loses its buckets after this much silence.
const idleEviction = 10 * time.Minute

func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *MemoryLimiter) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idleEviction)
	for key, b := range m.buckets {
		if b.seen.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
