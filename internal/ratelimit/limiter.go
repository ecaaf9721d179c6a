package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultWindow   = 60 * time.Second
	DefaultCapacity = 1000
)

// Decision is the outcome of an admission check. RetryAfter is nonzero only
// on rejection.
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// Limiter is per-tenant admission control over dispatch cost units.
type Limiter interface {
	TryAdmit(ctx context.Context, tenantID string, cost int) (Decision, error)
}

// CounterStore is the atomically-updated counter state behind the limiter.
// Concurrent dispatcher invocations for the same tenant share it; the Redis
// implementation shares it across instances as well.
type CounterStore interface {
	Add(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// SlidingWindowLimiter approximates a sliding 60s window by weighting the
// previous fixed window's count with its remaining overlap. State lives in
// the injected CounterStore, the clock is injectable for tests.
type SlidingWindowLimiter struct {
	store    CounterStore
	window   time.Duration
	capacity int64
	now      func() time.Time
}

func NewSlidingWindowLimiter(store CounterStore, window time.Duration, capacity int64) (*SlidingWindowLimiter, error) {
	return newSlidingWindowLimiter(store, window, capacity, time.Now)
}

func newSlidingWindowLimiter(
	store CounterStore,
	window time.Duration,
	capacity int64,
	nowFn func() time.Time,
) (*SlidingWindowLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("counter store is required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &SlidingWindowLimiter{
		store:    store,
		window:   window,
		capacity: capacity,
		now:      nowFn,
	}, nil
}

func (l *SlidingWindowLimiter) TryAdmit(ctx context.Context, tenantID string, cost int) (Decision, error) {
	if l == nil || l.store == nil {
		return Decision{}, fmt.Errorf("limiter is not initialized")
	}

	tenant := strings.TrimSpace(tenantID)
	if tenant == "" {
		return Decision{}, fmt.Errorf("tenant id is required")
	}
	if cost <= 0 {
		return Decision{Admitted: true}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := l.now().UTC()
	windowIdx := now.UnixNano() / int64(l.window)
	elapsed := time.Duration(now.UnixNano() % int64(l.window))
	remaining := l.window - elapsed

	currKey := l.key(tenant, windowIdx)
	prevKey := l.key(tenant, windowIdx-1)

	// Counters survive two windows so the previous window stays readable
	// until it has fully slid out.
	current, err := l.store.Add(ctx, currKey, int64(cost), 2*l.window)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to update admission counter: %w", err)
	}

	previous, err := l.store.Get(ctx, prevKey)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to read admission counter: %w", err)
	}

	weighted := current + int64(float64(previous)*remaining.Seconds()/l.window.Seconds())
	if weighted <= l.capacity {
		return Decision{Admitted: true}, nil
	}

	// Over budget: release the provisional reservation so the rejected cost
	// does not count against later callers.
	if _, rollbackErr := l.store.Add(ctx, currKey, -int64(cost), 2*l.window); rollbackErr != nil {
		return Decision{}, fmt.Errorf("failed to roll back admission counter: %w", rollbackErr)
	}

	retryAfter := remaining
	if retryAfter <= 0 {
		retryAfter = l.window
	}

	return Decision{Admitted: false, RetryAfter: retryAfter}, nil
}

func (l *SlidingWindowLimiter) key(tenantID string, windowIdx int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", tenantID, windowIdx)
}
