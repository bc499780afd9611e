package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/valveaudio/backend/internal/interfaces/http/dto"
)

// Limiter is the counting backend for rate-limit middleware. Implementations
// are injected so process-local state can be swapped for a shared store
// without touching call sites.
type Limiter interface {
	// Allow records one request for the key and reports whether it is
	// within the limit, along with the number of requests left in the
	// current window.
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	// Limit returns the configured per-window request cap.
	Limit() int
}

// InMemoryLimiter counts requests over a rolling window held in process
// memory. Each key keeps the timestamps of its live requests; a request is
// admitted while fewer than limit fall inside the trailing period, so the cap
// holds across any interval and not just aligned window boundaries. Losing
// the state on restart only resets the window, never order data.
type InMemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	period time.Duration

	lastSweep time.Time
}

// NewInMemoryLimiter creates an in-memory rolling-window limiter
func NewInMemoryLimiter(limit int, period time.Duration) *InMemoryLimiter {
	return &InMemoryLimiter{
		hits:      make(map[string][]time.Time),
		limit:     limit,
		period:    period,
		lastSweep: time.Now(),
	}
}

// Allow implements Limiter
func (l *InMemoryLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweepLocked(now)

	cutoff := now.Add(-l.period)
	live := l.hits[key][:0]
	for _, ts := range l.hits[key] {
		if ts.After(cutoff) {
			live = append(live, ts)
		}
	}

	if len(live) >= l.limit {
		l.hits[key] = live
		return false, 0, nil
	}

	live = append(live, now)
	l.hits[key] = live
	return true, l.limit - len(live), nil
}

// Limit implements Limiter
func (l *InMemoryLimiter) Limit() int { return l.limit }

// sweepLocked drops keys whose every hit has aged out so the map does not
// grow without bound. Correctness does not depend on it running.
func (l *InMemoryLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	cutoff := now.Add(-l.period)
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
	l.lastSweep = now
}

// RedisLimiter counts requests over a rolling window shared across processes.
// Live requests are members of a sorted set scored by arrival time; aged-out
// members are trimmed before counting.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	period time.Duration
}

// NewRedisLimiter creates a Redis-backed rolling-window limiter
func NewRedisLimiter(client *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		period: period,
	}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := l.prefix + ":" + key
	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-l.period).UnixNano(), 10)

	trim := l.client.TxPipeline()
	trim.ZRemRangeByScore(ctx, redisKey, "0", cutoff)
	countCmd := trim.ZCard(ctx, redisKey)
	if _, err := trim.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit count: %w", err)
	}

	count := int(countCmd.Val())
	if count >= l.limit {
		return false, 0, nil
	}

	record := l.client.TxPipeline()
	record.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.NewString(),
	})
	record.Expire(ctx, redisKey, l.period)
	if _, err := record.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit record: %w", err)
	}

	remaining := l.limit - count - 1
	if remaining < 0 {
		remaining = 0
	}
	return true, remaining, nil
}

// Limit implements Limiter
func (l *RedisLimiter) Limit() int { return l.limit }

// RateLimit limits requests per client IP using the injected limiter. A
// limiter backend failure fails open: guest tracking must not go dark because
// the counter store is unreachable.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse(dto.ErrCodeRateLimited, "Too many requests. Please try again later."))
			return
		}

		c.Next()
	}
}
