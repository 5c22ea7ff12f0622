package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter decides whether one more request for key fits in the current window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
}

// InMemoryRateLimiter is a sliding window per key, local to one process.
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	r := &InMemoryRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
	go r.cleanup()
	return r
}

func (r *InMemoryRateLimiter) Limit() int { return r.limit }

func (r *InMemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	valid := r.live(r.requests[key], now.Add(-r.window))
	if len(valid) >= r.limit {
		r.requests[key] = valid
		return false, nil
	}
	r.requests[key] = append(valid, now)
	return true, nil
}

func (r *InMemoryRateLimiter) live(times []time.Time, cutoff time.Time) []time.Time {
	valid := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

func (r *InMemoryRateLimiter) cleanup() {
	tick := time.NewTicker(time.Minute)
	for range tick.C {
		r.mu.Lock()
		cutoff := r.now().Add(-r.window)
		for k, times := range r.requests {
			if valid := r.live(times, cutoff); len(valid) == 0 {
				delete(r.requests, k)
			} else {
				r.requests[k] = valid
			}
		}
		r.mu.Unlock()
	}
}

// RedisRateLimiter is a fixed window shared by every instance behind the same Redis.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *RedisRateLimiter) Limit() int { return r.limit }

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.window <= 0 {
		return false, errors.New("rate limit window must be positive")
	}
	bucket := time.Now().UnixNano() / int64(r.window)
	k := fmt.Sprintf("%s:%s:%d", r.prefix, key, bucket)
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(r.limit), nil
}

// RateLimit limits by client IP. Limiter errors let the request through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{"code": "RATE_LIMITED", "message": "rate limit exceeded"},
			})
			return
		}
		c.Next()
	}
}
