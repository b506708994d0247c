package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles abuse-prone endpoints (admin login, abuse reports)
// with a fixed-window counter in Redis.
type RateLimiter struct {
	rdb *redis.Client
}

func NewRateLimiter(addr, password string) (*RateLimiter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("rate limiter: redis ping: %w", err)
	}
	return &RateLimiter{rdb: rdb}, nil
}

func (r *RateLimiter) Close() error {
	return r.rdb.Close()
}

// Allow increments the counter for scope:key and reports whether the caller
// is still under limit for the current window. The first hit in a window
// sets the TTL.
func (r *RateLimiter) Allow(ctx context.Context, scope, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", scope, key)

	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, redisKey, window).Err(); err != nil {
			return false, err
		}
	}
	return count <= int64(limit), nil
}

// Reset clears the counter, used after a successful admin login so a typo
// streak does not lock the operator out.
func (r *RateLimiter) Reset(ctx context.Context, scope, key string) error {
	return r.rdb.Del(ctx, fmt.Sprintf("ratelimit:%s:%s", scope, key)).Err()
}
