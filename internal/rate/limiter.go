package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds refresh throttle tuning parameters.
type Config struct {
	Enabled     bool
	Prefix      string
	MaxAttempts int
	Window      time.Duration
}

// Limiter counts refresh attempts per token fingerprint.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "sg"
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one refresh attempt for fingerprint and reports ErrRateLimited
// once the window budget is exceeded.
func (l *Limiter) Allow(ctx context.Context, fingerprint string) error {
	if l == nil || !l.config.Enabled || fingerprint == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(fingerprint), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}

	return nil
}

// Attempts returns the attempt count in the current window.
func (l *Limiter) Attempts(ctx context.Context, fingerprint string) (int, error) {
	raw, err := l.redis.Get(ctx, l.key(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n, nil
}

// Reset clears the counter for fingerprint.
func (l *Limiter) Reset(ctx context.Context, fingerprint string) error {
	if err := l.redis.Del(ctx, l.key(fingerprint)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(fingerprint string) string {
	return l.config.Prefix + ":rf:" + fingerprint
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
